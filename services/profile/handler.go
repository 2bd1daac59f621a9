package profile

import (
	"errors"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"partnerbot/pkg/config"
	"partnerbot/pkg/errutil"
	"partnerbot/services/settings"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Handler serves the mini-app API and its static assets.
type Handler struct {
	cfg      *config.Config
	service  *Service
	settings *settings.Service
}

type HandlerParams struct {
	fx.In
	Config   *config.Config
	Service  *Service
	Settings *settings.Service
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		cfg:      p.Config,
		service:  p.Service,
		settings: p.Settings,
	}
}

func RegisterRoutes(engine *gin.Engine, h *Handler) {
	engine.GET("/api/profile", h.GetProfile)
	engine.POST("/api/profile", h.SaveProfile)
	engine.GET("/api/settings", h.GetSettings)

	engine.GET("/app", h.App)
	engine.Static("/static", filepath.Join(h.cfg.WebApp.Dir, "static"))
}

func (h *Handler) GetProfile(c *gin.Context) {
	userID, err := resolveUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	p, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		zap.L().Error("failed to load profile", zap.Int64("user_id", userID), zap.Error(err))
		c.Error(errutil.Internal("failed to load profile"))
		return
	}
	if p == nil {
		c.JSON(http.StatusOK, gin.H{"exists": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": true, "profile": p})
}

func (h *Handler) SaveProfile(c *gin.Context) {
	userID, err := resolveUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var p UserProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.Error(errutil.BadRequest("invalid body", errutil.WithErr(err)))
		return
	}
	p.UserID = userID

	if err := h.service.Upsert(c.Request.Context(), &p); err != nil {
		switch {
		case errors.Is(err, ErrMissingField):
			c.Error(errutil.ValidationFailed("all fields are required"))
		case errors.Is(err, ErrFieldTooLong):
			c.Error(errutil.ValidationFailed("field exceeds maximum length"))
		default:
			zap.L().Error("failed to save profile", zap.Int64("user_id", userID), zap.Error(err))
			c.Error(errutil.Internal("failed to save profile"))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) GetSettings(c *gin.Context) {
	links, err := h.settings.GetLinks(c.Request.Context())
	if err != nil {
		zap.L().Error("failed to load links", zap.Error(err))
		c.Error(errutil.Internal("failed to load settings"))
		return
	}

	c.JSON(http.StatusOK, links)
}

func (h *Handler) App(c *gin.Context) {
	c.File(filepath.Join(h.cfg.WebApp.Dir, "index.html"))
}

// resolveUserID takes the Telegram user id from the query string, falling
// back to the X-TG-User-ID header set by the mini app.
func resolveUserID(c *gin.Context) (int64, error) {
	raw := c.Query("user_id")
	if raw == "" {
		raw = c.GetHeader("X-TG-User-ID")
	}
	if raw == "" {
		return 0, errutil.BadRequest("user_id is required")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errutil.BadRequest("user_id must be a positive integer")
	}
	return id, nil
}

// WebAppURL builds the mini-app link for a menu button, carrying the
// user's language and referral code.
func WebAppURL(cfg *config.Config, lang, ref string) string {
	u := url.URL{Scheme: "https", Host: cfg.WebApp.Domain, Path: "/app"}
	q := u.Query()
	if lang != "" {
		q.Set("lang", lang)
	}
	if ref != "" {
		q.Set("ref", ref)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

package postback

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"partnerbot/pkg/config"
	"partnerbot/pkg/telegram"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// rawPayloadLimit caps the rendered raw parameter dump in the channel
// notification.
const rawPayloadLimit = 1200

// Handler is the ingestion endpoint: secret gate, classify, record, then a
// best-effort channel notification that never fails the inbound request.
type Handler struct {
	cfg     *config.Config
	service *Service
	sender  telegram.Sender
}

type HandlerParams struct {
	fx.In
	Config  *config.Config
	Service *Service
	Sender  telegram.Sender
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		cfg:     p.Config,
		service: p.Service,
		sender:  p.Sender,
	}
}

func RegisterRoutes(engine *gin.Engine, h *Handler) {
	engine.GET("/postback", h.Ingest)
	engine.POST("/postback", h.Ingest)
}

// Ingest handles GET|POST /postback. Responses: 403 on a bad secret (no side
// effects), 200 when the channel notification went out, 202 when the event
// was recorded but the notification could not be delivered. The 202 keeps
// the affiliate network from retrying a request whose record is already
// durable.
func (h *Handler) Ingest(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	params := flattenParams(c)

	if subtle.ConstantTimeCompare([]byte(params["secret"]), []byte(h.cfg.Postback.Secret)) != 1 {
		c.String(http.StatusForbidden, "forbidden")
		return
	}

	event := Classify(params)
	userID, _ := ExtractRecipientID(params)

	if _, err := h.service.Record(c.Request.Context(), userID, event, params, time.Now()); err != nil {
		zapLog.Error("failed to persist postback", zap.Error(err))
		c.String(http.StatusInternalServerError, "error")
		return
	}

	text := formatNotification(event, params)
	res := h.sender.SendMessage(c.Request.Context(), h.cfg.Telegram.ChannelID, text, nil)
	if res.Outcome != telegram.Delivered {
		zapLog.Warn("postback recorded but channel notification failed",
			zap.String("event", event.String()),
			zap.Int64("user_id", userID),
			zap.Error(res.Err),
		)
		c.String(http.StatusAccepted, "accepted")
		return
	}

	c.String(http.StatusOK, "ok")
}

// flattenParams reduces the request to a flat string map: query parameters
// on GET, form fields on POST. Repeated keys keep the first value.
func flattenParams(c *gin.Context) map[string]string {
	params := map[string]string{}

	if c.Request.Method == http.MethodGet {
		for k, vs := range c.Request.URL.Query() {
			if len(vs) > 0 {
				params[k] = vs[0]
			}
		}
		return params
	}

	_ = c.Request.ParseForm()
	for k, vs := range c.Request.PostForm {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params
}

func formatNotification(event Event, q map[string]string) string {
	parts := []string{fmt.Sprintf("📬 <b>Postback</b> — <code>%s</code>", event)}

	if uid, ok := ExtractRecipientID(q); ok {
		parts = append(parts, fmt.Sprintf("👤 TG: <code>%d</code>", uid))
	}

	if amount := q["amount"]; amount != "" {
		parts = append(parts, fmt.Sprintf("💸 Amount: <b>%s</b>", html.EscapeString(amount)))
	}

	if tx := txValue(q); tx != "" {
		parts = append(parts, fmt.Sprintf("🧾 Tx: <code>%s</code>", html.EscapeString(tx)))
	}

	if country := q["country"]; country != "" {
		parts = append(parts, fmt.Sprintf("🌍 Country: <code>%s</code>", html.EscapeString(country)))
	}

	var subs []string
	if s1 := q["sub1"]; s1 != "" {
		subs = append(subs, fmt.Sprintf("sub1=<code>%s</code>", html.EscapeString(s1)))
	}
	if s2 := q["sub2"]; s2 != "" {
		subs = append(subs, fmt.Sprintf("sub2=<code>%s</code>", html.EscapeString(s2)))
	}
	if len(subs) > 0 {
		parts = append(parts, "🏷 "+strings.Join(subs, " • "))
	}

	// json.Marshal sorts map keys, so the dump is stable across retries.
	raw, err := json.Marshal(q)
	if err == nil {
		dump := string(raw)
		if len([]rune(dump)) > rawPayloadLimit {
			dump = string([]rune(dump)[:rawPayloadLimit]) + "…"
		}
		parts = append(parts, fmt.Sprintf("\n<blockquote expandable>%s</blockquote>", html.EscapeString(dump)))
	}

	return strings.Join(parts, "\n")
}

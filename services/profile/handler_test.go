package profile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"partnerbot/pkg/config"
	"partnerbot/pkg/middleware"
	"partnerbot/services/settings"
	"partnerbot/services/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t, &UserProfile{}, &settings.Setting{})

	cfg := &config.Config{}
	cfg.Links.SupportURL = "https://t.me/support"
	cfg.WebApp.Dir = t.TempDir()

	settingsSvc := settings.NewService(settings.ServiceParams{DB: db, Config: cfg})
	h := NewHandler(HandlerParams{
		Config:   cfg,
		Service:  NewService(db),
		Settings: settingsSvc,
	})

	engine := gin.New()
	engine.Use(middleware.Error())
	RegisterRoutes(engine, h)
	return engine
}

func postProfile(t *testing.T, engine *gin.Engine, uid string, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/profile", strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("X-TG-User-ID", uid)
	}
	engine.ServeHTTP(w, req)
	return w
}

func validBody() map[string]string {
	return map[string]string{
		"full_name":  "Ivan Petrov",
		"account_id": "acc-1",
		"tg_handle":  "ivan",
		"geo":        "RU",
	}
}

func TestSaveAndLoadProfile(t *testing.T) {
	engine := newTestEngine(t)

	w := postProfile(t, engine, "77", validBody())
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/profile?user_id=77", nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Exists  bool        `json:"exists"`
		Profile UserProfile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Exists)
	require.Equal(t, "@ivan", body.Profile.TgHandle)
	require.Equal(t, int64(77), body.Profile.UserID)
}

func TestGetProfileRequiresUserID(t *testing.T) {
	engine := newTestEngine(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProfileUnknownUser(t *testing.T) {
	engine := newTestEngine(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/profile?user_id=1", nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"exists":false`)
}

func TestSaveProfileValidation(t *testing.T) {
	engine := newTestEngine(t)

	body := validBody()
	body["geo"] = ""
	w := postProfile(t, engine, "77", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "validation_failed")

	body = validBody()
	body["full_name"] = strings.Repeat("a", 150)
	w = postProfile(t, engine, "77", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = postProfile(t, engine, "not-a-number", validBody())
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsEndpointReturnsLinks(t *testing.T) {
	engine := newTestEngine(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var links settings.Links
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &links))
	require.Equal(t, "https://t.me/support", links.SupportURL)
}

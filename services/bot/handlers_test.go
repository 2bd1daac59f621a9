package bot

import (
	"context"
	"testing"

	"partnerbot/pkg/config"
	"partnerbot/pkg/telegram"
	"partnerbot/services/settings"
	"partnerbot/services/testutil"
	"partnerbot/services/user"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeSender struct {
	sent []string
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) telegram.SendResult {
	f.sent = append(f.sent, text)
	return telegram.SendResult{Outcome: telegram.Delivered}
}

func newTestHandlers(t *testing.T) (*Handlers, *user.Service, *fakeSender) {
	t.Helper()

	db := testutil.NewTestDB(t, &user.User{}, &settings.Setting{})

	cfg := &config.Config{}
	cfg.WebApp.Domain = "app.example.com"

	users := user.NewService(user.ServiceParams{DB: db})
	settingsSvc := settings.NewService(settings.ServiceParams{DB: db, Config: cfg})
	sender := &fakeSender{}

	h := NewHandlers(HandlersParams{
		Config:   cfg,
		Users:    users,
		Settings: settingsSvc,
		Sender:   sender,
	})
	return h, users, sender
}

func startMessage(id int64, langCode string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: id, LanguageCode: langCode, FirstName: "Ivan"},
		Chat: &tgbotapi.Chat{ID: id},
		Text: "/start",
	}
}

func TestStartRegistersWithClientLocale(t *testing.T) {
	h, users, sender := newTestHandlers(t)
	ctx := context.Background()

	h.handleStart(ctx, startMessage(42, "de"))

	u, err := users.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, "de", u.Lang)
	require.Len(t, sender.sent, 1)
}

func TestStartKeepsChosenLanguage(t *testing.T) {
	h, users, _ := newTestHandlers(t)
	ctx := context.Background()

	h.handleStart(ctx, startMessage(42, "ru"))
	require.NoError(t, users.SetLang(ctx, 42, "en"))

	// A re-start with a russian client locale must not move the user back.
	h.handleStart(ctx, startMessage(42, "ru"))

	u, err := users.Get(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "en", u.Lang)
}

func TestNormalizeTag(t *testing.T) {
	cases := map[string]string{
		"ru":    "ru",
		"RU":    "ru",
		"en-US": "en",
		"uk":    "ui",
		"uz":    "ozbek",
		"id":    "in",
		"ja":    "",
		"":      "",
	}
	for in, want := range cases {
		require.Equal(t, want, normalizeTag(in), "code=%q", in)
	}
}

func TestLangKeyboardCoversAllTags(t *testing.T) {
	kb := LangKeyboard()

	var buttons int
	for _, row := range kb.InlineKeyboard {
		buttons += len(row)
	}
	require.Equal(t, len(config.SupportedLangs), buttons)

	first := kb.InlineKeyboard[0][0]
	require.NotNil(t, first.CallbackData)
	require.Equal(t, langCallbackPrefix+"ru", *first.CallbackData)
}

func TestMenuKeyboardCarriesLangAndRef(t *testing.T) {
	cfg := &config.Config{}
	cfg.WebApp.Domain = "app.example.com"

	links := settings.Links{
		SupportURL: "https://t.me/support",
		RefURL:     "https://example.com",
		TokenURL:   "https://token.example.com",
	}

	kb := MenuKeyboard(cfg, links, "en", "ref_7")
	require.NotEmpty(t, kb.InlineKeyboard)

	app := kb.InlineKeyboard[0][0]
	require.NotNil(t, app.URL)
	require.Contains(t, *app.URL, "app.example.com")
	require.Contains(t, *app.URL, "lang=en")
	require.Contains(t, *app.URL, "ref=ref_7")
}

func TestMenuKeyboardOmitsEmptyLinks(t *testing.T) {
	cfg := &config.Config{}
	cfg.WebApp.Domain = "app.example.com"

	kb := MenuKeyboard(cfg, settings.Links{}, "ru", "")

	// Only the mini-app row survives without configured links.
	require.Len(t, kb.InlineKeyboard, 1)
}

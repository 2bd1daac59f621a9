package bot

import (
	"context"
	"strings"

	"partnerbot/pkg/config"
	"partnerbot/pkg/i18n"
	"partnerbot/pkg/telegram"
	"partnerbot/services/settings"
	"partnerbot/services/user"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Handlers implements the user-facing commands. The admin flows live in
// services/admin and are consulted first by the router.
type Handlers struct {
	cfg      *config.Config
	users    *user.Service
	settings *settings.Service
	sender   telegram.Sender
}

type HandlersParams struct {
	fx.In
	Config   *config.Config
	Users    *user.Service
	Settings *settings.Service
	Sender   telegram.Sender
}

func NewHandlers(p HandlersParams) *Handlers {
	return &Handlers{
		cfg:      p.Config,
		users:    p.Users,
		settings: p.Settings,
		sender:   p.Sender,
	}
}

// handleStart registers the sender, capturing the referral payload on the
// first contact only. First-time users pick a language before the menu.
func (h *Handlers) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	from := msg.From

	u, created, err := h.users.Upsert(ctx, user.UpsertParams{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Lang:      normalizeTag(from.LanguageCode),
		RefCode:   strings.TrimSpace(msg.CommandArguments()),
	})
	if err != nil {
		zap.L().Error("failed to upsert user", zap.Int64("user_id", from.ID), zap.Error(err))
		return
	}

	if created {
		h.sender.SendMessage(ctx, msg.Chat.ID, i18n.T("lang.title", u.Lang), LangKeyboard())
		return
	}
	h.sendMenu(ctx, msg.Chat.ID, u)
}

func (h *Handlers) handleLang(ctx context.Context, msg *tgbotapi.Message, lang string) {
	h.sender.SendMessage(ctx, msg.Chat.ID, i18n.T("lang.title", lang), LangKeyboard())
}

func (h *Handlers) handleInfo(ctx context.Context, msg *tgbotapi.Message, lang string) {
	text := i18n.T("info.title", lang) + "\n\n" + i18n.T("info.text", lang)
	h.sender.SendMessage(ctx, msg.Chat.ID, text, nil)
}

// handleLangCallback commits the picked language and shows the menu in it.
func (h *Handlers) handleLangCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	tag := normalizeTag(strings.TrimPrefix(cb.Data, langCallbackPrefix))
	if tag == "" {
		tag = config.DefaultLang
	}

	if err := h.users.SetLang(ctx, cb.From.ID, tag); err != nil {
		zap.L().Error("failed to set language", zap.Int64("user_id", cb.From.ID), zap.Error(err))
		return
	}

	u, err := h.users.Get(ctx, cb.From.ID)
	if err != nil || u == nil {
		return
	}
	h.sendMenu(ctx, cb.Message.Chat.ID, u)
}

func (h *Handlers) sendMenu(ctx context.Context, chatID int64, u *user.User) {
	links, err := h.settings.GetLinks(ctx)
	if err != nil {
		zap.L().Warn("failed to load links for menu", zap.Error(err))
	}

	h.sender.SendMessage(ctx, chatID,
		i18n.T("start.title", u.Lang),
		MenuKeyboard(h.cfg, links, u.Lang, u.RefCode))
}

// normalizeTag maps a Telegram language_code onto a supported tag, or ""
// when nothing matches.
func normalizeTag(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexByte(code, '-'); i > 0 {
		code = code[:i]
	}
	for _, tag := range config.SupportedLangs {
		if code == tag {
			return tag
		}
	}
	switch code {
	case "uk":
		return "ui"
	case "uz":
		return "ozbek"
	case "id":
		return "in"
	}
	return ""
}

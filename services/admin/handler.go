package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"partnerbot/pkg/config"
	"partnerbot/pkg/i18n"
	"partnerbot/pkg/telegram"
	"partnerbot/services/broadcast"
	"partnerbot/services/postback"
	"partnerbot/services/settings"
	"partnerbot/services/user"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	cbBroadcast  = "admin:broadcast"
	cbStats      = "admin:stats"
	cbLinks      = "admin:links"
	cbLinkPrefix = "admin:link:"
	cbLangPrefix = "admin:bc_lang:"
	cbLangAll    = "admin:bc_lang:all"
	cbCancelRun  = "admin:cancel_run"
	cbBack       = "admin:back"
)

// Handler drives every admin-only flow. The bot router hands it commands,
// callbacks and free text; each returns whether the update was consumed.
type Handler struct {
	cfg        *config.Config
	sessions   *SessionStore
	users      *user.Service
	broadcasts *broadcast.Service
	postbacks  *postback.Service
	settings   *settings.Service
	sender     telegram.Sender
}

type HandlerParams struct {
	fx.In
	Config     *config.Config
	Sessions   *SessionStore
	Users      *user.Service
	Broadcasts *broadcast.Service
	Postbacks  *postback.Service
	Settings   *settings.Service
	Sender     telegram.Sender
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		cfg:        p.Config,
		sessions:   p.Sessions,
		users:      p.Users,
		broadcasts: p.Broadcasts,
		postbacks:  p.Postbacks,
		settings:   p.Settings,
		sender:     p.Sender,
	}
}

func (h *Handler) IsAdmin(userID int64) bool {
	return userID == h.cfg.Telegram.AdminID
}

// HandleCommand consumes /admin and /cancel from the admin. Non-admin
// senders are rejected before any session access.
func (h *Handler) HandleCommand(ctx context.Context, userID, chatID int64, cmd string) bool {
	if !h.IsAdmin(userID) {
		return false
	}

	switch cmd {
	case "admin":
		h.sessions.Reset(userID)
		h.sender.SendMessage(ctx, chatID, "⚙️ <b>Панель администратора</b>", menuKeyboard())
		return true
	case "cancel":
		h.sessions.Reset(userID)
		h.cancelLatest(ctx, userID, chatID)
		return true
	}
	return false
}

func (h *Handler) HandleCallback(ctx context.Context, userID, chatID int64, data string) bool {
	if !h.IsAdmin(userID) || !strings.HasPrefix(data, "admin:") {
		return false
	}

	switch {
	case data == cbBroadcast:
		// Text arriving before an audience is picked goes to everyone.
		h.sessions.Set(userID, Session{State: StateAwaitBroadcastText, LangFilter: ""})
		h.sender.SendMessage(ctx, chatID, "Кому отправить рассылку?", langKeyboard())
	case strings.HasPrefix(data, cbLangPrefix):
		filter := strings.TrimPrefix(data, cbLangPrefix)
		if filter == "all" {
			filter = ""
		}
		h.sessions.Set(userID, Session{State: StateAwaitBroadcastText, LangFilter: filter})
		h.sender.SendMessage(ctx, chatID, "Пришлите текст рассылки одним сообщением.", nil)
	case data == cbStats:
		h.sendStats(ctx, chatID)
	case data == cbLinks:
		h.sendLinksMenu(ctx, chatID)
	case strings.HasPrefix(data, cbLinkPrefix):
		h.startLinkEdit(ctx, userID, chatID, strings.TrimPrefix(data, cbLinkPrefix))
	case data == cbCancelRun:
		h.sessions.Reset(userID)
		h.cancelLatest(ctx, userID, chatID)
	case data == cbBack:
		h.sessions.Reset(userID)
		h.sender.SendMessage(ctx, chatID, "⚙️ <b>Панель администратора</b>", menuKeyboard())
	default:
		return false
	}
	return true
}

// HandleText consumes free text when a session is waiting for it.
func (h *Handler) HandleText(ctx context.Context, userID, chatID int64, text string) bool {
	if !h.IsAdmin(userID) {
		return false
	}

	sess := h.sessions.Get(userID)
	switch sess.State {
	case StateAwaitBroadcastText:
		h.sessions.Reset(userID)
		h.startBroadcast(ctx, userID, chatID, text, sess.LangFilter)
		return true
	case StateAwaitLinkSupport:
		return h.commitLink(ctx, userID, chatID, settings.KeySupportURL, text)
	case StateAwaitLinkRef:
		return h.commitLink(ctx, userID, chatID, settings.KeyRefURL, text)
	case StateAwaitLinkToken:
		return h.commitLink(ctx, userID, chatID, settings.KeyTokenURL, text)
	}
	return false
}

func (h *Handler) startBroadcast(ctx context.Context, userID, chatID int64, body, langFilter string) {
	job, err := h.broadcasts.Create(ctx, userID, body, langFilter, nil)
	if err != nil {
		zap.L().Error("failed to create broadcast", zap.Error(err))
		h.sender.SendMessage(ctx, chatID, "Не удалось запустить рассылку.", nil)
		return
	}

	audience := "все языки"
	if langFilter != "" {
		audience = langFilter
	}
	h.sender.SendMessage(ctx, chatID,
		i18n.Tf("admin.broadcast.queued", config.DefaultLang, map[string]string{
			"id":       strconv.FormatInt(job.ID, 10),
			"audience": audience,
		}),
		cancelKeyboard())
}

func (h *Handler) cancelLatest(ctx context.Context, userID, chatID int64) {
	job, err := h.broadcasts.Latest(ctx, userID)
	if err != nil {
		if errors.Is(err, broadcast.ErrJobNotFound) {
			h.sender.SendMessage(ctx, chatID, "Активных рассылок нет.", nil)
			return
		}
		zap.L().Error("failed to load latest broadcast", zap.Error(err))
		return
	}

	if err := h.broadcasts.Cancel(ctx, job.ID); err != nil {
		h.sender.SendMessage(ctx, chatID, "Нечего останавливать.", nil)
		return
	}
	h.sender.SendMessage(ctx, chatID, fmt.Sprintf("⛔ Рассылка #%d будет остановлена.", job.ID), nil)
}

func (h *Handler) sendStats(ctx context.Context, chatID int64) {
	total, err := h.users.CountByLang(ctx, "")
	if err != nil {
		zap.L().Error("failed to count users", zap.Error(err))
		return
	}

	lines := []string{fmt.Sprintf("📊 <b>Статистика</b>\nВсего активных: <b>%d</b>", total)}
	for _, lang := range config.SupportedLangs {
		n, err := h.users.CountByLang(ctx, lang)
		if err != nil || n == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %d", lang, n))
	}

	if events, err := h.postbacks.CountByEvent(ctx); err == nil && len(events) > 0 {
		lines = append(lines, "\n<b>Постбеки</b>")
		for _, ev := range []postback.Event{
			postback.EventRegister, postback.EventFTD, postback.EventRTD,
			postback.EventAllDeposits, postback.EventIncome, postback.EventAppStart,
		} {
			if n := events[ev]; n > 0 {
				lines = append(lines, fmt.Sprintf("%s: %d", ev, n))
			}
		}
	}

	h.sender.SendMessage(ctx, chatID, strings.Join(lines, "\n"), nil)
}

func (h *Handler) sendLinksMenu(ctx context.Context, chatID int64) {
	links, err := h.settings.GetLinks(ctx)
	if err != nil {
		zap.L().Error("failed to load links", zap.Error(err))
		return
	}

	text := fmt.Sprintf(
		"🔗 <b>Ссылки</b>\nПоддержка: %s\nРеферальная: %s\nТокен: %s",
		links.SupportURL, links.RefURL, links.TokenURL,
	)
	h.sender.SendMessage(ctx, chatID, text, linksKeyboard())
}

func (h *Handler) startLinkEdit(ctx context.Context, userID, chatID int64, which string) {
	var state State
	switch which {
	case "support":
		state = StateAwaitLinkSupport
	case "ref":
		state = StateAwaitLinkRef
	case "token":
		state = StateAwaitLinkToken
	default:
		return
	}

	h.sessions.Set(userID, Session{State: state})
	h.sender.SendMessage(ctx, chatID, "Пришлите новую ссылку (http:// или https://).", nil)
}

// commitLink validates the URL scheme. A bad scheme re-prompts and keeps
// the session state so the admin can retry without navigating the menu.
func (h *Handler) commitLink(ctx context.Context, userID, chatID int64, key, raw string) bool {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		h.sender.SendMessage(ctx, chatID, "Ссылка должна начинаться с http:// или https://. Попробуйте ещё раз.", nil)
		return true
	}

	if err := h.settings.Set(ctx, key, raw); err != nil {
		zap.L().Error("failed to save link", zap.String("key", key), zap.Error(err))
		h.sender.SendMessage(ctx, chatID, "Не удалось сохранить ссылку.", nil)
		return true
	}

	h.sessions.Reset(userID)
	h.sender.SendMessage(ctx, chatID, "✅ Ссылка обновлена.", nil)
	return true
}

func menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📣 Рассылка", cbBroadcast),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", cbStats),
			tgbotapi.NewInlineKeyboardButtonData("🔗 Ссылки", cbLinks),
		),
	)
}

func langKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌐 Все языки", cbLangAll),
		),
	}

	var row []tgbotapi.InlineKeyboardButton
	for _, lang := range config.SupportedLangs {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(lang, cbLangPrefix+lang))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("← Назад", cbBack),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func linksKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Поддержка", cbLinkPrefix+"support"),
			tgbotapi.NewInlineKeyboardButtonData("Реферальная", cbLinkPrefix+"ref"),
			tgbotapi.NewInlineKeyboardButtonData("Токен", cbLinkPrefix+"token"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("← Назад", cbBack),
		),
	)
}

func cancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⛔ Остановить", cbCancelRun),
		),
	)
}

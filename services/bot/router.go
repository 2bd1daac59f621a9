package bot

import (
	"context"

	"partnerbot/services/admin"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Router consumes the long-poll update stream on a single goroutine and
// dispatches each update exactly once: admin flows first, then the
// user-facing handlers.
type Router struct {
	bot      *tgbotapi.BotAPI
	handlers *Handlers
	admin    *admin.Handler

	cancel context.CancelFunc
	done   chan struct{}
}

type RouterParams struct {
	fx.In
	Bot      *tgbotapi.BotAPI
	Handlers *Handlers
	Admin    *admin.Handler
}

func NewRouter(p RouterParams) *Router {
	return &Router{
		bot:      p.Bot,
		handlers: p.Handlers,
		admin:    p.Admin,
		done:     make(chan struct{}),
	}
}

func RegisterRouter(lc fx.Lifecycle, r *Router) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			r.setCommands()

			loopCtx, cancel := context.WithCancel(context.Background())
			r.cancel = cancel
			go r.run(loopCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			r.bot.StopReceivingUpdates()
			if r.cancel != nil {
				r.cancel()
			}
			select {
			case <-r.done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}

func (r *Router) setCommands() {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Главное меню"},
		tgbotapi.BotCommand{Command: "lang", Description: "Сменить язык"},
		tgbotapi.BotCommand{Command: "info", Description: "О боте"},
	)
	if _, err := r.bot.Request(cmds); err != nil {
		zap.L().Warn("failed to set bot commands", zap.Error(err))
	}
}

func (r *Router) run(ctx context.Context) {
	defer close(r.done)

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30

	updates := r.bot.GetUpdatesChan(cfg)
	zap.L().Info("[Bot] Update loop started")

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			r.dispatch(ctx, update)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("panic in update handler", zap.Any("panic", rec))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		r.dispatchCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		r.dispatchMessage(ctx, update.Message)
	}
}

func (r *Router) dispatchCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Acknowledge immediately so the client stops the spinner.
	if _, err := r.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		zap.L().Warn("failed to answer callback", zap.Error(err))
	}

	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	if r.admin.HandleCallback(ctx, cb.From.ID, chatID, cb.Data) {
		return
	}
	if len(cb.Data) > len(langCallbackPrefix) && cb.Data[:len(langCallbackPrefix)] == langCallbackPrefix {
		r.handlers.handleLangCallback(ctx, cb)
	}
}

func (r *Router) dispatchMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			r.handlers.handleStart(ctx, msg)
			return
		case "lang":
			r.handlers.handleLang(ctx, msg, r.handlers.users.Lang(ctx, msg.From.ID))
			return
		case "info":
			r.handlers.handleInfo(ctx, msg, r.handlers.users.Lang(ctx, msg.From.ID))
			return
		default:
			if r.admin.HandleCommand(ctx, msg.From.ID, msg.Chat.ID, msg.Command()) {
				return
			}
		}
		return
	}

	if msg.Text != "" && r.admin.HandleText(ctx, msg.From.ID, msg.Chat.ID, msg.Text) {
		return
	}
}

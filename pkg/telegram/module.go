package telegram

import (
	"net/http"

	"partnerbot/pkg/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("telegram",
	fx.Provide(
		NewBot,
		NewSender,
	),
)

func NewBot(cfg *config.Config) (*tgbotapi.BotAPI, error) {
	client := &http.Client{Timeout: cfg.Telegram.SendTimeout}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}

	zap.L().Info("[Telegram] Authorized", zap.String("username", bot.Self.UserName))
	return bot, nil
}

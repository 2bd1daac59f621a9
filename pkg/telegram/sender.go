package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Outcome is the closed classification of a delivery attempt. Callers branch
// on this set instead of inspecting transport errors.
type Outcome int

const (
	// Delivered means the platform accepted the message.
	Delivered Outcome = iota
	// PermanentRecipientFailure means the recipient is unreachable for good:
	// the bot is blocked, the account is gone, or the target id is invalid.
	PermanentRecipientFailure
	// TransientFailure covers everything else: network errors, rate limits,
	// unexpected responses. The recipient stays eligible for future sends.
	TransientFailure
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case PermanentRecipientFailure:
		return "permanent_recipient_failure"
	default:
		return "transient_failure"
	}
}

type SendResult struct {
	Outcome Outcome
	Err     error
}

// Sender is the messaging capability consumed by the postback notifier and
// the broadcast dispatcher.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) SendResult
}

type botSender struct {
	bot *tgbotapi.BotAPI
}

func NewSender(bot *tgbotapi.BotAPI) Sender {
	return &botSender{bot: bot}
}

// SendMessage delivers html-formatted text. The attempt is bounded by the
// bot's HTTP client timeout; ctx cancellation short-circuits before dialing.
func (s *botSender) SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) SendResult {
	if err := ctx.Err(); err != nil {
		return SendResult{Outcome: TransientFailure, Err: err}
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	if _, err := s.bot.Send(msg); err != nil {
		return SendResult{Outcome: ClassifyError(err), Err: err}
	}
	return SendResult{Outcome: Delivered}
}

// ClassifyError maps a Telegram API error onto the closed Outcome set.
// 403 means the user blocked the bot; a handful of 400 responses identify
// invalid targets. Everything else is assumed recoverable.
func ClassifyError(err error) Outcome {
	if err == nil {
		return Delivered
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 403 {
			return PermanentRecipientFailure
		}
		if apiErr.Code == 400 && isInvalidTarget(apiErr.Message) {
			return PermanentRecipientFailure
		}
		return TransientFailure
	}

	if isInvalidTarget(err.Error()) {
		return PermanentRecipientFailure
	}
	return TransientFailure
}

func isInvalidTarget(msg string) bool {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "bot was blocked"),
		strings.Contains(m, "user is deactivated"),
		strings.Contains(m, "chat not found"),
		strings.Contains(m, "peer_id_invalid"):
		return true
	}
	return false
}

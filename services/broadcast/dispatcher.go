package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"partnerbot/pkg/config"
	"partnerbot/pkg/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Waiter paces the send loop. Satisfied by *rate.Limiter; tests inject a
// no-op implementation to run without wall-clock delays.
type Waiter interface {
	Wait(ctx context.Context) error
}

// RecipientStore is the slice of the user service the dispatcher needs.
type RecipientStore interface {
	ListRecipients(ctx context.Context, lang string) ([]int64, error)
	SetBlocked(ctx context.Context, id int64, blocked bool) error
}

// Outcome aggregates one run. NoRecipients is distinct from a run that
// delivered to zero recipients: the job never started.
type Outcome struct {
	NoRecipients bool
	Cancelled    bool
	Total        int
	Sent         int
	Failed       int
}

// Dispatcher fans a job body out to the selected recipient set with full
// partial-failure isolation: one bad recipient never stops the run.
type Dispatcher struct {
	service    *Service
	users      RecipientStore
	sender     telegram.Sender
	limiter    Waiter
	flushEvery int
}

type DispatcherParams struct {
	fx.In
	Config  *config.Config `optional:"true"`
	Service *Service
	Users   RecipientStore
	Sender  telegram.Sender
	Limiter Waiter
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	flushEvery := 25
	if p.Config != nil && p.Config.Broadcast.FlushEvery > 0 {
		flushEvery = p.Config.Broadcast.FlushEvery
	}
	return &Dispatcher{
		service:    p.Service,
		users:      p.Users,
		sender:     p.Sender,
		limiter:    p.Limiter,
		flushEvery: flushEvery,
	}
}

// WithFlushEvery overrides the counter persistence interval.
func (d *Dispatcher) WithFlushEvery(n int) *Dispatcher {
	if n > 0 {
		d.flushEvery = n
	}
	return d
}

// Dispatch runs one job to completion. Per-recipient failures are classified
// and contained; cancellation is honored at batch boundaries.
func (d *Dispatcher) Dispatch(ctx context.Context, job *Job) (Outcome, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.Int64("job_id", job.ID),
		zap.String("lang_filter", job.LangFilter),
	)

	recipients, err := d.users.ListRecipients(ctx, job.LangFilter)
	if err != nil {
		return Outcome{}, err
	}

	if len(recipients) == 0 {
		// No job execution at all: the row stays in draft.
		zapLog.Info("broadcast skipped, no recipients")
		return Outcome{NoRecipients: true}, nil
	}

	total := len(recipients)
	if err := d.service.markRunning(ctx, job.ID, total, time.Now()); err != nil {
		return Outcome{}, err
	}
	zapLog.Info("broadcast started", zap.Int("total", total))

	markup := decodeMarkup(job.Markup)

	out := Outcome{Total: total}
	for i, uid := range recipients {
		if i%d.flushEvery == 0 && i > 0 {
			if err := d.service.flushCounters(ctx, job.ID, out.Sent, out.Failed); err != nil {
				zapLog.Warn("failed to flush broadcast counters", zap.Error(err))
			}
			status, err := d.service.currentStatus(ctx, job.ID)
			if err == nil && status == StatusCancelled {
				out.Cancelled = true
				break
			}
		}

		if err := d.limiter.Wait(ctx); err != nil {
			// Context cancelled while pacing: stop cooperatively.
			out.Cancelled = true
			break
		}

		res := d.attempt(ctx, uid, job.Body, markup)
		switch res.Outcome {
		case telegram.Delivered:
			out.Sent++
		case telegram.PermanentRecipientFailure:
			if err := d.users.SetBlocked(ctx, uid, true); err != nil {
				zapLog.Warn("failed to mark recipient blocked",
					zap.Int64("user_id", uid), zap.Error(err))
			}
			out.Failed++
		default:
			out.Failed++
		}
	}

	status := StatusDone
	if out.Cancelled {
		status = StatusCancelled
	}
	if err := d.service.finish(ctx, job.ID, status, out.Sent, out.Failed, time.Now()); err != nil {
		zapLog.Error("failed to finalize broadcast job", zap.Error(err))
	}

	zapLog.Info("broadcast finished",
		zap.String("status", status.String()),
		zap.Int("total", out.Total),
		zap.Int("sent", out.Sent),
		zap.Int("failed", out.Failed),
	)
	return out, nil
}

// attempt wraps a single send so an unexpected panic counts as one transient
// failure instead of killing the run.
func (d *Dispatcher) attempt(ctx context.Context, chatID int64, text string, markup interface{}) (res telegram.SendResult) {
	defer func() {
		if r := recover(); r != nil {
			res = telegram.SendResult{
				Outcome: telegram.TransientFailure,
				Err:     fmt.Errorf("send panicked: %v", r),
			}
		}
	}()
	return d.sender.SendMessage(ctx, chatID, text, markup)
}

// decodeMarkup turns the stored button layout back into a keyboard. A broken
// layout degrades to a text-only message.
func decodeMarkup(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var markup tgbotapi.InlineKeyboardMarkup
	if err := json.Unmarshal(raw, &markup); err != nil || len(markup.InlineKeyboard) == 0 {
		return nil
	}
	return markup
}

package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"partnerbot/pkg/telegram"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewDispatchTask builds the queue task for one job.
func NewDispatchTask(jobID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(DispatchPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDispatch, payload, asynq.Queue(QueueName), asynq.MaxRetry(3)), nil
}

// Task consumes dispatch tasks from the queue and reports the outcome back
// to the job author.
type Task struct {
	service    *Service
	dispatcher *Dispatcher
	sender     telegram.Sender
}

type TaskParams struct {
	fx.In
	Service    *Service
	Dispatcher *Dispatcher
	Sender     telegram.Sender
}

func NewTask(p TaskParams) *Task {
	return &Task{
		service:    p.Service,
		dispatcher: p.Dispatcher,
		sender:     p.Sender,
	}
}

func (t *Task) HandleDispatchTask(ctx context.Context, task *asynq.Task) error {
	var payload DispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("broadcast: bad dispatch payload: %w: %w", err, asynq.SkipRetry)
	}

	job, err := t.service.Get(ctx, payload.JobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return fmt.Errorf("broadcast: job %d vanished: %w", payload.JobID, asynq.SkipRetry)
		}
		return err
	}

	switch job.Status {
	case StatusDraft, StatusRunning:
		// StatusRunning means a previous attempt crashed mid-run; re-running
		// may re-deliver to some recipients, which at-least-once allows.
	case StatusCancelled:
		zap.L().Info("broadcast cancelled before start", zap.Int64("job_id", job.ID))
		return nil
	default:
		zap.L().Info("broadcast already finished, skipping",
			zap.Int64("job_id", job.ID), zap.String("status", job.Status.String()))
		return nil
	}

	out, err := t.dispatcher.Dispatch(ctx, job)
	if err != nil {
		return err
	}

	t.notifyAuthor(ctx, job.AuthorID, out)
	return nil
}

// notifyAuthor is best-effort; the run result is already durable in the job
// row.
func (t *Task) notifyAuthor(ctx context.Context, authorID int64, out Outcome) {
	var text string
	switch {
	case out.NoRecipients:
		text = "Ни одного получателя не найдено."
	case out.Cancelled:
		text = fmt.Sprintf("⛔ Рассылка остановлена.\nВсего: %d\nУспешно: %d\nОшибок: %d",
			out.Total, out.Sent, out.Failed)
	default:
		text = fmt.Sprintf("✅ Рассылка завершена.\nВсего: %d\nУспешно: %d\nОшибок: %d",
			out.Total, out.Sent, out.Failed)
	}

	if res := t.sender.SendMessage(ctx, authorID, text, nil); res.Outcome != telegram.Delivered {
		zap.L().Warn("failed to notify broadcast author", zap.Error(res.Err))
	}
}

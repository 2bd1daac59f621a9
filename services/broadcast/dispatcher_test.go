package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"partnerbot/pkg/telegram"
	"partnerbot/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeWaiter struct {
	err error
}

func (f *fakeWaiter) Wait(ctx context.Context) error {
	return f.err
}

type fakeStore struct {
	recipients []int64
	listErr    error
	blocked    map[int64]bool
}

func (f *fakeStore) ListRecipients(ctx context.Context, lang string) ([]int64, error) {
	return f.recipients, f.listErr
}

func (f *fakeStore) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	if f.blocked == nil {
		f.blocked = map[int64]bool{}
	}
	f.blocked[id] = blocked
	return nil
}

// scriptSender resolves each send through a callback, so tests can fail
// specific recipients or flip job state mid-run.
type scriptSender struct {
	calls int
	fn    func(call int, chatID int64) telegram.SendResult
}

func (s *scriptSender) SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) telegram.SendResult {
	s.calls++
	return s.fn(s.calls, chatID)
}

func delivered(int, int64) telegram.SendResult {
	return telegram.SendResult{Outcome: telegram.Delivered}
}

func newTestJob(t *testing.T, svc *Service, langFilter string) *Job {
	t.Helper()
	job := &Job{
		ID:         time.Now().UnixNano(),
		AuthorID:   1,
		Body:       "hello",
		LangFilter: langFilter,
		Status:     StatusDraft,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, svc.db.Create(job).Error)
	return job
}

func newTestDispatcher(t *testing.T, store RecipientStore, sender telegram.Sender) (*Dispatcher, *Service) {
	t.Helper()
	db := testutil.NewTestDB(t, &Job{})
	svc := &Service{db: db}
	d := NewDispatcher(DispatcherParams{
		Service: svc,
		Users:   store,
		Sender:  sender,
		Limiter: &fakeWaiter{},
	})
	return d, svc
}

func TestDispatchDeliversToAll(t *testing.T) {
	store := &fakeStore{recipients: []int64{1, 2, 3, 4, 5}}
	sender := &scriptSender{fn: delivered}
	d, svc := newTestDispatcher(t, store, sender)
	job := newTestJob(t, svc, "")

	out, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, Outcome{Total: 5, Sent: 5}, out)

	stored, err := svc.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDone, stored.Status)
	require.Equal(t, 5, stored.Total)
	require.Equal(t, 5, stored.Sent)
	require.Equal(t, 0, stored.Failed)
	require.NotNil(t, stored.StartedAt)
	require.NotNil(t, stored.FinishedAt)
}

func TestDispatchEmptyAudience(t *testing.T) {
	store := &fakeStore{}
	sender := &scriptSender{fn: delivered}
	d, svc := newTestDispatcher(t, store, sender)
	job := newTestJob(t, svc, "de")

	out, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)
	require.True(t, out.NoRecipients)
	require.Zero(t, sender.calls)

	// The job never started: still a draft, untouched counters.
	stored, err := svc.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, stored.Status)
	require.Zero(t, stored.Total)
	require.Nil(t, stored.StartedAt)
}

func TestDispatchIsolatesFailures(t *testing.T) {
	store := &fakeStore{recipients: []int64{10, 20, 30, 40, 50}}
	sender := &scriptSender{fn: func(call int, chatID int64) telegram.SendResult {
		switch chatID {
		case 20:
			return telegram.SendResult{Outcome: telegram.PermanentRecipientFailure, Err: errors.New("blocked")}
		case 40:
			return telegram.SendResult{Outcome: telegram.TransientFailure, Err: errors.New("timeout")}
		}
		return telegram.SendResult{Outcome: telegram.Delivered}
	}}
	d, svc := newTestDispatcher(t, store, sender)
	job := newTestJob(t, svc, "")

	out, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, 5, out.Total)
	require.Equal(t, 3, out.Sent)
	require.Equal(t, 2, out.Failed)
	require.Equal(t, 5, sender.calls)

	// Only the permanent failure marks the recipient blocked.
	require.True(t, store.blocked[20])
	require.False(t, store.blocked[40])

	stored, err := svc.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDone, stored.Status)
}

func TestDispatchRecoversPanickingSend(t *testing.T) {
	store := &fakeStore{recipients: []int64{1, 2, 3}}
	sender := &scriptSender{fn: func(call int, chatID int64) telegram.SendResult {
		if chatID == 2 {
			panic("client bug")
		}
		return telegram.SendResult{Outcome: telegram.Delivered}
	}}
	d, svc := newTestDispatcher(t, store, sender)
	job := newTestJob(t, svc, "")

	out, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, 2, out.Sent)
	require.Equal(t, 1, out.Failed)
	require.False(t, store.blocked[2])
}

func TestDispatchHonorsCancelAtBatchBoundary(t *testing.T) {
	store := &fakeStore{recipients: []int64{1, 2, 3, 4, 5, 6}}

	var d *Dispatcher
	var svc *Service
	var job *Job

	sender := &scriptSender{fn: func(call int, chatID int64) telegram.SendResult {
		if call == 2 {
			require.NoError(t, svc.Cancel(context.Background(), job.ID))
		}
		return telegram.SendResult{Outcome: telegram.Delivered}
	}}

	d, svc = newTestDispatcher(t, store, sender)
	d.WithFlushEvery(2)
	job = newTestJob(t, svc, "")

	out, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)
	require.True(t, out.Cancelled)
	require.Equal(t, 2, out.Sent)
	require.Equal(t, 6, out.Total)

	stored, err := svc.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, stored.Status)
	require.Equal(t, 2, stored.Sent)
	require.NotNil(t, stored.FinishedAt)
}

func TestDispatchStopsWhenPacerFails(t *testing.T) {
	store := &fakeStore{recipients: []int64{1, 2, 3}}
	sender := &scriptSender{fn: delivered}

	db := testutil.NewTestDB(t, &Job{})
	svc := &Service{db: db}
	d := NewDispatcher(DispatcherParams{
		Service: svc,
		Users:   store,
		Sender:  sender,
		Limiter: &fakeWaiter{err: context.Canceled},
	})
	job := newTestJob(t, svc, "")

	out, err := d.Dispatch(context.Background(), job)
	require.NoError(t, err)
	require.True(t, out.Cancelled)
	require.Zero(t, out.Sent)

	stored, err := svc.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, stored.Status)
}

func TestDecodeMarkup(t *testing.T) {
	require.Nil(t, decodeMarkup(nil))
	require.Nil(t, decodeMarkup([]byte("not json")))
	require.Nil(t, decodeMarkup([]byte(`{"inline_keyboard":[]}`)))

	raw := []byte(`{"inline_keyboard":[[{"text":"go","url":"https://example.com"}]]}`)
	require.NotNil(t, decodeMarkup(raw))
}

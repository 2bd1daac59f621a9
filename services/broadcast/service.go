package broadcast

import (
	"context"
	"errors"
	"time"

	"partnerbot/pkg/task"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrJobNotFound = errors.New("broadcast: job not found")

// Service owns broadcast job rows and hands runs to the task queue.
type Service struct {
	db    *gorm.DB
	node  *snowflake.Node
	queue task.Enqueuer
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Queue task.Enqueuer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		node:  p.Node,
		queue: p.Queue,
	}
}

// Create persists a draft job and enqueues its dispatch. langFilter narrows
// the audience to one language tag; "" targets everyone.
func (s *Service) Create(ctx context.Context, authorID int64, body, langFilter string, markup datatypes.JSON) (*Job, error) {
	job := &Job{
		ID:         s.node.Generate().Int64(),
		AuthorID:   authorID,
		Body:       body,
		Markup:     markup,
		LangFilter: langFilter,
		Status:     StatusDraft,
		CreatedAt:  time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		zap.L().Error("failed to create broadcast job", zap.Error(err))
		return nil, err
	}

	t, err := NewDispatchTask(job.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.queue.Enqueue(t); err != nil {
		zap.L().Error("failed to enqueue broadcast dispatch",
			zap.Int64("job_id", job.ID), zap.Error(err))
		return nil, err
	}

	return job, nil
}

// Get returns a job row or ErrJobNotFound.
func (s *Service) Get(ctx context.Context, jobID int64) (*Job, error) {
	var job Job
	err := s.db.WithContext(ctx).Where("id = ?", jobID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Latest returns the most recently created job for an author, if any.
func (s *Service) Latest(ctx context.Context, authorID int64) (*Job, error) {
	var job Job
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Cancel requests a cooperative stop. The dispatcher honors it at the next
// batch boundary; a draft job is cancelled before it ever starts.
func (s *Service) Cancel(ctx context.Context, jobID int64) error {
	res := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status IN ?", jobID, []Status{StatusDraft, StatusRunning}).
		Update("status", StatusCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// markRunning opens a run. Counters restart from zero so a redelivered task
// never shows progress left over from an interrupted attempt.
func (s *Service) markRunning(ctx context.Context, jobID int64, total int, at time.Time) error {
	return s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     StatusRunning,
			"total":      total,
			"sent":       0,
			"failed":     0,
			"started_at": at,
		}).Error
}

// flushCounters persists live progress. Called every few recipients and once
// at the end of the run.
func (s *Service) flushCounters(ctx context.Context, jobID int64, sent, failed int) error {
	return s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"sent":   sent,
			"failed": failed,
		}).Error
}

func (s *Service) finish(ctx context.Context, jobID int64, status Status, sent, failed int, at time.Time) error {
	return s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":      status,
			"sent":        sent,
			"failed":      failed,
			"finished_at": at,
		}).Error
}

// currentStatus re-reads the job state so a Cancel issued mid-run is seen at
// the next batch boundary.
func (s *Service) currentStatus(ctx context.Context, jobID int64) (Status, error) {
	var job Job
	err := s.db.WithContext(ctx).Select("status").Where("id = ?", jobID).First(&job).Error
	if err != nil {
		return "", err
	}
	return job.Status, nil
}

package postback

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service records normalized events. Strictly additive: no validation beyond
// what the handler already performed, no dedup of network retries.
type Service struct {
	db *gorm.DB
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{db: p.DB}
}

// Record appends one postback row and returns its id. A userID of 0 is
// accepted and means the sender could not be identified.
func (s *Service) Record(ctx context.Context, userID int64, event Event, raw map[string]string, at time.Time) (uint64, error) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return 0, err
	}

	row := Postback{
		UserID:    userID,
		EventType: event,
		Payload:   datatypes.JSON(payload),
		CreatedAt: at,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		zap.L().Error("failed to record postback",
			zap.Int64("user_id", userID),
			zap.String("event", event.String()),
			zap.Error(err),
		)
		return 0, err
	}
	return row.ID, nil
}

// CountByEvent reports how many rows exist per category, for admin stats.
func (s *Service) CountByEvent(ctx context.Context) (map[Event]int64, error) {
	type bucket struct {
		EventType Event
		N         int64
	}
	var rows []bucket
	err := s.db.WithContext(ctx).Model(&Postback{}).
		Select("event_type, COUNT(*) AS n").
		Group("event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[Event]int64, len(rows))
	for _, r := range rows {
		out[r.EventType] = r.N
	}
	return out, nil
}

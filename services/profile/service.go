package profile

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMissingField = errors.New("profile: missing required field")
	ErrFieldTooLong = errors.New("profile: field exceeds maximum length")
)

type fieldLimit struct {
	name  string
	value *string
	max   int
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Upsert validates and stores the profile. The Telegram handle is
// normalized to a single leading "@".
func (s *Service) Upsert(ctx context.Context, p *UserProfile) error {
	p.FullName = strings.TrimSpace(p.FullName)
	p.AccountID = strings.TrimSpace(p.AccountID)
	p.TgHandle = normalizeHandle(p.TgHandle)
	p.Geo = strings.TrimSpace(p.Geo)

	limits := []fieldLimit{
		{"full_name", &p.FullName, 100},
		{"account_id", &p.AccountID, 80},
		{"tg_handle", &p.TgHandle, 64},
		{"geo", &p.Geo, 12},
	}
	for _, f := range limits {
		if *f.value == "" {
			return ErrMissingField
		}
		if len([]rune(*f.value)) > f.max {
			return ErrFieldTooLong
		}
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "account_id", "tg_handle", "geo", "updated_at"}),
		}).
		Create(p).Error
}

func (s *Service) Get(ctx context.Context, userID int64) (*UserProfile, error) {
	var p UserProfile
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func normalizeHandle(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimLeft(h, "@")
	if h == "" {
		return ""
	}
	return "@" + h
}

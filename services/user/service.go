package user

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service owns the recipient store. All mutations are narrow single-purpose
// writes; there are no multi-step transactions spanning other services.
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

type UpsertParams struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	// Lang seeds the language on first contact only. A stored choice is
	// never touched here; explicit changes go through SetLang.
	Lang string
	// RefCode is captured on first contact only; it never changes afterwards.
	RefCode string
}

// Upsert registers a recipient on first contact and refreshes display
// attributes on later contacts. Reports whether the row was created.
func (s *Service) Upsert(ctx context.Context, p UpsertParams) (*User, bool, error) {
	var created bool
	var out User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing User
		err := tx.Where("id = ?", p.ID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			out = User{
				ID:        p.ID,
				Username:  p.Username,
				FirstName: p.FirstName,
				LastName:  p.LastName,
				Lang:      p.Lang,
				RefCode:   p.RefCode,
			}
			if out.Lang == "" {
				out.Lang = "ru"
			}
			return tx.Create(&out).Error
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"username":   p.Username,
			"first_name": p.FirstName,
			"last_name":  p.LastName,
		}
		if err := tx.Model(&User{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", p.ID).First(&out).Error
	})
	if err != nil {
		zap.L().Error("failed to upsert user", zap.Int64("user_id", p.ID), zap.Error(err))
		return nil, false, err
	}

	return &out, created, nil
}

// Get returns the recipient or nil when unknown.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Lang returns the recipient's language tag, defaulting to ru when unknown.
func (s *Service) Lang(ctx context.Context, id int64) string {
	u, err := s.Get(ctx, id)
	if err != nil || u == nil || u.Lang == "" {
		return "ru"
	}
	return u.Lang
}

func (s *Service) SetLang(ctx context.Context, id int64, lang string) error {
	return s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Update("lang", lang).Error
}

// SetBlocked flips the delivery eligibility flag. In the dispatch flow the
// flag only ever moves false -> true.
func (s *Service) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	return s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Update("blocked", blocked).Error
}

// CountByLang counts non-blocked recipients, optionally narrowed to one
// language tag ("" counts all).
func (s *Service) CountByLang(ctx context.Context, lang string) (int64, error) {
	var n int64
	q := s.db.WithContext(ctx).Model(&User{}).Where("blocked = ?", false)
	if lang != "" {
		q = q.Where("lang = ?", lang)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// ListRecipients returns ids of all non-blocked recipients, optionally
// filtered by language tag. Ordering is immaterial.
func (s *Service) ListRecipients(ctx context.Context, lang string) ([]int64, error) {
	var ids []int64
	q := s.db.WithContext(ctx).Model(&User{}).Where("blocked = ?", false)
	if lang != "" {
		q = q.Where("lang = ?", lang)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

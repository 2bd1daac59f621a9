package settings

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"partnerbot/pkg/config"
	"partnerbot/pkg/rediskey"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "settings_cache_hits_total"})
	cacheMiss = prometheus.NewCounter(prometheus.CounterOpts{Name: "settings_cache_miss_total"})
)

const linksCacheTTL = 5 * time.Minute

// Service owns app_settings. Reads of the menu links go through a redis
// cache collapsed with singleflight; writes invalidate it.
type Service struct {
	db    *gorm.DB
	rdb   *redis.Client
	cfg   *config.Config
	group singleflight.Group
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Redis  *redis.Client `optional:"true"`
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:  p.DB,
		rdb: p.Redis,
		cfg: p.Config,
	}
}

// Get returns the stored value or "" when the key is absent.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	var row Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

// Set upserts a key and drops the links cache entry.
func (s *Service) Set(ctx context.Context, key, value string) error {
	row := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}

	s.invalidateLinks(ctx)
	return nil
}

// GetLinks resolves the menu links, preferring stored values and falling
// back to the configured defaults.
func (s *Service) GetLinks(ctx context.Context) (Links, error) {
	if cached, ok := s.cachedLinks(ctx); ok {
		cacheHits.Inc()
		return cached, nil
	}
	cacheMiss.Inc()

	v, err, _ := s.group.Do(rediskey.LinksKey, func() (interface{}, error) {
		links := Links{
			SupportURL: s.cfg.Links.SupportURL,
			RefURL:     s.cfg.Links.RefURL,
			TokenURL:   s.cfg.Links.TokenURL,
		}

		var rows []Setting
		err := s.db.WithContext(ctx).
			Where("key IN ?", []string{KeySupportURL, KeyRefURL, KeyTokenURL}).
			Find(&rows).Error
		if err != nil {
			return Links{}, err
		}

		for _, row := range rows {
			if row.Value == "" {
				continue
			}
			switch row.Key {
			case KeySupportURL:
				links.SupportURL = row.Value
			case KeyRefURL:
				links.RefURL = row.Value
			case KeyTokenURL:
				links.TokenURL = row.Value
			}
		}

		s.storeLinks(ctx, links)
		return links, nil
	})
	if err != nil {
		return Links{}, err
	}
	return v.(Links), nil
}

// SeedDefaults copies configured link values into the store once, so the
// admin flow edits rows that already exist.
func (s *Service) SeedDefaults(ctx context.Context) error {
	defaults := map[string]string{
		KeySupportURL: s.cfg.Links.SupportURL,
		KeyRefURL:     s.cfg.Links.RefURL,
		KeyTokenURL:   s.cfg.Links.TokenURL,
	}

	for key, value := range defaults {
		if value == "" {
			continue
		}
		row := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) cachedLinks(ctx context.Context) (Links, bool) {
	if s.rdb == nil {
		return Links{}, false
	}
	raw, err := s.rdb.Get(ctx, rediskey.LinksKey).Bytes()
	if err != nil {
		return Links{}, false
	}
	var links Links
	if err := json.Unmarshal(raw, &links); err != nil {
		return Links{}, false
	}
	return links, true
}

func (s *Service) storeLinks(ctx context.Context, links Links) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(links)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, rediskey.LinksKey, raw, linksCacheTTL).Err(); err != nil {
		zap.L().Debug("failed to cache links", zap.Error(err))
	}
}

func (s *Service) invalidateLinks(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, rediskey.LinksKey).Err(); err != nil {
		zap.L().Debug("failed to invalidate links cache", zap.Error(err))
	}
}

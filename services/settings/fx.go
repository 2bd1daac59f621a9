package settings

import (
	"context"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("settings.module",
	fx.Provide(
		NewService,
	),
	fx.Invoke(
		AutoMigrate,
		seed,
	),
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Setting{})
}

func seed(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.SeedDefaults(ctx)
		},
	})
}

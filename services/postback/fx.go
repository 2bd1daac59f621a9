package postback

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("postback.module",
	fx.Provide(
		NewService,
		NewHandler,
	),
	fx.Invoke(
		AutoMigrate,
		RegisterRoutes,
	),
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Postback{})
}

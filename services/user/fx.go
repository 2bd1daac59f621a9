package user

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("user.module",
	fx.Provide(
		NewService,
	),
	fx.Invoke(AutoMigrate),
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{})
}

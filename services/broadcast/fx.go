package broadcast

import (
	"partnerbot/pkg/config"
	"partnerbot/services/user"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

var Module = fx.Module("broadcast.module",
	fx.Provide(
		NewService,
		NewDispatcher,
		provideWaiter,
		provideRecipientStore,
	),
	fx.Invoke(AutoMigrate),
)

// TaskModule wires the dispatch handler into the asynq mux.
var TaskModule = fx.Module("broadcast.task",
	fx.Provide(NewTask),
	fx.Invoke(registerHandlers),
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Job{})
}

func provideWaiter(cfg *config.Config) Waiter {
	return rate.NewLimiter(rate.Limit(cfg.Broadcast.Rate), cfg.Broadcast.Burst)
}

func provideRecipientStore(svc *user.Service) RecipientStore {
	return svc
}

func registerHandlers(mux *asynq.ServeMux, t *Task) {
	mux.HandleFunc(TypeDispatch, t.HandleDispatchTask)
}

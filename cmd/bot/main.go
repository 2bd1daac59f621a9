package main

import (
	"log"
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"partnerbot/pkg/config"
	"partnerbot/pkg/db"
	"partnerbot/pkg/health"
	"partnerbot/pkg/logger"
	"partnerbot/pkg/redis"
	"partnerbot/pkg/server"
	"partnerbot/pkg/task"
	"partnerbot/pkg/telegram"
	"partnerbot/services/admin"
	"partnerbot/services/bot"
	"partnerbot/services/broadcast"
	"partnerbot/services/postback"
	"partnerbot/services/profile"
	"partnerbot/services/settings"
	"partnerbot/services/user"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		telegram.Module,
		fx.Provide(
			provideSnowflakeNode,
		),
		user.Module,
		settings.Module,
		postback.Module,
		broadcast.Module,
		broadcast.TaskModule,
		profile.Module,
		admin.Module,
		bot.Module,
		health.Module,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	nodeID := int64(1)
	if v := os.Getenv("SNOWFLAKE_NODE_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			nodeID = n
		}
	}
	return snowflake.NewNode(nodeID)
}

package bot

import "go.uber.org/fx"

var Module = fx.Module("bot.module",
	fx.Provide(
		NewHandlers,
		NewRouter,
	),
	fx.Invoke(
		RegisterRouter,
	),
)

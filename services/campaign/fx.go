package campaign

import (
	"go.uber.org/fx"
)

var Module = fx.Module("campaign.module",
	fx.Provide(
		NewService,
		NewHandler,
	),
	fx.Invoke(Migrate),
)

// Routes mounts the REST surface; used by the API binary.
var Routes = fx.Module("campaign.routes",
	fx.Invoke(RegisterRoutes),
)

// Jobs wires the in-process activation sweep; the worker binary runs the
// same sweep through asynq instead.
var Jobs = fx.Module("campaign.jobs",
	fx.Provide(NewScheduler),
	fx.Invoke(StartScheduler),
)

package main

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"campaign-console/pkg/config"
	"campaign-console/pkg/db"
	"campaign-console/pkg/logger"
	"campaign-console/pkg/redis"
	"campaign-console/pkg/sequence"
	"campaign-console/pkg/task"
	"campaign-console/services/campaign"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		sequence.Module,
		fx.Provide(
			provideSnowflakeNode,
			campaign.NewTask,
		),
		campaign.Module,
		task.Client,
		task.Server,
		fx.Invoke(
			registerHandlers,
			runPeriodicSweep,
		),
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(2)
}

func registerHandlers(mux *asynq.ServeMux, t *campaign.Task) {
	mux.HandleFunc(campaign.TaskProcessScheduled, t.HandleProcessScheduled)
}

// runPeriodicSweep enqueues the activation sweep on the configured interval.
// The handler is idempotent, so overlapping runs from several workers are
// harmless.
func runPeriodicSweep(lc fx.Lifecycle, cfg *config.Config, enq task.Enqueuer) {
	if !cfg.Scheduler.Enable {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(cfg.Scheduler.Interval)
				defer ticker.Stop()

				for {
					select {
					case <-ticker.C:
						if err := campaign.EnqueueProcessScheduled(ctx, enq); err != nil {
							zap.L().Error("[Asynq] failed to enqueue sweep", zap.Error(err))
						}
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

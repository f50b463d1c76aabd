package campaign

import (
	"context"
	"time"

	"campaign-console/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler sweeps due Scheduled campaigns to Live on a fixed interval. The
// asynq task does the same job for deployments running the shared worker;
// the sweep is idempotent so both may run at once.
type Scheduler struct {
	svc      *Service
	interval time.Duration
	logger   *zap.Logger
}

func NewScheduler(svc *Service, cfg *config.Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		svc:      svc,
		interval: cfg.Scheduler.Interval,
		logger:   logger,
	}
}

// StartScheduler hooks the sweep loop into the fx lifecycle.
func StartScheduler(lc fx.Lifecycle, s *Scheduler, cfg *config.Config) {
	if !cfg.Scheduler.Enable {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	s.logger.Info("[Scheduler] started campaign activation sweep",
		zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			s.logger.Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	start := time.Now()

	transitioned, err := s.svc.ProcessScheduled(ctx, start)
	if err != nil {
		s.logger.Error("[Scheduler] sweep failed", zap.Error(err))
		return
	}
	if len(transitioned) > 0 {
		s.logger.Info("[Scheduler] sweep finished",
			zap.Int("activated", len(transitioned)),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

package campaign

import (
	"context"
	"time"

	"campaign-console/pkg/task"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TaskProcessScheduled activates due Scheduled campaigns. Registered as a
// periodic task on the shared worker.
const TaskProcessScheduled = "campaign:process_scheduled"

type Task struct {
	svc    *Service
	logger *zap.Logger
}

func NewTask(svc *Service, logger *zap.Logger) *Task {
	return &Task{svc: svc, logger: logger}
}

func (t *Task) HandleProcessScheduled(ctx context.Context, _ *asynq.Task) error {
	transitioned, err := t.svc.ProcessScheduled(ctx, time.Now())
	if err != nil {
		t.logger.Error("process_scheduled task failed", zap.Error(err))
		return err
	}
	t.logger.Info("process_scheduled task finished", zap.Int("activated", len(transitioned)))
	return nil
}

// EnqueueProcessScheduled queues a sweep for the worker pool. The periodic
// trigger in the worker binary and operator-forced runs both go through here.
func EnqueueProcessScheduled(ctx context.Context, enq task.Enqueuer) error {
	_, err := enq.Enqueue(ctx, asynq.NewTask(TaskProcessScheduled, nil), asynq.Queue("default"))
	return err
}

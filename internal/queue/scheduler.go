package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/vendora/vendora-backend/internal/config"
	"github.com/vendora/vendora-backend/internal/logging"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
}

// NewScheduler registers the periodic order expiry task under cronspec,
// e.g. "@every 5m" or "*/5 * * * *".
func NewScheduler(cfg *config.RedisConfig, cronspec string) (*Scheduler, error) {
	s := asynq.NewScheduler(redisOpt(cfg), &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logging.Warn("scheduled enqueue failed", "error", err)
			}
		},
	})

	task := asynq.NewTask(TypeOrderExpire, nil)
	entryID, err := s.Register(cronspec, task, asynq.Queue("low"), asynq.MaxRetry(1), asynq.Unique(time.Minute))
	if err != nil {
		return nil, fmt.Errorf("registering %s with %q: %w", TypeOrderExpire, cronspec, err)
	}

	logging.Info("scheduled order expiry", "cron", cronspec, "entry_id", entryID)
	return &Scheduler{scheduler: s}, nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Close() {
	s.scheduler.Shutdown()
}

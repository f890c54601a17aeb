package queue

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/markhenning/buildcomply/internal/config"
)

// NewScheduler registers the pipeline's cron entries: the daily aging sweep,
// the few-hourly severity sweep (RFI age moves without discrete events), the
// daily snapshot and the weekly summary.
func NewScheduler(cfg config.RedisConfig) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		nil,
	)

	entries := []struct {
		spec string
		task string
	}{
		{"0 2 * * *", TypeAgingSweep},
		{"0 */4 * * *", TypeSeveritySweep},
		{"30 1 * * *", TypeDailySnapshot},
		{"0 3 * * 1", TypeWeeklySummary},
	}

	for _, e := range entries {
		if _, err := scheduler.Register(e.spec, asynq.NewTask(e.task, nil)); err != nil {
			return nil, fmt.Errorf("register %s: %w", e.task, err)
		}
	}

	return scheduler, nil
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/scportal/search-api/pkg/jobs"
)

type quotaResetter interface {
	ResetDailyQuotas(ctx context.Context) (int64, error)
}

// QuotaResetService zeroes every user's daily download total.
type QuotaResetService struct {
	users  quotaResetter
	logger *zap.Logger
}

// NewQuotaResetService constructs a QuotaResetService.
func NewQuotaResetService(users quotaResetter, logger *zap.Logger) *QuotaResetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotaResetService{users: users, logger: logger}
}

// Reset clears the daily totals and returns how many users were touched.
func (s *QuotaResetService) Reset(ctx context.Context) (int64, error) {
	count, err := s.users.ResetDailyQuotas(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("daily download quotas reset", zap.Int64("users", count))
	return count, nil
}

// SchedulerConfig bounds and retries scheduled runs.
type SchedulerConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Scheduler fires maintenance jobs on cron schedules and executes them on a
// retrying task queue. A run that is still pending when its next tick fires
// is skipped.
type Scheduler struct {
	cron   *cron.Cron
	queue  *jobs.Queue
	logger *zap.Logger

	mu   sync.RWMutex
	jobs map[string]func(ctx context.Context) error
}

// NewScheduler constructs a Scheduler.
func NewScheduler(logger *zap.Logger, cfg SchedulerConfig) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		cron:   cron.New(),
		logger: logger,
		jobs:   make(map[string]func(ctx context.Context) error),
	}
	s.queue = jobs.NewQueue("maintenance", s.run, jobs.QueueConfig{
		Workers:    2,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Timeout:    cfg.Timeout,
		Logger:     logger,
	})
	return s
}

// Register adds a named job on a standard five field cron spec.
func (s *Scheduler) Register(name, spec string, job func(ctx context.Context) error) error {
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.Trigger(name); err != nil {
			s.logger.Warn("scheduled job not queued", zap.String("job", name), zap.Error(err))
		}
	}); err != nil {
		return err
	}
	s.mu.Lock()
	s.jobs[name] = job
	s.mu.Unlock()
	s.logger.Info("scheduled job registered", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// Trigger queues an immediate run of a registered job.
func (s *Scheduler) Trigger(name string) error {
	s.mu.RLock()
	_, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.queue.Submit(name)
}

func (s *Scheduler) run(ctx context.Context, task jobs.Task) error {
	s.mu.RLock()
	job, ok := s.jobs[task.Name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %q", task.Name)
	}
	start := time.Now()
	s.logger.Info("running scheduled job", zap.String("job", task.Name), zap.Int("attempt", task.Attempt))
	if err := job(ctx); err != nil {
		return err
	}
	s.logger.Info("scheduled job completed", zap.String("job", task.Name), zap.Duration("duration", time.Since(start)))
	return nil
}

// Start begins running registered jobs in the background.
func (s *Scheduler) Start() {
	s.queue.Start(context.Background())
	s.cron.Start()
}

// Stop halts scheduling, then runs queued and running jobs to completion
// unless ctx ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.queue.Stop(ctx)
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

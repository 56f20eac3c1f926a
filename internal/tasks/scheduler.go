package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"visitordesk/internal/utils/logger"
)

// Sweeper closes dashboards that have been idle longer than the given duration
// and reports how many it closed.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// Scheduler runs periodic in-process jobs. Dashboards live in this process's
// memory, so sweeping them is not a queue task.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

// NewScheduler creates a new task scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger: logger.New("SCHEDULER"),
	}
}

// RegisterSweep sweeps idle dashboards on spec, a standard cron expression or
// an @every descriptor.
func (s *Scheduler) RegisterSweep(spec string, sweeper Sweeper, idle time.Duration) error {
	entryID, err := s.cron.AddFunc(spec, func() {
		if n := sweeper.Sweep(idle); n > 0 {
			s.logger.Info("closed %d idle dashboards", n)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register sweep: %w", err)
	}

	s.logger.Info("registered dashboard sweep %s (entry %d, idle %s)", spec, entryID, idle)
	return nil
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("starting task scheduler")
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.logger.Info("task scheduler stopped")
}

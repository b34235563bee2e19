package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
	log  *slog.Logger
}

func NewSchedulerService(loc *time.Location, log *slog.Logger) *SchedulerService {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		log:  log,
	}
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// ScheduleInterval registers a periodic job every given duration. Each run gets
// a context bounded by timeout; failures are logged, never retried.
func (s *SchedulerService) ScheduleInterval(name string, interval, timeout time.Duration, job func(context.Context) error) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)
	return s.cron.AddFunc(spec, func() {
		s.run(name, timeout, job)
	})
}

// RunNow executes job once on the caller's goroutine.
func (s *SchedulerService) RunNow(name string, timeout time.Duration, job func(context.Context) error) {
	s.run(name, timeout, job)
}

func (s *SchedulerService) run(name string, timeout time.Duration, job func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	started := time.Now()
	if err := job(ctx); err != nil {
		s.log.Warn("scheduled job failed", "job", name, "error", err)
		return
	}
	s.log.Debug("scheduled job done", "job", name, "duration", time.Since(started))
}

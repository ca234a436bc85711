// Package scheduler runs periodic jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"

	"gestor/internal/log"

	"github.com/robfig/cron/v3"
)

// Job is a scheduled unit of work. It receives the scheduler's context.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *log.Logger
}

// New creates a scheduler whose jobs run with ctx. Overlapping runs of the
// same job are skipped.
func New(ctx context.Context, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		ctx:    ctx,
		logger: logger.WithComponent(log.ComponentScheduler),
	}
}

// Add registers job under name. spec is a standard five-field cron
// expression or a descriptor such as "@every 10m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job(s.ctx); err != nil {
			s.logger.ErrorContext(s.ctx, "Scheduled job failed", "job", name, log.FieldError, err)
			return
		}
		s.logger.DebugContext(s.ctx, "Scheduled job completed", "job", name)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.logger.InfoContext(s.ctx, "Job scheduled", "job", name, "schedule", spec)
	return nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Scheduler stop timed out")
	}
}

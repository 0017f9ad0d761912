// Package cron runs periodic maintenance jobs on a crontab schedule.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mileusna/crontab"
)

// DefaultJobTimeout bounds a single job execution.
const DefaultJobTimeout = 10 * time.Minute

// Job is a named function run on a cron schedule.
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler owns a crontab and the jobs registered on it.
type Scheduler struct {
	ctab   *crontab.Crontab
	jobs   []Job
	logger *slog.Logger
}

// New creates a Scheduler with no jobs.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		ctab:   crontab.New(),
		logger: logger.With("component", "cron"),
	}
}

// Add registers a job. Jobs start firing once Run is called.
func (s *Scheduler) Add(job Job) {
	if job.Timeout <= 0 {
		job.Timeout = DefaultJobTimeout
	}
	s.jobs = append(s.jobs, job)
}

// Run schedules the registered jobs and blocks until ctx is done. An
// invalid schedule is returned as an error before anything runs.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.ctab.Shutdown()

	for _, job := range s.jobs {
		if err := s.ctab.AddJob(job.Schedule, s.runner(ctx, job)); err != nil {
			return fmt.Errorf("schedule job %s (%q): %w", job.Name, job.Schedule, err)
		}
		s.logger.Info("job scheduled", "job", job.Name, "schedule", job.Schedule)
	}

	<-ctx.Done()
	return nil
}

func (s *Scheduler) runner(ctx context.Context, job Job) func() {
	return func() {
		s.RunNow(ctx, job)
	}
}

// RunNow executes job once with its timeout, logging the outcome.
func (s *Scheduler) RunNow(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	jobCtx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("job panicked", "job", job.Name, "panic", p)
		}
	}()

	if err := job.Run(jobCtx); err != nil {
		s.logger.Error("job failed", "job", job.Name, "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("job finished", "job", job.Name, "duration", time.Since(start))
}

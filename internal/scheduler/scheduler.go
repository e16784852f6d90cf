// Package scheduler runs the periodic housekeeping jobs of the server
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// Job is a named task run every Interval. Run reports how many items it cleaned up.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int64, error)
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *logrus.Entry
	jobs      []Job

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler instance
func New(logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		logger:    logger.WithField("component", "scheduler"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Add registers a job; call before Start
func (s *Scheduler) Add(jobs ...Job) {
	s.jobs = append(s.jobs, jobs...)
}

// Start schedules every registered job and begins running them in the background.
// Each job also runs once immediately.
func (s *Scheduler) Start() error {
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			return fmt.Errorf("job %s: interval must be positive", job.Name)
		}
		if _, err := s.scheduler.Every(job.Interval).Do(s.run, job); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
	}

	s.scheduler.StartAsync()
	s.logger.WithField("jobs", len(s.jobs)).Info("Scheduler started")
	return nil
}

// Stop terminates all scheduled tasks and cancels running ones
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}

// RunAll runs every registered job once, synchronously
func (s *Scheduler) RunAll() {
	for _, job := range s.jobs {
		s.run(job)
	}
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	n, err := job.Run(s.ctx)
	entry := s.logger.WithFields(logrus.Fields{
		"job":      job.Name,
		"duration": time.Since(start),
	})
	if err != nil {
		entry.WithError(err).Error("Scheduled job failed")
		return
	}
	if n > 0 {
		entry.WithField("count", n).Info("Scheduled job cleaned up")
	}
}

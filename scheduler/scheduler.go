// Package scheduler implements the in-process minute trigger
package scheduler

import (
	"log"
	"log/slog"
	"time"

	"prayertimes.app/models"
)

// DispatchRunner is one minute-matcher invocation
type DispatchRunner interface {
	Run(now time.Time) (*models.DispatchReport, error)
}

// Scheduler drives the dispatcher once per minute, aligned to minute
// boundaries so HH:MM comparisons always see a fresh minute. Deployments
// with an external cron hitting /api/send-today leave it disabled.
type Scheduler struct {
	dispatch DispatchRunner
	stopCh   chan struct{}
}

// NewScheduler creates a minute-aligned scheduler over a dispatcher
func NewScheduler(dispatch DispatchRunner) *Scheduler {
	return &Scheduler{
		dispatch: dispatch,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scheduler's operations
func (s *Scheduler) Start() {
	go s.loop()
}

// Stop terminates the minute loop
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) loop() {
	wait := time.Until(time.Now().Truncate(time.Minute).Add(time.Minute))
	select {
	case <-time.After(wait):
	case <-s.stopCh:
		return
	}

	s.runOnce()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.runOnce()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) runOnce() {
	report, err := s.dispatch.Run(time.Now())
	if err != nil {
		log.Printf("Error running adhan dispatch: %v\n", err)
		return
	}

	if len(report.Matched) > 0 {
		slog.Info("Scheduled adhan dispatch",
			"matched", report.Matched, "sent", report.Sent, "removed", report.Removed)
	}
}

package prayer

import (
	"context"
	"log/slog"
	"time"

	"prayertimes.app/models"
)

// DaySource yields the published schedule for one calendar date. A nil day
// with a nil error means no entry exists for that date.
type DaySource interface {
	Day(dateKey string) (*models.TimetableDay, error)
}

// Renderer receives each tick's freshly derived state
type Renderer interface {
	Render(now time.Time, today *models.TimetableDay, res *models.EvaluationResult)
}

// Session is the client-side loop: a one-second tick that re-derives the
// full evaluation from scratch, feeds the alert trigger and renders.
type Session struct {
	clock     *Clock
	source    DaySource
	evaluator *Evaluator
	trigger   *AlertTrigger
	renderer  Renderer

	interval time.Duration
	now      func() time.Time
}

// NewSession assembles a display session over a timetable source
func NewSession(clock *Clock, source DaySource, trigger *AlertTrigger, renderer Renderer) *Session {
	return &Session{
		clock:     clock,
		source:    source,
		evaluator: NewEvaluator(clock),
		trigger:   trigger,
		renderer:  renderer,
		interval:  time.Second,
		now:       time.Now,
	}
}

// Trigger exposes the session's alert trigger for dismissal and mode changes
func (s *Session) Trigger() *AlertTrigger {
	return s.trigger
}

// Tick evaluates one instant. Exported so callers can drive the loop from
// their own timer.
func (s *Session) Tick(now time.Time) *models.EvaluationResult {
	today, err := s.source.Day(s.clock.DateKey(now))
	if err != nil {
		slog.Error("Timetable read failed", "error", err)
		return nil
	}

	tomorrow, err := s.source.Day(s.clock.NextDateKey(now))
	if err != nil {
		// today's display still works without tomorrow's entry
		tomorrow = nil
	}

	res := s.evaluator.Evaluate(today, tomorrow, now)
	s.trigger.Observe(res)
	if s.renderer != nil {
		s.renderer.Render(now, today, res)
	}
	return res
}

// Run drives the tick loop until the context is cancelled
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(s.now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(s.now())
		}
	}
}

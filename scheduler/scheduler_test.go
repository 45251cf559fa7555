package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"prayertimes.app/models"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	calls  int
	report *models.DispatchReport
	err    error
}

func (d *fakeDispatcher) Run(now time.Time) (*models.DispatchReport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.report, d.err
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func TestScheduler_RunOnce(t *testing.T) {
	dispatcher := &fakeDispatcher{report: &models.DispatchReport{
		OK:      true,
		Matched: []models.PrayerKey{models.Dhuhr},
		Sent:    2,
	}}
	scheduler := NewScheduler(dispatcher)

	scheduler.runOnce()

	assert.Equal(t, 1, dispatcher.callCount())
}

func TestScheduler_RunOnceToleratesErrors(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("timetable unreadable")}
	scheduler := NewScheduler(dispatcher)

	// an error run must not panic or stop anything
	scheduler.runOnce()
	scheduler.runOnce()

	assert.Equal(t, 2, dispatcher.callCount())
}

func TestScheduler_StartStop(t *testing.T) {
	dispatcher := &fakeDispatcher{report: &models.DispatchReport{OK: true}}
	scheduler := NewScheduler(dispatcher)

	scheduler.Start()
	scheduler.Stop()

	// the loop exits promptly on stop; give the goroutine a moment to
	// observe the closed channel
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, dispatcher.callCount(), 1)
}

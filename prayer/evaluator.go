package prayer

import (
	"fmt"
	"time"

	"prayertimes.app/models"
)

// Evaluator derives current/next prayer state from a day's schedule and an
// absolute instant. All methods are pure: state is re-derived from scratch
// on every tick rather than counted down incrementally, so sleep/resume and
// manual clock changes cannot accumulate drift.
type Evaluator struct {
	clock *Clock
}

// NewEvaluator creates an evaluator over the given zone clock
func NewEvaluator(clock *Clock) *Evaluator {
	return &Evaluator{clock: clock}
}

// NextPrayer returns the first prayer strictly after now, falling back to
// tomorrow's Fajr when today is exhausted. Nil when no data remains.
func (e *Evaluator) NextPrayer(today, tomorrow *models.TimetableDay, now time.Time) *models.NextPrayer {
	if today != nil {
		for _, key := range models.PrayerOrder {
			if at, ok := e.clock.ToInstant(today.Date, today.Adhan(key)); ok && at.After(now) {
				return &models.NextPrayer{Key: key, Time: today.Adhan(key), Date: today.Date}
			}
		}
	}
	if tomorrow != nil {
		if _, ok := e.clock.ToInstant(tomorrow.Date, tomorrow.Fajr); ok {
			return &models.NextPrayer{Key: models.Fajr, Time: tomorrow.Fajr, Date: tomorrow.Date, Tomorrow: true}
		}
	}
	return nil
}

// CurrentPrayer returns the latest prayer whose adhan is at or before now.
// Fajr's window ends at Shurooq, not at Dhuhr: past sunrise it collapses
// to none.
func (e *Evaluator) CurrentPrayer(today *models.TimetableDay, now time.Time) models.PrayerKey {
	if today == nil {
		return ""
	}
	var current models.PrayerKey
	for _, key := range models.PrayerOrder {
		if at, ok := e.clock.ToInstant(today.Date, today.Adhan(key)); ok && !at.After(now) {
			current = key
		}
	}
	if current == models.Fajr {
		if shurooq, ok := e.clock.ToInstant(today.Date, today.Shurooq); ok && now.After(shurooq) {
			current = ""
		}
	}
	return current
}

// Countdown formats the time remaining until target as HH:MM:SS, floored to
// whole seconds and clamped at "00:00:00". The hour component is unbounded.
func Countdown(target, now time.Time) string {
	diff := target.Sub(now)
	if diff <= 0 {
		return "00:00:00"
	}
	total := int(diff / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Evaluate derives the full state for one tick
func (e *Evaluator) Evaluate(today, tomorrow *models.TimetableDay, now time.Time) *models.EvaluationResult {
	res := &models.EvaluationResult{
		Current: e.CurrentPrayer(today, now),
	}

	next := e.NextPrayer(today, tomorrow, now)
	res.Next = next

	var nextAt time.Time
	haveNext := false
	if next != nil {
		if at, ok := e.clock.ToInstant(next.Date, next.Time); ok {
			nextAt = at
			haveNext = true
		}
	}
	if haveNext {
		res.Countdown = Countdown(nextAt, now)
	}

	res.Progress = e.progress(today, next, nextAt, haveNext, now)
	res.Status = e.statusLine(today, res.Current, next, nextAt, haveNext, now)
	return res
}

// progress is the position between the previous and next prayer boundary,
// clamped to [0,1]. Before the first prayer of the day it is 0; once the
// next boundary is tomorrow's Fajr the day is complete and it pins to 1.
func (e *Evaluator) progress(today *models.TimetableDay, next *models.NextPrayer, nextAt time.Time, haveNext bool, now time.Time) float64 {
	if next != nil && next.Tomorrow {
		return 1
	}
	if !haveNext || today == nil {
		return 0
	}
	prev, found := e.previousPrayerInstant(today, now)
	if !found || !nextAt.After(prev) {
		return 0
	}
	frac := float64(now.Sub(prev)) / float64(nextAt.Sub(prev))
	if frac < 0 {
		return 0
	}
	if frac > 1 {
		return 1
	}
	return frac
}

func (e *Evaluator) previousPrayerInstant(today *models.TimetableDay, now time.Time) (time.Time, bool) {
	var prev time.Time
	found := false
	for _, key := range models.PrayerOrder {
		if at, ok := e.clock.ToInstant(today.Date, today.Adhan(key)); ok && !at.After(now) {
			prev = at
			found = true
		}
	}
	return prev, found
}

// Status sub-label labels
const (
	LabelIqamahIn  = "Iqamah in"
	LabelJummahIn  = "Jummah in"
	LabelShurooqIn = "Shurooq in"
	LabelEndsIn    = "Ends in"
	LabelFajrIn    = "Fajr in"
)

// statusLine derives the "current status" sub-label. Within a prayer window
// it counts down to the imminent sub-event (Iqamah, or Jummah on Fridays
// for Dhuhr, or Shurooq for Fajr); once that has passed it counts down to
// the end of the window. Overnight, before today's Fajr, it counts down to
// Fajr itself.
func (e *Evaluator) statusLine(today *models.TimetableDay, current models.PrayerKey, next *models.NextPrayer, nextAt time.Time, haveNext bool, now time.Time) *models.StatusLine {
	if today == nil {
		return nil
	}

	if current == "" {
		if haveNext && !next.Tomorrow && next.Key == models.Fajr {
			return &models.StatusLine{Label: LabelFajrIn, Countdown: Countdown(nextAt, now)}
		}
		return nil
	}

	if current == models.Fajr {
		if iqamah, ok := e.clock.ToInstant(today.Date, today.IqamahFajr); ok && iqamah.After(now) {
			return &models.StatusLine{Label: LabelIqamahIn, Countdown: Countdown(iqamah, now)}
		}
		if shurooq, ok := e.clock.ToInstant(today.Date, today.Shurooq); ok && shurooq.After(now) {
			return &models.StatusLine{Label: LabelShurooqIn, Countdown: Countdown(shurooq, now)}
		}
		// past Shurooq the window is closed; CurrentPrayer already collapsed
		return nil
	}

	if current == models.Dhuhr && today.Jumma != "" && e.isFriday(today.Date) {
		if jumma, ok := e.clock.ToInstant(today.Date, today.Jumma); ok && jumma.After(now) {
			return &models.StatusLine{Label: LabelJummahIn, Countdown: Countdown(jumma, now)}
		}
	} else if iqamah, ok := e.clock.ToInstant(today.Date, today.Iqamah(current)); ok && iqamah.After(now) {
		return &models.StatusLine{Label: LabelIqamahIn, Countdown: Countdown(iqamah, now)}
	}

	if haveNext {
		return &models.StatusLine{Label: LabelEndsIn, Countdown: Countdown(nextAt, now)}
	}
	return nil
}

func (e *Evaluator) isFriday(dateKey string) bool {
	weekday, ok := e.clock.Weekday(dateKey)
	return ok && weekday == time.Friday
}

package prayer

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"prayertimes.app/models"
)

// AlertMode selects how loudly the trigger reacts when a prayer begins
type AlertMode string

const (
	ModeAudio  AlertMode = "audio-alert"
	ModeSilent AlertMode = "silent-notification"
	ModeOff    AlertMode = "off"
)

// ParseAlertMode maps a stored setting back to a mode, defaulting to audio
func ParseAlertMode(s string) AlertMode {
	switch AlertMode(s) {
	case ModeSilent:
		return ModeSilent
	case ModeOff:
		return ModeOff
	default:
		return ModeAudio
	}
}

// Banner is the always-on visual channel
type Banner interface {
	Show(prayer models.PrayerKey, timeOfDay string)
	Dismiss()
}

// Notifier is the system-notification channel
type Notifier interface {
	PermissionGranted() bool
	RequestPermission() bool
	Notify(title, body string) error
}

// AudioPlayer is the audio channel. Implementations must not block the
// caller; playback failures are reported so the trigger can fall back.
type AudioPlayer interface {
	Vibrate()
	Play(clip string) error
	PlayFallbackTone()
	Stop()
}

// PushReconciler keeps the device's push registration in line with the
// selected mode
type PushReconciler interface {
	Subscribe() error
	Unsubscribe() error
}

// Adhan audio clips. Fajr always uses the first clip; other prayers pick
// randomly between the two.
const (
	FajrClip   = "audio/adhan_1.m4a"
	AdhanClip1 = "audio/adhan_1.m4a"
	AdhanClip2 = "audio/adhan_2.mp4"
)

// audioDelay lets the system notification render before sound starts
const audioDelay = 400 * time.Millisecond

// AlertTrigger fires exactly once per next-prayer occurrence when the
// countdown reaches zero. The armed key combines the occurrence date with
// the prayer key, so a genuinely new occurrence always re-arms the guard
// and the same occurrence can never double-fire.
type AlertTrigger struct {
	banner     Banner
	notifier   Notifier
	audio      AudioPlayer
	reconciler PushReconciler

	mode     AlertMode
	armedKey string
	fired    bool

	after      func(time.Duration, func())
	randomClip func() string
}

// NewAlertTrigger wires the three alert channels and the push reconciler
func NewAlertTrigger(banner Banner, notifier Notifier, audio AudioPlayer, reconciler PushReconciler, mode AlertMode) *AlertTrigger {
	return &AlertTrigger{
		banner:     banner,
		notifier:   notifier,
		audio:      audio,
		reconciler: reconciler,
		mode:       mode,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		randomClip: func() string {
			if rand.Intn(2) == 0 {
				return AdhanClip1
			}
			return AdhanClip2
		},
	}
}

// Mode returns the currently selected alert mode
func (t *AlertTrigger) Mode() AlertMode {
	return t.mode
}

// ArmedKey returns the occurrence identity currently being watched
func (t *AlertTrigger) ArmedKey() string {
	return t.armedKey
}

// Observe reacts to one tick's evaluation. Called synchronously from the
// session loop; the fire effects themselves never block the tick.
func (t *AlertTrigger) Observe(res *models.EvaluationResult) {
	if res == nil || res.Next == nil {
		t.armedKey = ""
		t.fired = false
		return
	}

	key := res.Next.Date + "/" + string(res.Next.Key)
	if key != t.armedKey {
		t.armedKey = key
		t.fired = false
	}

	if !t.fired && res.Countdown == "00:00:00" {
		t.fired = true
		t.fire(res.Next)
	}
}

// fire runs the three effects in order: visual confirmation first, then
// the system notification, then (after a short delay) audio.
func (t *AlertTrigger) fire(next *models.NextPrayer) {
	t.banner.Show(next.Key, next.Time)

	if t.mode != ModeOff && t.notifier.PermissionGranted() {
		title := fmt.Sprintf("Adhan — %s", next.Key.Title())
		body := fmt.Sprintf("It's time for %s.", next.Key.Title())
		if err := t.notifier.Notify(title, body); err != nil {
			slog.Warn("System notification failed", "prayer", next.Key, "error", err)
		}
	}

	if t.mode == ModeAudio {
		clip := t.clipFor(next.Key)
		t.after(audioDelay, func() {
			t.audio.Vibrate()
			if err := t.audio.Play(clip); err != nil {
				// blocked playback still unlocks the audio path for a
				// subsequent manual tap
				t.audio.PlayFallbackTone()
			}
		})
	}
}

func (t *AlertTrigger) clipFor(key models.PrayerKey) string {
	if key == models.Fajr {
		return FajrClip
	}
	return t.randomClip()
}

// Dismiss closes the banner and stops any playing audio
func (t *AlertTrigger) Dismiss() {
	t.audio.Stop()
	t.banner.Dismiss()
}

// SetMode switches the alert mode and reconciles the push registration:
// leaving "off" subscribes, entering "off" unsubscribes. A denied
// notification permission forces the mode back to "off". Returns the mode
// actually in effect.
func (t *AlertTrigger) SetMode(mode AlertMode) AlertMode {
	if mode != ModeOff && !t.notifier.PermissionGranted() {
		if !t.notifier.RequestPermission() {
			mode = ModeOff
		}
	}

	prev := t.mode
	t.mode = mode

	if t.reconciler != nil {
		switch {
		case prev == ModeOff && mode != ModeOff:
			if err := t.reconciler.Subscribe(); err != nil {
				slog.Warn("Push subscribe failed", "error", err)
			}
		case prev != ModeOff && mode == ModeOff:
			if err := t.reconciler.Unsubscribe(); err != nil {
				slog.Warn("Push unsubscribe failed", "error", err)
			}
		}
	}
	return t.mode
}

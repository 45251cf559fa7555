// Command display is the terminal prayer-time client: a one-second loop
// that shows the current and next prayer, a countdown, and a full-screen
// banner when a prayer begins.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"prayertimes.app/models"
	"prayertimes.app/prayer"
	"prayertimes.app/timetable"
)

type displayConfig struct {
	TimetablePath string `envconfig:"TIMETABLE_PATH" default:"data/timetable.json"`
	Timezone      string `envconfig:"TIMETABLE_TIMEZONE" default:"Europe/London"`
	AlertMode     string `envconfig:"ALERT_MODE" default:"audio-alert"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found or error loading it")
	}

	var cfg displayConfig
	if err := envconfig.Process("", &cfg); err != nil {
		slog.Error("Failed to load display configuration", "error", err)
		os.Exit(1)
	}

	clock, err := prayer.NewClock(cfg.Timezone)
	if err != nil {
		slog.Error("Failed to create zone clock", "error", err)
		os.Exit(1)
	}

	source := timetable.NewFileSource(cfg.TimetablePath)
	trigger := prayer.NewAlertTrigger(
		&consoleBanner{},
		&logNotifier{},
		&bellAudio{},
		nil,
		prayer.ParseAlertMode(cfg.AlertMode),
	)
	session := prayer.NewSession(clock, source, trigger, &consoleRenderer{clock: clock})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting prayer display", "zone", cfg.Timezone, "mode", trigger.Mode())
	session.Run(ctx)
}

// consoleRenderer prints one status line per tick
type consoleRenderer struct {
	clock *prayer.Clock
}

func (r *consoleRenderer) Render(now time.Time, today *models.TimetableDay, res *models.EvaluationResult) {
	if today == nil {
		fmt.Printf("\r%s  no schedule for today", r.clock.HHMM(now))
		return
	}

	var parts []string
	parts = append(parts, now.In(r.clock.Location()).Format("15:04:05"))

	if res.Next != nil {
		next := fmt.Sprintf("next %s at %s in %s", res.Next.Key.Title(), res.Next.Time, res.Countdown)
		if res.Next.Tomorrow {
			next += " (tomorrow)"
		}
		parts = append(parts, next)
	}
	if res.Current != "" {
		parts = append(parts, fmt.Sprintf("current %s", res.Current.Title()))
	}
	if res.Status != nil {
		parts = append(parts, fmt.Sprintf("%s %s", res.Status.Label, res.Status.Countdown))
	}
	parts = append(parts, fmt.Sprintf("%3.0f%%", res.Progress*100))

	fmt.Printf("\r%-100s", strings.Join(parts, "  |  "))
}

// consoleBanner renders the full-screen adhan banner as a text block
type consoleBanner struct{}

func (b *consoleBanner) Show(key models.PrayerKey, timeOfDay string) {
	line := strings.Repeat("=", 48)
	fmt.Printf("\n%s\n  Adhan — %s\n  Time: %s\n%s\n", line, key.Title(), timeOfDay, line)
}

func (b *consoleBanner) Dismiss() {}

// logNotifier stands in for system notifications on a terminal
type logNotifier struct{}

func (n *logNotifier) PermissionGranted() bool { return true }
func (n *logNotifier) RequestPermission() bool { return true }

func (n *logNotifier) Notify(title, body string) error {
	slog.Info("Notification", "title", title, "body", body)
	return nil
}

// bellAudio rings the terminal bell in place of adhan playback
type bellAudio struct{}

func (a *bellAudio) Vibrate() {}

func (a *bellAudio) Play(clip string) error {
	fmt.Print("\a")
	return nil
}

func (a *bellAudio) PlayFallbackTone() {
	fmt.Print("\a")
}

func (a *bellAudio) Stop() {}

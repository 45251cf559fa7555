// Package models defines data structures used throughout the application
package models

import (
	"time"

	"gorm.io/gorm"
)

// PrayerKey identifies one of the five daily prayers
type PrayerKey string

const (
	Fajr    PrayerKey = "fajr"
	Dhuhr   PrayerKey = "dhuhr"
	Asr     PrayerKey = "asr"
	Maghrib PrayerKey = "maghrib"
	Isha    PrayerKey = "isha"
)

// PrayerOrder is the canonical scanning order; "current" and "next" are
// defined relative to it.
var PrayerOrder = []PrayerKey{Fajr, Dhuhr, Asr, Maghrib, Isha}

// Title returns the display form of a prayer key ("fajr" -> "Fajr")
func (k PrayerKey) Title() string {
	s := string(k)
	if s == "" {
		return ""
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// TimetableDay holds one calendar date's published prayer schedule.
// Time-of-day strings are lenient: separators may be ':', ';', '.' or '-'.
type TimetableDay struct {
	Date          string `json:"date"`
	Fajr          string `json:"fajr"`
	Shurooq       string `json:"shurooq"`
	Dhuhr         string `json:"dhuhr"`
	Asr           string `json:"asr"`
	Maghrib       string `json:"maghrib"`
	Isha          string `json:"isha"`
	IqamahFajr    string `json:"iqamah_fajr,omitempty"`
	IqamahDhuhr   string `json:"iqamah_dhuhr,omitempty"`
	IqamahAsr     string `json:"iqamah_asr,omitempty"`
	IqamahMaghrib string `json:"iqamah_maghrib,omitempty"`
	IqamahIsha    string `json:"iqamah_isha,omitempty"`
	Jumma         string `json:"jumma,omitempty"`
}

// Adhan returns the raw adhan time string for a prayer
func (d *TimetableDay) Adhan(key PrayerKey) string {
	switch key {
	case Fajr:
		return d.Fajr
	case Dhuhr:
		return d.Dhuhr
	case Asr:
		return d.Asr
	case Maghrib:
		return d.Maghrib
	case Isha:
		return d.Isha
	}
	return ""
}

// Iqamah returns the raw congregation time string for a prayer, if set
func (d *TimetableDay) Iqamah(key PrayerKey) string {
	switch key {
	case Fajr:
		return d.IqamahFajr
	case Dhuhr:
		return d.IqamahDhuhr
	case Asr:
		return d.IqamahAsr
	case Maghrib:
		return d.IqamahMaghrib
	case Isha:
		return d.IqamahIsha
	}
	return ""
}

// Timetable is the published document: one entry per date, read-only input
type Timetable struct {
	Days []TimetableDay `json:"days"`
}

// PushSubscription represents one registered web-push endpoint.
// Identity is the endpoint URL; at most one row per endpoint.
type PushSubscription struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Endpoint  string         `json:"endpoint" gorm:"uniqueIndex;not null"`
	P256dh    string         `json:"p256dh"`
	Auth      string         `json:"auth"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// SubscriptionKeys carries the client's encryption key material
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// SubscribeRequest is the opaque push-subscription descriptor posted by a
// client. The only field the core inspects is the endpoint.
type SubscribeRequest struct {
	Endpoint       string           `json:"endpoint" binding:"required"`
	ExpirationTime *float64         `json:"expirationTime"`
	Keys           SubscriptionKeys `json:"keys"`
}

// NotificationRequest is a manual broadcast request
type NotificationRequest struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

// SendToRequest targets a single subscription
type SendToRequest struct {
	Subscription SubscribeRequest `json:"subscription" binding:"required"`
	Title        string           `json:"title"`
	Body         string           `json:"body"`
	Data         map[string]any   `json:"data"`
}

// PushPayload is what gets JSON-serialized onto the wire for the push
// transport; the service worker renders it as a system notification.
type PushPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

// NextPrayer describes the upcoming prayer occurrence
type NextPrayer struct {
	Key      PrayerKey `json:"key"`
	Time     string    `json:"time"`
	Date     string    `json:"date"`
	Tomorrow bool      `json:"tomorrow"`
}

// StatusLine is the "current status" sub-label shown under the countdown
type StatusLine struct {
	Label     string `json:"label"`
	Countdown string `json:"countdown"`
}

// EvaluationResult is re-derived from scratch on every tick, never persisted
type EvaluationResult struct {
	Current   PrayerKey   `json:"current,omitempty"`
	Next      *NextPrayer `json:"next,omitempty"`
	Countdown string      `json:"countdown,omitempty"`
	Progress  float64     `json:"progress"`
	Status    *StatusLine `json:"status,omitempty"`
}

// DispatchReport summarizes one minute-matcher invocation
type DispatchReport struct {
	RunID   string      `json:"run_id"`
	OK      bool        `json:"ok"`
	Matched []PrayerKey `json:"matched"`
	Sent    int         `json:"sent"`
	Removed int         `json:"removed"`
	At      string      `json:"at"`
	Date    string      `json:"date"`
	Note    string      `json:"note,omitempty"`
}

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}

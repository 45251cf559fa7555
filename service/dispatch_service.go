package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "prayertimes.app/errors"
	"prayertimes.app/metrics"
	"prayertimes.app/models"
	"prayertimes.app/prayer"
	"prayertimes.app/timetable"
)

const defaultBatchSize = 1000

// DispatchService is the server-side minute matcher: it resolves today's
// timetable entry, compares each prayer's normalized time to the current
// wall-clock minute and fans matched notifications out to the registry.
type DispatchService struct {
	clock     *prayer.Clock
	source    timetable.Source
	repo      SubscriptionRepositoryInterface
	sender    PushSenderInterface
	batchSize int
	metrics   *metrics.DispatchMetrics
}

// NewDispatchService creates a dispatcher. batchSize bounds the number of
// concurrent deliveries per fan-out group; values below 1 fall back to the
// default.
func NewDispatchService(
	clock *prayer.Clock,
	source timetable.Source,
	repo SubscriptionRepositoryInterface,
	sender PushSenderInterface,
	batchSize int,
) *DispatchService {
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	return &DispatchService{
		clock:     clock,
		source:    source,
		repo:      repo,
		sender:    sender,
		batchSize: batchSize,
		metrics:   metrics.NewDispatchMetrics(),
	}
}

// Run executes one minute-matcher invocation. Only a timetable read
// failure is an error; a missing day or an empty registry is a normal
// nothing-to-do outcome.
func (s *DispatchService) Run(now time.Time) (*models.DispatchReport, error) {
	report := &models.DispatchReport{
		RunID:   uuid.New().String(),
		At:      s.clock.HHMM(now),
		Date:    s.clock.DateKey(now),
		Matched: []models.PrayerKey{},
	}
	s.metrics.RecordRun()

	today, err := s.source.Day(report.Date)
	if err != nil {
		slog.Error("Failed to resolve timetable day", "run_id", report.RunID, "date", report.Date, "error", err)
		return nil, err
	}
	if today == nil {
		report.OK = true
		report.Note = "no-timetable-for-today"
		return report, nil
	}

	for _, key := range models.PrayerOrder {
		norm, ok := prayer.NormalizeTime(today.Adhan(key))
		if ok && norm == report.At {
			report.Matched = append(report.Matched, key)
			s.metrics.RecordMatch(string(key))
		}
	}

	if len(report.Matched) == 0 {
		report.OK = true
		return report, nil
	}

	subscriptions, err := s.repo.ListAll()
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to list subscriptions", err)
	}
	if len(subscriptions) == 0 {
		report.OK = true
		report.Note = "no-subscriptions"
		return report, nil
	}

	// A pathological timetable can match several prayers in one minute;
	// the payload is titled after the first in canonical order only.
	primary := report.Matched[0]
	payload := &models.PushPayload{
		Title: fmt.Sprintf("Adhan — %s", primary.Title()),
		Body:  fmt.Sprintf("It's time for %s.", primary.Title()),
		Data:  map[string]any{"url": "/"},
	}

	report.Sent, report.Removed = s.fanOut(subscriptions, payload)
	report.OK = true

	slog.Info("Adhan dispatch completed",
		"run_id", report.RunID, "matched", report.Matched,
		"sent", report.Sent, "removed", report.Removed, "at", report.At)
	return report, nil
}

// NotifyAll broadcasts a manual notification to every registered
// subscription, pruning gone endpoints along the way
func (s *DispatchService) NotifyAll(req *models.NotificationRequest) (int, int, error) {
	subscriptions, err := s.repo.ListAll()
	if err != nil {
		return 0, 0, apperrors.NewDatabaseError("failed to list subscriptions", err)
	}

	sent, removed := s.fanOut(subscriptions, payloadFromRequest(req))
	return sent, removed, nil
}

// NotifyOne delivers a manual notification to a single subscription
func (s *DispatchService) NotifyOne(req *models.SendToRequest) error {
	subscription := &models.PushSubscription{
		Endpoint: req.Subscription.Endpoint,
		P256dh:   req.Subscription.Keys.P256dh,
		Auth:     req.Subscription.Keys.Auth,
	}

	payload := payloadFromRequest(&models.NotificationRequest{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})

	if err := s.sender.Send(subscription, payload); err != nil {
		if errors.Is(err, ErrSubscriptionGone) {
			return apperrors.NewPushError("subscription no longer exists", err)
		}
		return err
	}
	return nil
}

func payloadFromRequest(req *models.NotificationRequest) *models.PushPayload {
	payload := &models.PushPayload{
		Title: "MWHS",
		Body:  "It's time for prayer.",
		Data:  map[string]any{},
	}
	if req == nil {
		return payload
	}
	if req.Title != "" {
		payload.Title = req.Title
	}
	if req.Body != "" {
		payload.Body = req.Body
	}
	if req.Data != nil {
		payload.Data = req.Data
	}
	return payload
}

// fanOut delivers the payload to every subscription in fixed-size batches.
// One recipient's failure never aborts delivery to the rest: gone
// endpoints are pruned, transient failures are logged and retained.
func (s *DispatchService) fanOut(subscriptions []models.PushSubscription, payload *models.PushPayload) (int, int) {
	var (
		mu      sync.Mutex
		sent    int
		removed int
	)

	for start := 0; start < len(subscriptions); start += s.batchSize {
		end := start + s.batchSize
		if end > len(subscriptions) {
			end = len(subscriptions)
		}

		var wg sync.WaitGroup
		for _, subscription := range subscriptions[start:end] {
			wg.Add(1)
			go func(subscription models.PushSubscription) {
				defer wg.Done()

				err := s.sender.Send(&subscription, payload)
				switch {
				case err == nil:
					s.metrics.RecordSent()
					mu.Lock()
					sent++
					mu.Unlock()
				case errors.Is(err, ErrSubscriptionGone):
					if rmErr := s.repo.Remove(subscription.Endpoint); rmErr != nil {
						slog.Error("Failed to prune gone subscription", "error", rmErr)
						return
					}
					s.metrics.RecordRemoved()
					mu.Lock()
					removed++
					mu.Unlock()
				default:
					s.metrics.RecordFailed()
					slog.Warn("Push delivery failed, subscription retained", "error", err)
				}
			}(subscription)
		}
		wg.Wait()
	}

	return sent, removed
}

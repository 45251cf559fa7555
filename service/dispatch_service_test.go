package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"prayertimes.app/models"
	"prayertimes.app/prayer"
)

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Add(subscription *models.PushSubscription) error {
	return m.Called(subscription).Error(0)
}

func (m *MockSubscriptionRepository) Remove(endpoint string) error {
	return m.Called(endpoint).Error(0)
}

func (m *MockSubscriptionRepository) ListAll() ([]models.PushSubscription, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PushSubscription), args.Error(1)
}

type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) Send(subscription *models.PushSubscription, payload *models.PushPayload) error {
	return m.Called(subscription, payload).Error(0)
}

// stubSource serves a fixed day for every date
type stubSource struct {
	day *models.TimetableDay
	err error
}

func (s *stubSource) Day(dateKey string) (*models.TimetableDay, error) {
	return s.day, s.err
}

func dispatchClock(t *testing.T) *prayer.Clock {
	t.Helper()
	clock, err := prayer.NewClock("Europe/London")
	require.NoError(t, err)
	return clock
}

func dispatchDay() *models.TimetableDay {
	return &models.TimetableDay{
		Date:    "2024-03-01",
		Fajr:    "05:12",
		Shurooq: "06:40",
		Dhuhr:   "12:15",
		Asr:     "15:30",
		Maghrib: "18:02",
		Isha:    "19:20",
	}
}

func instantAt(t *testing.T, clock *prayer.Clock, dateKey, hhmm string) time.Time {
	t.Helper()
	instant, ok := clock.ToInstant(dateKey, hhmm)
	require.True(t, ok)
	return instant
}

func subscriptions(endpoints ...string) []models.PushSubscription {
	subs := make([]models.PushSubscription, 0, len(endpoints))
	for _, endpoint := range endpoints {
		subs = append(subs, models.PushSubscription{Endpoint: endpoint, P256dh: "p256dh", Auth: "auth"})
	}
	return subs
}

func TestDispatchService_RunMatchesAndSends(t *testing.T) {
	clock := dispatchClock(t)
	repo := &MockSubscriptionRepository{}
	sender := &MockPushSender{}
	service := NewDispatchService(clock, &stubSource{day: dispatchDay()}, repo, sender, 0)

	repo.On("ListAll").Return(subscriptions("https://push/a", "https://push/b"), nil)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(p *models.PushPayload) bool {
		return p.Title == "Adhan — Dhuhr" && p.Body == "It's time for Dhuhr."
	})).Return(nil)

	report, err := service.Run(instantAt(t, clock, "2024-03-01", "12:15"))
	require.NoError(t, err)

	assert.True(t, report.OK)
	assert.Equal(t, []models.PrayerKey{models.Dhuhr}, report.Matched)
	assert.Equal(t, 2, report.Sent)
	assert.Zero(t, report.Removed)
	assert.Equal(t, "12:15", report.At)
	assert.Equal(t, "2024-03-01", report.Date)
	assert.NotEmpty(t, report.RunID)
	sender.AssertNumberOfCalls(t, "Send", 2)
}

func TestDispatchService_RunPrunesGoneEndpoints(t *testing.T) {
	clock := dispatchClock(t)
	repo := &MockSubscriptionRepository{}
	sender := &MockPushSender{}
	service := NewDispatchService(clock, &stubSource{day: dispatchDay()}, repo, sender, 0)

	repo.On("ListAll").Return(subscriptions("https://push/live", "https://push/dead"), nil)
	repo.On("Remove", "https://push/dead").Return(nil)
	sender.On("Send", mock.MatchedBy(func(s *models.PushSubscription) bool {
		return s.Endpoint == "https://push/live"
	}), mock.Anything).Return(nil)
	sender.On("Send", mock.MatchedBy(func(s *models.PushSubscription) bool {
		return s.Endpoint == "https://push/dead"
	}), mock.Anything).Return(ErrSubscriptionGone)

	report, err := service.Run(instantAt(t, clock, "2024-03-01", "12:15"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Removed)
	repo.AssertCalled(t, "Remove", "https://push/dead")
}

func TestDispatchService_RunRetainsOnTransientFailure(t *testing.T) {
	clock := dispatchClock(t)
	repo := &MockSubscriptionRepository{}
	sender := &MockPushSender{}
	service := NewDispatchService(clock, &stubSource{day: dispatchDay()}, repo, sender, 0)

	repo.On("ListAll").Return(subscriptions("https://push/flaky"), nil)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("503 from push service"))

	report, err := service.Run(instantAt(t, clock, "2024-03-01", "12:15"))
	require.NoError(t, err)

	assert.Zero(t, report.Sent)
	assert.Zero(t, report.Removed)
	repo.AssertNotCalled(t, "Remove", mock.Anything)
}

func TestDispatchService_RunNoMatch(t *testing.T) {
	clock := dispatchClock(t)
	repo := &MockSubscriptionRepository{}
	sender := &MockPushSender{}
	service := NewDispatchService(clock, &stubSource{day: dispatchDay()}, repo, sender, 0)

	report, err := service.Run(instantAt(t, clock, "2024-03-01", "12:16"))
	require.NoError(t, err)

	assert.True(t, report.OK)
	assert.Empty(t, report.Matched)
	repo.AssertNotCalled(t, "ListAll")
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestDispatchService_RunIdempotentWithinMinute(t *testing.T) {
	clock := dispatchClock(t)
	repo := &MockSubscriptionRepository{}
	sender := &MockPushSender{}
	service := NewDispatchService(clock, &stubSource{day: dispatchDay()}, repo, sender, 0)

	repo.On("ListAll").Return(subscriptions("https://push/a"), nil)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	// both invocations fall inside the same wall-clock minute and both
	// match; delivery happens each time, the at-most-once guarantee is
	// the caller invoking the matcher once per minute
	first, err := service.Run(instantAt(t, clock, "2024-03-01", "12:15"))
	require.NoError(t, err)
	second, err := service.Run(instantAt(t, clock, "2024-03-01", "12:15").Add(30 * time.Second))
	require.NoError(t, err)

	assert.Equal(t, first.Matched, second.Matched)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestDispatchService_RunNormalizesTimetableTimes(t *testing.T) {
	clock := dispatchClock(t)
	day := dispatchDay()
	day.Maghrib = " 18;02 "
	repo := &MockSubscriptionRepository{}
	sender := &MockPushSender{}
	service := NewDispatchService(clock, &stubSource{day: day}, repo, sender, 0)

	repo.On("ListAll").Return(subscriptions("https://push/a"), nil)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	report, err := service.Run(instantAt(t, clock, "2024-03-01", "18:02"))
	require.NoError(t, err)

	assert.Equal(t, []models.PrayerKey{models.Maghrib}, report.Matched)
	assert.Equal(t, 1, report.Sent)
}

func TestDispatchService_RunMissingDay(t *testing.T) {
	clock := dispatchClock(t)
	repo := &MockSubscriptionRepository{}
	sender := &MockPushSender{}
	service := NewDispatchService(clock, &stubSource{day: nil}, repo, sender, 0)

	report, err := service.Run(instantAt(t, clock, "2024-03-01", "12:15"))
	require.NoError(t, err)

	assert.True(t, report.OK)
	assert.Equal(t, "no-timetable-for-today", report.Note)
	repo.AssertNotCalled(t, "ListAll")
}

func TestDispatchService_RunTimetableReadFailure(t *testing.T) {
	clock := dispatchClock(t)
	service := NewDispatchService(clock, &stubSource{err: errors.New("disk gone")},
		&MockSubscriptionRepository{}, &MockPushSender{}, 0)

	report, err := service.Run(instantAt(t, clock, "2024-03-01", "12:15"))
	assert.Nil(t, report)
	assert.Error(t, err)
}

func TestDispatchService_RunEmptyRegistry(t *testing.T) {
	clock := dispatchClock(t)
	repo := &MockSubscriptionRepository{}
	sender := &MockPushSender{}
	service := NewDispatchService(clock, &stubSource{day: dispatchDay()}, repo, sender, 0)

	repo.On("ListAll").Return([]models.PushSubscription{}, nil)

	report, err := service.Run(instantAt(t, clock, "2024-03-01", "12:15"))
	require.NoError(t, err)

	assert.True(t, report.OK)
	assert.Equal(t, "no-subscriptions", report.Note)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestDispatchService_RunBatchesLargeRegistries(t *testing.T) {
	clock := dispatchClock(t)
	repo := &MockSubscriptionRepository{}
	sender := &MockPushSender{}
	service := NewDispatchService(clock, &stubSource{day: dispatchDay()}, repo, sender, 3)

	var endpoints []string
	for i := 0; i < 10; i++ {
		endpoints = append(endpoints, "https://push/"+string(rune('a'+i)))
	}
	repo.On("ListAll").Return(subscriptions(endpoints...), nil)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	report, err := service.Run(instantAt(t, clock, "2024-03-01", "12:15"))
	require.NoError(t, err)

	assert.Equal(t, 10, report.Sent)
	sender.AssertNumberOfCalls(t, "Send", 10)
}

func TestDispatchService_NotifyAll(t *testing.T) {
	repo := &MockSubscriptionRepository{}
	sender := &MockPushSender{}
	service := NewDispatchService(dispatchClock(t), &stubSource{}, repo, sender, 0)

	repo.On("ListAll").Return(subscriptions("https://push/a", "https://push/b"), nil)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(p *models.PushPayload) bool {
		return p.Title == "Eid announcement" && p.Body == "Eid prayer at 09:00."
	})).Return(nil)

	sent, removed, err := service.NotifyAll(&models.NotificationRequest{
		Title: "Eid announcement",
		Body:  "Eid prayer at 09:00.",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Zero(t, removed)
}

func TestDispatchService_NotifyAllDefaults(t *testing.T) {
	repo := &MockSubscriptionRepository{}
	sender := &MockPushSender{}
	service := NewDispatchService(dispatchClock(t), &stubSource{}, repo, sender, 0)

	repo.On("ListAll").Return(subscriptions("https://push/a"), nil)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(p *models.PushPayload) bool {
		return p.Title == "MWHS" && p.Body == "It's time for prayer."
	})).Return(nil)

	sent, _, err := service.NotifyAll(&models.NotificationRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestDispatchService_NotifyOne(t *testing.T) {
	sender := &MockPushSender{}
	service := NewDispatchService(dispatchClock(t), &stubSource{}, &MockSubscriptionRepository{}, sender, 0)

	sender.On("Send", mock.MatchedBy(func(s *models.PushSubscription) bool {
		return s.Endpoint == "https://push/target" && s.P256dh == "p256dh" && s.Auth == "auth"
	}), mock.MatchedBy(func(p *models.PushPayload) bool {
		return p.Title == "Test push"
	})).Return(nil)

	req := &models.SendToRequest{Title: "Test push", Body: "Hello"}
	req.Subscription.Endpoint = "https://push/target"
	req.Subscription.Keys.P256dh = "p256dh"
	req.Subscription.Keys.Auth = "auth"

	err := service.NotifyOne(req)
	assert.NoError(t, err)
}

func TestDispatchService_NotifyOneGone(t *testing.T) {
	sender := &MockPushSender{}
	service := NewDispatchService(dispatchClock(t), &stubSource{}, &MockSubscriptionRepository{}, sender, 0)

	sender.On("Send", mock.Anything, mock.Anything).Return(ErrSubscriptionGone)

	req := &models.SendToRequest{}
	req.Subscription.Endpoint = "https://push/dead"

	err := service.NotifyOne(req)
	assert.Error(t, err)
}

package service

import (
	"time"

	"prayertimes.app/models"
)

// SubscriptionRepositoryInterface defines the registry contract the
// services depend on
type SubscriptionRepositoryInterface interface {
	Add(subscription *models.PushSubscription) error
	Remove(endpoint string) error
	ListAll() ([]models.PushSubscription, error)
}

// PushSenderInterface delivers one payload to one subscription.
// Implementations report ErrSubscriptionGone for endpoints the push
// service says no longer exist.
type PushSenderInterface interface {
	Send(subscription *models.PushSubscription, payload *models.PushPayload) error
}

// DispatchServiceInterface is the server-side matching and fan-out contract
type DispatchServiceInterface interface {
	Run(now time.Time) (*models.DispatchReport, error)
	NotifyAll(req *models.NotificationRequest) (sent, removed int, err error)
	NotifyOne(req *models.SendToRequest) error
}

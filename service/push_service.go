package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"prayertimes.app/config"
	apperrors "prayertimes.app/errors"
	"prayertimes.app/models"
)

// ErrSubscriptionGone reports that the push service answered 404/410: the
// endpoint is permanently dead and should be pruned from the registry.
var ErrSubscriptionGone = errors.New("push subscription gone")

// PushService delivers payloads over the web-push transport using the
// configured VAPID key material
type PushService struct {
	config *config.PushConfig
}

// NewPushService creates a push service from VAPID configuration
func NewPushService(config *config.PushConfig) *PushService {
	return &PushService{config: config}
}

// Send delivers one JSON-serialized payload to one subscription
func (s *PushService) Send(subscription *models.PushSubscription, payload *models.PushPayload) error {
	if subscription == nil || subscription.Endpoint == "" {
		return apperrors.NewValidationError("subscription endpoint is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewPushError("failed to serialize push payload", err)
	}

	target := &webpush.Subscription{
		Endpoint: subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: subscription.P256dh,
			Auth:   subscription.Auth,
		},
	}

	resp, err := webpush.SendNotification(body, target, &webpush.Options{
		Subscriber:      s.config.Subject,
		VAPIDPublicKey:  s.config.PublicKey,
		VAPIDPrivateKey: s.config.PrivateKey,
		TTL:             s.config.TTL,
	})
	if err != nil {
		return apperrors.NewPushError("push send failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		detail, _ := io.ReadAll(resp.Body)
		return apperrors.NewPushError(
			fmt.Sprintf("push service returned status %d: %s", resp.StatusCode, string(detail)), nil)
	}
	return nil
}

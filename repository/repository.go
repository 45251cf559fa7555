// Package repository implements data access layer for the application
package repository

import (
	"log"

	"gorm.io/gorm"
	"prayertimes.app/models"
)

// SubscriptionRepository handles data access operations for push
// subscriptions. Endpoint identity is the dedup key: at most one live row
// per endpoint.
type SubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new repository for push subscriptions
func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Add registers a subscription. A missing endpoint or an endpoint already
// present is a no-op; presence is checked, content is not replaced.
func (r *SubscriptionRepository) Add(subscription *models.PushSubscription) error {
	if subscription == nil || subscription.Endpoint == "" {
		log.Println("[DEBUG] SubscriptionRepository.Add: no endpoint, skipping")
		return nil
	}

	var count int64
	result := r.db.Model(&models.PushSubscription{}).
		Where("endpoint = ?", subscription.Endpoint).
		Count(&count)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when checking subscription: %v\n", result.Error)
		return result.Error
	}
	if count > 0 {
		log.Printf("[DEBUG] Subscription already registered: %s\n", subscription.Endpoint)
		return nil
	}

	if err := r.db.Create(subscription).Error; err != nil {
		log.Printf("[ERROR] Database error when creating subscription: %v\n", err)
		return err
	}

	log.Printf("[DEBUG] Registered subscription with ID: %d\n", subscription.ID)
	return nil
}

// Remove deletes all entries matching the endpoint; absent endpoints are a
// no-op
func (r *SubscriptionRepository) Remove(endpoint string) error {
	if endpoint == "" {
		return nil
	}

	result := r.db.Where("endpoint = ?", endpoint).Delete(&models.PushSubscription{})
	if result.Error != nil {
		log.Printf("[ERROR] Database error when removing subscription: %v\n", result.Error)
		return result.Error
	}

	log.Printf("[DEBUG] Removed %d subscription(s) for endpoint\n", result.RowsAffected)
	return nil
}

// ListAll returns a snapshot of every registered subscription; later
// mutations are not reflected in the returned slice
func (r *SubscriptionRepository) ListAll() ([]models.PushSubscription, error) {
	var subscriptions []models.PushSubscription
	result := r.db.Find(&subscriptions)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when listing subscriptions: %v\n", result.Error)
		return nil, result.Error
	}

	log.Printf("[DEBUG] Found %d subscriptions\n", len(subscriptions))
	return subscriptions, nil
}

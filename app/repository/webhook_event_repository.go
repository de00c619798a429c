package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/MealFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a webhook delivery log backed by GORM.
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// BeginDelivery records a delivery attempt for an event and returns the stored
// row, including the outcome of any earlier attempt.
func (r *webhookEventRepository) BeginDelivery(ctx context.Context, provider, providerEventID, eventType string) (*models.BillingWebhookEvent, error) {
	db := r.db.WithContext(ctx)
	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: providerEventID,
		EventType:       eventType,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event).Error; err != nil {
		return nil, err
	}

	var stored models.BillingWebhookEvent
	if err := db.Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		First(&stored).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&stored).UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error; err != nil {
		return nil, err
	}
	stored.Attempts++
	return &stored, nil
}

// MarkProcessed stamps the delivery with its outcome. An empty processingError
// means the event reconciled successfully.
func (r *webhookEventRepository) MarkProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

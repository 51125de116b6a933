package repository

import (
	"context"
	"time"

	"viptips-platform/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository interface {
	// ClaimEvent atomically records the event id as processed. Returns false
	// when the id was already claimed by an earlier delivery. Must run inside
	// the same transaction as the side effects it guards so a rollback frees
	// the claim for redelivery.
	ClaimEvent(ctx context.Context, tx *gorm.DB, eventID, eventType string) (bool, error)
}

type webhookEventRepositoryImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepositoryImpl{db: db}
}

func (r *webhookEventRepositoryImpl) ClaimEvent(ctx context.Context, tx *gorm.DB, eventID, eventType string) (bool, error) {
	result := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&model.WebhookEvent{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now(),
	})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

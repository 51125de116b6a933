package repository

import (
	"context"
	"errors"
	"time"

	"viptips-platform/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository interface {
	// Upsert creates or updates a subscription keyed by its Stripe
	// subscription id. Safe to repeat with the same payload.
	Upsert(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error
	Cancel(ctx context.Context, tx *gorm.DB, stripeSubscriptionID string, canceledAt time.Time) error
	GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error)
	FindActiveForUser(ctx context.Context, userID string, now time.Time) (*model.Subscription, error)
}

type subscriptionRepoImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepoImpl{
		db: db,
	}
}

func (r *subscriptionRepoImpl) Upsert(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"plan_id",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"trial_end",
			"canceled_at",
			"updated_at",
		}),
	}).Create(sub).Error
}

func (r *subscriptionRepoImpl) Cancel(ctx context.Context, tx *gorm.DB, stripeSubscriptionID string, canceledAt time.Time) error {
	return tx.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Updates(map[string]interface{}{
			"status":      model.SubscriptionStatusCanceled,
			"canceled_at": canceledAt,
			"updated_at":  time.Now(),
		}).Error
}

func (r *subscriptionRepoImpl) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		First(&sub).
		Error

	if err != nil {
		return nil, err
	}

	return &sub, nil
}

// FindActiveForUser returns a subscription usable for entitlement: status
// active and the current period not yet lapsed. Returns (nil, nil) when the
// user has none.
func (r *subscriptionRepoImpl) FindActiveForUser(ctx context.Context, userID string, now time.Time) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("status = ?", model.SubscriptionStatusActive).
		Where("current_period_end >= ?", now).
		First(&sub).
		Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"viptips-platform/internal/model"

	"gorm.io/gorm"
)

type VIPTokenRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, tokens []*model.VIPToken) error
	// FindUsableForTip returns an unexpired, unexhausted token bound to the
	// given tip. (nil, nil) when none exists.
	FindUsableForTip(ctx context.Context, userID string, tipID uint, now time.Time) (*model.VIPToken, error)
	// FindUsableGeneral returns an unexpired, unexhausted general token.
	// (nil, nil) when none exists.
	FindUsableGeneral(ctx context.Context, userID string, now time.Time) (*model.VIPToken, error)
	// Redeem increments Used on a usable token in a single guarded update.
	// Returns false when the token is missing, exhausted, or expired.
	Redeem(ctx context.Context, userID, code string, now time.Time) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*model.VIPToken, error)
}

type vipTokenRepoImpl struct {
	db *gorm.DB
}

func NewVIPTokenRepository(db *gorm.DB) VIPTokenRepository {
	return &vipTokenRepoImpl{
		db: db,
	}
}

func (r *vipTokenRepoImpl) CreateBatch(ctx context.Context, tx *gorm.DB, tokens []*model.VIPToken) error {
	return tx.WithContext(ctx).Create(&tokens).Error
}

func (r *vipTokenRepoImpl) FindUsableForTip(ctx context.Context, userID string, tipID uint, now time.Time) (*model.VIPToken, error) {
	var token model.VIPToken
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("tip_id = ?", tipID).
		Where("expires_at >= ?", now).
		Where("used < quantity").
		First(&token).
		Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &token, nil
}

func (r *vipTokenRepoImpl) FindUsableGeneral(ctx context.Context, userID string, now time.Time) (*model.VIPToken, error) {
	var token model.VIPToken
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("type = ?", model.TokenTypeGeneral).
		Where("expires_at >= ?", now).
		Where("used < quantity").
		First(&token).
		Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &token, nil
}

func (r *vipTokenRepoImpl) Redeem(ctx context.Context, userID, code string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.VIPToken{}).
		Where("code = ?", code).
		Where("user_id = ?", userID).
		Where("expires_at >= ?", now).
		Where("used < quantity").
		Updates(map[string]interface{}{
			"used":       gorm.Expr("used + 1"),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *vipTokenRepoImpl) ListByUser(ctx context.Context, userID string) ([]*model.VIPToken, error) {
	var tokens []*model.VIPToken
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tokens).
		Error

	if err != nil {
		return nil, err
	}

	return tokens, nil
}

package repository

import (
	"context"

	"viptips-platform/internal/model"

	"gorm.io/gorm"
)

type TipRepository interface {
	Create(ctx context.Context, tip *model.Tip) error
	FindByID(ctx context.Context, tipID uint) (*model.Tip, error)
	// List returns tips newest-match-first, VIP and free mixed.
	List(ctx context.Context, limit, offset int) ([]*model.Tip, error)
}

type tipRepoImpl struct {
	db *gorm.DB
}

func NewTipRepository(db *gorm.DB) TipRepository {
	return &tipRepoImpl{
		db: db,
	}
}

func (r *tipRepoImpl) Create(ctx context.Context, tip *model.Tip) error {
	return r.db.WithContext(ctx).Create(tip).Error
}

func (r *tipRepoImpl) FindByID(ctx context.Context, tipID uint) (*model.Tip, error) {
	var tip model.Tip
	err := r.db.WithContext(ctx).
		Where("id = ?", tipID).
		First(&tip).
		Error

	if err != nil {
		return nil, err
	}

	return &tip, nil
}

func (r *tipRepoImpl) List(ctx context.Context, limit, offset int) ([]*model.Tip, error) {
	var tips []*model.Tip
	err := r.db.WithContext(ctx).
		Order("match_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tips).
		Error

	if err != nil {
		return nil, err
	}

	return tips, nil
}

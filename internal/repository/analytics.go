package repository

import (
	"context"

	"viptips-platform/internal/model"

	"gorm.io/gorm"
)

// AnalyticsRepository appends observability records. Nothing in the core
// reads them back; failures here must never abort the operation that
// produced them.
type AnalyticsRepository interface {
	Record(ctx context.Context, name, userID, metadata string) error
	RecordAudit(ctx context.Context, adminID, action, targetID, metadata string) error
}

type analyticsRepoImpl struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepoImpl{
		db: db,
	}
}

func (r *analyticsRepoImpl) Record(ctx context.Context, name, userID, metadata string) error {
	return r.db.WithContext(ctx).Create(&model.AnalyticsEvent{
		Name:     name,
		UserID:   userID,
		Metadata: metadata,
	}).Error
}

func (r *analyticsRepoImpl) RecordAudit(ctx context.Context, adminID, action, targetID, metadata string) error {
	return r.db.WithContext(ctx).Create(&model.AdminAuditLog{
		AdminID:  adminID,
		Action:   action,
		TargetID: targetID,
		Metadata: metadata,
	}).Error
}

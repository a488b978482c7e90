package audit

import (
	"context"

	"gorm.io/gorm"

	"github.com/studymatch/backend/internal/core/datamodel/audit"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Append(ctx context.Context, log *audit.Log) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *Repository) List(ctx context.Context, limit int) ([]audit.Log, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []audit.Log
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UsageQuery selects raw usage rows. Zero-valued ids do not filter.
type UsageQuery struct {
	Cutoff   time.Time
	TenantID uuid.UUID
	KeyID    uuid.UUID
}

// UsageSince returns rows created at or after q.Cutoff, newest first.
func (r *Repository) UsageSince(ctx context.Context, q UsageQuery) ([]UsageLog, error) {
	tx := r.db.WithContext(ctx).
		Select("key_id", "tenant_id", "elapsed_ms", "status", "created_at").
		Where("created_at >= ?", q.Cutoff)
	if q.TenantID != uuid.Nil {
		tx = tx.Where("tenant_id = ?", q.TenantID)
	}
	if q.KeyID != uuid.Nil {
		tx = tx.Where("key_id = ?", q.KeyID)
	}

	var rows []UsageLog
	if err := tx.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) InsertUsage(ctx context.Context, entry *UsageLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

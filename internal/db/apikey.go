package db

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListKeys returns the tenant's keys, newest first.
func (r *Repository) ListKeys(ctx context.Context, tenantID uuid.UUID) ([]APIKey, error) {
	var keys []APIKey
	err := r.db.WithContext(ctx).
		Select("id", "tenant_id", "name", "last4", "scope", "expires_at", "created_at").
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Order("id").
		Find(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *Repository) InsertKey(ctx context.Context, key *APIKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

// DeleteKey hard-deletes a key within the tenant. Deleting a key that does
// not exist is not an error; the affected row count is returned.
func (r *Repository) DeleteKey(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&APIKey{})
	return res.RowsAffected, res.Error
}

// FindKeyByHash returns gorm.ErrRecordNotFound when no key has the fingerprint.
func (r *Repository) FindKeyByHash(ctx context.Context, hash string) (*APIKey, error) {
	var keys []APIKey
	if err := r.db.WithContext(ctx).Where("hash = ?", hash).Limit(1).Find(&keys).Error; err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &keys[0], nil
}

// CountKeys counts keys of one tenant, or of every tenant when tenantID is uuid.Nil.
func (r *Repository) CountKeys(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&APIKey{})
	if tenantID != uuid.Nil {
		q = q.Where("tenant_id = ?", tenantID)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

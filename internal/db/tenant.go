package db

import (
	"context"

	"github.com/google/uuid"
)

// FirstTenantBinding returns the tenant of the user's oldest binding.
// Ties on created_at are broken by tenant id so the choice is stable.
func (r *Repository) FirstTenantBinding(ctx context.Context, userID string) (uuid.UUID, bool, error) {
	if userID == "" {
		return uuid.Nil, false, nil
	}
	var binding UserTenantRole
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("tenant_id ASC").
		Limit(1).
		Find(&binding).Error
	if err != nil {
		return uuid.Nil, false, err
	}
	if binding.TenantID == uuid.Nil {
		return uuid.Nil, false, nil
	}
	return binding.TenantID, true, nil
}

func (r *Repository) TenantIDBySlug(ctx context.Context, slug string) (uuid.UUID, bool, error) {
	if slug == "" {
		return uuid.Nil, false, nil
	}
	var tenants []Tenant
	err := r.db.WithContext(ctx).Select("id").Where("slug = ?", slug).Limit(1).Find(&tenants).Error
	if err != nil {
		return uuid.Nil, false, err
	}
	if len(tenants) == 0 {
		return uuid.Nil, false, nil
	}
	return tenants[0].ID, true, nil
}

func (r *Repository) CountTenants(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Tenant{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

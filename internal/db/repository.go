package db

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the persistence surface used by the key lifecycle and usage
// services. *Repository implements it on top of GORM.
type Store interface {
	ListKeys(ctx context.Context, tenantID uuid.UUID) ([]APIKey, error)
	InsertKey(ctx context.Context, key *APIKey) error
	DeleteKey(ctx context.Context, tenantID, id uuid.UUID) (int64, error)
	FindKeyByHash(ctx context.Context, hash string) (*APIKey, error)
	CountKeys(ctx context.Context, tenantID uuid.UUID) (int64, error)

	FirstTenantBinding(ctx context.Context, userID string) (uuid.UUID, bool, error)
	TenantIDBySlug(ctx context.Context, slug string) (uuid.UUID, bool, error)
	CountTenants(ctx context.Context) (int64, error)

	UsageSince(ctx context.Context, q UsageQuery) ([]UsageLog, error)
	InsertUsage(ctx context.Context, entry *UsageLog) error

	// Transaction runs fn against a Store bound to a single transaction.
	// The transaction commits when fn returns nil.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// Repository is the GORM-backed Store.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

var _ Store = (*Repository)(nil)

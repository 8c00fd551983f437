package db

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"keyplane/internal/config"
)

// Connect opens a GORM database connection using APP_DATABASE_URL (PostgreSQL URL)
// and migrates the control-plane tables.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Statements are prepared once per pooled connection; the migrator relies on it.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Tenant{}, &UserTenantRole{}, &APIKey{}, &UsageLog{}); err != nil {
		return nil, err
	}

	return db, nil
}

// EnsureFallbackTenant makes sure the tenant that keys fall back to exists.
// An existing tenant with the configured slug is left as-is.
func EnsureFallbackTenant(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Tenant, error) {
	if cfg.FallbackTenantSlug == "" {
		return nil, nil
	}

	var existing []Tenant
	if err := db.WithContext(ctx).Where("slug = ?", cfg.FallbackTenantSlug).Limit(1).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("look up fallback tenant: %w", err)
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}

	name := cfg.FallbackTenantName
	if name == "" {
		name = cfg.FallbackTenantSlug
	}
	tenant := &Tenant{Slug: cfg.FallbackTenantSlug, Name: name}
	if err := db.WithContext(ctx).Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("create fallback tenant: %w", err)
	}
	return tenant, nil
}

package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tenant is an isolated customer organization. Keys and usage rows are
// always scoped to exactly one tenant.
type Tenant struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	CreatedAt time.Time

	Slug string `gorm:"uniqueIndex;size:64;not null"`
	Name string `gorm:"size:128;not null"`
	Plan string `gorm:"size:32"`
}

// UserTenantRole binds a user (as known to the upstream auth provider) to
// a tenant with a role.
type UserTenantRole struct {
	UserID   string    `gorm:"primaryKey;size:64"`
	TenantID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Role string `gorm:"size:32;not null;default:member"`

	CreatedAt time.Time
}

// APIKey is one issued credential. The plaintext secret is never stored:
// Hash holds the hex SHA-256 fingerprint and Last4 the tail of the
// plaintext for recognition.
type APIKey struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	TenantID uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`

	Name string `gorm:"size:128;not null" json:"name"`

	Hash  string `gorm:"column:hash;uniqueIndex;size:64;not null" json:"-"`
	Last4 string `gorm:"column:last4;size:4;not null" json:"last4"`

	Scope pq.StringArray `gorm:"type:text[];not null" json:"scope"`

	// ExpiresAt is nil for keys that never expire.
	ExpiresAt *time.Time `json:"expires_at"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Expired reports whether the key is past its expiry at now.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// HasScope reports whether the key carries the given permission string.
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scope {
		if s == scope {
			return true
		}
	}
	return false
}

// UsageLog is one row per request authenticated with an API key.
type UsageLog struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time `gorm:"index"`

	KeyID    uuid.UUID `gorm:"type:uuid;index;not null"`
	TenantID uuid.UUID `gorm:"type:uuid;index;not null"`

	Route string `gorm:"size:255"`

	// ElapsedMs and Status are nullable: rows written by older producers
	// may lack either.
	ElapsedMs *int64
	Status    *int

	// Attributes holds request context (method, remote ip, query) without
	// schema changes.
	Attributes datatypes.JSONMap `gorm:"type:jsonb"`
}

func (Tenant) TableName() string         { return "tenants" }
func (UserTenantRole) TableName() string { return "user_tenant_roles" }
func (APIKey) TableName() string         { return "api_keys" }
func (UsageLog) TableName() string       { return "api_key_logs" }

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

package keys

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"keyplane/internal/db"
)

// CreateRequest describes a key to issue. A nil or empty Scope gets the
// service's default scope; a nil ExpiresAt never expires.
type CreateRequest struct {
	Name      string
	Scope     []string
	ExpiresAt *time.Time
}

// Created is returned once per key. It is the only place the plaintext
// secret is ever observable.
type Created struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Plaintext string
	Last4     string
}

// Options configures a Service.
type Options struct {
	FallbackTenantSlug string
	DefaultScope       []string
}

// Service issues, lists, revokes and verifies API keys.
type Service struct {
	store        db.Store
	resolver     TenantResolver
	defaultScope []string

	now      func() time.Time
	generate func() (Material, error)
}

func NewService(store db.Store, opts Options) *Service {
	return &Service{
		store:        store,
		resolver:     TenantResolver{FallbackSlug: opts.FallbackTenantSlug},
		defaultScope: append([]string(nil), opts.DefaultScope...),
		now:          time.Now,
		generate:     GenerateMaterial,
	}
}

// Create validates the request, generates key material, resolves the
// owning tenant and persists the key. Tenant resolution and the insert run
// in one transaction.
func (s *Service) Create(ctx context.Context, actor Actor, req CreateRequest) (*Created, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, &Error{Kind: KindValidation, Message: "Expiry must be in the future"}
	}

	material, err := s.generate()
	if err != nil {
		return nil, &Error{Kind: KindInternal, Message: "failed to generate API key", Err: err}
	}

	key := &db.APIKey{
		Name:      name,
		Hash:      material.Fingerprint,
		Last4:     material.Last4,
		Scope:     s.scopeOrDefault(req.Scope),
		ExpiresAt: req.ExpiresAt,
	}

	err = s.store.Transaction(ctx, func(tx db.Store) error {
		tenantID, found, err := s.resolver.Resolve(ctx, tx, actor)
		if err != nil {
			return storeError(err)
		}
		if !found {
			return ErrTenantNotFound
		}
		key.TenantID = tenantID
		if err := tx.InsertKey(ctx, key); err != nil {
			return storeError(err)
		}
		return nil
	})
	if err != nil {
		if KindOf(err) != 0 {
			return nil, err
		}
		return nil, storeError(err)
	}

	return &Created{
		ID:        key.ID,
		TenantID:  key.TenantID,
		Plaintext: material.Plaintext,
		Last4:     material.Last4,
	}, nil
}

// List returns the keys of the actor's tenant, newest first. An actor
// without a tenant sees no keys.
func (s *Service) List(ctx context.Context, actor Actor) ([]db.APIKey, error) {
	tenantID, found, err := s.TenantFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !found {
		return []db.APIKey{}, nil
	}
	keys, err := s.store.ListKeys(ctx, tenantID)
	if err != nil {
		return nil, storeError(err)
	}
	if keys == nil {
		keys = []db.APIKey{}
	}
	return keys, nil
}

// Revoke hard-deletes the key. Revoking a key that is already gone succeeds.
func (s *Service) Revoke(ctx context.Context, actor Actor, id uuid.UUID) error {
	if id == uuid.Nil {
		return &Error{Kind: KindValidation, Message: "Key id required"}
	}
	tenantID, found, err := s.TenantFor(ctx, actor)
	if err != nil {
		return err
	}
	if !found {
		return ErrTenantNotFound
	}
	if _, err := s.store.DeleteKey(ctx, tenantID, id); err != nil {
		return storeError(err)
	}
	return nil
}

// Verify resolves a presented secret to its key. Unknown secrets and
// expired keys are rejected.
func (s *Service) Verify(ctx context.Context, plaintext string) (*db.APIKey, error) {
	plaintext = strings.TrimSpace(plaintext)
	if plaintext == "" {
		return nil, ErrInvalidKey
	}
	key, err := s.store.FindKeyByHash(ctx, Fingerprint(plaintext))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, storeError(err)
	}
	if key.Expired(s.now()) {
		return nil, ErrKeyExpired
	}
	return key, nil
}

// RecordUsage stores one raw usage row for a verified key.
func (s *Service) RecordUsage(ctx context.Context, entry *db.UsageLog) error {
	if entry.KeyID == uuid.Nil || entry.TenantID == uuid.Nil {
		return &Error{Kind: KindValidation, Message: "usage entry needs key and tenant"}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.store.InsertUsage(ctx, entry); err != nil {
		return storeError(err)
	}
	return nil
}

// TenantFor resolves the tenant the actor operates on.
func (s *Service) TenantFor(ctx context.Context, actor Actor) (uuid.UUID, bool, error) {
	id, found, err := s.resolver.Resolve(ctx, s.store, actor)
	if err != nil {
		return uuid.Nil, false, storeError(err)
	}
	return id, found, nil
}

func (s *Service) scopeOrDefault(scope []string) []string {
	out := make([]string, 0, len(scope))
	seen := make(map[string]struct{}, len(scope))
	for _, sc := range scope {
		sc = strings.TrimSpace(sc)
		if sc == "" {
			continue
		}
		if _, dup := seen[sc]; dup {
			continue
		}
		seen[sc] = struct{}{}
		out = append(out, sc)
	}
	if len(out) == 0 {
		out = append(out, s.defaultScope...)
	}
	return out
}

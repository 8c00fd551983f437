package keys

import (
	"context"

	"github.com/google/uuid"

	"keyplane/internal/db"
)

// Actor is the authenticated user acting on the control plane. UserID is
// empty for callers the upstream auth layer could not identify.
type Actor struct {
	UserID string
}

// TenantResolver picks the tenant that owns keys created by an actor: the
// actor's first tenant binding, else the fallback tenant.
type TenantResolver struct {
	FallbackSlug string
}

// Resolve returns found=false when neither a binding nor the fallback
// tenant exists. Store failures are returned as errors.
func (r TenantResolver) Resolve(ctx context.Context, store db.Store, actor Actor) (uuid.UUID, bool, error) {
	if actor.UserID != "" {
		id, found, err := store.FirstTenantBinding(ctx, actor.UserID)
		if err != nil {
			return uuid.Nil, false, err
		}
		if found {
			return id, true, nil
		}
	}
	return store.TenantIDBySlug(ctx, r.FallbackSlug)
}

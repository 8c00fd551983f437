package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	dbpkg "keyplane/internal/db"
	"keyplane/internal/keys"
)

// KeyManager is the key lifecycle surface the handlers need.
type KeyManager interface {
	Create(ctx context.Context, actor keys.Actor, req keys.CreateRequest) (*keys.Created, error)
	List(ctx context.Context, actor keys.Actor) ([]dbpkg.APIKey, error)
	Revoke(ctx context.Context, actor keys.Actor, id uuid.UUID) error
	TenantFor(ctx context.Context, actor keys.Actor) (uuid.UUID, bool, error)
}

type createKeyRequest struct {
	Name      string     `json:"name"`
	Scope     []string   `json:"scope,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type createKeyResponse struct {
	OK        bool      `json:"ok"`
	ID        uuid.UUID `json:"id"`
	Plaintext string    `json:"plaintext"`
	Last4     string    `json:"last4"`
}

type keyView struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Last4     string     `json:"last4"`
	Scope     []string   `json:"scope"`
	ExpiresAt *time.Time `json:"expires_at"`
	Expired   bool       `json:"expired"`
	CreatedAt time.Time  `json:"created_at"`
}

func ListAPIKeys(m KeyManager) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		actor, ok := MustActor(ctx)
		if !ok {
			return
		}
		list, err := m.List(ctx, actor)
		if err != nil {
			kindResponse(ctx, err)
			return
		}

		now := time.Now()
		views := make([]keyView, 0, len(list))
		for i := range list {
			k := &list[i]
			views = append(views, keyView{
				ID:        k.ID,
				Name:      k.Name,
				Last4:     k.Last4,
				Scope:     k.Scope,
				ExpiresAt: k.ExpiresAt,
				Expired:   k.Expired(now),
				CreatedAt: k.CreatedAt,
			})
		}
		jsonResponse(ctx, fasthttp.StatusOK, map[string]any{"keys": views})
	}
}

func CreateAPIKey(m KeyManager) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		actor, ok := MustActor(ctx)
		if !ok {
			return
		}

		var req createKeyRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}

		created, err := m.Create(ctx, actor, keys.CreateRequest{
			Name:      req.Name,
			Scope:     req.Scope,
			ExpiresAt: req.ExpiresAt,
		})
		if err != nil {
			kindResponse(ctx, err)
			return
		}
		keysCreated()

		ctx.Response.Header.Set("Cache-Control", "no-store")
		jsonResponse(ctx, fasthttp.StatusCreated, createKeyResponse{
			OK:        true,
			ID:        created.ID,
			Plaintext: created.Plaintext,
			Last4:     created.Last4,
		})
	}
}

func RevokeAPIKey(m KeyManager) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		actor, ok := MustActor(ctx)
		if !ok {
			return
		}

		idStr, _ := ctx.UserValue("id").(string)
		id, err := uuid.Parse(idStr)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid key id")
			return
		}

		if err := m.Revoke(ctx, actor, id); err != nil {
			kindResponse(ctx, err)
			return
		}
		keysRevoked()
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}

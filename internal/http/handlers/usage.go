package handlers

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"keyplane/internal/keys"
)

// UsageReader is the usage aggregation surface the handlers need.
type UsageReader interface {
	Daily(ctx context.Context, f keys.UsageFilter) ([]keys.DailyUsage, error)
	Overview(ctx context.Context, tenantID uuid.UUID, days int) (*keys.Overview, error)
}

// UsageDaily serves per-key, per-day usage for the actor's tenant,
// optionally narrowed to one key with ?key_id=.
func UsageDaily(m KeyManager, u UsageReader) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		actor, ok := MustActor(ctx)
		if !ok {
			return
		}

		var filter keys.UsageFilter
		if s := string(ctx.QueryArgs().Peek("key_id")); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				errResponse(ctx, fasthttp.StatusBadRequest, "invalid key_id")
				return
			}
			filter.KeyID = id
		}

		tenantID, found, err := m.TenantFor(ctx, actor)
		if err != nil {
			kindResponse(ctx, err)
			return
		}
		if !found {
			jsonResponse(ctx, fasthttp.StatusOK, map[string]any{"usage": []keys.DailyUsage{}})
			return
		}
		filter.TenantID = tenantID

		rows, err := u.Daily(ctx, filter)
		if err != nil {
			kindResponse(ctx, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, map[string]any{"usage": rows})
	}
}

// ControlOverview serves tenant/key counts and window totals. ?days= is
// clamped to [1, 90] and defaults to 30.
func ControlOverview(m KeyManager, u UsageReader) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		actor, ok := MustActor(ctx)
		if !ok {
			return
		}

		days := 30
		if s := string(ctx.QueryArgs().Peek("days")); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				errResponse(ctx, fasthttp.StatusBadRequest, "invalid days")
				return
			}
			days = n
		}

		tenantID, found, err := m.TenantFor(ctx, actor)
		if err != nil {
			kindResponse(ctx, err)
			return
		}
		if !found {
			kindResponse(ctx, keys.ErrTenantNotFound)
			return
		}

		ov, err := u.Overview(ctx, tenantID, days)
		if err != nil {
			kindResponse(ctx, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, ov)
	}
}

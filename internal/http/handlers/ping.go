package handlers

import (
	"github.com/valyala/fasthttp"

	httpctx "keyplane/internal/http/ctx"
)

// Ping answers a request authenticated with an API key with the key's
// identity. It is the smallest route that exercises verification and
// usage recording end to end.
func Ping(ctx *fasthttp.RequestCtx) {
	key, ok := httpctx.APIKeyFromCtx(ctx)
	if !ok {
		errResponse(ctx, fasthttp.StatusUnauthorized, "unauthorized")
		return
	}
	jsonResponse(ctx, fasthttp.StatusOK, map[string]any{
		"ok":        true,
		"key_id":    key.ID,
		"tenant_id": key.TenantID,
		"last4":     key.Last4,
		"scope":     key.Scope,
	})
}

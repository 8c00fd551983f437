package middleware

import (
	"encoding/json"
	"strings"

	"github.com/valyala/fasthttp"

	httpctx "keyplane/internal/http/ctx"
	"keyplane/internal/keys"
)

// UserIDHeader carries the user id asserted by the upstream auth proxy.
const UserIDHeader = "X-User-ID"

// RequireActor loads the acting user from UserIDHeader and sets it on the
// context. Requests without it are rejected.
func RequireActor(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		userID := strings.TrimSpace(string(ctx.Request.Header.Peek(UserIDHeader)))
		if userID == "" {
			writeError(ctx, fasthttp.StatusUnauthorized, "unauthorized")
			return
		}
		httpctx.SetActor(ctx, keys.Actor{UserID: userID})
		next(ctx)
	}
}

func writeError(ctx *fasthttp.RequestCtx, code int, msg string) {
	body, _ := json.Marshal(map[string]any{"ok": false, "error": msg})
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

package middleware

import (
	"bytes"
	"context"
	"strings"

	"github.com/valyala/fasthttp"

	dbpkg "keyplane/internal/db"
	httpctx "keyplane/internal/http/ctx"
	"keyplane/internal/keys"
)

// APIKeyHeader is the header clients present their secret in. A Bearer
// Authorization header is accepted as well.
const APIKeyHeader = "x-api-key"

// Verifier resolves a presented secret to a stored key.
type Verifier interface {
	Verify(ctx context.Context, plaintext string) (*dbpkg.APIKey, error)
}

// VerifyObserver is told the outcome of every verification ("ok",
// "invalid", "expired", "forbidden", "error").
type VerifyObserver func(result string)

// APIKeyAuth validates the presented API key and sets it on the context.
// Every scope in required must be carried by the key.
func APIKeyAuth(v Verifier, observe VerifyObserver, required ...string) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if observe == nil {
		observe = func(string) {}
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			token := presentedKey(ctx)
			if token == "" {
				observe("invalid")
				writeError(ctx, fasthttp.StatusUnauthorized, "Missing x-api-key")
				return
			}

			key, err := v.Verify(ctx, token)
			if err != nil {
				switch keys.KindOf(err) {
				case keys.KindUnauthorized:
					observe("invalid")
					writeError(ctx, fasthttp.StatusUnauthorized, err.Error())
				case keys.KindExpired:
					observe("expired")
					writeError(ctx, fasthttp.StatusUnauthorized, err.Error())
				default:
					observe("error")
					writeError(ctx, fasthttp.StatusInternalServerError, "database error")
				}
				return
			}

			for _, scope := range required {
				if !key.HasScope(scope) {
					observe("forbidden")
					writeError(ctx, fasthttp.StatusForbidden, "insufficient scope")
					return
				}
			}

			observe("ok")
			httpctx.SetAPIKey(ctx, key)
			next(ctx)
		}
	}
}

func presentedKey(ctx *fasthttp.RequestCtx) string {
	if v := strings.TrimSpace(string(ctx.Request.Header.Peek(APIKeyHeader))); v != "" {
		return v
	}
	auth := ctx.Request.Header.Peek("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && bytes.EqualFold(auth[:len(prefix)], []byte(prefix)) {
		return strings.TrimSpace(string(auth[len(prefix):]))
	}
	return ""
}

package handlers

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	httpctx "keyplane/internal/http/ctx"
	"keyplane/internal/keys"
	"keyplane/internal/logger"
)

// MustActor returns the current actor from context, or sends 401 and returns false.
func MustActor(ctx *fasthttp.RequestCtx) (keys.Actor, bool) {
	a, ok := httpctx.ActorFromCtx(ctx)
	if !ok || a.UserID == "" {
		errResponse(ctx, fasthttp.StatusUnauthorized, "unauthorized")
		return keys.Actor{}, false
	}
	return a, true
}

// RequestLogger returns fasthttp middleware that logs method, path, status, duration.
func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		log := logger.GetLogger()
		log.Info().
			Bytes("method", ctx.Method()).
			Bytes("path", ctx.Path()).
			Int("status", ctx.Response.StatusCode()).
			Dur("duration", time.Since(start)).
			Str("ip", ctx.RemoteIP().String()).
			Msg("request")
	}
}

func jsonResponse(ctx *fasthttp.RequestCtx, code int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		errResponse(ctx, fasthttp.StatusInternalServerError, "failed to encode response")
		return
	}
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	body, _ := json.Marshal(map[string]any{"ok": false, "error": msg})
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// kindResponse translates a service error into a status code and body.
func kindResponse(ctx *fasthttp.RequestCtx, err error) {
	code := fasthttp.StatusInternalServerError
	kind := keys.KindOf(err)
	switch kind {
	case keys.KindValidation:
		code = fasthttp.StatusBadRequest
	case keys.KindNotFound:
		code = fasthttp.StatusNotFound
	case keys.KindUnauthorized, keys.KindExpired:
		code = fasthttp.StatusUnauthorized
	}
	if code == fasthttp.StatusInternalServerError {
		log := logger.GetLogger()
		log.Error().Err(err).Bytes("path", ctx.Path()).Msg("request failed")
	}
	body, _ := json.Marshal(map[string]any{"ok": false, "error": err.Error(), "kind": kind.String()})
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

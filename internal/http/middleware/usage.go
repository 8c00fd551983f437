package middleware

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/datatypes"

	dbpkg "keyplane/internal/db"
	httpctx "keyplane/internal/http/ctx"
	"keyplane/internal/logger"
)

// Recorder persists raw usage rows.
type Recorder interface {
	RecordUsage(ctx context.Context, entry *dbpkg.UsageLog) error
}

// RequestObserver receives every recorded request, e.g. to update metrics.
type RequestObserver func(entry *dbpkg.UsageLog)

const recordTimeout = 5 * time.Second

// UsageRecorder writes one api_key_logs row for each request served to a
// verified API key. The write happens off the request path; failures are
// logged and never affect the response.
func UsageRecorder(rec Recorder, observe RequestObserver) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			elapsed := time.Since(start).Milliseconds()

			key, ok := httpctx.APIKeyFromCtx(ctx)
			if !ok {
				return
			}

			status := ctx.Response.StatusCode()
			entry := &dbpkg.UsageLog{
				CreatedAt: start.UTC(),
				KeyID:     key.ID,
				TenantID:  key.TenantID,
				Route:     string(ctx.Path()),
				ElapsedMs: &elapsed,
				Status:    &status,
				Attributes: datatypes.JSONMap{
					"method":    string(ctx.Method()),
					"remote_ip": ctx.RemoteIP().String(),
				},
			}
			if q := ctx.QueryArgs().String(); q != "" {
				entry.Attributes["query"] = q
			}
			if observe != nil {
				observe(entry)
			}

			go func() {
				bg, cancel := context.WithTimeout(context.Background(), recordTimeout)
				defer cancel()
				if err := rec.RecordUsage(bg, entry); err != nil {
					log := logger.GetLogger()
					log.Error().Err(err).Str("key_id", entry.KeyID.String()).Msg("failed to record api key usage")
				}
			}()
		}
	}
}

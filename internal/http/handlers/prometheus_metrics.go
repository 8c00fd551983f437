package handlers

import (
	"bytes"
	"context"
	"crypto/subtle"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"

	dbpkg "keyplane/internal/db"
	"keyplane/internal/keys"
)

var (
	metricsOnce sync.Once

	keysCreatedTotal       prometheus.Counter
	keysRevokedTotal       prometheus.Counter
	keyVerificationsTotal  *prometheus.CounterVec
	keyRequestsTotal       *prometheus.CounterVec
	keyRequestDurationSecs *prometheus.HistogramVec
)

// InitPrometheusMetrics registers the service collectors with the default
// registry. Calling it more than once is a no-op.
func InitPrometheusMetrics() {
	metricsOnce.Do(func() {
		keysCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keyplane",
			Name:      "keys_created_total",
			Help:      "Total number of API keys issued.",
		})
		keysRevokedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keyplane",
			Name:      "keys_revoked_total",
			Help:      "Total number of API key revocations.",
		})
		keyVerificationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "keyplane",
				Name:      "key_verifications_total",
				Help:      "API key verifications by outcome.",
			},
			[]string{"result"},
		)
		keyRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "keyplane",
				Name:      "key_requests_total",
				Help:      "Total number of requests served to API keys.",
			},
			[]string{"key_id", "route", "status"},
		)
		keyRequestDurationSecs = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "keyplane",
				Name:      "key_request_duration_seconds",
				Help:      "Histogram of request durations served to API keys, in seconds.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"key_id", "route"},
		)
		prometheus.MustRegister(keysCreatedTotal, keysRevokedTotal, keyVerificationsTotal, keyRequestsTotal, keyRequestDurationSecs)
	})
}

func keysCreated() {
	if keysCreatedTotal != nil {
		keysCreatedTotal.Inc()
	}
}

func keysRevoked() {
	if keysRevokedTotal != nil {
		keysRevokedTotal.Inc()
	}
}

// ObserveVerification counts one API key verification outcome.
func ObserveVerification(result string) {
	if keyVerificationsTotal != nil {
		keyVerificationsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveKeyRequest records a request served to an API key.
func ObserveKeyRequest(entry *dbpkg.UsageLog) {
	if keyRequestsTotal == nil {
		return
	}
	keyID := entry.KeyID.String()
	status := "0"
	if entry.Status != nil {
		status = strconv.Itoa(*entry.Status)
	}
	keyRequestsTotal.WithLabelValues(keyID, entry.Route, status).Inc()
	if entry.ElapsedMs != nil {
		keyRequestDurationSecs.WithLabelValues(keyID, entry.Route).Observe(float64(*entry.ElapsedMs) / 1000.0)
	}
}

// KeyVerifier resolves a presented secret to a stored key.
type KeyVerifier interface {
	Verify(ctx context.Context, plaintext string) (*dbpkg.APIKey, error)
}

// KeyMetricsHandler serves the metrics exposition restricted to the series
// of the key given in ?api-key=. Only series labelled with that key_id are
// returned; platform-wide families are left out.
func KeyMetricsHandler(v KeyVerifier, gatherer prometheus.Gatherer) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		apiKeyValue := string(ctx.QueryArgs().Peek("api-key"))
		if apiKeyValue == "" {
			errResponse(ctx, fasthttp.StatusUnauthorized, "missing api-key query parameter")
			return
		}

		key, err := v.Verify(ctx, apiKeyValue)
		if err != nil {
			switch keys.KindOf(err) {
			case keys.KindUnauthorized, keys.KindExpired:
				errResponse(ctx, fasthttp.StatusUnauthorized, err.Error())
			default:
				errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			}
			return
		}

		families, err := gatherer.Gather()
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to gather metrics")
			return
		}
		writeExposition(ctx, selectSeries(families, labelEquals("key_id", key.ID.String())))
	}
}

// MetricsHandler serves the full exposition of gatherer to operators
// presenting "Authorization: Bearer <token>". An empty token rejects
// every request.
func MetricsHandler(gatherer prometheus.Gatherer, token string) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !operatorToken(ctx, token) {
			errResponse(ctx, fasthttp.StatusUnauthorized, "unauthorized")
			return
		}
		families, err := gatherer.Gather()
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to gather metrics")
			return
		}
		writeExposition(ctx, families)
	}
}

func operatorToken(ctx *fasthttp.RequestCtx, token string) bool {
	if token == "" {
		return false
	}
	presented, ok := bytes.CutPrefix(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization), []byte("Bearer "))
	return ok && subtle.ConstantTimeCompare(bytes.TrimSpace(presented), []byte(token)) == 1
}

type seriesMatcher func(m *dto.Metric) bool

// labelEquals matches series whose label name is set to value.
func labelEquals(name, value string) seriesMatcher {
	return func(m *dto.Metric) bool {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == name {
				return lp.GetValue() == value
			}
		}
		return false
	}
}

// selectSeries keeps the series accepted by match. Families left without
// series are dropped.
func selectSeries(families []*dto.MetricFamily, match seriesMatcher) []*dto.MetricFamily {
	var out []*dto.MetricFamily
	for _, mf := range families {
		var series []*dto.Metric
		for _, m := range mf.GetMetric() {
			if match(m) {
				series = append(series, m)
			}
		}
		if len(series) == 0 {
			continue
		}
		out = append(out, &dto.MetricFamily{
			Name:   mf.Name,
			Help:   mf.Help,
			Type:   mf.Type,
			Metric: series,
		})
	}
	return out
}

func writeExposition(ctx *fasthttp.RequestCtx, families []*dto.MetricFamily) {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, format)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to encode metrics")
			return
		}
	}

	ctx.SetContentType(string(format))
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetBody(buf.Bytes())
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"

	"keyplane/internal/config"
	"keyplane/internal/db"
	"keyplane/internal/http/handlers"
	appmw "keyplane/internal/http/middleware"
	"keyplane/internal/keys"
	"keyplane/internal/logger"
)

func main() {
	log := logger.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log, err = logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log = logger.GetLogger()
		log.Fatal().Err(err).Msg("invalid logger configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	if tenant, err := db.EnsureFallbackTenant(ctx, gdb, cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure fallback tenant")
	} else if tenant != nil {
		log.Info().Str("slug", tenant.Slug).Str("tenant_id", tenant.ID.String()).Msg("fallback tenant ready")
	}

	db.StartRetentionWorker(ctx, gdb, cfg.LogRetentionDays)

	repo := db.NewRepository(gdb)
	svc := keys.NewService(repo, keys.Options{
		FallbackTenantSlug: cfg.FallbackTenantSlug,
		DefaultScope:       cfg.DefaultScope,
	})
	agg := keys.NewUsageAggregator(repo, cfg.UsageWindowDays)

	handlers.InitPrometheusMetrics()

	r := router.New()

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	// Management surface; the acting user is asserted by the upstream auth proxy.
	r.GET("/v1/keys", appmw.RequireActor(handlers.ListAPIKeys(svc)))
	r.POST("/v1/keys", appmw.RequireActor(handlers.CreateAPIKey(svc)))
	r.DELETE("/v1/keys/{id}", appmw.RequireActor(handlers.RevokeAPIKey(svc)))
	r.GET("/v1/usage/daily", appmw.RequireActor(handlers.UsageDaily(svc, agg)))
	r.GET("/v1/control/overview", appmw.RequireActor(handlers.ControlOverview(svc, agg)))

	// Key-authenticated surface.
	keyAuth := appmw.APIKeyAuth(svc, handlers.ObserveVerification)
	recordUsage := appmw.UsageRecorder(svc, handlers.ObserveKeyRequest)
	r.GET("/v1/ping", keyAuth(recordUsage(handlers.Ping)))

	r.GET("/v1/metrics", handlers.KeyMetricsHandler(svc, prometheus.DefaultGatherer))
	if cfg.MetricsToken != "" {
		r.GET("/metrics", handlers.MetricsHandler(prometheus.DefaultGatherer, cfg.MetricsToken))
	}

	server := &fasthttp.Server{
		Handler: handlers.RequestLogger(r.Handler),
		Name:    "keyplane",
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := server.Shutdown(); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("keyplane listening")
	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

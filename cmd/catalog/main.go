package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"PartsHub/internal/cache"
	"PartsHub/internal/catalog"
	"PartsHub/internal/config"
	"PartsHub/internal/ikro"
	"PartsHub/internal/mapping"
	"PartsHub/internal/notus"
	"PartsHub/internal/upstream"
	"PartsHub/pkg/kit"
)

func main() {
	service := "catalog"

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	upstreamMetrics := upstream.NewMetrics(reg)

	svc := catalog.NewService(
		cache.New(catalog.CacheKeys(), log, reg),
		mapping.NewStore(cfg.MappingsDir, mapping.DefaultSchemas, log),
		ikro.NewClient(cfg.IkroBaseURL, cfg.IkroPageSize,
			upstream.New(ikro.Vendor, cfg.UpstreamTimeout, log, upstreamMetrics)),
		notus.NewClient(cfg.NotusURL,
			upstream.New(notus.Vendor, cfg.UpstreamTimeout, log, upstreamMetrics)),
		log,
	)

	s := &catalog.Server{Service: svc, Log: log, StaticDir: cfg.StaticDir}
	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	})

	warm := func(ctx context.Context) {
		svc.Warm(ctx)
		log.Info("cache warmup finished", zap.Any("slots", svc.Cache.Status()))
	}

	if err := kit.RunHTTPServer(":"+cfg.Port, h, log, warm); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

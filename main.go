package main

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/meetwatch/meetwatch-agent/config"
	"github.com/meetwatch/meetwatch-agent/internal/logging"
	"github.com/meetwatch/meetwatch-agent/internal/monitor"
	"github.com/meetwatch/meetwatch-agent/internal/server"
	"github.com/meetwatch/meetwatch-agent/internal/snapshot"
	"github.com/meetwatch/meetwatch-agent/internal/systemd"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogDev)
	defer logger.Sync() //nolint:errcheck

	// Check if in setup mode
	if cfg.SetupMode {
		logger.Warn("no API key configured, starting in setup mode",
			zap.String("setup_url", "http://"+cfg.Addr()+"/setup"))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitor.NewMetrics(registry)

	// Platform snapshot source with a short title cache on top
	source := snapshot.NewCachedSource(
		snapshot.NewGopsutilSource(cfg.Detection.TitleLookupTimeout),
		cfg.Detection.TitleCacheTTL,
	)
	defer source.Close()

	mon := monitor.New(cfg.Detection, source, metrics, logger.Named("monitor"))
	defer mon.Close()

	if cfg.Detection.AutoStart && !cfg.SetupMode {
		if err := mon.Start(); err != nil {
			logger.Error("failed to start monitoring", zap.Error(err))
		}
	}

	if err := systemd.NotifyReady(); err != nil {
		logger.Debug("systemd readiness notification failed", zap.Error(err))
	}

	srv := server.New(cfg, mon, registry, logger.Named("http"))
	if err := srv.Run(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}

	if err := systemd.NotifyStopping(); err != nil {
		logger.Debug("systemd stopping notification failed", zap.Error(err))
	}
}

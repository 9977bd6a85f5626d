package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frostdev-ops/govee-bridge-go/internal/adapters/govee"
	"github.com/frostdev-ops/govee-bridge-go/internal/api"
	"github.com/frostdev-ops/govee-bridge-go/internal/config"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/coordinator"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/dispatcher"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/metrics"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/registry"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/scheduler"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/state"
	"github.com/frostdev-ops/govee-bridge-go/internal/websocket"
	"github.com/frostdev-ops/govee-bridge-go/pkg/logger"
	"github.com/frostdev-ops/govee-bridge-go/pkg/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	for _, warning := range cfg.Warnings() {
		log.Warn(warning)
	}

	log.WithField("version", version.GetVersion()).Info("Starting Govee bridge")

	// Metrics
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	// Provider client
	client := govee.NewClient(govee.ClientConfig{
		APIKey:  cfg.Govee.APIKey,
		BaseURL: cfg.Govee.BaseURL,
		Timeout: cfg.Govee.TimeoutDuration(),
	}, log)

	// Probe the credentials before committing to a schedule. A transport
	// failure here is tolerable; a bad key is not.
	probeCtx, probeCancel := context.WithTimeout(context.Background(), cfg.Govee.TimeoutDuration())
	if err := client.ValidateKey(probeCtx); err != nil {
		if govee.IsAuthError(err) {
			probeCancel()
			log.WithError(err).Fatal("Govee API key rejected")
		}
		log.WithError(err).Warn("Could not validate API key at startup, continuing")
	}
	probeCancel()

	// State coordination core
	cache := state.NewCache(cfg.Govee.OverrideTTLDuration(), log)
	reg := registry.NewRegistry(log)

	coord := coordinator.New(client, cache, reg, collector, coordinator.Options{
		ScanInterval: cfg.Govee.ScanIntervalDuration(),
		ModelFilter:  cfg.Govee.ModelFilter,
		IncludeAll:   cfg.Govee.IncludeAll,
	}, log)

	disp := dispatcher.New(client, cache, reg, collector, cfg.Govee.TimeoutDuration(), log)

	// WebSocket hub, fed by registry events
	wsHub := websocket.NewHub(log, collector)
	go wsHub.Run()
	unsubscribe := wsHub.SubscribeRegistry(reg)
	defer unsubscribe()

	// Maintenance jobs
	maint, err := scheduler.New(cfg.Scheduler, client, client, coord, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to build maintenance scheduler")
	}
	maint.Start()

	// Start polling
	if err := coord.Start(context.Background()); err != nil {
		log.WithError(err).Fatal("Failed to start poll coordinator")
	}

	// HTTP server
	router := api.NewRouter(cfg, log, client, cache, coord, disp, reg, wsHub, collector)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Starting Govee bridge API on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	coord.Stop()
	disp.Stop()
	maint.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}

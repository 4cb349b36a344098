package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/relaydial/relaydial/internal/api"
	"github.com/relaydial/relaydial/internal/cache"
	"github.com/relaydial/relaydial/internal/config"
	"github.com/relaydial/relaydial/internal/metrics"
	"github.com/relaydial/relaydial/internal/platform"
	"github.com/relaydial/relaydial/internal/server"
	"github.com/relaydial/relaydial/internal/store"
	"github.com/relaydial/relaydial/internal/telemetry"
	"github.com/relaydial/relaydial/internal/webhook"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("relaydial", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	m := metrics.New()

	cacheStore, err := cache.Open(cfg.Cache.Path,
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithLogger(logger),
		cache.WithObserver(func(result string) {
			m.CacheLookups.WithLabelValues(result).Inc()
		}))
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer cacheStore.Close()

	clientOpts := []platform.ClientOption{
		platform.WithHTTPClient(&http.Client{
			Timeout:   30 * time.Second,
			Transport: m.RoundTripper(nil),
		}),
	}
	if cfg.Platform.BaseURL != "" {
		clientOpts = append(clientOpts, platform.WithBaseURL(cfg.Platform.BaseURL))
	}
	if cfg.Platform.FromNumber != "" {
		clientOpts = append(clientOpts, platform.WithFromNumber(cfg.Platform.FromNumber))
	}
	client := platform.NewClient(cfg.Platform.APIKey, clientOpts...)

	storeOpts := []store.Option{
		store.WithTTL(cfg.Cache.TTL),
		store.WithLogger(logger),
	}
	agents := store.NewAgentStore(client, cacheStore, storeOpts...)
	calls := store.NewCallStore(client, cacheStore, storeOpts...)
	voices := store.NewVoiceStore(client, cacheStore, storeOpts...)

	webhooks := webhook.NewService(cfg.Platform.APIKey, calls, logger)

	srv := server.New(cfg.Server.Port, logger)
	handlers := &api.API{
		Agents:   agents,
		Calls:    calls,
		Voices:   voices,
		Platform: client,
		Webhooks: webhooks,
		Metrics:  m,
		Logger:   logger,
	}
	handlers.Routes(srv.Router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Warm the stores so the first dashboard paint is served from memory.
	go func() {
		agents.EnsureLoaded(ctx)
		calls.EnsureLoaded(ctx)
		voices.EnsureLoaded(ctx)
	}()

	if watcher, err := config.NewWatcher(*configPath, logger); err == nil {
		if err := watcher.Watch(ctx, func(*config.Config) {
			logger.Info("config change detected, restart to apply server settings")
		}); err != nil {
			logger.Warn("config watch unavailable", slog.String("error", err.Error()))
		}
		defer watcher.Close()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("relaydial started",
		slog.Int("port", cfg.Server.Port),
		slog.String("cache", cfg.Cache.Path),
		slog.Duration("ttl", cfg.Cache.TTL))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

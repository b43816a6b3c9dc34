package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mkarlsen/parley/internal/auth"
	"github.com/mkarlsen/parley/internal/config"
	"github.com/mkarlsen/parley/internal/httpapi"
	"github.com/mkarlsen/parley/internal/observability"
	"github.com/mkarlsen/parley/internal/provider"
	"github.com/mkarlsen/parley/internal/ratelimit"
	"github.com/mkarlsen/parley/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	apiLog, err := telemetry.NewLogger(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("telemetry init failed: %v", err)
	}
	defer apiLog.Close()

	codec, err := auth.NewCodec(cfg.SessionSecretKey, cfg.SessionTTL, cfg.SessionRenewal)
	if err != nil {
		log.Fatalf("session codec init failed: %v", err)
	}

	limiter, err := ratelimit.NewFromURL(cfg.RedisURL, cfg.RateLimitRequests, cfg.RateLimitWindow)
	if err != nil {
		log.Fatalf("rate limiter init failed: %v", err)
	}

	registry := provider.NewRegistry(provider.Settings{
		AnthropicAPIKey:   cfg.AnthropicAPIKey,
		AnthropicBaseURL:  cfg.AnthropicBaseURL,
		TranslationModel:  cfg.TranslationModel,
		AssemblyAIAPIKey:  cfg.AssemblyAIAPIKey,
		AssemblyAIBaseURL: cfg.AssemblyAIBaseURL,
		CartesiaAPIKey:    cfg.CartesiaAPIKey,
		CartesiaWSBaseURL: cfg.CartesiaWSBaseURL,
		TTSModel:          cfg.TTSModel,
	})

	pipeline := auth.NewPipeline(codec, limiter, cfg.Production())
	api := httpapi.New(cfg, codec, pipeline, registry, apiLog, metrics)

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s (%s)", cfg.BindAddr, cfg.Environment)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

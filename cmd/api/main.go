package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"token-ledger/config"
	"token-ledger/internal/adapter/http/handler"
	"token-ledger/internal/adapter/http/middleware"
	redisStorage "token-ledger/internal/adapter/storage/redis"
	"token-ledger/internal/app"
	"token-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("TKL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("store", cfg.Ledger.StoreBackend).
		Int("port", cfg.Server.Port).
		Msg("Starting Token Ledger")

	ctx := context.Background()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger")
	}
	defer a.Close()

	var limiter middleware.Limiter
	if a.Redis != nil {
		limiter = redisStorage.NewRateLimitStore(a.Redis)
	} else {
		log.Warn().Msg("Redis disabled: rate limiting and the idempotency cache are off")
	}
	if cfg.Provider.WebhookSecret == "" {
		log.Warn().Msg("provider.webhook_secret is empty: payment webhook route disabled")
	}

	router := handler.SetupRouter(handler.RouterDeps{
		AuthSvc:          a.AuthSvc,
		LedgerSvc:        a.LedgerSvc,
		ExchangeSvc:      a.ExchangeSvc,
		AlertSvc:         a.AlertSvc,
		ReportingSvc:     a.ReportingSvc,
		TokenSvc:         a.TokenSvc,
		SigSvc:           a.SigSvc,
		Catalog:          a.Catalog,
		PointsMultiplier: a.EngineCfg.PointsMultiplier,
		ProviderSecret:   cfg.Provider.WebhookSecret,
		TimestampDrift:   cfg.Provider.TimestampDrift,
		RateLimiter:      limiter,
		HealthCheckers:   a.HealthCheckers,
		Logger:           log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

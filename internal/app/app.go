// Package app assembles the ledger engine from configuration. The API server
// and the operator CLI share it so both run against the same store.
package app

import (
	"context"
	"fmt"

	"token-ledger/config"
	"token-ledger/internal/adapter/storage/memory"
	pgStorage "token-ledger/internal/adapter/storage/postgres"
	redisStorage "token-ledger/internal/adapter/storage/redis"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/internal/service"
	"token-ledger/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App holds the wired services and the resources they depend on.
type App struct {
	Config *config.Config
	Store  ports.RecordStore

	Catalog   *domain.Catalog
	EngineCfg service.EngineConfig

	EncSvc   ports.EncryptionService
	SigSvc   ports.SignatureService
	TokenSvc ports.TokenService

	AuthSvc      ports.AuthService
	LedgerSvc    ports.LedgerService
	ExchangeSvc  ports.ExchangeService
	AlertSvc     ports.AlertService
	ReportingSvc ports.ReportingService

	// Operator is the bootstrapped admin account, nil when admin.email is empty.
	Operator *domain.Account

	// Redis is nil when redis.enabled is false and the store is not Redis-backed.
	Redis          *goredis.Client
	HealthCheckers []ports.HealthChecker

	closers []func()
}

// Build connects the configured store, wires every service and makes sure the
// operator account exists.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Catalog: domain.DefaultCatalog()}

	multiplier, exchangeRate, err := cfg.Ledger.Rates()
	if err != nil {
		return nil, err
	}
	a.EngineCfg = service.EngineConfig{
		PointsMultiplier: multiplier,
		ExchangeRate:     exchangeRate,
		MaxRetries:       cfg.Ledger.MaxRetries,
		StoreTimeout:     cfg.Ledger.StoreTimeout,
	}

	if cfg.Redis.Enabled || cfg.Ledger.StoreBackend == config.BackendRedis {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.Redis = rdb
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	}

	if err := a.openStore(ctx, log); err != nil {
		a.Close()
		return nil, err
	}

	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initializing encryption service: %w", err)
	}
	a.EncSvc = encSvc
	a.SigSvc = service.NewHMACSignatureService()
	a.TokenSvc = service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	var idempCache ports.IdempotencyCache
	if a.Redis != nil {
		idempCache = redisStorage.NewIdempotencyCache(a.Redis)
	}

	ledgerSvc := service.NewLedgerService(a.Store, a.Catalog, idempCache, encSvc, nil, a.EngineCfg,
		logger.Component(log, "ledger"))
	a.LedgerSvc = ledgerSvc
	a.ExchangeSvc = service.NewExchangeService(a.Store, encSvc, a.EngineCfg, logger.Component(log, "exchange"))
	a.AlertSvc = service.NewAlertService(a.Store, a.EngineCfg, logger.Component(log, "alerts"))
	a.ReportingSvc = service.NewReportingService(ledgerSvc)
	a.AuthSvc = service.NewAuthService(a.Store, service.NewArgon2HashService(service.DefaultArgon2Params),
		a.TokenSvc, a.EngineCfg, logger.Component(log, "auth"))

	if cfg.Admin.Email != "" {
		op, err := a.AuthSvc.EnsureAdmin(ctx, ports.RegisterRequest{
			Email:       cfg.Admin.Email,
			Password:    cfg.Admin.Password,
			DisplayName: cfg.Admin.DisplayName,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("bootstrapping operator account: %w", err)
		}
		a.Operator = op
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context, log zerolog.Logger) error {
	switch a.Config.Ledger.StoreBackend {
	case config.BackendMemory:
		st := memory.NewStore()
		a.Store = st
		a.HealthCheckers = append(a.HealthCheckers, st)

	case config.BackendPostgres:
		pool, err := pgStorage.NewPool(ctx, a.Config.Database, log)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		st := pgStorage.NewRecordStore(pool)
		if err := st.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("preparing records table: %w", err)
		}
		a.Store = st
		a.HealthCheckers = append(a.HealthCheckers, st)

	case config.BackendRedis:
		st := redisStorage.NewRecordStore(a.Redis, "tkl:")
		a.Store = st
		a.HealthCheckers = append(a.HealthCheckers, st)
		return nil

	default:
		return fmt.Errorf("unknown store backend %q", a.Config.Ledger.StoreBackend)
	}

	if a.Redis != nil {
		a.HealthCheckers = append(a.HealthCheckers, redisStorage.NewHealthCheck(a.Redis, "redis"))
	}
	return nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

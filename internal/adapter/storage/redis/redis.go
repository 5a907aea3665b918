package redis

import (
	"context"
	"fmt"

	"token-ledger/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("Redis connection established")

	return client, nil
}

// HealthCheck implements ports.HealthChecker for a Redis client used as a
// cache or rate limit backend.
type HealthCheck struct {
	client goredis.UniversalClient
	name   string
}

// NewHealthCheck creates a Redis health checker reported under name.
func NewHealthCheck(client goredis.UniversalClient, name string) *HealthCheck {
	if name == "" {
		name = "redis"
	}
	return &HealthCheck{client: client, name: name}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}

func (h *HealthCheck) Name() string {
	return h.name
}

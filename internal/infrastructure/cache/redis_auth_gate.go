package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dropship/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisAuthGate implements integration.AuthGate using Redis
// This is suitable for distributed deployments where multiple instances
// must share one auth backoff window per supplier
type RedisAuthGate struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisAuthGate creates a new Redis-based auth gate
func NewRedisAuthGate(cfg RedisConfig) (*RedisAuthGate, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisAuthGate{
		client:    client,
		keyPrefix: "supplier:auth:",
	}, nil
}

// NewRedisAuthGateWithClient creates a gate with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisAuthGateWithClient(client *redis.Client, keyPrefix string) *RedisAuthGate {
	if keyPrefix == "" {
		keyPrefix = "supplier:auth:"
	}
	return &RedisAuthGate{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// TryAcquire attempts to take the auth slot for the supplier for ttl.
// Uses SETNX so exactly one instance wins the slot per window.
func (g *RedisAuthGate) TryAcquire(ctx context.Context, supplierID uuid.UUID, ttl time.Duration) (bool, error) {
	key := g.keyPrefix + supplierID.String()

	acquired, err := g.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire auth slot: %w", err)
	}

	return acquired, nil
}

// Close closes the underlying Redis client
func (g *RedisAuthGate) Close() error {
	return g.client.Close()
}

// Ensure RedisAuthGate implements AuthGate
var _ integration.AuthGate = (*RedisAuthGate)(nil)

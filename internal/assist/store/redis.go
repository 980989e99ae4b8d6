package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	defaultHashKey      = "labelassist:suggestions"
	defaultPoolSize     = 10
	defaultMinIdleConns = 5
	defaultMaxRetries   = 3
	opTimeout           = 2 * time.Second
)

// RedisConfig holds connection settings for the redis-backed store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	HashKey  string
	PoolSize int
}

// RedisStore keeps every suggestion entry in a single redis hash. It is an
// alternative to DiskStore for deployments that already run redis; the
// facade's serialization contract is the same.
type RedisStore struct {
	client  *redis.Client
	hashKey string
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr cannot be empty")
	}
	if cfg.HashKey == "" {
		cfg.HashKey = defaultHashKey
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: defaultMinIdleConns,
		MaxRetries:   defaultMaxRetries,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, hashKey: cfg.HashKey}, nil
}

func (s *RedisStore) Load() (map[string]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	entries, err := s.client.HGetAll(ctx, s.hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load suggestions from redis: %w", err)
	}
	return entries, nil
}

func (s *RedisStore) Put(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.HSet(ctx, s.hashKey, key, value).Err(); err != nil {
		return fmt.Errorf("failed to persist suggestion to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.hashKey).Err(); err != nil {
		return fmt.Errorf("failed to clear redis suggestions: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

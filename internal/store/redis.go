package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/97woo/tgbot/internal/config"
)

// documentsKey is the single hash under which all documents live. Using one
// hash field per document gives field-level writes: a Put touches only its
// own field, never the siblings.
const documentsKey = "dropbot:documents"

// RedisStore is the remote document store backend.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed document store.
func NewRedisStore(cfg *config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxConnections,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client. Used by tests.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get retrieves the named document.
func (s *RedisStore) Get(ctx context.Context, name string, v interface{}) (bool, error) {
	raw, err := s.client.HGet(ctx, documentsKey, name).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read document %q: %w", name, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode document %q: %w", name, err)
	}
	return true, nil
}

// Put replaces the named document. Sibling fields of the hash are untouched.
func (s *RedisStore) Put(ctx context.Context, name string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode document %q: %w", name, err)
	}
	if err := s.client.HSet(ctx, documentsKey, name, raw).Err(); err != nil {
		return fmt.Errorf("failed to write document %q: %w", name, err)
	}
	return nil
}

// Delete removes the named document.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if err := s.client.HDel(ctx, documentsKey, name).Err(); err != nil {
		return fmt.Errorf("failed to delete document %q: %w", name, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

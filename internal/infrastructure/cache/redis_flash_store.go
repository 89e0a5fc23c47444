package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erp/personportal/internal/infrastructure/config"
)

const defaultFlashKeyPrefix = "portal:flash:"

// RedisFlashStore implements FlashStore with one Redis hash per session.
// This is suitable for deployments where several instances serve the same
// browsers.
type RedisFlashStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisFlashStore connects to Redis and verifies the connection
func NewRedisFlashStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisFlashStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisFlashStoreWithClient(client, cfg.KeyPrefix, ttl), nil
}

// NewRedisFlashStoreWithClient creates a store with an existing Redis client
func NewRedisFlashStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisFlashStore {
	if keyPrefix == "" {
		keyPrefix = defaultFlashKeyPrefix
	}
	return &RedisFlashStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Put sets the hash field and refreshes the key's TTL in one transaction
func (s *RedisFlashStore) Put(ctx context.Context, sessionID, key, message string) error {
	k := s.keyPrefix + sessionID
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, key, message)
		pipe.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store flash message: %w", err)
	}
	return nil
}

// Take reads and deletes the hash in one MULTI/EXEC so concurrent requests
// of the same browser never both see a message.
func (s *RedisFlashStore) Take(ctx context.Context, sessionID string) (map[string]string, error) {
	k := s.keyPrefix + sessionID

	var get *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGetAll(ctx, k)
		pipe.Del(ctx, k)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take flash messages: %w", err)
	}

	messages := get.Val()
	if messages == nil {
		messages = map[string]string{}
	}
	return messages, nil
}

// Close closes the Redis client
func (s *RedisFlashStore) Close() error {
	return s.client.Close()
}

var _ FlashStore = (*RedisFlashStore)(nil)

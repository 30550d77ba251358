// Package cache provides a Redis read-through cache for canonical guidelines.
// Cached copies are invalidated whenever a guideline is replaced or deleted.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"guidance/api/internal/store"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisStore{
		client: client,
		prefix: "guideline:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(guidanceNumber string) string {
	return s.prefix + guidanceNumber
}

// GetGuideline returns the cached copy or an error on a miss.
func (s *RedisStore) GetGuideline(ctx context.Context, guidanceNumber string) (store.Guideline, error) {
	jsonData, err := s.client.Get(ctx, s.key(guidanceNumber)).Result()
	if err == redis.Nil {
		return store.Guideline{}, fmt.Errorf("guideline %s not cached", guidanceNumber)
	}
	if err != nil {
		return store.Guideline{}, fmt.Errorf("cache lookup: %w", err)
	}

	var g store.Guideline
	if err := json.Unmarshal([]byte(jsonData), &g); err != nil {
		return store.Guideline{}, fmt.Errorf("unmarshal cached guideline: %w", err)
	}
	return g, nil
}

func (s *RedisStore) SetGuideline(ctx context.Context, g store.Guideline) error {
	jsonData, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal guideline: %w", err)
	}
	if err := s.client.Set(ctx, s.key(g.GuidanceNumber), jsonData, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache guideline: %w", err)
	}
	return nil
}

func (s *RedisStore) InvalidateGuideline(ctx context.Context, guidanceNumber string) error {
	if err := s.client.Del(ctx, s.key(guidanceNumber)).Err(); err != nil {
		return fmt.Errorf("invalidate guideline: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

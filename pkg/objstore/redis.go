package objstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis keyspace.
type RedisStore struct {
	client *redis.Client
	bucket string
}

// NewRedisStore creates a Redis-backed object store.
func NewRedisStore(opts ...RedisOption) (*RedisStore, error) {
	cfg := &RedisConfig{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
		MinIdleConns: 5,
		Bucket:       "pricecast",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{client: client, bucket: cfg.Bucket}, nil
}

// Client returns the underlying redis client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Exists(ctx context.Context, path string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(path)).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", path, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Put(ctx context.Context, path string, data []byte, overwrite bool) error {
	if overwrite {
		if err := s.client.Set(ctx, s.key(path), data, 0).Err(); err != nil {
			return fmt.Errorf("put %s: %w", path, err)
		}
		return nil
	}
	ok, err := s.client.SetNX(ctx, s.key(path), data, 0).Result()
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(path)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return data, nil
}

func (s *RedisStore) GetLine(ctx context.Context, path string) ([]byte, error) {
	data, err := s.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return firstLine(data), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(path string) string {
	return s.bucket + ":" + path
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/yuchen-w/fangnote/internal/config"
)

// keyPrefix namespaces fangnote keys in a shared Redis instance.
const keyPrefix = "fangnote:"

// RedisKV stores keys in Redis. Useful when the task log should survive the
// local machine or be shared between workstations.
type RedisKV struct {
	client *redis.Client
}

var _ KV = (*RedisKV)(nil)

// NewRedisKV connects to Redis and verifies the connection.
func NewRedisKV(ctx context.Context, cfg config.Config) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return &RedisKV{client: client}, nil
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (r *RedisKV) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Close(ctx context.Context) error {
	return r.client.Close()
}

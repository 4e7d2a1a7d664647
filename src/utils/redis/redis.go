package redis_utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"royaltyhub/src/config"

	"github.com/redis/go-redis/v9"
)

// RedisCacheStore backs the cache contract with a Redis instance so cached
// section data survives process restarts and is shared between the
// interactive and scheduled paths.
type RedisCacheStore struct {
	client *redis.Client
}

func NewRedisCacheStore(cfg *config.Config) (*RedisCacheStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Databases.Redis.Host + ":" + cfg.Databases.Redis.Port,
		Username: cfg.Databases.Redis.Username,
		Password: cfg.Databases.Redis.Password,
		DB:       cfg.Databases.Redis.Database,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCacheStore{client: client}, nil
}

// Get retrieves and deserializes the value of a key into dest. A missing
// key is reported as a plain miss, not an error.
func (r *RedisCacheStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to get key: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to deserialize value: %w", err)
	}
	return true, nil
}

// Set stores a serialized value under key with the given expiration.
func (r *RedisCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize value: %w", err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// Invalidate deletes every key matching the glob pattern and returns the
// number of deleted keys. Uses SCAN so large keyspaces are not blocked.
func (r *RedisCacheStore) Invalidate(ctx context.Context, pattern string) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return count, fmt.Errorf("failed to scan keys: %w", err)
		}
		if len(keys) > 0 {
			deleted, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return count, fmt.Errorf("failed to delete keys: %w", err)
			}
			count += int(deleted)
		}
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

func (r *RedisCacheStore) Close() error {
	return r.client.Close()
}

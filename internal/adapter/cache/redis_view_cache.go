package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
)

const DefaultViewKey = "land:view"

type RedisViewCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisViewCache(client *redis.Client, key string, ttl time.Duration) *RedisViewCache {
	if key == "" {
		key = DefaultViewKey
	}

	return &RedisViewCache{client: client, key: key, ttl: ttl}
}

func (c *RedisViewCache) GetView(ctx context.Context) (*domain.LedgerView, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read cached view: %w", err)
	}

	var view domain.LedgerView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("failed to decode cached view: %w", err)
	}

	return &view, nil
}

func (c *RedisViewCache) SetView(ctx context.Context, view domain.LedgerView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.key, raw, c.ttl).Err()
}

func (c *RedisViewCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

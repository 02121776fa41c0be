package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, orderCode string) (*domain.Order, error) {
	data, err := r.client.Get(ctx, cacheKey(orderCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var order domain.Order
	if e2 := json.Unmarshal(data, &order); e2 != nil {
		return nil, fmt.Errorf("unmarshal order failed: %w", e2)
	}

	return &order, nil
}

func (r RedisCache) Set(ctx context.Context, orderCode string, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order failed: %w", err)
	}

	// Jitter spreads expirations so a burst of orders does not expire at once.
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if e2 := r.client.Set(ctx, cacheKey(orderCode), data, r.baseTTL+jitter).Err(); e2 != nil {
		return fmt.Errorf("redis set failed: %w", e2)
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, orderCode string) error {
	if err := r.client.Del(ctx, cacheKey(orderCode)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(orderCode string) string {
	return fmt.Sprintf("order:%s", orderCode)
}

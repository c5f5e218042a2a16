package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_cart/session-cart/internal/domain"
	"github.com/redis/go-redis/v9"
)

const maxJitterMinutes = 5

// KEYS[1] cart, KEYS[2] version floor; ARGV: payload, version, ttl ms.
var setIfCurrent = redis.NewScript(`
local floor = redis.call('GET', KEYS[2])
if floor and tonumber(floor) > tonumber(ARGV[2]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// KEYS[1] cart, KEYS[2] version floor; ARGV: version, ttl ms.
var raiseFloorAndDelete = redis.NewScript(`
local floor = redis.call('GET', KEYS[2])
if (not floor) or tonumber(floor) < tonumber(ARGV[1]) then
	redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
end
redis.call('DEL', KEYS[1])
return 1
`)

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, key domain.LookupKey) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}

	return &cart, nil
}

func (r *RedisCache) Set(ctx context.Context, key domain.LookupKey, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// jitter spreads expiry of carts cached in the same burst
	ttl := r.baseTTL + time.Duration(rand.Intn(maxJitterMinutes))*time.Minute
	keys := []string{cacheKey(key), floorKey(key)}
	if err := setIfCurrent.Run(ctx, r.client, keys, data, cart.Version, ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context, key domain.LookupKey, version int64) error {
	// the floor must outlive any cart entry a slow reader could still write
	ttl := r.baseTTL + maxJitterMinutes*time.Minute
	keys := []string{cacheKey(key), floorKey(key)}
	if err := raiseFloorAndDelete.Run(ctx, r.client, keys, version, ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

func cacheKey(key domain.LookupKey) string {
	return "cart:" + key.String()
}

func floorKey(key domain.LookupKey) string {
	return "cart-version:" + key.String()
}

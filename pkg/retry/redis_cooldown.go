package retry

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cooldownKeyPrefix = "notifykit:cooldown:"

// RedisCooldowns is a CooldownStore backed by Redis, sharing rate-limit
// windows across engine instances so one node hitting a provider limit
// pauses the whole fleet.
type RedisCooldowns struct {
	client redis.UniversalClient
}

// NewRedisCooldowns creates a Redis-backed cooldown store.
func NewRedisCooldowns(client redis.UniversalClient) (*RedisCooldowns, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisCooldowns{client: client}, nil
}

func (r *RedisCooldowns) SetCooldown(ctx context.Context, provider string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	// Only extend, never shorten: a longer window set by another node
	// must survive.
	ok, err := r.client.SetNX(ctx, cooldownKeyPrefix+provider, 1, d).Result()
	if err != nil {
		return err
	}
	if !ok {
		ttl, err := r.client.PTTL(ctx, cooldownKeyPrefix+provider).Result()
		if err != nil {
			return err
		}
		if ttl < d {
			return r.client.PExpire(ctx, cooldownKeyPrefix+provider, d).Err()
		}
	}
	return nil
}

func (r *RedisCooldowns) Remaining(ctx context.Context, provider string) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, cooldownKeyPrefix+provider).Result()
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

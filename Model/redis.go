package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ewallet/helper"
	"ewallet/metrics"

	"github.com/redis/go-redis/v9"
)

// RedisTokenCache shares minted tokens between processes. Values use the
// same sealed record as BadgerTokenStore, so readers need the seal key.
type RedisTokenCache struct {
	rdb   *redis.Client
	ttl   time.Duration
	codec tokenCodec
}

func NewRedisTokenCache(addr string, ttl time.Duration, sealKey *[32]byte) (*RedisTokenCache, error) {
	if sealKey == nil {
		return nil, errors.New("redis token cache: nil seal key")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return NewRedisTokenCacheFromClient(rdb, ttl, sealKey)
}

func NewRedisTokenCacheFromClient(rdb *redis.Client, ttl time.Duration, sealKey *[32]byte) (*RedisTokenCache, error) {
	codec, err := newTokenCodec(sealKey)
	if err != nil {
		return nil, fmt.Errorf("redis token cache: %w", err)
	}
	return &RedisTokenCache{rdb: rdb, ttl: ttl, codec: codec}, nil
}

func (r *RedisTokenCache) Close() error {
	return r.rdb.Close()
}

func (r *RedisTokenCache) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisTokenCache) Get(ctx context.Context, id string) (MintedToken, error) {
	start := time.Now()
	raw, err := r.rdb.Get(ctx, string(helper.TokenKey(id))).Bytes()
	metrics.ObserveDuration(metrics.RedisGetDuration, start)

	if errors.Is(err, redis.Nil) {
		return MintedToken{}, ErrTokenNotFound
	}
	if err != nil {
		return MintedToken{}, fmt.Errorf("redis get token %s: %w", id, err)
	}
	return r.codec.decode(raw)
}

// Put writes the token with the cache TTL; a zero TTL keeps it forever.
func (r *RedisTokenCache) Put(ctx context.Context, t MintedToken) error {
	b, err := r.codec.encode(t)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, string(helper.TokenKey(t.ID)), b, r.ttl).Err()
}

func (r *RedisTokenCache) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, string(helper.TokenKey(id))).Err()
}

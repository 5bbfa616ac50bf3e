package model

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"ewallet/helper"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server: REDIS_ADDR=localhost:6379 go test ./Model/
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func testRedisID(prefix string) string {
	return prefix + time.Now().Format("150405.000000")
}

func TestRedisTokenCache(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	cache, err := NewRedisTokenCacheFromClient(rdb, time.Minute, testSealKey(7))
	require.NoError(t, err)
	require.NoError(t, cache.Ping(ctx))

	id := testRedisID("tok_redis_test_")
	_, err = cache.Get(ctx, id)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	tok := sampleToken(id, time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, cache.Put(ctx, tok))

	got, err := cache.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Equal(tok))
	assert.True(t, got.EncryptedMetadata.Equal(tok.EncryptedMetadata))

	require.NoError(t, cache.Delete(ctx, id))
	_, err = cache.Get(ctx, id)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRedisTokenCacheSealsEncryptedMetadata(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	cache, err := NewRedisTokenCacheFromClient(rdb, time.Minute, testSealKey(7))
	require.NoError(t, err)

	id := testRedisID("tok_redis_sealed_")
	t.Cleanup(func() { _ = cache.Delete(ctx, id) })
	require.NoError(t, cache.Put(ctx, sampleToken(id, time.Now())))

	raw, err := rdb.Get(ctx, string(helper.TokenKey(id))).Bytes()
	require.NoError(t, err)
	assert.True(t, bytes.Contains(raw, []byte("omise")), "plain metadata is stored as is")
	assert.False(t, bytes.Contains(raw, []byte("s3cr3t-pin")), "encrypted metadata must be sealed")

	// a reader with another key cannot open it
	other, err := NewRedisTokenCacheFromClient(rdb, time.Minute, testSealKey(9))
	require.NoError(t, err)
	_, err = other.Get(ctx, id)
	assert.Error(t, err)
}

func TestCatalogOverRedisKeepsSecretsSealed(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	cache, err := NewRedisTokenCacheFromClient(rdb, time.Minute, testSealKey(7))
	require.NoError(t, err)
	c := NewTokenCatalog(newTestStore(t), cache, nil)

	id := testRedisID("tok_catalog_sealed_")
	t.Cleanup(func() { _ = cache.Delete(ctx, id) })

	_, err = c.Put(ctx, sampleToken(id, time.Now()))
	require.NoError(t, err)

	raw, err := rdb.Get(ctx, string(helper.TokenKey(id))).Bytes()
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("s3cr3t-pin")))

	got, err := c.Get(ctx, id)
	require.NoError(t, err)
	pin, _ := got.EncryptedMetadata["vault_pin"].AsString()
	assert.Equal(t, "s3cr3t-pin", pin)
}

func TestNewRedisTokenCacheRequiresKey(t *testing.T) {
	_, err := NewRedisTokenCache("localhost:6379", time.Minute, nil)
	assert.Error(t, err)
}

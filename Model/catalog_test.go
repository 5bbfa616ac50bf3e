package model

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCache is an in-process TokenProvider standing in for redis.
type memCache struct {
	mu      sync.Mutex
	tokens  map[string]MintedToken
	failGet bool
	gets    int
}

func newMemCache() *memCache {
	return &memCache{tokens: make(map[string]MintedToken)}
}

func (m *memCache) Get(_ context.Context, id string) (MintedToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.failGet {
		return MintedToken{}, errors.New("connection refused")
	}
	t, ok := m.tokens[id]
	if !ok {
		return MintedToken{}, ErrTokenNotFound
	}
	return t, nil
}

func (m *memCache) Put(_ context.Context, t MintedToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.ID] = t
	return nil
}

func (m *memCache) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, id)
	return nil
}

func (m *memCache) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[id]
	return ok
}

// pausingStore holds its first Get until release is closed.
type pausingStore struct {
	TokenStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newPausingStore(inner TokenStore) *pausingStore {
	return &pausingStore{
		TokenStore: inner,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (p *pausingStore) Get(ctx context.Context, id string) (MintedToken, error) {
	t, err := p.TokenStore.Get(ctx, id)
	first := false
	p.once.Do(func() { first = true })
	if first {
		close(p.entered)
		<-p.release
	}
	return t, err
}

func TestCatalogMiss(t *testing.T) {
	c := NewTokenCatalog(newTestStore(t), newMemCache(), nil)

	_, err := c.Get(context.Background(), "tok_1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestCatalogPutWritesBothLayers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cache := newMemCache()
	c := NewTokenCatalog(store, cache, nil)

	applied, err := c.Put(ctx, sampleToken("tok_1", time.Now()))
	require.NoError(t, err)
	assert.True(t, applied)

	assert.True(t, cache.has("tok_1"))
	_, err = store.Get(ctx, "tok_1")
	assert.NoError(t, err)

	got, err := c.Get(ctx, "tok_1")
	require.NoError(t, err)
	assert.Equal(t, "OMG", got.Symbol)
}

func TestCatalogBackfillsCacheFromStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cache := newMemCache()
	c := NewTokenCatalog(store, cache, nil)

	require.NoError(t, store.Put(ctx, sampleToken("tok_1", time.Now())))
	assert.False(t, cache.has("tok_1"))

	_, err := c.Get(ctx, "tok_1")
	require.NoError(t, err)
	assert.True(t, cache.has("tok_1"))
}

func TestCatalogFallsBackWhenCacheFails(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cache := newMemCache()
	cache.failGet = true
	c := NewTokenCatalog(store, cache, nil)

	require.NoError(t, store.Put(ctx, sampleToken("tok_1", time.Now())))

	got, err := c.Get(ctx, "tok_1")
	require.NoError(t, err)
	assert.Equal(t, "tok_1", got.ID)
}

func TestCatalogSkipsStaleUpdate(t *testing.T) {
	ctx := context.Background()
	c := NewTokenCatalog(newTestStore(t), newMemCache(), nil)

	newer := sampleToken("tok_1", time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC))
	older := sampleToken("tok_1", time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC))
	older.Name = "Old name"

	applied, err := c.Put(ctx, newer)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = c.Put(ctx, older)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := c.Get(ctx, "tok_1")
	require.NoError(t, err)
	assert.Equal(t, "OmiseGO", got.Name)
}

func TestCatalogWithoutCache(t *testing.T) {
	ctx := context.Background()
	c := NewTokenCatalog(newTestStore(t), nil, nil)

	_, err := c.Put(ctx, sampleToken("tok_1", time.Now()))
	require.NoError(t, err)

	_, err = c.Get(ctx, "tok_1")
	require.NoError(t, err)

	tokens, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)

	require.NoError(t, c.Delete(ctx, "tok_1"))
	_, err = c.Get(ctx, "tok_1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestCatalogConcurrentPutsSameToken(t *testing.T) {
	ctx := context.Background()
	c := NewTokenCatalog(newTestStore(t), newMemCache(), nil)
	base := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Put(ctx, sampleToken("tok_1", base.Add(time.Duration(i)*time.Minute)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := c.Get(ctx, "tok_1")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(base.Add(19*time.Minute)))
}

func TestCatalogBackfillDoesNotOverwriteNewerPut(t *testing.T) {
	ctx := context.Background()
	inner := newTestStore(t)
	store := newPausingStore(inner)
	cache := newMemCache()
	c := NewTokenCatalog(store, cache, nil)

	v1 := sampleToken("tok_1", time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, inner.Put(ctx, v1))

	v2 := sampleToken("tok_1", time.Date(2018, 6, 1, 0, 0, 0, 0, time.UTC))
	v2.Name = "New"

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		got, err := c.Get(ctx, "tok_1")
		assert.NoError(t, err)
		assert.Equal(t, "OmiseGO", got.Name)
	}()

	// the reader now holds v1 and has not back-filled yet
	<-store.entered
	go func() {
		defer wg.Done()
		applied, err := c.Put(ctx, v2)
		assert.NoError(t, err)
		assert.True(t, applied)
	}()

	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()

	got, err := c.Get(ctx, "tok_1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.True(t, got.UpdatedAt.Equal(v2.UpdatedAt))
}

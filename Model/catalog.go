package model

import (
	"context"
	"errors"
	"fmt"

	"ewallet/metrics"

	"go.uber.org/zap"
)

// TokenCatalog reads through a cache to a durable store.
// The cache is optional; with a nil cache every read goes to the store.
type TokenCatalog struct {
	cache  TokenProvider
	store  TokenStore
	locks  keyedLocks
	logger *zap.Logger
}

func NewTokenCatalog(store TokenStore, cache TokenProvider, logger *zap.Logger) *TokenCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenCatalog{
		cache:  cache,
		store:  store,
		logger: logger,
	}
}

// =======================================================
// GET — cache first → store fallback → back-fill cache
// =======================================================
func (c *TokenCatalog) Get(ctx context.Context, id string) (MintedToken, error) {
	if t, ok := c.cached(ctx, id); ok {
		return t, nil
	}

	// Puts take the same lock, so the back-fill below can't overwrite a
	// newer version written between the store read and the cache write.
	mu := c.locks.get(id)
	mu.Lock()
	defer mu.Unlock()

	if t, ok := c.cached(ctx, id); ok {
		return t, nil
	}

	t, err := c.store.Get(ctx, id)
	if errors.Is(err, ErrTokenNotFound) {
		metrics.CatalogLookups.WithLabelValues("miss").Inc()
		return MintedToken{}, err
	}
	if err != nil {
		return MintedToken{}, err
	}
	metrics.CatalogLookups.WithLabelValues("store").Inc()

	if c.cache != nil {
		if err := c.cache.Put(ctx, t); err != nil {
			c.logger.Warn("token cache back-fill failed",
				zap.String("token_id", id), zap.Error(err))
		}
	}
	return t, nil
}

func (c *TokenCatalog) cached(ctx context.Context, id string) (MintedToken, bool) {
	if c.cache == nil {
		return MintedToken{}, false
	}
	t, err := c.cache.Get(ctx, id)
	if err == nil {
		metrics.CatalogLookups.WithLabelValues("cache").Inc()
		return t, true
	}
	if !errors.Is(err, ErrTokenNotFound) {
		c.logger.Warn("token cache read failed, using store",
			zap.String("token_id", id), zap.Error(err))
	}
	return MintedToken{}, false
}

// =======================================================
// PUT — store first → cache
// =======================================================

// Put records t unless the store already holds a newer version of the same
// token (by UpdatedAt). It reports whether t was written.
func (c *TokenCatalog) Put(ctx context.Context, t MintedToken) (bool, error) {
	mu := c.locks.get(t.ID)
	mu.Lock()
	defer mu.Unlock()

	current, err := c.store.Get(ctx, t.ID)
	switch {
	case err == nil:
		if current.UpdatedAt.After(t.UpdatedAt) {
			c.logger.Debug("skipping stale token update",
				zap.String("token_id", t.ID),
				zap.Time("stored_updated_at", current.UpdatedAt),
				zap.Time("incoming_updated_at", t.UpdatedAt))
			return false, nil
		}
	case errors.Is(err, ErrTokenNotFound):
	default:
		return false, err
	}

	if err := c.store.Put(ctx, t); err != nil {
		return false, fmt.Errorf("store token %s: %w", t.ID, err)
	}
	if c.cache != nil {
		if err := c.cache.Put(ctx, t); err != nil {
			// drop whatever the cache holds so readers fall back to the store
			_ = c.cache.Delete(ctx, t.ID)
			return true, fmt.Errorf("cache token %s: %w", t.ID, err)
		}
	}
	return true, nil
}

// =======================================================
// DELETE — store first → cache
// =======================================================
func (c *TokenCatalog) Delete(ctx context.Context, id string) error {
	mu := c.locks.get(id)
	mu.Lock()
	defer mu.Unlock()

	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	if c.cache != nil {
		return c.cache.Delete(ctx, id)
	}
	return nil
}

// List reads the store; the cache may hold only a subset.
func (c *TokenCatalog) List(ctx context.Context) ([]MintedToken, error) {
	tokens, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	metrics.CatalogSize.Set(float64(len(tokens)))
	return tokens, nil
}

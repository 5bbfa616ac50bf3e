package model

import "context"

// TokenProvider is one layer holding minted tokens by id.
// Get returns ErrTokenNotFound when the layer has no entry.
type TokenProvider interface {
	Get(ctx context.Context, id string) (MintedToken, error)
	Put(ctx context.Context, t MintedToken) error
	Delete(ctx context.Context, id string) error
}

// TokenStore is the durable layer; it can also enumerate its content.
type TokenStore interface {
	TokenProvider
	List(ctx context.Context) ([]MintedToken, error)
}

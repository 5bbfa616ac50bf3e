package subscriber

import (
	"context"
	"errors"
	"testing"

	model "ewallet/Model"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCatalog(t *testing.T) *model.TokenCatalog {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var key [32]byte
	store, err := model.NewBadgerTokenStore(db, &key)
	require.NoError(t, err)
	return model.NewTokenCatalog(store, nil, zap.NewNop())
}

func TestHandleMintedTokenUpdate(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)

	msg := []byte(`{"minted_token":{"id":"tok_1","symbol":"OMG","name":"OmiseGO","subunit_to_unit":100,"metadata":{"a":[1,{"b":null}]},"encrypted_metadata":{},"created_at":"2018-01-01T00:00:00Z","updated_at":"2018-01-01T00:00:00Z"}}`)
	require.NoError(t, HandleMintedTokenUpdate(ctx, msg, catalog, zap.NewNop()))

	tok, err := catalog.Get(ctx, "tok_1")
	require.NoError(t, err)
	assert.Equal(t, "OMG", tok.Symbol)
	assert.Equal(t, 100.0, tok.SubUnitToUnit)
}

func TestHandleMintedTokenUpdateRejectsBadPayloads(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)

	cases := map[string]string{
		"not json":      `nope`,
		"no token":      `{}`,
		"missing key":   `{"minted_token":{"id":"tok_1"}}`,
		"wrong subunit": `{"minted_token":{"id":"tok_1","symbol":"OMG","name":"OmiseGO","subunit_to_unit":"100","metadata":{},"encrypted_metadata":{},"created_at":"2018-01-01T00:00:00Z","updated_at":"2018-01-01T00:00:00Z"}}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			err := HandleMintedTokenUpdate(ctx, []byte(payload), catalog, zap.NewNop())
			var de *model.DecodeError
			assert.True(t, errors.As(err, &de), "got %v", err)
		})
	}

	_, err := catalog.Get(ctx, "tok_1")
	assert.ErrorIs(t, err, model.ErrTokenNotFound)
}

package model

import (
	"context"
	"errors"
	"fmt"

	"ewallet/helper"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerTokenStore keeps minted tokens on local disk. Encrypted metadata is
// sealed with secretbox before it is written.
type BadgerTokenStore struct {
	db    *badger.DB
	codec tokenCodec
}

func NewBadgerTokenStore(db *badger.DB, sealKey *[32]byte) (*BadgerTokenStore, error) {
	if db == nil {
		return nil, errors.New("badger token store: nil db")
	}
	codec, err := newTokenCodec(sealKey)
	if err != nil {
		return nil, fmt.Errorf("badger token store: %w", err)
	}
	return &BadgerTokenStore{db: db, codec: codec}, nil
}

func (s *BadgerTokenStore) Put(_ context.Context, t MintedToken) error {
	val, err := s.codec.encode(t)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(helper.TokenKey(t.ID), val)
	})
}

func (s *BadgerTokenStore) Get(_ context.Context, id string) (MintedToken, error) {
	var out MintedToken

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(helper.TokenKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			t, err := s.codec.decode(val)
			if err != nil {
				return err
			}
			out = t
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return MintedToken{}, ErrTokenNotFound
	}
	if err != nil {
		return MintedToken{}, fmt.Errorf("badger get token %s: %w", id, err)
	}
	return out, nil
}

func (s *BadgerTokenStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(helper.TokenKey(id))
	})
}

// List returns every stored token in key order.
func (s *BadgerTokenStore) List(ctx context.Context) ([]MintedToken, error) {
	var res []MintedToken

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = helper.TokenKeyPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id, err := helper.ParseTokenKey(item.Key())
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				t, err := s.codec.decode(val)
				if err != nil {
					return err
				}
				if t.ID != id {
					return fmt.Errorf("token record under key %q has id %q", id, t.ID)
				}
				res = append(res, t)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

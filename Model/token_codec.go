package model

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// tokenCodec turns a MintedToken into the record both the store and the
// cache persist. Encrypted metadata never leaves it unsealed.
type tokenCodec struct {
	key *[32]byte
}

func newTokenCodec(sealKey *[32]byte) (tokenCodec, error) {
	if sealKey == nil {
		return tokenCodec{}, errors.New("nil seal key")
	}
	return tokenCodec{key: sealKey}, nil
}

// storedToken is the persisted record.
type storedToken struct {
	ID                      string    `json:"id"`
	Symbol                  string    `json:"symbol"`
	Name                    string    `json:"name"`
	SubUnitToUnit           float64   `json:"subunit_to_unit"`
	Metadata                Metadata  `json:"metadata"`
	SealedEncryptedMetadata []byte    `json:"sealed_encrypted_metadata"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func (c tokenCodec) seal(m Metadata) ([]byte, error) {
	plain, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plain, &nonce, c.key), nil
}

func (c tokenCodec) open(box []byte) (Metadata, error) {
	if len(box) < nonceSize {
		return nil, errors.New("sealed metadata too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, c.key)
	if !ok {
		return nil, errors.New("sealed metadata: authentication failed")
	}
	var m Metadata
	if err := json.Unmarshal(plain, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c tokenCodec) encode(t MintedToken) ([]byte, error) {
	sealed, err := c.seal(t.EncryptedMetadata)
	if err != nil {
		return nil, fmt.Errorf("seal encrypted metadata: %w", err)
	}
	return json.Marshal(storedToken{
		ID:                      t.ID,
		Symbol:                  t.Symbol,
		Name:                    t.Name,
		SubUnitToUnit:           t.SubUnitToUnit,
		Metadata:                t.Metadata,
		SealedEncryptedMetadata: sealed,
		CreatedAt:               t.CreatedAt,
		UpdatedAt:               t.UpdatedAt,
	})
}

func (c tokenCodec) decode(val []byte) (MintedToken, error) {
	var rec storedToken
	if err := json.Unmarshal(val, &rec); err != nil {
		return MintedToken{}, err
	}
	enc, err := c.open(rec.SealedEncryptedMetadata)
	if err != nil {
		return MintedToken{}, err
	}
	return MintedToken{
		ID:                rec.ID,
		Symbol:            rec.Symbol,
		Name:              rec.Name,
		SubUnitToUnit:     rec.SubUnitToUnit,
		Metadata:          rec.Metadata,
		EncryptedMetadata: enc,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}, nil
}

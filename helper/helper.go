package helper

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const tokenKeyPrefix = "token:"

// TokenKey is the storage key of a minted token, shared by redis and badger.
func TokenKey(id string) []byte {
	return []byte(tokenKeyPrefix + id)
}

func TokenKeyPrefix() []byte {
	return []byte(tokenKeyPrefix)
}

// ParseTokenKey returns the id inside a key built by TokenKey.
func ParseTokenKey(b []byte) (string, error) {
	s := string(b)
	if !strings.HasPrefix(s, tokenKeyPrefix) {
		return "", fmt.Errorf("not a token key: %q", s)
	}
	return strings.TrimPrefix(s, tokenKeyPrefix), nil
}

// HexToKey32 decodes a hex secret that must be exactly 32 bytes.
func HexToKey32(hexStr string) (*[32]byte, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, errors.New("key must be 32 bytes")
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

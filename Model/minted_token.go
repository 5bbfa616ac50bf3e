package model

import (
	"bytes"
	"encoding/json"
	"time"

	"ewallet/metrics"

	"github.com/minio/sha256-simd"
)

// MintedToken is a currency defined on the platform.
//
// Values are read-only once decoded. The metadata maps may be shared with
// the catalog and other readers; Clone them before making changes.
type MintedToken struct {
	ID     string
	Symbol string
	Name   string
	// SubUnitToUnit is how many subunits make one display unit: sending 13
	// tokens with SubUnitToUnit 1000 means an amount of 13000.
	SubUnitToUnit     float64
	Metadata          Metadata
	EncryptedMetadata Metadata
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const (
	keyID                = "id"
	keySymbol            = "symbol"
	keyName              = "name"
	keySubUnitToUnit     = "subunit_to_unit"
	keyMetadata          = "metadata"
	keyEncryptedMetadata = "encrypted_metadata"
	keyCreatedAt         = "created_at"
	keyUpdatedAt         = "updated_at"
)

// identity is the only input to Equal and Hash. Keep both on it.
func (t MintedToken) identity() string { return t.ID }

// Equal reports whether both values describe the same token. Only the id counts.
func (t MintedToken) Equal(o MintedToken) bool { return t.identity() == o.identity() }

// Hash is stable across processes and consistent with Equal.
func (t MintedToken) Hash() [32]byte { return sha256.Sum256([]byte(t.identity())) }

// ToSubunits converts a display amount into the subunit amount sent on the wire.
func (t MintedToken) ToSubunits(display float64) float64 { return display * t.SubUnitToUnit }

// FromSubunits converts a wire amount into display units.
func (t MintedToken) FromSubunits(subunits float64) float64 { return subunits / t.SubUnitToUnit }

// DecodeMintedToken decodes a server payload. Every key is required.
func DecodeMintedToken(data []byte) (MintedToken, error) {
	start := time.Now()
	defer metrics.ObserveDuration(metrics.FnDuration.WithLabelValues("minted_token_decode"), start)

	var t MintedToken
	if err := t.UnmarshalJSON(data); err != nil {
		return MintedToken{}, err
	}
	return t, nil
}

func (t *MintedToken) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		metrics.DecodeFailures.WithLabelValues("payload").Inc()
		return &DecodeError{Reason: "payload is not a json object", Err: err}
	}

	var out MintedToken
	steps := []struct {
		key string
		dst any
	}{
		{keyID, &out.ID},
		{keySymbol, &out.Symbol},
		{keyName, &out.Name},
		{keySubUnitToUnit, &out.SubUnitToUnit},
		{keyMetadata, &out.Metadata},
		{keyEncryptedMetadata, &out.EncryptedMetadata},
		{keyCreatedAt, &out.CreatedAt},
		{keyUpdatedAt, &out.UpdatedAt},
	}
	for _, s := range steps {
		if err := decodeField(fields, s.key, s.dst); err != nil {
			metrics.DecodeFailures.WithLabelValues(s.key).Inc()
			return err
		}
	}
	if out.SubUnitToUnit <= 0 {
		metrics.DecodeFailures.WithLabelValues(keySubUnitToUnit).Inc()
		return &DecodeError{Key: keySubUnitToUnit, Reason: "must be positive"}
	}

	*t = out
	return nil
}

func decodeField(fields map[string]json.RawMessage, key string, dst any) error {
	raw, ok := fields[key]
	if !ok {
		return &DecodeError{Key: key, Reason: "missing"}
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return &DecodeError{Key: key, Reason: "must not be null"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &DecodeError{Key: key, Reason: "wrong type", Err: err}
	}
	return nil
}

// MarshalJSON writes the server wire format, so a token survives a round trip
// through the catalog unchanged.
func (t MintedToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID                string    `json:"id"`
		Symbol            string    `json:"symbol"`
		Name              string    `json:"name"`
		SubUnitToUnit     float64   `json:"subunit_to_unit"`
		Metadata          Metadata  `json:"metadata"`
		EncryptedMetadata Metadata  `json:"encrypted_metadata"`
		CreatedAt         time.Time `json:"created_at"`
		UpdatedAt         time.Time `json:"updated_at"`
	}{
		ID:                t.ID,
		Symbol:            t.Symbol,
		Name:              t.Name,
		SubUnitToUnit:     t.SubUnitToUnit,
		Metadata:          t.Metadata,
		EncryptedMetadata: t.EncryptedMetadata,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	})
}

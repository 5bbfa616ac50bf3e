package model

import (
	"encoding/json"
	"time"

	"ewallet/metrics"
)

// TransactionRequestType says whether the requester sends or receives the token.
type TransactionRequestType string

const (
	TransactionRequestSend    TransactionRequestType = "send"
	TransactionRequestReceive TransactionRequestType = "receive"
)

func (t TransactionRequestType) Valid() bool {
	return t == TransactionRequestSend || t == TransactionRequestReceive
}

func ParseTransactionRequestType(s string) (TransactionRequestType, error) {
	t := TransactionRequestType(s)
	if !t.Valid() {
		return "", ErrInvalidRequestType
	}
	return t, nil
}

// TransactionRequestOptions is the caller input for NewTransactionRequestCreateParams.
// Nil pointers mean "not set"; they are sent to the server as null.
type TransactionRequestOptions struct {
	Type TransactionRequestType
	// MintedTokenID is taken from the requester for "send" and credited to
	// the requester for "receive".
	MintedTokenID string
	// Amount in subunits. Must be set unless AllowAmountOverride is true.
	Amount *float64
	// Address defaults to the primary address server-side.
	Address *string
	// CorrelationID is typically an order id from the provider.
	CorrelationID       *string
	RequireConfirmation bool
	MaxConsumptions     *int
	// ConsumptionLifetime is in milliseconds.
	ConsumptionLifetime *int
	ExpirationDate      *time.Time
	AllowAmountOverride bool
	Metadata            Metadata
	EncryptedMetadata   Metadata
}

// TransactionRequestCreateParams is a validated, immutable request to create
// a transaction request. Build it with NewTransactionRequestCreateParams.
type TransactionRequestCreateParams struct {
	typ                 TransactionRequestType
	mintedTokenID       string
	amount              *float64
	address             *string
	correlationID       *string
	requireConfirmation bool
	maxConsumptions     *int
	consumptionLifetime *int
	expirationDate      *time.Time
	allowAmountOverride bool
	metadata            Metadata
	encryptedMetadata   Metadata
}

// NewTransactionRequestCreateParams returns ErrAmountRequired when no amount is
// given and the consumer may not override it. Nothing is built on error.
func NewTransactionRequestCreateParams(opts TransactionRequestOptions) (TransactionRequestCreateParams, error) {
	if !opts.Type.Valid() {
		metrics.ValidationFailures.WithLabelValues("type").Inc()
		return TransactionRequestCreateParams{}, ErrInvalidRequestType
	}
	if opts.Amount == nil && !opts.AllowAmountOverride {
		metrics.ValidationFailures.WithLabelValues("amount").Inc()
		return TransactionRequestCreateParams{}, ErrAmountRequired
	}

	return TransactionRequestCreateParams{
		typ:                 opts.Type,
		mintedTokenID:       opts.MintedTokenID,
		amount:              clonePtr(opts.Amount),
		address:             clonePtr(opts.Address),
		correlationID:       clonePtr(opts.CorrelationID),
		requireConfirmation: opts.RequireConfirmation,
		maxConsumptions:     clonePtr(opts.MaxConsumptions),
		consumptionLifetime: clonePtr(opts.ConsumptionLifetime),
		expirationDate:      clonePtr(opts.ExpirationDate),
		allowAmountOverride: opts.AllowAmountOverride,
		metadata:            opts.Metadata.Clone(),
		encryptedMetadata:   opts.EncryptedMetadata.Clone(),
	}, nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

func (p TransactionRequestCreateParams) Type() TransactionRequestType { return p.typ }
func (p TransactionRequestCreateParams) MintedTokenID() string        { return p.mintedTokenID }
func (p TransactionRequestCreateParams) Amount() (float64, bool)      { return deref(p.amount) }
func (p TransactionRequestCreateParams) Address() (string, bool)      { return deref(p.address) }
func (p TransactionRequestCreateParams) CorrelationID() (string, bool) {
	return deref(p.correlationID)
}
func (p TransactionRequestCreateParams) RequireConfirmation() bool { return p.requireConfirmation }
func (p TransactionRequestCreateParams) MaxConsumptions() (int, bool) {
	return deref(p.maxConsumptions)
}
func (p TransactionRequestCreateParams) ConsumptionLifetime() (int, bool) {
	return deref(p.consumptionLifetime)
}
func (p TransactionRequestCreateParams) ExpirationDate() (time.Time, bool) {
	return deref(p.expirationDate)
}
func (p TransactionRequestCreateParams) AllowAmountOverride() bool { return p.allowAmountOverride }
func (p TransactionRequestCreateParams) Metadata() Metadata        { return p.metadata.Clone() }
func (p TransactionRequestCreateParams) EncryptedMetadata() Metadata {
	return p.encryptedMetadata.Clone()
}

// transactionRequestCreateWire has no omitempty: the server tells a null
// field apart from a missing one, so every key is always written.
type transactionRequestCreateWire struct {
	Type                TransactionRequestType `json:"type"`
	MintedTokenID       string                 `json:"token_id"`
	Amount              *float64               `json:"amount"`
	Address             *string                `json:"address"`
	CorrelationID       *string                `json:"correlation_id"`
	RequireConfirmation bool                   `json:"require_confirmation"`
	MaxConsumptions     *int                   `json:"max_consumptions"`
	ConsumptionLifetime *int                   `json:"consumption_lifetime"`
	ExpirationDate      *time.Time             `json:"expiration_date"`
	AllowAmountOverride bool                   `json:"allow_amount_override"`
	Metadata            Metadata               `json:"metadata"`
	EncryptedMetadata   Metadata               `json:"encrypted_metadata"`
}

func (p TransactionRequestCreateParams) MarshalJSON() ([]byte, error) {
	start := time.Now()
	defer metrics.ObserveDuration(metrics.FnDuration.WithLabelValues("transaction_request_encode"), start)

	return json.Marshal(transactionRequestCreateWire{
		Type:                p.typ,
		MintedTokenID:       p.mintedTokenID,
		Amount:              p.amount,
		Address:             p.address,
		CorrelationID:       p.correlationID,
		RequireConfirmation: p.requireConfirmation,
		MaxConsumptions:     p.maxConsumptions,
		ConsumptionLifetime: p.consumptionLifetime,
		ExpirationDate:      p.expirationDate,
		AllowAmountOverride: p.allowAmountOverride,
		Metadata:            p.metadata,
		EncryptedMetadata:   p.encryptedMetadata,
	})
}

// TransactionRequestGetParams looks up a transaction request by id.
type TransactionRequestGetParams struct {
	ID string `json:"id"`
}

package model

import (
	"errors"
	"fmt"
)

var (
	// ErrAmountRequired is returned when a transaction request has no amount
	// and the consumer is not allowed to supply one.
	ErrAmountRequired = errors.New("amount is required unless allow_amount_override is true")

	ErrInvalidRequestType = errors.New("transaction request type must be send or receive")

	ErrTokenNotFound = errors.New("minted token not found")
)

// DecodeError names the wire key that could not be decoded.
// Key is empty when the payload itself is not a JSON object.
type DecodeError struct {
	Key    string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("decode minted token: %s", e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("decode minted token: key %q: %s: %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode minted token: key %q: %s", e.Key, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

package events

import "encoding/json"

// MintedTokenUpdated carries a server minted token payload as received.
// Token is decoded by the consumer with model.DecodeMintedToken.
type MintedTokenUpdated struct {
	Token json.RawMessage `json:"minted_token"`
}

package events

import model "ewallet/Model"

// TransactionRequestCreate asks the wallet server to create a transaction request.
type TransactionRequestCreate struct {
	RequestID string                               `json:"request_id"`
	Params    model.TransactionRequestCreateParams `json:"params"`
}

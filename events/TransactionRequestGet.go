package events

import model "ewallet/Model"

type TransactionRequestGet struct {
	RequestID string                            `json:"request_id"`
	Params    model.TransactionRequestGetParams `json:"params"`
}

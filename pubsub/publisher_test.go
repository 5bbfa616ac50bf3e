package pubsub2

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	model "ewallet/Model"
	"ewallet/events"

	"github.com/minio/sha256-simd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransactionRequestCreateMessage(t *testing.T) {
	cid := "order_42"
	params, err := model.NewTransactionRequestCreateParams(model.TransactionRequestOptions{
		Type:                model.TransactionRequestReceive,
		MintedTokenID:       "tok_1",
		CorrelationID:       &cid,
		AllowAmountOverride: true,
	})
	require.NoError(t, err)

	msg, err := NewTransactionRequestCreateMessage(events.TransactionRequestCreate{
		RequestID: "req_1",
		Params:    params,
	})
	require.NoError(t, err)

	assert.Equal(t, "order_42", msg.OrderingKey)
	assert.Equal(t, "req_1", msg.Attributes[AttrRequestID])
	assert.Equal(t, "receive", msg.Attributes["type"])

	sum := sha256.Sum256(msg.Data)
	assert.Equal(t, hex.EncodeToString(sum[:]), msg.Attributes[AttrPayloadSHA256])

	var body struct {
		RequestID string                     `json:"request_id"`
		Params    map[string]json.RawMessage `json:"params"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	assert.Equal(t, "req_1", body.RequestID)
	assert.Equal(t, "null", string(body.Params["amount"]))
	assert.Equal(t, `"tok_1"`, string(body.Params["token_id"]))
}

func TestNewTransactionRequestCreateMessageWithoutCorrelation(t *testing.T) {
	amount := 100.0
	params, err := model.NewTransactionRequestCreateParams(model.TransactionRequestOptions{
		Type:          model.TransactionRequestSend,
		MintedTokenID: "tok_1",
		Amount:        &amount,
	})
	require.NoError(t, err)

	msg, err := NewTransactionRequestCreateMessage(events.TransactionRequestCreate{RequestID: "req_2", Params: params})
	require.NoError(t, err)
	assert.Empty(t, msg.OrderingKey)
}

func TestNewTransactionRequestGetMessage(t *testing.T) {
	msg, err := NewTransactionRequestGetMessage(events.TransactionRequestGet{
		RequestID: "req_3",
		Params:    model.TransactionRequestGetParams{ID: "txr_1"},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"request_id":"req_3","params":{"id":"txr_1"}}`, string(msg.Data))
	assert.Equal(t, "req_3", msg.Attributes[AttrRequestID])
}

func TestBuildMessageDoesNotMutateAttrs(t *testing.T) {
	attrs := map[string]string{"k": "v"}
	msg, err := BuildMessage(map[string]int{"n": 1}, attrs, "")
	require.NoError(t, err)

	assert.Len(t, attrs, 1)
	assert.Len(t, msg.Attributes, 2)
}

package pubsub2

import (
	"context"

	"ewallet/events"

	"cloud.google.com/go/pubsub"
)

// NewTransactionRequestCreateMessage orders requests sharing a correlation id.
func NewTransactionRequestCreateMessage(msg events.TransactionRequestCreate) (*pubsub.Message, error) {
	orderingKey, _ := msg.Params.CorrelationID()
	return BuildMessage(msg, map[string]string{
		AttrRequestID: msg.RequestID,
		"type":        string(msg.Params.Type()),
	}, orderingKey)
}

func NewTransactionRequestGetMessage(msg events.TransactionRequestGet) (*pubsub.Message, error) {
	return BuildMessage(msg, map[string]string{
		AttrRequestID: msg.RequestID,
	}, "")
}

func (p *PubSubClient) PublishTransactionRequestCreate(
	ctx context.Context,
	msg events.TransactionRequestCreate,
) error {
	m, err := NewTransactionRequestCreateMessage(msg)
	if err != nil {
		return err
	}
	_, err = p.publish(ctx, TopicTransactionRequestCreate, m)
	return err
}

func (p *PubSubClient) PublishTransactionRequestGet(
	ctx context.Context,
	msg events.TransactionRequestGet,
) error {
	m, err := NewTransactionRequestGetMessage(msg)
	if err != nil {
		return err
	}
	_, err = p.publish(ctx, TopicTransactionRequestGet, m)
	return err
}

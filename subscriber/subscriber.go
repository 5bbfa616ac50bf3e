package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	model "ewallet/Model"
	"ewallet/events"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// HandleMintedTokenUpdate decodes one minted_token.updated message and records
// it in the catalog. A *model.DecodeError means the message can never succeed.
func HandleMintedTokenUpdate(
	ctx context.Context,
	data []byte,
	catalog *model.TokenCatalog,
	logger *zap.Logger,
) error {
	var ev events.MintedTokenUpdated
	if err := json.Unmarshal(data, &ev); err != nil {
		return &model.DecodeError{Reason: "bad envelope", Err: err}
	}
	if len(ev.Token) == 0 {
		return &model.DecodeError{Reason: "envelope has no minted_token"}
	}

	token, err := model.DecodeMintedToken(ev.Token)
	if err != nil {
		return err
	}

	applied, err := catalog.Put(ctx, token)
	if err != nil {
		return fmt.Errorf("catalog put %s: %w", token.ID, err)
	}

	logger.Info("minted token update",
		zap.String("token_id", token.ID),
		zap.String("symbol", token.Symbol),
		zap.Bool("applied", applied))
	return nil
}

// SubscribeMintedTokens blocks until ctx is done or the subscription fails.
// Undecodable messages are acked and dropped; other failures are nacked so
// the broker redelivers them.
func SubscribeMintedTokens(
	ctx context.Context,
	sub *pubsub.Subscription,
	catalog *model.TokenCatalog,
	logger *zap.Logger,
) error {
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		err := HandleMintedTokenUpdate(ctx, msg.Data, catalog, logger)

		var de *model.DecodeError
		switch {
		case err == nil:
			msg.Ack()
		case errors.As(err, &de):
			logger.Error("dropping undecodable minted token message",
				zap.String("message_id", msg.ID),
				zap.String("key", de.Key),
				zap.Error(err))
			msg.Ack()
		default:
			logger.Warn("minted token message failed, will be redelivered",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			msg.Nack()
		}
	})
}

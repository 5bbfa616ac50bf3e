package pubsub2

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// EnsureSubscription returns subID, creating it on topicName (and the topic
// itself) when missing. Existing subscriptions are used as they are.
func (p *PubSubClient) EnsureSubscription(ctx context.Context, topicName, subID string) (*pubsub.Subscription, error) {
	topic := p.Client.Topic(topicName)
	ok, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", topicName, err)
	}
	if !ok {
		if topic, err = p.Client.CreateTopic(ctx, topicName); err != nil {
			return nil, fmt.Errorf("create topic %s: %w", topicName, err)
		}
		p.logger.Info("created topic", zap.String("topic", topicName))
	}

	sub := p.Client.Subscription(subID)
	ok, err = sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check subscription %s: %w", subID, err)
	}
	if ok {
		return sub, nil
	}

	sub, err = p.Client.CreateSubscription(ctx, subID, pubsub.SubscriptionConfig{
		Topic:                 topic,
		EnableMessageOrdering: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription %s: %w", subID, err)
	}
	p.logger.Info("created subscription",
		zap.String("topic", topicName),
		zap.String("subscription", subID))
	return sub, nil
}

package pubsub2

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ewallet/metrics"

	"cloud.google.com/go/pubsub"
	"github.com/minio/sha256-simd"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	TopicTransactionRequestCreate = "transaction_request.create"
	TopicTransactionRequestGet    = "transaction_request.get"
	TopicMintedTokenUpdated       = "minted_token.updated"

	AttrRequestID     = "request_id"
	AttrPayloadSHA256 = "payload_sha256"
)

type PubSubClient struct {
	Client *pubsub.Client
	logger *zap.Logger

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPubSubClient connects to the emulator at emulatorHost, or to Google
// Cloud when it is empty.
func NewPubSubClient(ctx context.Context, projectID, emulatorHost string, logger *zap.Logger) (*PubSubClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// emulator needs no credentials
	if emulatorHost != "" {
		logger.Info("using pubsub emulator",
			zap.String("host", emulatorHost),
			zap.String("project", projectID))

		c, err := pubsub.NewClient(ctx, projectID,
			option.WithoutAuthentication(),
			option.WithEndpoint(emulatorHost),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create emulator client: %w", err)
		}

		return newClient(c, logger), nil
	}

	logger.Info("using google cloud pubsub", zap.String("project", projectID))

	c, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud pubsub client: %w", err)
	}

	return newClient(c, logger), nil
}

func newClient(c *pubsub.Client, logger *zap.Logger) *PubSubClient {
	return &PubSubClient{
		Client: c,
		logger: logger,
		topics: make(map[string]*pubsub.Topic),
	}
}

// topic returns a cached handle so publish goroutines are shared per topic.
func (p *PubSubClient) topic(name string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.topics[name]; ok {
		return t
	}
	t := p.Client.Topic(name)
	t.EnableMessageOrdering = true
	p.topics[name] = t
	return t
}

// Close flushes pending publishes and closes the client.
func (p *PubSubClient) Close() error {
	p.mu.Lock()
	for _, t := range p.topics {
		t.Stop()
	}
	p.topics = map[string]*pubsub.Topic{}
	p.mu.Unlock()

	return p.Client.Close()
}

// BuildMessage encodes data as JSON and stamps a payload digest attribute
// consumers can use to drop redelivered duplicates.
func BuildMessage(data any, attrs map[string]string, orderingKey string) (*pubsub.Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(raw)
	out := make(map[string]string, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	out[AttrPayloadSHA256] = hex.EncodeToString(sum[:])

	return &pubsub.Message{
		Data:        raw,
		Attributes:  out,
		OrderingKey: orderingKey,
	}, nil
}

func (p *PubSubClient) publish(ctx context.Context, topicName string, msg *pubsub.Message) (string, error) {
	topic := p.topic(topicName)

	start := time.Now()
	id, err := topic.Publish(ctx, msg).Get(ctx)
	metrics.ObserveDuration(metrics.PublishDuration, start)

	if err != nil {
		if msg.OrderingKey != "" {
			// a failed publish pauses its ordering key until resumed
			topic.ResumePublish(msg.OrderingKey)
		}
		return "", fmt.Errorf("publish to %s: %w", topicName, err)
	}

	p.logger.Debug("published message",
		zap.String("topic", topicName),
		zap.String("message_id", id))
	return id, nil
}

// Package eventbus wraps watermill-nats so modules publish and subscribe
// through one JetStream-backed handle.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
)

// EventBus is the messaging handle shared by every module. It satisfies
// watermill's Publisher and Subscriber so a message.Router can consume it
// directly.
type EventBus interface {
	message.Publisher
	message.Subscriber
	CreateStream(ctx context.Context, streamName string) error
	Close() error
}

// JetStreamEventBus implements EventBus on NATS JetStream.
type JetStreamEventBus struct {
	logger     *slog.Logger
	conn       *nc.Conn
	js         nc.JetStreamContext
	publisher  *wnats.Publisher
	subscriber *wnats.Subscriber
}

var _ EventBus = (*JetStreamEventBus)(nil)

// New connects to NATS and builds the watermill publisher/subscriber pair.
// Streams are provisioned explicitly via CreateStream, not auto-provisioned,
// so subject-to-stream ownership stays in one place.
func New(ctx context.Context, natsURL string, logger *slog.Logger) (*JetStreamEventBus, error) {
	options := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
		nc.ErrorHandler(func(_ *nc.Conn, s *nc.Subscription, err error) {
			if s != nil {
				logger.Error("NATS subscription error",
					slog.String("subject", s.Subject),
					slog.Any("error", err),
				)
			} else {
				logger.Error("NATS connection error", slog.Any("error", err))
			}
		}),
	}

	conn, err := nc.Connect(natsURL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	wmLogger := watermill.NewSlogLogger(logger)

	publisher, err := wnats.NewPublisher(wnats.PublisherConfig{
		URL:         natsURL,
		NatsOptions: options,
		Marshaler:   &wnats.NATSMarshaler{},
		JetStream: wnats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
		},
	}, wmLogger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}

	subscriber, err := wnats.NewSubscriber(wnats.SubscriberConfig{
		URL:         natsURL,
		NatsOptions: options,
		Unmarshaler: &wnats.NATSMarshaler{},
		JetStream: wnats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
		},
	}, wmLogger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create NATS subscriber: %w", err)
	}

	return &JetStreamEventBus{
		logger:     logger,
		conn:       conn,
		js:         js,
		publisher:  publisher,
		subscriber: subscriber,
	}, nil
}

// CreateStream ensures a stream capturing "<name>.>" exists. Safe to call
// repeatedly.
func (b *JetStreamEventBus) CreateStream(ctx context.Context, streamName string) error {
	if streamName == "" || strings.ContainsAny(streamName, " .>*") {
		return fmt.Errorf("invalid stream name %q", streamName)
	}

	_, err := b.js.StreamInfo(streamName)
	if err == nil {
		return nil
	}
	if err != nc.ErrStreamNotFound {
		return fmt.Errorf("failed to look up stream %s: %w", streamName, err)
	}

	_, err = b.js.AddStream(&nc.StreamConfig{
		Name:      streamName,
		Subjects:  []string{streamName + ".>"},
		Retention: nc.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}

	b.logger.Info("created JetStream stream", slog.String("stream", streamName))
	return nil
}

// Publish sends messages to the given subject.
func (b *JetStreamEventBus) Publish(topic string, messages ...*message.Message) error {
	return b.publisher.Publish(topic, messages...)
}

// Subscribe returns a channel of messages for the given subject.
func (b *JetStreamEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, topic)
}

// Close tears down the publisher, subscriber, and connection.
func (b *JetStreamEventBus) Close() error {
	var firstErr error
	if err := b.publisher.Close(); err != nil {
		firstErr = err
	}
	if err := b.subscriber.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	b.conn.Close()
	return firstErr
}

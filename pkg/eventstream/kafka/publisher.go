// Package kafka provides a Kafka-backed eventstream publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/eventstream"
)

const (
	// DefaultTopic is the topic ingest events are published to.
	DefaultTopic = "quarry.ingest.events"
)

// Publisher publishes ingest events to a Kafka topic. Messages are keyed by
// doc_id so all events for one document land on the same partition in order.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string

	// Topic is the topic to publish to. Defaults to DefaultTopic if empty.
	Topic string
}

// NewPublisher creates a new Kafka eventstream publisher.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info("kafka publisher configured",
		zap.Strings("brokers", c.Brokers),
		zap.String("topic", topic),
	)

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishIngest publishes a single ingest event, keyed by doc_id.
func (p *Publisher) PublishIngest(ctx context.Context, event *eventstream.ChunksIngestedEvent) error {
	if event == nil {
		return eventstream.ErrNilIngestEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling ingest event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Ingest.DocID),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing ingest event: %w", err)
	}

	p.logger.Debug("published ingest event",
		zap.String("event_id", event.EventID),
		zap.String("doc_id", event.Ingest.DocID),
		zap.Int("chunk_count", event.Ingest.ChunkCount),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)

// Package kafka publishes worldstate events to a Kafka topic as JSON.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/worldstate/pkg/eventstream"
)

// Config configures the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic receives every event; the event type travels as a header.
	Topic string

	// WriteTimeout bounds a single publish (defaults to 5s).
	WriteTimeout time.Duration
}

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher implements eventstream.Publisher on kafka-go.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
}

// NewPublisher creates a publisher writing to c.Topic.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if c.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafkago.RequireOne,
	}

	return newPublisher(w, c.WriteTimeout), nil
}

func newPublisher(w messageWriter, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{writer: w, timeout: timeout}
}

// PublishSettings writes a settings event keyed by module key.
func (p *Publisher) PublishSettings(ctx context.Context, event *eventstream.SettingsPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return p.publish(ctx, event.Source.ModuleKey, event.EventType, event)
}

// PublishInterception writes an interception event keyed by module key.
func (p *Publisher) PublishInterception(ctx context.Context, event *eventstream.InterceptionEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return p.publish(ctx, event.Source.ModuleKey, event.EventType, event)
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) publish(ctx context.Context, key, eventType string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", eventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s event: %w", eventType, err)
	}

	return nil
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/platinummonkey/tenancy/pkg/observability"
)

// Writer is the subset of *kafka.Writer the publisher uses
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes JSON messages keyed for partitioning
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// PublishRecorder counts publish outcomes per topic
type PublishRecorder interface {
	RecordPublish(topic string, err error)
}

// KafkaPublisher writes to a single topic
type KafkaPublisher struct {
	writer   Writer
	topic    string
	recorder PublishRecorder
}

// NewKafkaPublisher creates a publisher for topic on the given brokers
func NewKafkaPublisher(brokers []string, topic, clientID string, recorder PublishRecorder) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		Transport:    &kafka.Transport{ClientID: clientID},
	}
	return NewKafkaPublisherWithWriter(w, topic, recorder)
}

// NewKafkaPublisherWithWriter allows injecting a test writer
func NewKafkaPublisherWithWriter(w Writer, topic string, recorder PublishRecorder) *KafkaPublisher {
	return &KafkaPublisher{
		writer:   w,
		topic:    topic,
		recorder: recorder,
	}
}

// Publish marshals value to JSON and writes one message
func (p *KafkaPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", p.topic, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b})
	if p.recorder != nil {
		p.recorder.RecordPublish(p.topic, err)
	}
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close closes the underlying writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher stands in for the broker when none is configured. Payloads
// are not logged since SMS messages carry credentials.
type LogPublisher struct {
	topic  string
	logger *observability.Logger
}

func NewLogPublisher(topic string, logger *observability.Logger) *LogPublisher {
	return &LogPublisher{topic: topic, logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, key string, value interface{}) error {
	p.logger.WithFields(map[string]interface{}{
		"topic": p.topic,
		"key":   key,
		"type":  fmt.Sprintf("%T", value),
	}).Info("event published (no broker configured)")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

package brokers

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kafka publishes to one topic.
type Kafka struct {
	config Config
	writer *kafka.Writer
}

// NewKafka validates cfg; Connect opens the writer.
func NewKafka(cfg Config) (*Kafka, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic name is required for Kafka")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required for Kafka")
	}
	return &Kafka{config: cfg}, nil
}

// Connect checks that the topic exists, then prepares the writer.
func (k *Kafka) Connect(ctx context.Context) error {
	if err := k.ping(ctx); err != nil {
		return err
	}
	k.writer = &kafka.Writer{
		Addr:         kafka.TCP(k.config.Brokers...),
		Topic:        k.config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}
	return nil
}

func (k *Kafka) ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", k.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial Kafka broker: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ReadPartitions(k.config.Topic); err != nil {
		return fmt.Errorf("failed to read topic partitions: %w", err)
	}
	return nil
}

// Publish writes one message keyed by key so entries of one resource share a partition.
func (k *Kafka) Publish(ctx context.Context, key string, body []byte) error {
	if k.writer == nil {
		return fmt.Errorf("not connected to Kafka")
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "source", Value: []byte("dbgate")},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	if k.writer == nil {
		return nil
	}
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}
	return nil
}

func (k *Kafka) Type() string { return "kafka" }

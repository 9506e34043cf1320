// Package brokers publishes audit entries to a message broker so other
// systems can follow repository activity.
package brokers

import (
	"context"
	"fmt"
)

// Publisher sends one message per call. Implementations are safe for use by
// a single writer goroutine.
type Publisher interface {
	// Connect dials the broker and declares the destination.
	Connect(ctx context.Context) error

	// Publish sends body; key groups related messages (partition key for
	// Kafka, message id for RabbitMQ).
	Publish(ctx context.Context, key string, body []byte) error

	Close() error

	// Type reports kafka or rabbitmq.
	Type() string
}

// Config holds the connection settings of both broker types.
type Config struct {
	Type string `koanf:"type" yaml:"type,omitempty" validate:"omitempty,oneof=kafka rabbitmq"`

	// RabbitMQ
	Host       string `koanf:"host" yaml:"host,omitempty"`
	Port       int    `koanf:"port" yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	User       string `koanf:"user" yaml:"user,omitempty"`
	Password   string `koanf:"password" yaml:"password,omitempty"`
	VHost      string `koanf:"vhost" yaml:"vhost,omitempty"`
	Queue      string `koanf:"queue" yaml:"queue,omitempty" validate:"required_if=Type rabbitmq"`
	Exchange   string `koanf:"exchange" yaml:"exchange,omitempty"`
	RoutingKey string `koanf:"routing_key" yaml:"routing_key,omitempty"`
	UseTLS     bool   `koanf:"use_tls" yaml:"use_tls,omitempty"`
	Durable    bool   `koanf:"durable" yaml:"durable,omitempty"`

	// Kafka
	Brokers []string `koanf:"brokers" yaml:"brokers,omitempty" validate:"required_if=Type kafka"`
	Topic   string   `koanf:"topic" yaml:"topic,omitempty" validate:"required_if=Type kafka"`
}

// New returns an unconnected publisher for cfg.Type.
func New(cfg Config) (Publisher, error) {
	switch cfg.Type {
	case "rabbitmq":
		return NewRabbitMQ(cfg)
	case "kafka":
		return NewKafka(cfg)
	default:
		return nil, fmt.Errorf("unsupported broker type: %q (supported: rabbitmq, kafka)", cfg.Type)
	}
}

package brokers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ publishes to a queue, directly or through an exchange.
type RabbitMQ struct {
	config  Config
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQ fills connection defaults; Connect dials.
func NewRabbitMQ(cfg Config) (*RabbitMQ, error) {
	if cfg.Queue == "" {
		return nil, fmt.Errorf("queue name is required for RabbitMQ")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 5672
		if cfg.UseTLS {
			cfg.Port = 5671
		}
	}
	if cfg.VHost == "" {
		cfg.VHost = "/"
	}
	return &RabbitMQ{config: cfg}, nil
}

// URL renders the amqp:// or amqps:// address for the configured account.
func (r *RabbitMQ) URL() string {
	scheme := "amqp"
	if r.config.UseTLS {
		scheme = "amqps"
	}
	userinfo := ""
	if r.config.User != "" {
		userinfo = url.UserPassword(r.config.User, r.config.Password).String() + "@"
	}
	return fmt.Sprintf("%s://%s%s:%d/%s", scheme, userinfo, r.config.Host, r.config.Port, url.PathEscape(r.config.VHost))
}

// Connect dials, opens a channel and declares the queue. The queue flags
// must match an existing queue of the same name.
func (r *RabbitMQ) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	if r.config.UseTLS {
		r.conn, err = amqp.DialTLS(r.URL(), &tls.Config{ServerName: r.config.Host, MinVersion: tls.VersionTLS12})
	} else {
		r.conn, err = amqp.Dial(r.URL())
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		r.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err = r.channel.QueueDeclare(r.config.Queue, r.config.Durable, false, false, false, nil); err != nil {
		r.channel.Close()
		r.conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}

// Publish sends body as a persistent JSON message.
func (r *RabbitMQ) Publish(ctx context.Context, key string, body []byte) error {
	if r.channel == nil {
		return fmt.Errorf("not connected to RabbitMQ")
	}
	routingKey := r.config.RoutingKey
	if routingKey == "" {
		routingKey = r.config.Queue
	}
	err := r.channel.PublishWithContext(ctx, r.config.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    key,
		AppId:        "dbgate",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}

func (r *RabbitMQ) Type() string { return "rabbitmq" }

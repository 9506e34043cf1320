// Package resultlog publishes the latest outcome of each repository call to
// Redis, for dashboards and orchestrators that poll or subscribe.
package resultlog

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/dbgate/pkg/audit"
)

// Config - Redis connection and key settings
type Config struct {
	Address  string `koanf:"address" yaml:"address,omitempty"`
	Password string `koanf:"password" yaml:"password,omitempty"`
	DB       int    `koanf:"db" yaml:"db,omitempty" validate:"min=0"`

	// Prefix namespaces keys and the channel; default "dbgate".
	Prefix string `koanf:"prefix" yaml:"prefix,omitempty"`

	// TTL bounds how long the last state survives; 0 keeps it.
	TTL time.Duration `koanf:"ttl" yaml:"ttl,omitempty" validate:"min=0"`
}

// RedisPublisher stores and announces audit entries:
//
//	SET     <prefix>:last:<provider>:<op>  <JSON>  EX <ttl>   polled by orchestrators
//	PUBLISH <prefix>:events                <JSON>             event-driven consumers
type RedisPublisher struct {
	client *redis.Client
	config Config
	level  audit.Level
}

// NewRedisPublisher connects lazily; the first Append dials.
func NewRedisPublisher(config Config, level audit.Level) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	return NewWithClient(client, config, level)
}

// NewWithClient uses an existing client.
func NewWithClient(client *redis.Client, config Config, level audit.Level) *RedisPublisher {
	if config.Prefix == "" {
		config.Prefix = "dbgate"
	}
	return &RedisPublisher{client: client, config: config, level: level}
}

// Ping checks that the server answers.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis PING failed: %w", err)
	}
	return nil
}

// StateKey is the key holding the last entry for provider and op.
func (p *RedisPublisher) StateKey(provider, op string) string {
	return fmt.Sprintf("%s:last:%s:%s", p.config.Prefix, provider, op)
}

// Channel is the pub/sub channel entries are announced on.
func (p *RedisPublisher) Channel() string {
	return p.config.Prefix + ":events"
}

// Append implements audit.Appender.
func (p *RedisPublisher) Append(ctx context.Context, entry *audit.Entry) error {
	payload, err := entry.FilterByLevel(p.level).ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, p.StateKey(entry.Provider, entry.Operation), payload, p.config.TTL)
		pipe.Publish(ctx, p.Channel(), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Close closes the client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

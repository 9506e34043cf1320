package config

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/audit"
	"github.com/ruslano69/dbgate/pkg/brokers"
	"github.com/ruslano69/dbgate/pkg/resultlog"
)

// OpenAudit builds the audit logger described by c: the file (or the
// application log when File is "-") plus the Redis and broker sinks when
// configured. Append failures are logged as warnings. The caller closes the
// returned logger.
func (c AuditConfig) OpenAudit(ctx context.Context, logger zerolog.Logger) (*audit.Logger, error) {
	level, err := audit.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	var appenders []audit.Appender
	closeAll := func() {
		for _, a := range appenders {
			a.Close()
		}
	}

	if c.File == "-" {
		appenders = append(appenders, audit.NewLogAppender(logger, level))
	} else {
		file, err := audit.NewFileAppender(audit.FileAppenderConfig{
			FilePath:   c.File,
			MaxSize:    int64(c.MaxSizeMB),
			MaxBackups: c.MaxBackups,
			Level:      level,
			FormatJSON: c.Format != "text",
			Compress:   c.Compress,
		})
		if err != nil {
			return nil, err
		}
		appenders = append(appenders, file)
	}

	if c.Redis.Address != "" {
		pub := resultlog.NewRedisPublisher(c.Redis, level)
		appenders = append(appenders, pub)
		if err := pub.Ping(ctx); err != nil {
			closeAll()
			return nil, err
		}
	}

	if c.Broker.Type != "" {
		pub, err := brokers.New(c.Broker)
		if err != nil {
			closeAll()
			return nil, err
		}
		if err := pub.Connect(ctx); err != nil {
			closeAll()
			return nil, fmt.Errorf("audit broker: %w", err)
		}
		appenders = append(appenders, brokers.NewAuditAppender(pub, level))
	}

	user := c.User
	if user == "" {
		user = os.Getenv("USER")
	}

	return audit.NewLogger(audit.LoggerConfig{
		AsyncMode:  c.Async,
		BufferSize: 1000,
		User:       user,
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("audit write failed")
		},
	}, appenders...), nil
}

package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ruslano69/dbgate/pkg/adapters"
)

// ErrClosed is returned by Log after Close.
var ErrClosed = errors.New("audit logger is closed")

// LoggerConfig tunes a Logger.
type LoggerConfig struct {
	// AsyncMode hands entries to a background writer. A full buffer falls
	// back to a synchronous write so no entry is dropped.
	AsyncMode  bool
	BufferSize int

	// User is stamped on entries that carry none.
	User string

	// OnError receives append failures; repository calls never see them.
	OnError func(error)
}

// DefaultConfig - async with a 1000-entry buffer
func DefaultConfig() LoggerConfig {
	return LoggerConfig{AsyncMode: true, BufferSize: 1000}
}

// Logger fans entries out to its appenders.
type Logger struct {
	appender *MultiAppender
	config   LoggerConfig

	mu      sync.RWMutex
	closed  bool
	entries chan *Entry
	wg      sync.WaitGroup
}

var _ adapters.Observer = (*Logger)(nil)

// NewLogger starts a logger writing to appenders.
func NewLogger(config LoggerConfig, appenders ...Appender) *Logger {
	l := &Logger{appender: NewMultiAppender(appenders...), config: config}
	if config.AsyncMode {
		if l.config.BufferSize <= 0 {
			l.config.BufferSize = 1000
		}
		l.entries = make(chan *Entry, l.config.BufferSize)
		l.wg.Add(1)
		go l.process()
	}
	return l
}

// Log records entry.
func (l *Logger) Log(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("audit entry is nil")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.User == "" {
		entry.User = l.config.User
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}

	if l.entries != nil {
		select {
		case l.entries <- entry:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return l.appender.Append(ctx, entry)
}

// ObserveOperation implements adapters.Observer.
func (l *Logger) ObserveOperation(provider adapters.Provider, op, resource string, elapsed time.Duration, err error) {
	if logErr := l.Log(context.Background(), NewEntry(provider, op, resource, elapsed, err)); logErr != nil {
		l.handleError(logErr)
	}
}

func (l *Logger) process() {
	defer l.wg.Done()
	for entry := range l.entries {
		if err := l.appender.Append(context.Background(), entry); err != nil {
			l.handleError(err)
		}
	}
}

// Close writes pending entries and closes the appenders. Safe to call twice.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	if l.entries != nil {
		close(l.entries)
	}
	l.mu.Unlock()

	l.wg.Wait()
	if err := l.appender.Flush(); err != nil {
		l.handleError(err)
	}
	return l.appender.Close()
}

func (l *Logger) handleError(err error) {
	if l.config.OnError != nil {
		l.config.OnError(err)
	}
}

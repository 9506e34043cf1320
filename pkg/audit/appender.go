package audit

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Appender - destination for audit entries
type Appender interface {
	Append(ctx context.Context, entry *Entry) error
	Close() error
}

// MultiAppender writes to every appender and reports the first failure.
type MultiAppender struct {
	appenders []Appender
}

// NewMultiAppender combines appenders.
func NewMultiAppender(appenders ...Appender) *MultiAppender {
	return &MultiAppender{appenders: appenders}
}

// Append writes entry to all appenders, continuing past failures.
func (ma *MultiAppender) Append(ctx context.Context, entry *Entry) error {
	var firstErr error
	for _, appender := range ma.appenders {
		if err := appender.Append(ctx, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Flush syncs the appenders that buffer.
func (ma *MultiAppender) Flush() error {
	var firstErr error
	for _, appender := range ma.appenders {
		if f, ok := appender.(interface{ Flush() error }); ok {
			if err := f.Flush(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Close closes all appenders.
func (ma *MultiAppender) Close() error {
	var firstErr error
	for _, appender := range ma.appenders {
		if err := appender.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WriterAppender writes entries to w, one per line.
type WriterAppender struct {
	mu         sync.Mutex
	w          io.Writer
	level      Level
	formatJSON bool
}

// NewWriterAppender - JSON lines when formatJSON, plain text otherwise.
// Close does not close w.
func NewWriterAppender(w io.Writer, level Level, formatJSON bool) *WriterAppender {
	return &WriterAppender{w: w, level: level, formatJSON: formatJSON}
}

func (wa *WriterAppender) Append(_ context.Context, entry *Entry) error {
	data, err := encode(entry.FilterByLevel(wa.level), wa.formatJSON)
	if err != nil {
		return err
	}
	wa.mu.Lock()
	defer wa.mu.Unlock()
	if _, err := wa.w.Write(data); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func (wa *WriterAppender) Close() error { return nil }

// LogAppender forwards entries to a zerolog logger at info level, failures at warn.
type LogAppender struct {
	logger zerolog.Logger
	level  Level
}

// NewLogAppender routes the trail into the application log.
func NewLogAppender(logger zerolog.Logger, level Level) *LogAppender {
	return &LogAppender{logger: logger.With().Str("component", "audit").Logger(), level: level}
}

func (la *LogAppender) Append(_ context.Context, entry *Entry) error {
	e := entry.FilterByLevel(la.level)
	ev := la.logger.Info()
	if e.Status == StatusFailure {
		ev = la.logger.Warn()
	}
	ev = ev.Str("id", e.ID).
		Str("provider", e.Provider).
		Str("op", e.Operation).
		Str("status", string(e.Status))
	if e.User != "" {
		ev = ev.Str("user", e.User)
	}
	if e.Resource != "" {
		ev = ev.Str("resource", e.Resource)
	}
	if e.Outcome != "" {
		ev = ev.Str("outcome", e.Outcome)
	}
	if e.Duration > 0 {
		ev = ev.Dur("duration", e.Duration)
	}
	if e.ErrorMessage != "" {
		ev = ev.Str("error", e.ErrorMessage)
	}
	ev.Msg("audit")
	return nil
}

func (la *LogAppender) Close() error { return nil }

func encode(entry *Entry, formatJSON bool) ([]byte, error) {
	if !formatJSON {
		return []byte(entry.String() + "\n"), nil
	}
	data, err := entry.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	return append(data, '\n'), nil
}

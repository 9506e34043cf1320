package brokers

import (
	"context"
	"fmt"

	"github.com/ruslano69/dbgate/pkg/audit"
)

// AuditAppender forwards audit entries to a Publisher as JSON.
type AuditAppender struct {
	pub   Publisher
	level audit.Level
}

// NewAuditAppender wraps a connected publisher; Close closes it.
func NewAuditAppender(pub Publisher, level audit.Level) *AuditAppender {
	return &AuditAppender{pub: pub, level: level}
}

// Append publishes entry keyed by provider and resource, or by operation for
// calls without one.
func (a *AuditAppender) Append(ctx context.Context, entry *audit.Entry) error {
	filtered := entry.FilterByLevel(a.level)
	body, err := filtered.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	if err := a.pub.Publish(ctx, messageKey(entry), body); err != nil {
		return fmt.Errorf("%s: %w", a.pub.Type(), err)
	}
	return nil
}

func (a *AuditAppender) Close() error {
	return a.pub.Close()
}

func messageKey(e *audit.Entry) string {
	if e.Resource != "" {
		return e.Provider + ":" + e.Resource
	}
	return e.Provider + ":" + e.Operation
}

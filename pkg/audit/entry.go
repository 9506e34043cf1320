// Package audit writes one record per repository call to an append-only
// trail. Logger implements adapters.Observer, so it plugs into a Backend next
// to the metrics recorder.
package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/metrics"
)

// Level - how much of an entry reaches the trail
type Level int

const (
	// LevelMinimal keeps who, what and whether it succeeded.
	LevelMinimal Level = iota
	// LevelStandard adds the resource, outcome category and duration.
	LevelStandard
	// LevelFull adds the error text, which may quote the failing SQL.
	LevelFull
)

// String returns the configuration name of l.
func (l Level) String() string {
	switch l {
	case LevelMinimal:
		return "minimal"
	case LevelStandard:
		return "standard"
	case LevelFull:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// ParseLevel maps a configuration name to a Level. Empty means standard.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "minimal":
		return LevelMinimal, nil
	case "", "standard":
		return LevelStandard, nil
	case "full":
		return LevelFull, nil
	default:
		return LevelStandard, fmt.Errorf("unknown audit level %q", name)
	}
}

// Status - result of the audited call
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Entry is one audited repository call.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user,omitempty"`
	Provider  string    `json:"provider"`
	Operation string    `json:"operation"`
	Resource  string    `json:"resource,omitempty"`
	Status    Status    `json:"status"`

	// Outcome is the error category, "ok" on success.
	Outcome      string        `json:"outcome,omitempty"`
	Duration     time.Duration `json:"duration_ns,omitempty"`
	ErrorMessage string        `json:"error,omitempty"`
}

// NewEntry builds the entry for one finished call.
func NewEntry(provider adapters.Provider, op, resource string, elapsed time.Duration, err error) *Entry {
	e := &Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Provider:  string(provider),
		Operation: op,
		Resource:  resource,
		Status:    StatusSuccess,
		Outcome:   metrics.Outcome(err),
		Duration:  elapsed,
	}
	if err != nil {
		e.Status = StatusFailure
		e.ErrorMessage = err.Error()
	}
	return e
}

// ToJSON encodes e as a single line.
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// String renders e for plain-text trails.
func (e *Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s %s", e.Timestamp.Format(time.RFC3339), e.Status, e.Provider, e.Operation)
	if e.Resource != "" {
		b.WriteString(" " + e.Resource)
	}
	if e.User != "" {
		b.WriteString(" user=" + e.User)
	}
	if e.Outcome != "" && e.Status == StatusFailure {
		b.WriteString(" outcome=" + e.Outcome)
	}
	if e.Duration > 0 {
		fmt.Fprintf(&b, " (%s)", e.Duration.Round(time.Microsecond))
	}
	if e.ErrorMessage != "" {
		b.WriteString(": " + e.ErrorMessage)
	}
	return b.String()
}

// FilterByLevel returns a copy of e without the fields level excludes.
func (e *Entry) FilterByLevel(level Level) *Entry {
	out := *e
	if level < LevelFull {
		out.ErrorMessage = ""
	}
	if level < LevelStandard {
		out.Resource = ""
		out.Outcome = ""
		out.Duration = 0
	}
	return &out
}

// Package security holds the structural checks applied before any SQL
// reaches a backend: identifier shape, the forbidden-table policy and the
// read-only guard for ad-hoc queries.
package security

import (
	"fmt"
	"strings"

	"github.com/ruslano69/dbgate/pkg/adapters"
)

// ErrNotReadOnly is returned by QueryGuard for statements that could modify
// data. It belongs to the adapters.ErrInvalidInput family.
var ErrNotReadOnly = fmt.Errorf("%w: statement not allowed in read-only mode", adapters.ErrInvalidInput)

// forbiddenKeywords may not appear as a word outside literals in read-only mode.
var forbiddenKeywords = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "TRUNCATE": {}, "MERGE": {}, "REPLACE": {},
	"DROP": {}, "CREATE": {}, "ALTER": {}, "RENAME": {},
	"GRANT": {}, "REVOKE": {},
	"EXEC": {}, "EXECUTE": {}, "CALL": {}, "DO": {},
	"BEGIN": {}, "COMMIT": {}, "ROLLBACK": {},
	"INTO": {}, "SET": {}, "COPY": {}, "LOAD": {}, "HANDLER": {},
}

// QueryGuard vets ad-hoc SQL before ExecuteQuery.
//
// In read-only mode only a single SELECT or WITH statement passes: no data
// modifying keyword, no comment and no semicolon except a trailing one.
// With read-only off every statement passes.
type QueryGuard struct {
	readOnly bool
}

// NewQueryGuard creates a guard.
func NewQueryGuard(readOnly bool) *QueryGuard {
	return &QueryGuard{readOnly: readOnly}
}

// ReadOnly reports the current mode.
func (g *QueryGuard) ReadOnly() bool { return g.readOnly }

// Check returns nil when sqlText may run.
func (g *QueryGuard) Check(sqlText string) error {
	if !g.readOnly {
		return nil
	}

	words, err := scan(sqlText)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return fmt.Errorf("%w: empty statement", ErrNotReadOnly)
	}
	if words[0] != "SELECT" && words[0] != "WITH" {
		return fmt.Errorf("%w: %s", ErrNotReadOnly, words[0])
	}
	for _, w := range words[1:] {
		if _, bad := forbiddenKeywords[w]; bad {
			return fmt.Errorf("%w: keyword %s", ErrNotReadOnly, w)
		}
	}
	return nil
}

// scan upper-cases the bare words of sqlText, skipping literals and quoted
// identifiers. Comments and inner semicolons are rejected on the way.
func scan(sqlText string) ([]string, error) {
	var (
		words []string
		s     = strings.TrimSpace(sqlText)
		n     = len(s)
	)
	for i := 0; i < n; {
		c := s[i]
		switch {
		case c == '\'' || c == '"' || c == '`' || c == '[':
			closing := c
			if c == '[' {
				closing = ']'
			}
			i = skipTo(s, i+1, closing)
		case c == '-' && i+1 < n && s[i+1] == '-',
			c == '/' && i+1 < n && s[i+1] == '*':
			return nil, fmt.Errorf("%w: comments are not allowed", ErrNotReadOnly)
		case c == ';':
			if strings.TrimSpace(s[i+1:]) != "" {
				return nil, fmt.Errorf("%w: multiple statements", ErrNotReadOnly)
			}
			i++
		case isWordByte(c):
			start := i
			for i < n && isWordByte(s[i]) {
				i++
			}
			words = append(words, strings.ToUpper(s[start:i]))
		default:
			i++
		}
	}
	return words, nil
}

// skipTo returns the index after the closing quote, honouring doubled quotes.
func skipTo(s string, i int, closing byte) int {
	for i < len(s) {
		if s[i] == closing {
			if i+1 < len(s) && s[i+1] == closing {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

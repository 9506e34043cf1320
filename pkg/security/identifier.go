package security

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ruslano69/dbgate/pkg/adapters"
)

// MaxIdentifierLength is the longest identifier accepted, in runes. It is
// the SQL Server limit; PostgreSQL and MySQL truncate or reject earlier.
const MaxIdentifierLength = 128

// CheckIdentifier validates the shape of a table, schema or column name.
// Names are always quoted before use, so any printable text is allowed;
// blank names, control characters and overlong names are not.
func CheckIdentifier(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return adapters.InvalidInput(field, "must not be empty")
	}
	if !utf8.ValidString(name) {
		return adapters.InvalidInput(field, "must be valid UTF-8")
	}
	if n := utf8.RuneCountInString(name); n > MaxIdentifierLength {
		return adapters.InvalidInput(field, "is longer than 128 characters")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return adapters.InvalidInput(field, "must not contain control characters")
		}
	}
	return nil
}

package base

import (
	"database/sql/driver"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/security"
)

// MaxLoggedQuery is the number of runes of SQL kept in logs and errors.
const MaxLoggedQuery = 200

// TruncateQuery shortens sqlText to MaxLoggedQuery runes, appending "..."
// when cut. Whitespace runs are collapsed first.
func TruncateQuery(sqlText string) string {
	s := strings.Join(strings.Fields(sqlText), " ")
	if utf8.RuneCountInString(s) <= MaxLoggedQuery {
		return s
	}
	r := []rune(s)
	return string(r[:MaxLoggedQuery]) + "..."
}

// Classifier maps a driver error to a category; ok is false when the error
// is not one the dialect recognises.
type Classifier func(err error) (adapters.Category, bool)

// WrapError builds an *adapters.OperationError for err. Context errors and
// broken connections are classified here; everything else goes to classify.
// A nil err stays nil and input errors pass through unchanged.
func WrapError(op, statement string, err error, classify Classifier) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, adapters.ErrInvalidInput) {
		return err
	}
	var opErr *adapters.OperationError
	if errors.As(err, &opErr) {
		return err
	}

	category := adapters.CategoryUnknown
	if cat, ok := adapters.ContextCategory(err); ok {
		category = cat
	} else if errors.Is(err, driver.ErrBadConn) {
		category = adapters.CategoryConnection
	} else if classify != nil {
		if cat, ok := classify(err); ok {
			category = cat
		}
	}

	return &adapters.OperationError{
		Op:        op,
		Category:  category,
		Statement: TruncateQuery(statement),
		Cause:     err,
	}
}

// RequireIdentifier rejects identifiers that cannot be quoted safely.
func RequireIdentifier(field, v string) error {
	return security.CheckIdentifier(field, v)
}

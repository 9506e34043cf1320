package adapters

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidInput marks structural input errors raised before any I/O.
var ErrInvalidInput = errors.New("invalid input")

// ErrForbiddenTable is returned when the table policy rejects a table.
// It belongs to the ErrInvalidInput family.
var ErrForbiddenTable = fmt.Errorf("%w: table is not accessible", ErrInvalidInput)

// InputError names the offending argument.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrInvalidInput) hold for every InputError.
func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// InvalidInput builds an *InputError.
func InvalidInput(field, message string) error {
	return &InputError{Field: field, Message: message}
}

// Category classifies backend failures independently of the dialect.
type Category string

const (
	CategoryUnknown          Category = "unknown"
	CategorySyntax           Category = "syntax"
	CategoryUnknownColumn    Category = "unknown_column"
	CategoryUnknownTable     Category = "unknown_table"
	CategoryUnknownRoutine   Category = "unknown_routine"
	CategoryNotNull          Category = "not_null_violation"
	CategoryForeignKey       Category = "foreign_key_violation"
	CategoryUniqueViolation  Category = "unique_violation"
	CategoryTruncation       Category = "value_too_long"
	CategoryConversion       Category = "conversion"
	CategoryParameter        Category = "parameter_mismatch"
	CategoryUnsupported      Category = "unsupported"
	CategoryConnection       Category = "connection"
	CategoryTimeout          Category = "timeout"
	CategoryCanceled         Category = "canceled"
	CategoryPermissionDenied Category = "permission_denied"
)

var categoryMessages = map[Category]string{
	CategorySyntax:           "SQL syntax error",
	CategoryUnknownColumn:    "column does not exist",
	CategoryUnknownTable:     "table or view does not exist",
	CategoryUnknownRoutine:   "stored procedure or function does not exist",
	CategoryNotNull:          "a required column received NULL",
	CategoryForeignKey:       "foreign key constraint violated",
	CategoryUniqueViolation:  "duplicate key",
	CategoryTruncation:       "value too long for column",
	CategoryConversion:       "value cannot be converted to the column type",
	CategoryParameter:        "parameter missing or not expected",
	CategoryUnsupported:      "feature not supported by this server",
	CategoryConnection:       "cannot reach the database",
	CategoryTimeout:          "command timed out",
	CategoryCanceled:         "operation canceled",
	CategoryPermissionDenied: "permission denied",
}

// Describe returns a short human description of c.
func (c Category) Describe() string {
	if m, ok := categoryMessages[c]; ok {
		return m
	}
	return "database error"
}

// OperationError wraps a backend failure with the statement that caused it.
type OperationError struct {
	Op        string
	Category  Category
	Statement string
	Cause     error
}

func (e *OperationError) Error() string {
	if e.Statement == "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Category.Describe(), e.Cause)
	}
	return fmt.Sprintf("%s: %s: %v (sql: %s)", e.Op, e.Category.Describe(), e.Cause, e.Statement)
}

func (e *OperationError) Unwrap() error { return e.Cause }

// ContextCategory classifies context errors; ok is false for anything else.
func ContextCategory(err error) (Category, bool) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout, true
	case errors.Is(err, context.Canceled):
		return CategoryCanceled, true
	}
	return CategoryUnknown, false
}

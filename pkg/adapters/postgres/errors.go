package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ruslano69/dbgate/pkg/adapters"
)

// sqlStates maps SQLSTATE codes.
var sqlStates = map[string]adapters.Category{
	"42601": adapters.CategorySyntax,
	"42703": adapters.CategoryUnknownColumn,
	"42P01": adapters.CategoryUnknownTable,
	"42883": adapters.CategoryUnknownRoutine,
	"42P02": adapters.CategoryParameter,
	"42501": adapters.CategoryPermissionDenied,
	"23502": adapters.CategoryNotNull,
	"23503": adapters.CategoryForeignKey,
	"23505": adapters.CategoryUniqueViolation,
	"22001": adapters.CategoryTruncation,
	"22P02": adapters.CategoryConversion,
	"22007": adapters.CategoryConversion,
	"22008": adapters.CategoryConversion,
	"22003": adapters.CategoryConversion,
	"57014": adapters.CategoryTimeout,
	"0A000": adapters.CategoryUnsupported,
}

// classify implements base.Classifier for pgconn errors. Class 08 is a
// connection exception.
func classify(err error) (adapters.Category, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		if pgconn.SafeToRetry(err) {
			return adapters.CategoryConnection, true
		}
		return adapters.CategoryUnknown, false
	}
	if c, ok := sqlStates[pgErr.Code]; ok {
		return c, true
	}
	if strings.HasPrefix(pgErr.Code, "08") {
		return adapters.CategoryConnection, true
	}
	return adapters.CategoryUnknown, false
}

package mysql

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/ruslano69/dbgate/pkg/adapters"
)

// errorCategories maps MySQL server error numbers.
var errorCategories = map[uint16]adapters.Category{
	1044: adapters.CategoryPermissionDenied,
	1045: adapters.CategoryPermissionDenied,
	1048: adapters.CategoryNotNull,
	1054: adapters.CategoryUnknownColumn,
	1062: adapters.CategoryUniqueViolation,
	1064: adapters.CategorySyntax,
	1142: adapters.CategoryPermissionDenied,
	1146: adapters.CategoryUnknownTable,
	1210: adapters.CategoryParameter,
	1235: adapters.CategoryUnsupported,
	1292: adapters.CategoryConversion,
	1305: adapters.CategoryUnknownRoutine,
	1318: adapters.CategoryParameter,
	1364: adapters.CategoryNotNull,
	1366: adapters.CategoryConversion,
	1406: adapters.CategoryTruncation,
	1451: adapters.CategoryForeignKey,
	1452: adapters.CategoryForeignKey,
	3024: adapters.CategoryTimeout,
}

// classify implements base.Classifier for go-sql-driver errors.
func classify(err error) (adapters.Category, bool) {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		if errors.Is(err, mysql.ErrInvalidConn) {
			return adapters.CategoryConnection, true
		}
		return adapters.CategoryUnknown, false
	}
	if c, ok := errorCategories[myErr.Number]; ok {
		return c, true
	}
	return adapters.CategoryUnknown, false
}

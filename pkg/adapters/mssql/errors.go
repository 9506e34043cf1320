package mssql

import (
	"errors"

	mssql "github.com/denisenkom/go-mssqldb"

	"github.com/ruslano69/dbgate/pkg/adapters"
)

// errorCategories maps SQL Server error numbers.
var errorCategories = map[int32]adapters.Category{
	2:    adapters.CategoryConnection,
	53:   adapters.CategoryConnection,
	102:  adapters.CategorySyntax,
	156:  adapters.CategorySyntax,
	170:  adapters.CategorySyntax,
	201:  adapters.CategoryParameter,
	207:  adapters.CategoryUnknownColumn,
	208:  adapters.CategoryUnknownTable,
	229:  adapters.CategoryPermissionDenied,
	245:  adapters.CategoryConversion,
	515:  adapters.CategoryNotNull,
	547:  adapters.CategoryForeignKey,
	2601: adapters.CategoryUniqueViolation,
	2627: adapters.CategoryUniqueViolation,
	2628: adapters.CategoryTruncation,
	2812: adapters.CategoryUnknownRoutine,
	2146: adapters.CategoryConversion,
	8114: adapters.CategoryConversion,
	8144: adapters.CategoryParameter,
	8145: adapters.CategoryParameter,
	8152: adapters.CategoryTruncation,
}

// classify implements base.Classifier for go-mssqldb errors.
func classify(err error) (adapters.Category, bool) {
	var sqlErr mssql.Error
	if !errors.As(err, &sqlErr) {
		return adapters.CategoryUnknown, false
	}
	if c, ok := errorCategories[sqlErr.Number]; ok {
		return c, true
	}
	return adapters.CategoryUnknown, false
}

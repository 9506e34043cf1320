package mysql

import (
	"github.com/ruslano69/dbgate/pkg/adapters/base"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

// Type mapping for MySQL / MariaDB
//
// MySQL Type                            Kind          Notes
// ─────────────────────────────────────────────────────────────
// TINYINT, SMALLINT, YEAR               int16         TINYINT(1) included
// MEDIUMINT, INT                        int32
// BIGINT, UNSIGNED INT                  int64
// UNSIGNED BIGINT, DECIMAL, NUMERIC     decimal       exact
// FLOAT, DOUBLE, REAL                   float64
// BOOL, BOOLEAN                         bool          catalog spelling only
// DATE                                  date
// TIME                                  time
// DATETIME, TIMESTAMP                   datetime      no zone
// BINARY, VARBINARY, *BLOB              bytes
// everything else                       text
var kinds = base.KindTable{
	"tinyint":            value.KindInt16,
	"smallint":           value.KindInt16,
	"year":               value.KindInt16,
	"mediumint":          value.KindInt32,
	"int":                value.KindInt32,
	"integer":            value.KindInt32,
	"bigint":             value.KindInt64,
	"unsigned tinyint":   value.KindInt16,
	"unsigned smallint":  value.KindInt32,
	"unsigned mediumint": value.KindInt32,
	"unsigned int":       value.KindInt64,
	"unsigned bigint":    value.KindDecimal,
	"decimal":            value.KindDecimal,
	"numeric":            value.KindDecimal,
	"float":              value.KindFloat64,
	"double":             value.KindFloat64,
	"real":               value.KindFloat64,
	"bool":               value.KindBool,
	"boolean":            value.KindBool,
	"date":               value.KindDate,
	"time":               value.KindTime,
	"datetime":           value.KindDateTime,
	"timestamp":          value.KindDateTime,
	"binary":             value.KindBytes,
	"varbinary":          value.KindBytes,
	"blob":               value.KindBytes,
	"tinyblob":           value.KindBytes,
	"mediumblob":         value.KindBytes,
	"longblob":           value.KindBytes,
}

// KindOf returns the value kind for a MySQL type name.
func KindOf(nativeType string) value.Kind {
	return kinds.Kind(nativeType)
}

var decodeColumn = kinds.KindDecoder()

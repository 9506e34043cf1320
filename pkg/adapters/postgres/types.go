package postgres

import (
	"github.com/ruslano69/dbgate/pkg/adapters/base"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

// Type mapping for PostgreSQL
//
// PostgreSQL Type                    Kind          Notes
// ─────────────────────────────────────────────────────────────
// SMALLINT, INT2                     int16
// INTEGER, INT4, SERIAL              int32
// BIGINT, INT8, BIGSERIAL            int64
// REAL, FLOAT4, DOUBLE PRECISION     float64
// NUMERIC, DECIMAL, MONEY            decimal       exact
// BOOLEAN, BOOL                      bool
// DATE                               date
// TIME                               time          without zone
// TIMESTAMP                          datetime      without zone
// TIMESTAMPTZ                        datetimetz
// BYTEA                              bytes
// UUID                               uuid
// JSON, JSONB, INET, XML, arrays     text          server text form
//
// Both catalog spellings (information_schema.data_type, "timestamp without
// time zone") and wire names (pgx DatabaseTypeName, "TIMESTAMP") are listed.
var kinds = base.KindTable{
	"smallint":                    value.KindInt16,
	"int2":                        value.KindInt16,
	"smallserial":                 value.KindInt16,
	"integer":                     value.KindInt32,
	"int":                         value.KindInt32,
	"int4":                        value.KindInt32,
	"serial":                      value.KindInt32,
	"bigint":                      value.KindInt64,
	"int8":                        value.KindInt64,
	"bigserial":                   value.KindInt64,
	"real":                        value.KindFloat64,
	"float4":                      value.KindFloat64,
	"double precision":            value.KindFloat64,
	"float8":                      value.KindFloat64,
	"numeric":                     value.KindDecimal,
	"decimal":                     value.KindDecimal,
	"money":                       value.KindDecimal,
	"boolean":                     value.KindBool,
	"bool":                        value.KindBool,
	"date":                        value.KindDate,
	"time":                        value.KindTime,
	"time without time zone":      value.KindTime,
	"timestamp":                   value.KindDateTime,
	"timestamp without time zone": value.KindDateTime,
	"timestamptz":                 value.KindDateTimeTZ,
	"timestamp with time zone":    value.KindDateTimeTZ,
	"bytea":                       value.KindBytes,
	"uuid":                        value.KindUUID,
}

// KindOf returns the value kind for a PostgreSQL type name.
func KindOf(nativeType string) value.Kind {
	return kinds.Kind(nativeType)
}

var decodeColumn = kinds.KindDecoder()

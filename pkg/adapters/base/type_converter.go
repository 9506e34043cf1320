package base

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ruslano69/dbgate/pkg/core/value"
)

// KindTable maps lower-cased native type names to value kinds.
// Lookups ignore a trailing length/precision suffix: "varchar(50)" → "varchar".
type KindTable map[string]value.Kind

// Kind returns the kind for nativeType; unmapped names are Text.
func (t KindTable) Kind(nativeType string) value.Kind {
	name := strings.ToLower(strings.TrimSpace(nativeType))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if k, ok := t[name]; ok {
		return k
	}
	return value.KindText
}

// ColumnDecoder turns one scanned driver value into a Value. dbType is the
// driver's DatabaseTypeName for the column.
type ColumnDecoder func(dbType string, raw any) (value.Value, error)

// KindDecoder decodes through value.FromDriver using the kinds of t.
func (t KindTable) KindDecoder() ColumnDecoder {
	return func(dbType string, raw any) (value.Value, error) {
		return value.FromDriver(raw, t.Kind(dbType))
	}
}

// ScanRows reads every remaining row of rows. The caller still owns rows and
// must close it.
func ScanRows(rows *sql.Rows, decode ColumnDecoder) ([]string, []value.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, err
	}
	dbTypes := make([]string, len(columns))
	for i, ct := range types {
		dbTypes[i] = ct.DatabaseTypeName()
	}

	out := make([]value.Row, 0)
	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := value.NewRow(len(columns))
		for i, name := range columns {
			v, err := decode(dbTypes[i], raw[i])
			if err != nil {
				return nil, nil, fmt.Errorf("column %s: %w", name, err)
			}
			row.Set(name, v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, out, nil
}

// ScanTable reads rows into a Table.
func ScanTable(rows *sql.Rows, decode ColumnDecoder) (*value.Table, error) {
	columns, data, err := ScanRows(rows, decode)
	if err != nil {
		return nil, err
	}
	t := value.NewTable(columns...)
	t.Rows = data
	return t, nil
}

// DriverValue converts v to the plain Go value passed to database/sql for
// PostgreSQL and MySQL. Decimals and UUIDs travel as text; times of day as
// HH:MM:SS[.fff].
func DriverValue(v value.Value) any {
	switch v.Kind() {
	case value.KindNull:
		return nil
	case value.KindInt64, value.KindInt32, value.KindInt16:
		i, _ := v.Int()
		return i
	case value.KindFloat64:
		f, _ := v.Float()
		return f
	case value.KindBool:
		b, _ := v.BoolValue()
		return b
	case value.KindBytes:
		b, _ := v.BytesValue()
		return b
	case value.KindDate, value.KindDateTime, value.KindDateTimeTZ:
		t, _ := v.Time()
		return t
	default:
		return v.String()
	}
}

// DriverValues maps DriverValue over vs.
func DriverValues(vs []value.Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = DriverValue(v)
	}
	return out
}

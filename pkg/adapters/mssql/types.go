package mssql

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/ruslano69/dbgate/pkg/adapters/base"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

// Type mapping for SQL Server
//
// SQL Server Type               Kind          Notes
// ──────────────────────────────────────────────────────────────
// TINYINT, SMALLINT             int16
// INT                           int32
// BIGINT                        int64
// DECIMAL, NUMERIC, MONEY       decimal       exact
// FLOAT, REAL                   float64
// BIT                           bool
// DATE                          date
// TIME                          time
// DATETIME, DATETIME2,          datetime      no zone
// SMALLDATETIME
// DATETIMEOFFSET                datetimetz
// UNIQUEIDENTIFIER              uuid          byte order fixed on read
// VARBINARY, BINARY, IMAGE      bytes
// TIMESTAMP, ROWVERSION         text          hex without leading zeros
// everything else               text
var kinds = base.KindTable{
	"tinyint":          value.KindInt16,
	"smallint":         value.KindInt16,
	"int":              value.KindInt32,
	"bigint":           value.KindInt64,
	"decimal":          value.KindDecimal,
	"numeric":          value.KindDecimal,
	"money":            value.KindDecimal,
	"smallmoney":       value.KindDecimal,
	"float":            value.KindFloat64,
	"real":             value.KindFloat64,
	"bit":              value.KindBool,
	"date":             value.KindDate,
	"time":             value.KindTime,
	"datetime":         value.KindDateTime,
	"datetime2":        value.KindDateTime,
	"smalldatetime":    value.KindDateTime,
	"datetimeoffset":   value.KindDateTimeTZ,
	"uniqueidentifier": value.KindUUID,
	"varbinary":        value.KindBytes,
	"binary":           value.KindBytes,
	"image":            value.KindBytes,
}

// KindOf returns the value kind for a SQL Server type name.
func KindOf(nativeType string) value.Kind {
	return kinds.Kind(nativeType)
}

// decodeColumn converts a scanned driver value. UNIQUEIDENTIFIER arrives in
// SQL Server byte order and rowversion as eight raw bytes.
func decodeColumn(dbType string, raw any) (value.Value, error) {
	switch strings.ToUpper(dbType) {
	case "UNIQUEIDENTIFIER":
		if b, ok := raw.([]byte); ok {
			var id mssql.UniqueIdentifier
			if err := id.Scan(b); err != nil {
				return value.Null(), err
			}
			return value.UUID(uuid.UUID(id)), nil
		}
	case "TIMESTAMP", "ROWVERSION":
		if b, ok := raw.([]byte); ok {
			return value.Text(rowVersionHex(b)), nil
		}
	}
	return value.FromDriver(raw, kinds.Kind(dbType))
}

// Text capacity tiers for NVARCHAR parameters.
const (
	tierShort  = 50
	tierMedium = 255
	tierLong   = 4000
)

const maxDecimalScale = 38

// Binding - one parameter value prepared for go-mssqldb
type Binding struct {
	// NativeType is the SQL Server type the value is sent as
	NativeType string

	// Size is the declared length for NVARCHAR/VARBINARY; -1 means MAX
	Size int

	// Scale is the number of fractional digits of a DECIMAL
	Scale int

	// Arg is passed to database/sql (usually wrapped in sql.Named)
	Arg any
}

// Bind chooses the SQL Server type for v from its kind. Text picks the
// smallest tier among 50, 255 and 4000 characters, and NVARCHAR(MAX) beyond.
// Empty text is sent as an empty string, not NULL.
func Bind(v value.Value) Binding {
	switch v.Kind() {
	case value.KindNull:
		return Binding{NativeType: "NVARCHAR", Size: tierShort, Arg: nil}

	case value.KindInt16:
		i, _ := v.Int()
		if i >= 0 && i <= 255 {
			return Binding{NativeType: "TINYINT", Arg: i}
		}
		return Binding{NativeType: "SMALLINT", Arg: i}
	case value.KindInt32:
		i, _ := v.Int()
		return Binding{NativeType: "INT", Arg: i}
	case value.KindInt64:
		i, _ := v.Int()
		return Binding{NativeType: "BIGINT", Arg: i}

	case value.KindDecimal:
		d, _ := v.DecimalValue()
		scale := int(-d.Exponent())
		if scale < 0 {
			scale = 0
		} else if scale > maxDecimalScale {
			scale = maxDecimalScale
		}
		return Binding{NativeType: "DECIMAL", Scale: scale, Arg: d.StringFixed(int32(scale))}
	case value.KindFloat64:
		f, _ := v.Float()
		return Binding{NativeType: "FLOAT", Arg: f}

	case value.KindBool:
		b, _ := v.BoolValue()
		return Binding{NativeType: "BIT", Arg: b}

	case value.KindDate:
		t, _ := v.Time()
		return Binding{NativeType: "DATE", Arg: civil.DateOf(t)}
	case value.KindTime:
		d, _ := v.TimeOfDayValue()
		return Binding{NativeType: "TIME", Arg: civilTime(d)}
	case value.KindDateTime:
		t, _ := v.Time()
		return Binding{NativeType: "DATETIME2", Arg: civil.DateTimeOf(t)}
	case value.KindDateTimeTZ:
		t, _ := v.Time()
		return Binding{NativeType: "DATETIMEOFFSET", Arg: mssql.DateTimeOffset(t)}

	case value.KindUUID:
		id, _ := v.UUIDValue()
		return Binding{NativeType: "UNIQUEIDENTIFIER", Arg: mssql.UniqueIdentifier(id)}

	case value.KindBytes:
		b, _ := v.BytesValue()
		size := len(b)
		if size > 8000 {
			size = -1
		}
		return Binding{NativeType: "VARBINARY", Size: size, Arg: b}

	default:
		return bindText(v.String())
	}
}

func bindText(s string) Binding {
	n := utf8.RuneCountInString(s)
	switch {
	case n <= tierShort:
		return Binding{NativeType: "NVARCHAR", Size: tierShort, Arg: s}
	case n <= tierMedium:
		return Binding{NativeType: "NVARCHAR", Size: tierMedium, Arg: s}
	case n <= tierLong:
		return Binding{NativeType: "NVARCHAR", Size: tierLong, Arg: s}
	default:
		return Binding{NativeType: "NVARCHAR", Size: -1, Arg: mssql.NVarCharMax(s)}
	}
}

func civilTime(d time.Duration) civil.Time {
	return civil.Time{
		Hour:       int(d / time.Hour),
		Minute:     int(d % time.Hour / time.Minute),
		Second:     int(d % time.Minute / time.Second),
		Nanosecond: int(d % time.Second),
	}
}

// Declaration returns the T-SQL type spelling of b, e.g. NVARCHAR(255).
func (b Binding) Declaration() string {
	switch b.NativeType {
	case "NVARCHAR", "VARBINARY":
		if b.Size <= 0 {
			return b.NativeType + "(MAX)"
		}
		return fmt.Sprintf("%s(%d)", b.NativeType, b.Size)
	case "DECIMAL":
		return fmt.Sprintf("DECIMAL(%d, %d)", maxDecimalScale, b.Scale)
	default:
		return b.NativeType
	}
}

// Names of the sp_executesql arguments carrying the statement and its
// parameter declarations.
const (
	stmtParam = "dbgate_stmt"
	declParam = "dbgate_decl"
)

// typedCall wraps stmt in sp_executesql with the declarations chosen by Bind,
// so integer widths, decimal scale and text tiers reach the server. On its
// own go-mssqldb declares every integer as BIGINT, decimals travel as text
// and strings are sized by their byte length.
func typedCall(stmt string, names []string, bindings []Binding) (string, []any) {
	if len(names) == 0 {
		return stmt, nil
	}
	decls := make([]string, len(names))
	assigns := make([]string, len(names))
	args := make([]any, 0, len(names)+2)
	args = append(args, sql.Named(stmtParam, mssql.NVarCharMax(stmt)), nil)
	for i, n := range names {
		decls[i] = "@" + n + " " + bindings[i].Declaration()
		assigns[i] = "@" + n + " = @" + n
		args = append(args, sql.Named(n, bindings[i].Arg))
	}
	args[1] = sql.Named(declParam, mssql.NVarCharMax(strings.Join(decls, ", ")))

	call := "EXEC sp_executesql @" + stmtParam + ", @" + declParam + ", " + strings.Join(assigns, ", ")
	return call, args
}

// typedStatement adapts a squirrel statement with @pN placeholders whose
// arguments are Bindings. Any other argument leaves the statement as is.
func typedStatement(query string, args []any) (string, []any) {
	names := make([]string, len(args))
	bindings := make([]Binding, len(args))
	for i, a := range args {
		b, ok := a.(Binding)
		if !ok {
			return query, args
		}
		names[i] = fmt.Sprintf("p%d", i+1)
		bindings[i] = b
	}
	return typedCall(query, names, bindings)
}

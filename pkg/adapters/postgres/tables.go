package postgres

import (
	"context"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

// TableRepository - table CRUD for PostgreSQL
type TableRepository struct {
	*base.TableHelper
}

var _ adapters.TableRepository = (*TableRepository)(nil)

// NewTableRepository creates the repository. deps.ColumnTypes replaces the
// information_schema lookup when set.
func NewTableRepository(conn *base.Connector, deps adapters.Deps) *TableRepository {
	timeouts := deps.Timeouts.WithDefaults()
	logger := deps.BackendLogger(DriverName)

	columns := deps.ColumnTypes
	if columns == nil {
		columns = NewColumnCatalog(conn, timeouts.Catalog, logger)
	}
	return &TableRepository{
		TableHelper: &base.TableHelper{
			Dialect:  base.PostgreSQL,
			Conn:     conn,
			Binder:   &binder{columns: columns, logger: logger},
			Decode:   decodeColumn,
			Classify: classify,
			Hasher:   deps.Hasher,
			Logger:   logger,
			Timeout:  timeouts.Query,
		},
	}
}

// binder converts caller text to the native kind of the target column.
// PostgreSQL does not cast text parameters implicitly, so "42" sent to an
// integer column would fail. When the type is unknown or the text does not
// parse, the raw string is sent and the server decides. Column names are
// matched case-insensitively and quoted in their catalog spelling.
type binder struct {
	columns adapters.ColumnTypeResolver
	logger  zerolog.Logger
}

func (b *binder) KeyPredicate(ctx context.Context, table adapters.TableDescriptor, column, raw string, lookup bool) (sq.Sqlizer, error) {
	name, native := resolveColumn(b.columnTypes(ctx, table), column)
	quoted := base.PostgreSQL.QuoteIdentifier(name)

	if lookup && base.IsTimestampType(native) && base.IsDateOnly(raw) {
		if d, err := value.ParseDate(raw); err == nil {
			return sq.Expr("CAST("+quoted+" AS DATE) = ?", d), nil
		}
	}
	return sq.Eq{quoted: base.DriverValue(b.convert(table, column, native, value.Text(raw)))}, nil
}

func (b *binder) DataArgs(ctx context.Context, table adapters.TableDescriptor, data value.Row) ([]any, error) {
	types := b.columnTypes(ctx, table)
	args := make([]any, data.Len())
	for i := range args {
		name, v := data.At(i)
		_, native := resolveColumn(types, name)
		args[i] = base.DriverValue(b.convert(table, name, native, v))
	}
	return args, nil
}

// ColumnNames implements base.ColumnResolver.
func (b *binder) ColumnNames(ctx context.Context, table adapters.TableDescriptor, names []string) []string {
	types := b.columnTypes(ctx, table)
	out := make([]string, len(names))
	for i, n := range names {
		out[i], _ = resolveColumn(types, n)
	}
	return out
}

// resolveColumn returns the catalog spelling and type of column. An exact
// match wins; otherwise the first case-insensitive match in name order.
// Unknown columns keep the caller's spelling and an empty type.
func resolveColumn(types map[string]string, column string) (string, string) {
	if native, ok := types[column]; ok {
		return column, native
	}
	var matches []string
	for name := range types {
		if strings.EqualFold(name, column) {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return column, ""
	}
	sort.Strings(matches)
	return matches[0], types[matches[0]]
}

// columnTypes never fails; a catalog error leaves every column untyped.
func (b *binder) columnTypes(ctx context.Context, table adapters.TableDescriptor) map[string]string {
	types, err := b.columns.ColumnTypes(ctx, table)
	if err != nil {
		b.logger.Warn().Err(err).Str("table", table.String()).Msg("column types unavailable, binding raw values")
		return nil
	}
	return types
}

func (b *binder) convert(table adapters.TableDescriptor, column, native string, v value.Value) value.Value {
	converted, err := coerce(native, v)
	if err != nil {
		b.logger.Debug().
			Err(err).
			Str("table", table.String()).
			Str("column", column).
			Str("type", native).
			Msg("conversion failed, binding raw string")
		return v
	}
	return converted
}

// coerce parses a text value into the kind of native. Typed values and
// columns of unknown or text type are returned unchanged.
func coerce(native string, v value.Value) (value.Value, error) {
	raw, ok := v.TextValue()
	if !ok || native == "" {
		return v, nil
	}
	kind := KindOf(native)
	if kind == value.KindText {
		return v, nil
	}
	return value.Parse(raw, kind)
}

package base

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

// ValueBinder is the dialect hook that turns caller input into bound SQL
// arguments.
type ValueBinder interface {
	// KeyPredicate returns the WHERE predicate matching column = raw.
	// lookup is true for ObtainByKey, where date-only disambiguation may apply.
	KeyPredicate(ctx context.Context, table adapters.TableDescriptor, column, raw string, lookup bool) (sq.Sqlizer, error)

	// DataArgs converts the values of data, in column order, to driver arguments.
	DataArgs(ctx context.Context, table adapters.TableDescriptor, data value.Row) ([]any, error)
}

// ColumnResolver is implemented by binders that know the catalog spelling of
// column names. TableHelper quotes the resolved names instead of the caller's.
type ColumnResolver interface {
	ColumnNames(ctx context.Context, table adapters.TableDescriptor, names []string) []string
}

// PlainBinder binds the key as text and data through DriverValue.
type PlainBinder struct {
	Dialect Dialect
}

// KeyPredicate implements ValueBinder.
func (b PlainBinder) KeyPredicate(_ context.Context, _ adapters.TableDescriptor, column, raw string, _ bool) (sq.Sqlizer, error) {
	return sq.Eq{b.Dialect.QuoteIdentifier(column): raw}, nil
}

// DataArgs implements ValueBinder.
func (b PlainBinder) DataArgs(_ context.Context, _ adapters.TableDescriptor, data value.Row) ([]any, error) {
	args := make([]any, data.Len())
	for i := range args {
		_, v := data.At(i)
		args[i] = DriverValue(v)
	}
	return args, nil
}

// TableHelper implements adapters.TableRepository on top of a Dialect and a
// ValueBinder. Dialect packages supply the binder, the decoder and the
// error classifier.
type TableHelper struct {
	Dialect  Dialect
	Conn     *Connector
	Binder   ValueBinder
	Decode   ColumnDecoder
	Classify Classifier
	Hasher   adapters.Hasher
	Logger   zerolog.Logger
	Timeout  time.Duration

	// Statement, when set, rewrites each statement and its arguments right
	// before execution. Logs and errors keep the original text.
	Statement func(query string, args []any) (string, []any)
}

var _ adapters.TableRepository = (*TableHelper)(nil)

// ObtainRows implements adapters.TableRepository.
func (h *TableHelper) ObtainRows(ctx context.Context, table, schema string, limit *int) ([]value.Row, error) {
	if err := RequireIdentifier("table", table); err != nil {
		return nil, err
	}
	n := adapters.DefaultRowLimit
	if limit != nil {
		if *limit <= 0 {
			return nil, adapters.InvalidInput("limit", "must be greater than zero")
		}
		n = *limit
	}

	query, args, err := h.Dialect.SelectAll(schema, table, n).ToSql()
	if err != nil {
		return nil, err
	}
	return h.queryRows(ctx, "obtain_rows", query, args)
}

// ObtainByKey implements adapters.TableRepository.
func (h *TableHelper) ObtainByKey(ctx context.Context, table, schema, keyColumn, keyValue string) ([]value.Row, error) {
	if err := requireAll("table", table, "keyColumn", keyColumn); err != nil {
		return nil, err
	}
	desc := adapters.TableDescriptor{Schema: schema, Name: table}

	pred, err := h.Binder.KeyPredicate(ctx, desc, keyColumn, keyValue, true)
	if err != nil {
		return nil, err
	}
	query, args, err := h.Dialect.Builder().
		Select("*").
		From(h.Dialect.QualifiedTable(schema, table)).
		Where(pred).
		ToSql()
	if err != nil {
		return nil, err
	}
	return h.queryRows(ctx, "obtain_by_key", query, args)
}

// Create implements adapters.TableRepository.
func (h *TableHelper) Create(ctx context.Context, table, schema string, data value.Row, encryptFields string) (bool, error) {
	if err := RequireIdentifier("table", table); err != nil {
		return false, err
	}
	if data.Len() == 0 {
		return false, adapters.InvalidInput("data", "must contain at least one column")
	}
	desc := adapters.TableDescriptor{Schema: schema, Name: table}

	prepared, err := EncryptFields(data, encryptFields, h.Hasher)
	if err != nil {
		return false, err
	}
	args, err := h.Binder.DataArgs(ctx, desc, prepared)
	if err != nil {
		return false, err
	}

	query, args, err := h.Dialect.Builder().
		Insert(h.Dialect.QualifiedTable(schema, table)).
		Columns(h.quoteColumns(ctx, desc, prepared)...).
		Values(args...).
		ToSql()
	if err != nil {
		return false, err
	}

	affected, err := h.exec(ctx, "create", query, args)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Update implements adapters.TableRepository.
func (h *TableHelper) Update(ctx context.Context, table, schema, keyColumn, keyValue string, data value.Row, encryptFields string) (int64, error) {
	if err := requireAll("table", table, "keyColumn", keyColumn); err != nil {
		return 0, err
	}
	if data.Len() == 0 {
		return 0, adapters.InvalidInput("data", "must contain at least one column")
	}
	desc := adapters.TableDescriptor{Schema: schema, Name: table}

	prepared, err := EncryptFields(data, encryptFields, h.Hasher)
	if err != nil {
		return 0, err
	}
	args, err := h.Binder.DataArgs(ctx, desc, prepared)
	if err != nil {
		return 0, err
	}
	pred, err := h.Binder.KeyPredicate(ctx, desc, keyColumn, keyValue, false)
	if err != nil {
		return 0, err
	}

	b := h.Dialect.Builder().Update(h.Dialect.QualifiedTable(schema, table))
	for i, col := range h.quoteColumns(ctx, desc, prepared) {
		b = b.Set(col, args[i])
	}
	query, args, err := b.Where(pred).ToSql()
	if err != nil {
		return 0, err
	}
	return h.exec(ctx, "update", query, args)
}

// Delete implements adapters.TableRepository.
func (h *TableHelper) Delete(ctx context.Context, table, schema, keyColumn, keyValue string) (int64, error) {
	if err := requireAll("table", table, "keyColumn", keyColumn); err != nil {
		return 0, err
	}
	desc := adapters.TableDescriptor{Schema: schema, Name: table}

	pred, err := h.Binder.KeyPredicate(ctx, desc, keyColumn, keyValue, false)
	if err != nil {
		return 0, err
	}
	query, args, err := h.Dialect.Builder().
		Delete(h.Dialect.QualifiedTable(schema, table)).
		Where(pred).
		ToSql()
	if err != nil {
		return 0, err
	}
	return h.exec(ctx, "delete", query, args)
}

// ObtainPasswordHash implements adapters.TableRepository.
func (h *TableHelper) ObtainPasswordHash(ctx context.Context, table, schema, userColumn, passwordColumn, userValue string) (*string, error) {
	if err := requireAll("table", table, "userColumn", userColumn, "passwordColumn", passwordColumn); err != nil {
		return nil, err
	}
	desc := adapters.TableDescriptor{Schema: schema, Name: table}

	pred, err := h.Binder.KeyPredicate(ctx, desc, userColumn, userValue, false)
	if err != nil {
		return nil, err
	}
	query, args, err := h.Dialect.Builder().
		Select(h.Dialect.QuoteIdentifier(passwordColumn)).
		From(h.Dialect.QualifiedTable(schema, table)).
		Where(pred).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := h.queryRows(ctx, "obtain_password_hash", query, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	_, v := rows[0].At(0)
	if v.IsNull() {
		return nil, nil
	}
	hash := v.String()
	return &hash, nil
}

func (h *TableHelper) quoteColumns(ctx context.Context, table adapters.TableDescriptor, data value.Row) []string {
	names := data.Columns()
	if r, ok := h.Binder.(ColumnResolver); ok {
		names = r.ColumnNames(ctx, table, names)
	}
	cols := make([]string, len(names))
	for i, name := range names {
		cols[i] = h.Dialect.QuoteIdentifier(name)
	}
	return cols
}

func (h *TableHelper) queryRows(ctx context.Context, op, query string, args []any) ([]value.Row, error) {
	ctx, cancel := WithTimeout(ctx, h.Timeout)
	defer cancel()

	h.Logger.Debug().Str("op", op).Str("sql", TruncateQuery(query)).Msg("executing")

	conn, err := h.Conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer CloseConn(conn, h.Logger)

	stmt, args := h.statement(query, args)
	rows, err := conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, WrapError(op, query, err, h.Classify)
	}
	defer rows.Close()

	_, out, err := ScanRows(rows, h.Decode)
	if err != nil {
		return nil, WrapError(op, query, err, h.Classify)
	}
	return out, nil
}

func (h *TableHelper) exec(ctx context.Context, op, query string, args []any) (int64, error) {
	ctx, cancel := WithTimeout(ctx, h.Timeout)
	defer cancel()

	h.Logger.Debug().Str("op", op).Str("sql", TruncateQuery(query)).Msg("executing")

	conn, err := h.Conn.Conn(ctx)
	if err != nil {
		return 0, err
	}
	defer CloseConn(conn, h.Logger)

	stmt, args := h.statement(query, args)
	res, err := conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, WrapError(op, query, err, h.Classify)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, WrapError(op, query, err, h.Classify)
	}
	return n, nil
}

func (h *TableHelper) statement(query string, args []any) (string, []any) {
	if h.Statement == nil {
		return query, args
	}
	return h.Statement(query, args)
}

// WithTimeout derives a context bounded by d; d <= 0 only adds cancellation.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// requireAll checks name/value pairs with RequireIdentifier.
func requireAll(pairs ...string) error {
	var errs []error
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := RequireIdentifier(pairs[i], pairs[i+1]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CloseConn closes a dedicated connection, logging failures.
func CloseConn(conn *sql.Conn, logger zerolog.Logger) {
	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		logger.Warn().Err(err).Msg("failed to release connection")
	}
}

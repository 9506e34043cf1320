package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

// search_path is changed for the session of one dedicated connection and
// reset before the connection goes back to the pool.
const (
	setSearchPath   = `SELECT set_config('search_path', $1, false)`
	resetSearchPath = `RESET search_path`
)

// QueryRepository - ad-hoc queries, routines and metadata for PostgreSQL
type QueryRepository struct {
	conn     *base.Connector
	catalog  adapters.ParameterCatalogResolver
	timeouts adapters.Timeouts
	logger   zerolog.Logger
}

var _ adapters.QueryRepository = (*QueryRepository)(nil)

// NewQueryRepository creates the repository. deps.Parameters replaces the
// information_schema routine catalog when set.
func NewQueryRepository(conn *base.Connector, deps adapters.Deps) *QueryRepository {
	timeouts := deps.Timeouts.WithDefaults()
	logger := deps.BackendLogger(DriverName)

	catalog := deps.Parameters
	if catalog == nil {
		catalog = NewParameterCatalog(conn, timeouts.Catalog, logger)
	}
	return &QueryRepository{
		conn:     conn,
		catalog:  catalog,
		timeouts: timeouts,
		logger:   logger,
	}
}

// ExecuteQuery implements adapters.QueryRepository. @name and :name markers
// become $n. A non-empty schema is put first on the search_path for this
// statement only.
func (r *QueryRepository) ExecuteQuery(ctx context.Context, sqlText string, params map[string]value.Value, maxRows int, schema string) (*value.Table, error) {
	if strings.TrimSpace(sqlText) == "" {
		return nil, adapters.InvalidInput("sqlText", "must not be empty")
	}
	limit, err := base.ResolveMaxRows(maxRows)
	if err != nil {
		return nil, err
	}

	query, values := base.RewriteNamed(sqlText, params, base.DollarPlaceholders)
	args := base.DriverValues(values)

	ctx, cancel := base.WithTimeout(ctx, r.timeouts.Query)
	defer cancel()

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer base.CloseConn(conn, r.logger)

	r.logger.Debug().Str("sql", base.TruncateQuery(query)).Int("params", len(args)).Str("schema", schema).Msg("executing query")

	var t *value.Table
	if s := strings.TrimSpace(schema); s != "" {
		t, err = r.queryInSchema(ctx, conn, s, query, args)
	} else {
		t, err = queryTable(ctx, conn, query, args)
	}
	if err != nil {
		return nil, base.WrapError("execute_query", query, err, classify)
	}
	base.WarnOnOverflow(r.logger, t, limit, sqlText)
	return t, nil
}

func (r *QueryRepository) queryInSchema(ctx context.Context, conn *sql.Conn, schema, query string, args []any) (*value.Table, error) {
	if _, err := conn.ExecContext(ctx, setSearchPath, base.PostgreSQL.QuoteIdentifier(schema)); err != nil {
		return nil, err
	}
	defer r.resetSearchPath(ctx, conn)
	return queryTable(ctx, conn, query, args)
}

// resetSearchPath runs even when ctx is done. A connection that cannot be
// reset is discarded instead of being reused with the wrong search_path.
func (r *QueryRepository) resetSearchPath(ctx context.Context, conn *sql.Conn) {
	ctx, cancel := base.WithTimeout(context.WithoutCancel(ctx), r.timeouts.Catalog)
	defer cancel()

	if _, err := conn.ExecContext(ctx, resetSearchPath); err != nil {
		r.logger.Warn().Err(err).Msg("failed to reset search_path, discarding connection")
		_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryTable(ctx context.Context, q queryer, query string, args []any) (*value.Table, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	t, err := base.ScanTable(rows, decodeColumn)
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return t, err
}

// ValidateQuery implements adapters.QueryRepository. The statement is
// prepared on the server, which parses it and resolves every object without
// running it.
func (r *QueryRepository) ValidateQuery(ctx context.Context, sqlText string, params map[string]value.Value) (adapters.ValidationResult, error) {
	if strings.TrimSpace(sqlText) == "" {
		return adapters.ValidationResult{Valid: false, Message: "query text is empty"}, nil
	}
	query, _ := base.RewriteNamed(sqlText, base.NullParams(params), base.DollarPlaceholders)

	ctx, cancel := base.WithTimeout(ctx, r.timeouts.Validate)
	defer cancel()

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return adapters.ValidationResult{Valid: false, Message: err.Error()}, nil
	}
	defer base.CloseConn(conn, r.logger)

	stmt, err := conn.PrepareContext(ctx, query)
	if err != nil {
		return invalid(err), nil
	}
	if err := stmt.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("failed to deallocate validation statement")
	}
	return adapters.ValidationResult{Valid: true}, nil
}

// ExecuteProcedure implements adapters.QueryRepository.
//
// Procedures run as CALL with every parameter in position, OUT ones as NULL;
// the single row CALL returns is echoed as one row per output parameter.
// Functions run as SELECT * FROM name(...) with their input parameters and
// return their rows as they are.
func (r *QueryRepository) ExecuteProcedure(ctx context.Context, name string, params map[string]value.Value) (*value.Table, error) {
	if strings.TrimSpace(name) == "" {
		return nil, adapters.InvalidInput("name", "must not be empty")
	}

	ctx, cancel := base.WithTimeout(ctx, r.timeouts.Procedure)
	defer cancel()

	schema, routine := base.SplitQualifiedName(name)
	info, err := r.catalog.Parameters(ctx, schema, routine)
	if err != nil {
		return nil, err
	}
	if info.Schema != "" {
		schema = info.Schema
	}
	call, args := r.buildCall(info, routineRef(schema, routine), params)

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer base.CloseConn(conn, r.logger)

	r.logger.Debug().Str("routine", call).Str("kind", string(info.Kind)).Int("params", len(args)).Msg("executing routine")

	data, err := queryTable(ctx, conn, call, args)
	if err != nil {
		return nil, base.WrapError("execute_procedure", call, err, classify)
	}
	if info.Kind != adapters.RoutineProcedure {
		return data, nil
	}

	result := base.ProcedureResult{Data: value.NewTable()}
	if data.Len() > 0 {
		first := data.Rows[0]
		for _, p := range info.Parameters {
			if !p.Mode.IsOutput() {
				continue
			}
			v, ok := first.Get(p.Name)
			if !ok {
				continue
			}
			result.Outputs = append(result.Outputs, value.P(p.Name, v))
		}
	}
	return result.Table(), nil
}

// buildCall renders the CALL or SELECT statement for routine and its
// positional arguments.
func (r *QueryRepository) buildCall(info adapters.RoutineInfo, routine string, params map[string]value.Value) (string, []any) {
	inputs := base.ResolveProcedureInputs(info, params)
	markers := make([]string, 0, len(inputs))
	args := make([]any, 0, len(inputs))

	for _, in := range inputs {
		if info.Kind != adapters.RoutineProcedure && in.Param.Mode == adapters.ParamOut {
			continue
		}
		v, err := coerce(in.Param.NativeType, in.Value)
		if err != nil {
			r.logger.Debug().Err(err).Str("param", in.Param.Name).Msg("conversion failed, binding raw string")
			v = in.Value
		}
		args = append(args, base.DriverValue(v))
		markers = append(markers, "$"+strconv.Itoa(len(args)))
	}

	if info.Kind == adapters.RoutineProcedure {
		return fmt.Sprintf("CALL %s(%s)", routine, strings.Join(markers, ", ")), args
	}
	return fmt.Sprintf("SELECT * FROM %s(%s)", routine, strings.Join(markers, ", ")), args
}

func routineRef(schema, name string) string {
	if schema == "" {
		return base.PostgreSQL.QuoteIdentifier(name)
	}
	return base.PostgreSQL.QuoteIdentifier(schema) + "." + base.PostgreSQL.QuoteIdentifier(name)
}

// invalid turns a validation failure into a result message.
func invalid(err error) adapters.ValidationResult {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		category, _ := classify(err)
		return adapters.ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("%s (SQLSTATE %s): %s", category.Describe(), pgErr.Code, pgErr.Message),
		}
	}
	if cat, ok := adapters.ContextCategory(err); ok {
		return adapters.ValidationResult{Valid: false, Message: cat.Describe()}
	}
	return adapters.ValidationResult{Valid: false, Message: err.Error()}
}

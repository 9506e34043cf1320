package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

// sessionPrefix names the user variables that carry OUT and INOUT values
// across the CALL.
const sessionPrefix = "@dbgate_"

// QueryRepository - ad-hoc queries, routines and metadata for MySQL
type QueryRepository struct {
	conn     *base.Connector
	catalog  adapters.ParameterCatalogResolver
	database func() string
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
		database: func() string { return dsnDatabase(deps.Connections) },
		timeouts: timeouts,
		logger:   logger,
	}
}

// ExecuteQuery implements adapters.QueryRepository. @name and :name markers
// whose name is in params become ?; other @ markers are user variables and
// stay. schema is accepted for interface parity; unqualified names resolve
// in the connection's database.
func (r *QueryRepository) ExecuteQuery(ctx context.Context, sqlText string, params map[string]value.Value, maxRows int, schema string) (*value.Table, error) {
	if strings.TrimSpace(sqlText) == "" {
		return nil, adapters.InvalidInput("sqlText", "must not be empty")
	}
	limit, err := base.ResolveMaxRows(maxRows)
	if err != nil {
		return nil, err
	}

	query, values := base.RewriteNamed(sqlText, params, base.QuestionPlaceholders)
	args := base.DriverValues(values)

	ctx, cancel := base.WithTimeout(ctx, r.timeouts.Query)
	defer cancel()

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer base.CloseConn(conn, r.logger)

	r.logger.Debug().Str("sql", base.TruncateQuery(query)).Int("params", len(args)).Msg("executing query")

	t, err := queryTable(ctx, conn, query, args)
	if err != nil {
		return nil, base.WrapError("execute_query", query, err, classify)
	}
	base.WarnOnOverflow(r.logger, t, limit, sqlText)
	return t, nil
}

// queryTable returns the first result set and discards any others.
func queryTable(ctx context.Context, conn *sql.Conn, query string, args []any) (*value.Table, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	t, err := base.ScanTable(rows, decodeColumn)
	for err == nil && rows.NextResultSet() {
		for rows.Next() {
		}
		err = rows.Err()
	}
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return t, err
}

// ValidateQuery implements adapters.QueryRepository. The statement is
// prepared on the server and deallocated without being executed.
func (r *QueryRepository) ValidateQuery(ctx context.Context, sqlText string, params map[string]value.Value) (adapters.ValidationResult, error) {
	if strings.TrimSpace(sqlText) == "" {
		return adapters.ValidationResult{Valid: false, Message: "query text is empty"}, nil
	}
	query, _ := base.RewriteNamed(sqlText, base.NullParams(params), base.QuestionPlaceholders)

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
// OUT and INOUT parameters are passed as session variables: they are set
// before the CALL and read back with SELECT on the same connection, then
// echoed after the data rows. Stored functions are evaluated with SELECT.
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
	ref := base.MySQL.QualifiedTable(schema, routine)
	inputs := base.ResolveProcedureInputs(info, params)

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer base.CloseConn(conn, r.logger)

	if info.Kind == adapters.RoutineFunction {
		return r.callFunction(ctx, conn, ref, routine, inputs)
	}
	return r.callProcedure(ctx, conn, ref, inputs)
}

func (r *QueryRepository) callFunction(ctx context.Context, conn *sql.Conn, ref, routine string, inputs []base.ProcedureInput) (*value.Table, error) {
	markers := make([]string, len(inputs))
	args := make([]any, len(inputs))
	for i, in := range inputs {
		markers[i] = "?"
		args[i] = base.DriverValue(in.Value)
	}
	query := fmt.Sprintf("SELECT %s(%s) AS %s", ref, strings.Join(markers, ", "), base.MySQL.QuoteIdentifier(routine))

	r.logger.Debug().Str("routine", ref).Int("params", len(args)).Msg("executing function")

	t, err := queryTable(ctx, conn, query, args)
	if err != nil {
		return nil, base.WrapError("execute_procedure", query, err, classify)
	}
	return t, nil
}

func (r *QueryRepository) callProcedure(ctx context.Context, conn *sql.Conn, ref string, inputs []base.ProcedureInput) (*value.Table, error) {
	var (
		markers  = make([]string, 0, len(inputs))
		args     = make([]any, 0, len(inputs))
		assigns  []string
		initArgs []any
		outputs  []adapters.ParameterMetadata
	)
	for _, in := range inputs {
		if !in.Param.Mode.IsOutput() {
			markers = append(markers, "?")
			args = append(args, base.DriverValue(in.Value))
			continue
		}
		v := sessionVariable(in.Param)
		markers = append(markers, v)
		assigns = append(assigns, v+" = ?")
		initArgs = append(initArgs, base.DriverValue(in.Value))
		outputs = append(outputs, in.Param)
	}

	if len(assigns) > 0 {
		set := "SET " + strings.Join(assigns, ", ")
		if _, err := conn.ExecContext(ctx, set, initArgs...); err != nil {
			return nil, base.WrapError("execute_procedure", set, err, classify)
		}
	}

	call := fmt.Sprintf("CALL %s(%s)", ref, strings.Join(markers, ", "))
	r.logger.Debug().Str("routine", ref).Int("params", len(markers)).Msg("executing procedure")

	data, err := queryTable(ctx, conn, call, args)
	if err != nil {
		return nil, base.WrapError("execute_procedure", call, err, classify)
	}

	result := base.ProcedureResult{Data: data}
	if len(outputs) > 0 {
		result.Outputs, err = readOutputs(ctx, conn, outputs)
		if err != nil {
			return nil, err
		}
	}
	return result.Table(), nil
}

// readOutputs selects the session variables of outputs in one round trip.
func readOutputs(ctx context.Context, conn *sql.Conn, outputs []adapters.ParameterMetadata) ([]value.Pair, error) {
	cols := make([]string, len(outputs))
	for i, p := range outputs {
		cols[i] = sessionVariable(p)
	}
	query := "SELECT " + strings.Join(cols, ", ")

	raw := make([]any, len(outputs))
	ptrs := make([]any, len(outputs))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := conn.QueryRowContext(ctx, query).Scan(ptrs...); err != nil {
		return nil, base.WrapError("execute_procedure", query, err, classify)
	}

	pairs := make([]value.Pair, len(outputs))
	for i, p := range outputs {
		v, err := value.FromDriver(raw[i], KindOf(p.NativeType))
		if err != nil {
			return nil, fmt.Errorf("output parameter %s: %w", p.Name, err)
		}
		pairs[i] = value.P(p.Name, v)
	}
	return pairs, nil
}

// sessionVariable builds the user variable for a parameter. The ordinal
// position keeps names apart once characters that are not valid in an
// unquoted variable name have been dropped.
func sessionVariable(param adapters.ParameterMetadata) string {
	var b strings.Builder
	b.WriteString(sessionPrefix)
	b.WriteString(strconv.Itoa(param.Position))
	b.WriteByte('_')
	for _, c := range base.NormalizeParamName(param.Name) {
		if c == '_' || c == '$' || c == '.' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// invalid turns a validation failure into a result message.
func invalid(err error) adapters.ValidationResult {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		category, _ := classify(err)
		return adapters.ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("%s (error %d): %s", category.Describe(), myErr.Number, myErr.Message),
		}
	}
	if cat, ok := adapters.ContextCategory(err); ok {
		return adapters.ValidationResult{Valid: false, Message: cat.Describe()}
	}
	return adapters.ValidationResult{Valid: false, Message: err.Error()}
}

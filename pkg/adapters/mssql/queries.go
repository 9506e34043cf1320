package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

// describeQuery resolves objects and parameter types without executing.
const describeQuery = `EXEC sp_describe_first_result_set @tsql = @p1, @params = @p2`

// QueryRepository - ad-hoc queries, procedures and metadata for SQL Server
type QueryRepository struct {
	conn     *base.Connector
	catalog  adapters.ParameterCatalogResolver
	timeouts adapters.Timeouts
	logger   zerolog.Logger
}

var _ adapters.QueryRepository = (*QueryRepository)(nil)

// NewQueryRepository creates the repository. deps.Parameters replaces the
// sys.parameters catalog when set.
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

// ExecuteQuery implements adapters.QueryRepository. With parameters the text
// runs through sp_executesql, declared with the types chosen by Bind. schema
// is accepted for interface parity; SQL Server resolves unqualified names
// through the login's default schema.
func (r *QueryRepository) ExecuteQuery(ctx context.Context, sqlText string, params map[string]value.Value, maxRows int, schema string) (*value.Table, error) {
	if strings.TrimSpace(sqlText) == "" {
		return nil, adapters.InvalidInput("sqlText", "must not be empty")
	}
	limit, err := base.ResolveMaxRows(maxRows)
	if err != nil {
		return nil, err
	}

	ctx, cancel := base.WithTimeout(ctx, r.timeouts.Query)
	defer cancel()

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer base.CloseConn(conn, r.logger)

	r.logger.Debug().Str("sql", base.TruncateQuery(sqlText)).Int("params", len(params)).Msg("executing query")

	names, bindings := boundParams(params)
	stmt, args := typedCall(sqlText, names, bindings)
	rows, err := conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, base.WrapError("execute_query", sqlText, err, classify)
	}
	defer rows.Close()

	t, err := base.ScanTable(rows, decodeColumn)
	if err != nil {
		return nil, base.WrapError("execute_query", sqlText, err, classify)
	}
	base.WarnOnOverflow(r.logger, t, limit, sqlText)
	return t, nil
}

// ValidateQuery implements adapters.QueryRepository.
//
// Syntax is checked by sending the text under SET PARSEONLY ON, preceded by
// a DECLARE of the parameters so @name references parse; object names and
// parameter types are then resolved with sp_describe_first_result_set.
// Neither step executes the statement.
func (r *QueryRepository) ValidateQuery(ctx context.Context, sqlText string, params map[string]value.Value) (adapters.ValidationResult, error) {
	if strings.TrimSpace(sqlText) == "" {
		return adapters.ValidationResult{Valid: false, Message: "query text is empty"}, nil
	}

	ctx, cancel := base.WithTimeout(ctx, r.timeouts.Validate)
	defer cancel()

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return adapters.ValidationResult{Valid: false, Message: err.Error()}, nil
	}
	defer base.CloseConn(conn, r.logger)

	if _, err := conn.ExecContext(ctx, "SET PARSEONLY ON"); err != nil {
		return invalid(err), nil
	}
	declared := declareParams(params)
	batch := sqlText
	if declared != "" {
		batch = "DECLARE " + declared + ";\n" + sqlText
	}
	_, parseErr := conn.ExecContext(ctx, batch)
	if _, err := conn.ExecContext(ctx, "SET PARSEONLY OFF"); err != nil {
		r.logger.Warn().Err(err).Msg("failed to reset PARSEONLY")
	}
	if parseErr != nil {
		return invalid(parseErr), nil
	}

	var describeParams any
	if declared != "" {
		describeParams = declared
	}
	rows, err := conn.QueryContext(ctx, describeQuery, sqlText, describeParams)
	if err != nil {
		return invalid(err), nil
	}
	for rows.Next() {
	}
	err = rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return invalid(err), nil
	}
	return adapters.ValidationResult{Valid: true}, nil
}

// ExecuteProcedure implements adapters.QueryRepository. The routine is
// invoked as an RPC, so the server converts each argument to the type the
// procedure declares; OUTPUT parameters are bound with sql.Out and echoed as
// trailing rows after the data rows.
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

	inputs := base.ResolveProcedureInputs(info, params)
	args := make([]any, 0, len(inputs))
	outputs := make([]outputParam, 0)
	for _, in := range inputs {
		argName := strings.TrimPrefix(in.Param.Name, "@")
		if in.Param.Mode.IsOutput() {
			kind := KindOf(in.Param.NativeType)
			dest := outDest(kind, in.Value)
			outputs = append(outputs, outputParam{name: argName, kind: kind, dest: dest})
			args = append(args, sql.Named(argName, sql.Out{Dest: dest, In: in.Param.Mode.AcceptsInput()}))
			continue
		}
		args = append(args, sql.Named(argName, Bind(in.Value).Arg))
	}

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer base.CloseConn(conn, r.logger)

	call := base.SQLServer.QualifiedRoutine(name)
	r.logger.Debug().Str("procedure", call).Int("params", len(args)).Msg("executing procedure")

	rows, err := conn.QueryContext(ctx, call, args...)
	if err != nil {
		return nil, base.WrapError("execute_procedure", call, err, classify)
	}
	data, err := base.ScanTable(rows, decodeColumn)
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, base.WrapError("execute_procedure", call, err, classify)
	}

	result := base.ProcedureResult{Data: data}
	for _, o := range outputs {
		v, err := value.FromDriver(readOut(o.dest), o.kind)
		if err != nil {
			return nil, fmt.Errorf("output parameter %s: %w", o.name, err)
		}
		result.Outputs = append(result.Outputs, value.P(o.name, v))
	}
	return result.Table(), nil
}

type outputParam struct {
	name string
	kind value.Kind
	dest any
}

// outDest allocates the sql.Out destination for a parameter of kind k,
// pre-loaded with the caller's input.
func outDest(k value.Kind, in value.Value) any {
	switch {
	case k.IsInteger():
		i, ok := in.Int()
		return &sql.NullInt64{Int64: i, Valid: ok}
	case k == value.KindFloat64:
		f, ok := in.Float()
		return &sql.NullFloat64{Float64: f, Valid: ok && !in.IsNull()}
	case k == value.KindBool:
		b, ok := in.BoolValue()
		return &sql.NullBool{Bool: b, Valid: ok}
	case k == value.KindDate || k == value.KindDateTime || k == value.KindDateTimeTZ:
		t, ok := in.Time()
		return &sql.NullTime{Time: t, Valid: ok}
	default:
		return &sql.NullString{String: in.String(), Valid: !in.IsNull()}
	}
}

func readOut(dest any) any {
	switch d := dest.(type) {
	case *sql.NullInt64:
		if d.Valid {
			return d.Int64
		}
	case *sql.NullFloat64:
		if d.Valid {
			return d.Float64
		}
	case *sql.NullBool:
		if d.Valid {
			return d.Bool
		}
	case *sql.NullTime:
		if d.Valid {
			return d.Time
		}
	case *sql.NullString:
		if d.Valid {
			return d.String
		}
	}
	return nil
}

// boundParams binds params by normalized name, sorted for a stable order.
func boundParams(params map[string]value.Value) ([]string, []Binding) {
	norm := base.NormalizeParams(params)
	names := make([]string, 0, len(norm))
	for n := range norm {
		names = append(names, n)
	}
	sort.Strings(names)

	bindings := make([]Binding, len(names))
	for i, n := range names {
		bindings[i] = Bind(norm[n])
	}
	return names, bindings
}

// declareParams renders params as a T-SQL declaration list, the form taken
// by DECLARE and by the @params argument of sp_describe_first_result_set.
func declareParams(params map[string]value.Value) string {
	names, bindings := boundParams(params)
	decls := make([]string, len(names))
	for i, n := range names {
		decls[i] = "@" + n + " " + bindings[i].Declaration()
	}
	return strings.Join(decls, ", ")
}

// invalid turns a validation failure into a result message.
func invalid(err error) adapters.ValidationResult {
	var sqlErr mssql.Error
	if errors.As(err, &sqlErr) {
		category, _ := classify(err)
		return adapters.ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("%s (error %d): %s", category.Describe(), sqlErr.Number, sqlErr.Message),
		}
	}
	if cat, ok := adapters.ContextCategory(err); ok {
		return adapters.ValidationResult{Valid: false, Message: cat.Describe()}
	}
	return adapters.ValidationResult{Valid: false, Message: err.Error()}
}

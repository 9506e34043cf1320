package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
)

// sys.parameters marks OUTPUT parameters with is_output; SQL Server has no
// output-only parameters, so every one of them is INOUT. parameter_id 0 is
// the return value of scalar functions.
const parametersQuery = `
SELECT p.name, p.is_output, TYPE_NAME(p.user_type_id), p.parameter_id, p.max_length,
       CASE WHEN o.type IN ('FN', 'IF', 'TF', 'FS', 'FT') THEN 'FUNCTION' ELSE 'PROCEDURE' END
FROM sys.objects o
LEFT JOIN sys.parameters p ON p.object_id = o.object_id AND p.parameter_id > 0
WHERE o.object_id = OBJECT_ID(@p1)
ORDER BY p.parameter_id`

// ParameterCatalog reads routine parameters from sys.parameters.
type ParameterCatalog struct {
	conn    *base.Connector
	timeout time.Duration
	logger  zerolog.Logger
}

var _ adapters.ParameterCatalogResolver = (*ParameterCatalog)(nil)

// NewParameterCatalog creates a catalog-backed resolver.
func NewParameterCatalog(conn *base.Connector, timeout time.Duration, logger zerolog.Logger) *ParameterCatalog {
	return &ParameterCatalog{conn: conn, timeout: timeout, logger: logger}
}

// Parameters implements adapters.ParameterCatalogResolver. An empty schema
// resolves through the caller's default schema.
func (c *ParameterCatalog) Parameters(ctx context.Context, schema, routine string) (adapters.RoutineInfo, error) {
	info := adapters.RoutineInfo{Schema: schema, Name: routine, Kind: adapters.RoutineProcedure}

	qualified := base.SQLServer.QuoteIdentifier(routine)
	if schema != "" {
		qualified = base.SQLServer.QuoteIdentifier(schema) + "." + qualified
	}

	ctx, cancel := base.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.conn.Conn(ctx)
	if err != nil {
		return info, err
	}
	defer base.CloseConn(conn, c.logger)

	rows, err := conn.QueryContext(ctx, parametersQuery, qualified)
	if err != nil {
		return info, base.WrapError("parameter_catalog", parametersQuery, err, classify)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var (
			name      sql.NullString
			isOutput  sql.NullBool
			typeName  sql.NullString
			position  sql.NullInt64
			maxLength sql.NullInt64
			kind      string
		)
		if err := rows.Scan(&name, &isOutput, &typeName, &position, &maxLength, &kind); err != nil {
			return info, base.WrapError("parameter_catalog", parametersQuery, err, classify)
		}
		found = true
		info.Kind = adapters.RoutineKind(kind)
		if !name.Valid {
			// routine without parameters
			continue
		}
		mode := adapters.ParamIn
		if isOutput.Bool {
			mode = adapters.ParamInOut
		}
		info.Parameters = append(info.Parameters, adapters.ParameterMetadata{
			Name:       name.String,
			Mode:       mode,
			NativeType: typeName.String,
			Position:   int(position.Int64),
			MaxLength:  maxLength.Int64,
		})
	}
	if err := rows.Err(); err != nil {
		return info, base.WrapError("parameter_catalog", parametersQuery, err, classify)
	}
	if !found {
		return info, &adapters.OperationError{
			Op:       "parameter_catalog",
			Category: adapters.CategoryUnknownRoutine,
			Cause:    fmt.Errorf("routine %s not found", qualified),
		}
	}
	return info, nil
}

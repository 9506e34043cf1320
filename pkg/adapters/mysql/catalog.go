package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
)

// ORDINAL_POSITION 0 is the return value of a stored function.
const parametersQuery = `
SELECT r.ROUTINE_SCHEMA, r.ROUTINE_TYPE,
       p.PARAMETER_NAME, p.PARAMETER_MODE, p.DATA_TYPE, p.ORDINAL_POSITION, p.CHARACTER_MAXIMUM_LENGTH
FROM information_schema.ROUTINES r
LEFT JOIN information_schema.PARAMETERS p
       ON p.SPECIFIC_SCHEMA = r.ROUTINE_SCHEMA AND p.SPECIFIC_NAME = r.SPECIFIC_NAME
      AND p.ORDINAL_POSITION > 0
WHERE r.ROUTINE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
  AND r.ROUTINE_NAME = ?
ORDER BY p.ORDINAL_POSITION`

// ParameterCatalog reads routine parameters from information_schema.
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
// means the connection's current database.
func (c *ParameterCatalog) Parameters(ctx context.Context, schema, routine string) (adapters.RoutineInfo, error) {
	info := adapters.RoutineInfo{Schema: schema, Name: routine}

	ctx, cancel := base.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.conn.Conn(ctx)
	if err != nil {
		return info, err
	}
	defer base.CloseConn(conn, c.logger)

	rows, err := conn.QueryContext(ctx, parametersQuery, schema, routine)
	if err != nil {
		return info, base.WrapError("parameter_catalog", parametersQuery, err, classify)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var (
			routineSchema string
			routineType   string
			name          sql.NullString
			mode          sql.NullString
			typeName      sql.NullString
			position      sql.NullInt64
			maxLength     sql.NullInt64
		)
		if err := rows.Scan(&routineSchema, &routineType, &name, &mode, &typeName, &position, &maxLength); err != nil {
			return info, base.WrapError("parameter_catalog", parametersQuery, err, classify)
		}
		found = true
		info.Schema = routineSchema
		info.Kind = adapters.RoutineKind(routineType)
		if !position.Valid {
			continue
		}
		info.Parameters = append(info.Parameters, adapters.ParameterMetadata{
			Name:       name.String,
			Mode:       adapters.ParseParamMode(mode.String),
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
			Cause:    fmt.Errorf("routine %s not found", adapters.TableDescriptor{Schema: schema, Name: routine}),
		}
	}
	return info, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
)

// Overloaded routines have several specific_name values; the first one in
// name order wins. Routines with no parameters come back as a single row of
// NULL parameter columns.
const parametersQuery = `
SELECT r.specific_name, r.routine_schema, r.routine_type,
       p.parameter_name, p.parameter_mode,
       CASE WHEN p.data_type IN ('USER-DEFINED', 'ARRAY') THEN p.udt_name ELSE p.data_type END,
       p.ordinal_position, p.character_maximum_length
FROM information_schema.routines r
LEFT JOIN information_schema.parameters p
       ON p.specific_schema = r.specific_schema AND p.specific_name = r.specific_name
WHERE r.routine_schema = COALESCE(NULLIF($1, ''), current_schema())
  AND r.routine_name = $2
ORDER BY r.specific_name, p.ordinal_position`

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
// means the first schema of the search_path.
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

	specific := ""
	for rows.Next() {
		var (
			specificName  string
			routineSchema string
			routineType   sql.NullString
			name          sql.NullString
			mode          sql.NullString
			typeName      sql.NullString
			position      sql.NullInt64
			maxLength     sql.NullInt64
		)
		if err := rows.Scan(&specificName, &routineSchema, &routineType, &name, &mode, &typeName, &position, &maxLength); err != nil {
			return info, base.WrapError("parameter_catalog", parametersQuery, err, classify)
		}
		if specific == "" {
			specific = specificName
			info.Schema = routineSchema
			info.Kind = adapters.RoutineFunction
			if routineType.String == string(adapters.RoutineProcedure) {
				info.Kind = adapters.RoutineProcedure
			}
		} else if specificName != specific {
			c.logger.Debug().Str("routine", routine).Msg("overloaded routine, using first signature")
			break
		}
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
	if specific == "" {
		return info, &adapters.OperationError{
			Op:       "parameter_catalog",
			Category: adapters.CategoryUnknownRoutine,
			Cause:    fmt.Errorf("routine %s not found", adapters.TableDescriptor{Schema: schema, Name: routine}),
		}
	}
	return info, nil
}

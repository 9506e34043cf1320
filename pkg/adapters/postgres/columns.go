package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
)

// USER-DEFINED and ARRAY columns report their real name in udt_name.
const columnTypesQuery = `
SELECT column_name,
       CASE WHEN data_type IN ('USER-DEFINED', 'ARRAY') THEN udt_name ELSE data_type END
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2`

// ColumnCatalog resolves column types from information_schema.columns.
type ColumnCatalog struct {
	conn    *base.Connector
	timeout time.Duration
	logger  zerolog.Logger
}

var _ adapters.ColumnTypeResolver = (*ColumnCatalog)(nil)

// NewColumnCatalog creates a catalog-backed resolver.
func NewColumnCatalog(conn *base.Connector, timeout time.Duration, logger zerolog.Logger) *ColumnCatalog {
	return &ColumnCatalog{conn: conn, timeout: timeout, logger: logger}
}

// ColumnTypes implements adapters.ColumnTypeResolver. An empty schema means
// public. Keys keep the catalog spelling, since a quoted "ID" and "id" are
// different columns. A table that does not exist yields an empty map.
func (c *ColumnCatalog) ColumnTypes(ctx context.Context, table adapters.TableDescriptor) (map[string]string, error) {
	schema := strings.TrimSpace(table.Schema)
	if schema == "" {
		schema = DefaultSchema
	}

	ctx, cancel := base.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer base.CloseConn(conn, c.logger)

	rows, err := conn.QueryContext(ctx, columnTypesQuery, schema, table.Name)
	if err != nil {
		return nil, base.WrapError("column_types", columnTypesQuery, err, classify)
	}
	defer rows.Close()

	types := make(map[string]string)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, base.WrapError("column_types", columnTypesQuery, err, classify)
		}
		types[name] = dataType
	}
	if err := rows.Err(); err != nil {
		return nil, base.WrapError("column_types", columnTypesQuery, err, classify)
	}
	return types, nil
}

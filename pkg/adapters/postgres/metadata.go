package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

const tableSchemasQuery = `
SELECT table_schema
FROM information_schema.tables
WHERE table_name = $1`

const tableStructureQuery = `
SELECT c.column_name, c.data_type, c.character_maximum_length, c.is_nullable, c.column_default,
       (c.is_identity = 'YES' OR COALESCE(c.column_default, '') LIKE 'nextval(%') AS is_identity,
       EXISTS (
           SELECT 1
           FROM information_schema.table_constraints tc
           JOIN information_schema.key_column_usage k
             ON k.constraint_schema = tc.constraint_schema AND k.constraint_name = tc.constraint_name
           WHERE tc.constraint_type = 'PRIMARY KEY'
             AND tc.table_schema = c.table_schema AND tc.table_name = c.table_name
             AND k.column_name = c.column_name
       ) AS is_primary_key
FROM information_schema.columns c
WHERE c.table_schema = $1 AND c.table_name = $2
ORDER BY c.ordinal_position`

// information_schema only covers the current database; a different
// databaseName therefore yields an empty table.
const databaseStructureQuery = `
SELECT t.table_schema AS schema_name,
       t.table_name AS table_name,
       c.column_name AS column_name,
       c.data_type AS data_type,
       c.character_maximum_length AS max_length,
       c.is_nullable AS is_nullable,
       CASE WHEN c.is_identity = 'YES' OR COALESCE(c.column_default, '') LIKE 'nextval(%'
            THEN 'YES' ELSE 'NO' END AS is_identity,
       c.ordinal_position AS ordinal_position
FROM information_schema.tables t
JOIN information_schema.columns c
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE t.table_type = 'BASE TABLE'
  AND t.table_schema NOT IN ('pg_catalog', 'information_schema')
  AND ($1 = '' OR t.table_catalog = $1)
ORDER BY t.table_schema, t.table_name, c.ordinal_position`

// ObtainTableSchema implements adapters.QueryRepository. Without a
// defaultSchema, public is preferred.
func (r *QueryRepository) ObtainTableSchema(ctx context.Context, table, defaultSchema string) (*string, error) {
	if err := base.RequireIdentifier("table", table); err != nil {
		return nil, err
	}
	if strings.TrimSpace(defaultSchema) == "" {
		defaultSchema = DefaultSchema
	}

	var schemas []string
	err := r.withConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, tableSchemasQuery, table)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				return err
			}
			schemas = append(schemas, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, base.WrapError("obtain_table_schema", tableSchemasQuery, err, classify)
	}
	return base.PickSchema(schemas, defaultSchema), nil
}

// ObtainTableStructure implements adapters.QueryRepository. An empty schema
// means public.
func (r *QueryRepository) ObtainTableStructure(ctx context.Context, table, schema string) ([]adapters.ColumnMetadata, error) {
	if err := base.RequireIdentifier("table", table); err != nil {
		return nil, err
	}
	if strings.TrimSpace(schema) == "" {
		schema = DefaultSchema
	}

	var cols []adapters.ColumnMetadata
	err := r.withConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, tableStructureQuery, schema, table)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				col       adapters.ColumnMetadata
				maxLength sql.NullInt64
				nullable  string
				def       sql.NullString
			)
			if err := rows.Scan(&col.Name, &col.NativeType, &maxLength, &nullable, &def, &col.IsIdentity, &col.IsPrimaryKey); err != nil {
				return err
			}
			col.Nullable = strings.EqualFold(nullable, "YES")
			if maxLength.Valid {
				n := maxLength.Int64
				col.MaxLength = &n
			}
			if def.Valid {
				d := def.String
				col.Default = &d
			}
			cols = append(cols, col)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, base.WrapError("obtain_table_structure", tableStructureQuery, err, classify)
	}
	return cols, nil
}

// ObtainDatabaseStructure implements adapters.QueryRepository.
func (r *QueryRepository) ObtainDatabaseStructure(ctx context.Context, databaseName string) (*value.Table, error) {
	var t *value.Table
	err := r.withConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		var err error
		t, err = queryTable(ctx, conn, databaseStructureQuery, []any{strings.TrimSpace(databaseName)})
		return err
	})
	if err != nil {
		return nil, base.WrapError("obtain_database_structure", databaseStructureQuery, err, classify)
	}
	return t, nil
}

// withConn runs fn on a dedicated connection under the catalog timeout.
func (r *QueryRepository) withConn(ctx context.Context, fn func(context.Context, *sql.Conn) error) error {
	ctx, cancel := base.WithTimeout(ctx, r.timeouts.Catalog)
	defer cancel()

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return err
	}
	defer base.CloseConn(conn, r.logger)
	return fn(ctx, conn)
}

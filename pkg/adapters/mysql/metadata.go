package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

const tableSchemasQuery = `
SELECT TABLE_SCHEMA
FROM information_schema.TABLES
WHERE TABLE_NAME = ?`

const tableStructureQuery = `
SELECT COLUMN_NAME, DATA_TYPE, CHARACTER_MAXIMUM_LENGTH, IS_NULLABLE, COLUMN_DEFAULT,
       EXTRA LIKE '%auto_increment%', COLUMN_KEY = 'PRI'
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE()) AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`

const databaseStructureQuery = `
SELECT t.TABLE_SCHEMA AS schema_name,
       t.TABLE_NAME AS table_name,
       c.COLUMN_NAME AS column_name,
       c.DATA_TYPE AS data_type,
       c.CHARACTER_MAXIMUM_LENGTH AS max_length,
       c.IS_NULLABLE AS is_nullable,
       CASE WHEN c.EXTRA LIKE '%auto_increment%' THEN 'YES' ELSE 'NO' END AS is_identity,
       c.ORDINAL_POSITION AS ordinal_position
FROM information_schema.TABLES t
JOIN information_schema.COLUMNS c
  ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
WHERE t.TABLE_TYPE = 'BASE TABLE'
  AND t.TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
ORDER BY t.TABLE_NAME, c.ORDINAL_POSITION`

// ObtainTableSchema implements adapters.QueryRepository. Schemas are
// databases in MySQL; without a defaultSchema the database of the
// connection string is preferred.
func (r *QueryRepository) ObtainTableSchema(ctx context.Context, table, defaultSchema string) (*string, error) {
	if err := base.RequireIdentifier("table", table); err != nil {
		return nil, err
	}
	if strings.TrimSpace(defaultSchema) == "" {
		defaultSchema = r.database()
	}

	ctx, cancel := base.WithTimeout(ctx, r.timeouts.Catalog)
	defer cancel()

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer base.CloseConn(conn, r.logger)

	rows, err := conn.QueryContext(ctx, tableSchemasQuery, table)
	if err != nil {
		return nil, base.WrapError("obtain_table_schema", tableSchemasQuery, err, classify)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, base.WrapError("obtain_table_schema", tableSchemasQuery, err, classify)
		}
		schemas = append(schemas, s)
	}
	if err := rows.Err(); err != nil {
		return nil, base.WrapError("obtain_table_schema", tableSchemasQuery, err, classify)
	}
	return base.PickSchema(schemas, defaultSchema), nil
}

// ObtainTableStructure implements adapters.QueryRepository. An empty schema
// means the current database.
func (r *QueryRepository) ObtainTableStructure(ctx context.Context, table, schema string) ([]adapters.ColumnMetadata, error) {
	if err := base.RequireIdentifier("table", table); err != nil {
		return nil, err
	}

	ctx, cancel := base.WithTimeout(ctx, r.timeouts.Catalog)
	defer cancel()

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer base.CloseConn(conn, r.logger)

	rows, err := conn.QueryContext(ctx, tableStructureQuery, strings.TrimSpace(schema), table)
	if err != nil {
		return nil, base.WrapError("obtain_table_structure", tableStructureQuery, err, classify)
	}
	defer rows.Close()

	var cols []adapters.ColumnMetadata
	for rows.Next() {
		var (
			col       adapters.ColumnMetadata
			maxLength sql.NullInt64
			nullable  string
			def       sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.NativeType, &maxLength, &nullable, &def, &col.IsIdentity, &col.IsPrimaryKey); err != nil {
			return nil, base.WrapError("obtain_table_structure", tableStructureQuery, err, classify)
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
	if err := rows.Err(); err != nil {
		return nil, base.WrapError("obtain_table_structure", tableStructureQuery, err, classify)
	}
	return cols, nil
}

// ObtainDatabaseStructure implements adapters.QueryRepository. An empty
// databaseName means the current database.
func (r *QueryRepository) ObtainDatabaseStructure(ctx context.Context, databaseName string) (*value.Table, error) {
	ctx, cancel := base.WithTimeout(ctx, r.timeouts.Catalog)
	defer cancel()

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer base.CloseConn(conn, r.logger)

	t, err := queryTable(ctx, conn, databaseStructureQuery, []any{strings.TrimSpace(databaseName)})
	if err != nil {
		return nil, base.WrapError("obtain_database_structure", databaseStructureQuery, err, classify)
	}
	return t, nil
}

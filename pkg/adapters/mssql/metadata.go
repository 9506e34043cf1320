package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

const tableSchemasQuery = `
SELECT TABLE_SCHEMA
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_NAME = @p1`

const tableStructureQuery = `
SELECT c.COLUMN_NAME, c.DATA_TYPE, c.CHARACTER_MAXIMUM_LENGTH, c.IS_NULLABLE, c.COLUMN_DEFAULT,
       COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsIdentity'),
       CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END
FROM INFORMATION_SCHEMA.COLUMNS c
LEFT JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE pk
       ON pk.TABLE_SCHEMA = c.TABLE_SCHEMA AND pk.TABLE_NAME = c.TABLE_NAME
      AND pk.COLUMN_NAME = c.COLUMN_NAME
      AND OBJECTPROPERTY(OBJECT_ID(QUOTENAME(pk.CONSTRAINT_SCHEMA) + '.' + QUOTENAME(pk.CONSTRAINT_NAME)), 'IsPrimaryKey') = 1
WHERE c.TABLE_NAME = @p1 AND c.TABLE_SCHEMA = @p2
ORDER BY c.ORDINAL_POSITION`

// databaseStructureQuery takes the catalog prefix ("" or "[db].") twice.
const databaseStructureQuery = `
SELECT t.TABLE_SCHEMA AS schema_name,
       t.TABLE_NAME AS table_name,
       c.COLUMN_NAME AS column_name,
       c.DATA_TYPE AS data_type,
       c.CHARACTER_MAXIMUM_LENGTH AS max_length,
       c.IS_NULLABLE AS is_nullable,
       CASE WHEN COLUMNPROPERTY(OBJECT_ID(%[2]s + QUOTENAME(t.TABLE_SCHEMA) + '.' + QUOTENAME(t.TABLE_NAME)), c.COLUMN_NAME, 'IsIdentity') = 1
            THEN 'YES' ELSE 'NO' END AS is_identity,
       c.ORDINAL_POSITION AS ordinal_position
FROM %[1]sINFORMATION_SCHEMA.TABLES t
JOIN %[1]sINFORMATION_SCHEMA.COLUMNS c
  ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
WHERE t.TABLE_TYPE = 'BASE TABLE'
ORDER BY t.TABLE_SCHEMA, t.TABLE_NAME, c.ORDINAL_POSITION`

// ObtainTableSchema implements adapters.QueryRepository.
func (r *QueryRepository) ObtainTableSchema(ctx context.Context, table, defaultSchema string) (*string, error) {
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
// means dbo.
func (r *QueryRepository) ObtainTableStructure(ctx context.Context, table, schema string) ([]adapters.ColumnMetadata, error) {
	if err := base.RequireIdentifier("table", table); err != nil {
		return nil, err
	}
	if strings.TrimSpace(schema) == "" {
		schema = DefaultSchema
	}

	ctx, cancel := base.WithTimeout(ctx, r.timeouts.Catalog)
	defer cancel()

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer base.CloseConn(conn, r.logger)

	rows, err := conn.QueryContext(ctx, tableStructureQuery, table, schema)
	if err != nil {
		return nil, base.WrapError("obtain_table_structure", tableStructureQuery, err, classify)
	}
	defer rows.Close()

	var cols []adapters.ColumnMetadata
	for rows.Next() {
		var (
			col        adapters.ColumnMetadata
			maxLength  sql.NullInt64
			nullable   string
			def        sql.NullString
			identity   sql.NullInt64
			primaryKey int
		)
		if err := rows.Scan(&col.Name, &col.NativeType, &maxLength, &nullable, &def, &identity, &primaryKey); err != nil {
			return nil, base.WrapError("obtain_table_structure", tableStructureQuery, err, classify)
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		col.IsIdentity = identity.Int64 == 1
		col.IsPrimaryKey = primaryKey == 1
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

// ObtainDatabaseStructure implements adapters.QueryRepository. A non-empty
// databaseName reads the catalog of that database instead of the current one.
func (r *QueryRepository) ObtainDatabaseStructure(ctx context.Context, databaseName string) (*value.Table, error) {
	prefix, objectPrefix := "", "''"
	if db := strings.TrimSpace(databaseName); db != "" {
		prefix = base.SQLServer.QuoteIdentifier(db) + "."
		objectPrefix = "N'" + strings.ReplaceAll(prefix, "'", "''") + "'"
	}
	query := fmt.Sprintf(databaseStructureQuery, prefix, objectPrefix)

	ctx, cancel := base.WithTimeout(ctx, r.timeouts.Catalog)
	defer cancel()

	conn, err := r.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer base.CloseConn(conn, r.logger)

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, base.WrapError("obtain_database_structure", query, err, classify)
	}
	defer rows.Close()

	t, err := base.ScanTable(rows, decodeColumn)
	if err != nil {
		return nil, base.WrapError("obtain_database_structure", query, err, classify)
	}
	return t, nil
}

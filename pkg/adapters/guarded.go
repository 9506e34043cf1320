package adapters

import (
	"context"
	"time"

	"github.com/ruslano69/dbgate/pkg/core/value"
)

// guardedTables applies the table policy and reports every call to the
// observer before delegating.
type guardedTables struct {
	next     TableRepository
	provider Provider
	policy   TablePolicy
	observer Observer
}

func (g *guardedTables) check(table, schema string) error {
	if g.policy == nil {
		return nil
	}
	return g.policy.CheckTable(TableDescriptor{Schema: schema, Name: table})
}

func (g *guardedTables) observe(op, resource string, started time.Time, err error) {
	if g.observer != nil {
		g.observer.ObserveOperation(g.provider, op, resource, time.Since(started), err)
	}
}

func (g *guardedTables) ObtainRows(ctx context.Context, table, schema string, limit *int) (rows []value.Row, err error) {
	started := time.Now()
	defer func() { g.observe("obtain_rows", resourceName(schema, table), started, err) }()
	if err = g.check(table, schema); err != nil {
		return nil, err
	}
	return g.next.ObtainRows(ctx, table, schema, limit)
}

func (g *guardedTables) ObtainByKey(ctx context.Context, table, schema, keyColumn, keyValue string) (rows []value.Row, err error) {
	started := time.Now()
	defer func() { g.observe("obtain_by_key", resourceName(schema, table), started, err) }()
	if err = g.check(table, schema); err != nil {
		return nil, err
	}
	return g.next.ObtainByKey(ctx, table, schema, keyColumn, keyValue)
}

func (g *guardedTables) Create(ctx context.Context, table, schema string, data value.Row, encryptFields string) (ok bool, err error) {
	started := time.Now()
	defer func() { g.observe("create", resourceName(schema, table), started, err) }()
	if err = g.check(table, schema); err != nil {
		return false, err
	}
	return g.next.Create(ctx, table, schema, data, encryptFields)
}

func (g *guardedTables) Update(ctx context.Context, table, schema, keyColumn, keyValue string, data value.Row, encryptFields string) (n int64, err error) {
	started := time.Now()
	defer func() { g.observe("update", resourceName(schema, table), started, err) }()
	if err = g.check(table, schema); err != nil {
		return 0, err
	}
	return g.next.Update(ctx, table, schema, keyColumn, keyValue, data, encryptFields)
}

func (g *guardedTables) Delete(ctx context.Context, table, schema, keyColumn, keyValue string) (n int64, err error) {
	started := time.Now()
	defer func() { g.observe("delete", resourceName(schema, table), started, err) }()
	if err = g.check(table, schema); err != nil {
		return 0, err
	}
	return g.next.Delete(ctx, table, schema, keyColumn, keyValue)
}

func (g *guardedTables) ObtainPasswordHash(ctx context.Context, table, schema, userColumn, passwordColumn, userValue string) (hash *string, err error) {
	started := time.Now()
	defer func() { g.observe("obtain_password_hash", resourceName(schema, table), started, err) }()
	if err = g.check(table, schema); err != nil {
		return nil, err
	}
	return g.next.ObtainPasswordHash(ctx, table, schema, userColumn, passwordColumn, userValue)
}

// guardedQueries is the QueryRepository counterpart of guardedTables.
// Free-form SQL is not inspected; only metadata calls naming a table are.
type guardedQueries struct {
	next     QueryRepository
	provider Provider
	policy   TablePolicy
	observer Observer
}

func (g *guardedQueries) observe(op, resource string, started time.Time, err error) {
	if g.observer != nil {
		g.observer.ObserveOperation(g.provider, op, resource, time.Since(started), err)
	}
}

func (g *guardedQueries) check(table, schema string) error {
	if g.policy == nil {
		return nil
	}
	return g.policy.CheckTable(TableDescriptor{Schema: schema, Name: table})
}

func (g *guardedQueries) ExecuteQuery(ctx context.Context, sqlText string, params map[string]value.Value, maxRows int, schema string) (t *value.Table, err error) {
	started := time.Now()
	defer func() { g.observe("execute_query", "", started, err) }()
	return g.next.ExecuteQuery(ctx, sqlText, params, maxRows, schema)
}

func (g *guardedQueries) ValidateQuery(ctx context.Context, sqlText string, params map[string]value.Value) (res ValidationResult, err error) {
	started := time.Now()
	defer func() { g.observe("validate_query", "", started, err) }()
	return g.next.ValidateQuery(ctx, sqlText, params)
}

func (g *guardedQueries) ExecuteProcedure(ctx context.Context, name string, params map[string]value.Value) (t *value.Table, err error) {
	started := time.Now()
	defer func() { g.observe("execute_procedure", name, started, err) }()
	return g.next.ExecuteProcedure(ctx, name, params)
}

func (g *guardedQueries) ObtainTableSchema(ctx context.Context, table, defaultSchema string) (s *string, err error) {
	started := time.Now()
	defer func() { g.observe("obtain_table_schema", table, started, err) }()
	if err = g.check(table, ""); err != nil {
		return nil, err
	}
	return g.next.ObtainTableSchema(ctx, table, defaultSchema)
}

func (g *guardedQueries) ObtainTableStructure(ctx context.Context, table, schema string) (cols []ColumnMetadata, err error) {
	started := time.Now()
	defer func() { g.observe("obtain_table_structure", resourceName(schema, table), started, err) }()
	if err = g.check(table, schema); err != nil {
		return nil, err
	}
	return g.next.ObtainTableStructure(ctx, table, schema)
}

func (g *guardedQueries) ObtainDatabaseStructure(ctx context.Context, databaseName string) (t *value.Table, err error) {
	started := time.Now()
	defer func() { g.observe("obtain_database_structure", databaseName, started, err) }()
	return g.next.ObtainDatabaseStructure(ctx, databaseName)
}

func resourceName(schema, table string) string {
	return TableDescriptor{Schema: schema, Name: table}.String()
}

//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

var fixture = []string{`
CREATE TABLE events (
	id SERIAL PRIMARY KEY,
	title VARCHAR(100) NOT NULL,
	amount NUMERIC(10,2),
	created_at TIMESTAMP NOT NULL
)`, `
CREATE PROCEDURE add_numbers(a integer, b integer, INOUT total integer DEFAULT NULL)
LANGUAGE plpgsql AS $$
BEGIN
	total := a + b;
END;
$$`, `
CREATE FUNCTION events_since(since date)
RETURNS TABLE (id integer, title varchar)
LANGUAGE sql AS $$
	SELECT id, title FROM events WHERE created_at >= since ORDER BY id
$$`,
}

func startPostgres(t *testing.T) *adapters.Backend {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16",
		tcpostgres.WithDatabase("dbgate"),
		tcpostgres.WithUsername("dbgate"),
		tcpostgres.WithPassword("dbgate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	backend, err := adapters.Bind("postgresql", adapters.Deps{Connections: adapters.ConnectionString(dsn)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	for _, stmt := range fixture {
		_, err = backend.Queries.ExecuteQuery(ctx, stmt, nil, 0, "")
		require.NoError(t, err)
	}
	return backend
}

func TestIntegration_TableCRUD(t *testing.T) {
	backend := startPostgres(t)
	ctx := context.Background()

	ok, err := backend.Tables.Create(ctx, "events", "", value.RowOf(
		value.P("title", value.Text("launch")),
		value.P("amount", value.Text("12.50")),
		value.P("created_at", value.Text("2024-03-01 10:30:00")),
	), "")
	require.NoError(t, err)
	assert.True(t, ok)

	rows, err := backend.Tables.ObtainByKey(ctx, "events", "", "created_at", "2024-03-01")
	require.NoError(t, err, "date-only lookup against a timestamp column")
	require.Len(t, rows, 1)

	id, _ := rows[0].Get("id")
	n, err := backend.Tables.Update(ctx, "events", "", "id", id.String(),
		value.RowOf(value.P("title", value.Text("relaunch"))), "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = backend.Tables.Delete(ctx, "events", "public", "id", id.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIntegration_Routines(t *testing.T) {
	backend := startPostgres(t)
	ctx := context.Background()

	tbl, err := backend.Queries.ExecuteProcedure(ctx, "add_numbers",
		map[string]value.Value{"a": value.Int64(2), "@b": value.Text("3")})
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	total, _ := tbl.Rows[0].Get("total")
	assert.Equal(t, "5", total.String())

	tbl, err = backend.Queries.ExecuteProcedure(ctx, "public.events_since",
		map[string]value.Value{"since": value.Text("2000-01-01")})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

func TestIntegration_ValidateAndMetadata(t *testing.T) {
	backend := startPostgres(t)
	ctx := context.Background()

	res, err := backend.Queries.ValidateQuery(ctx, "SELECT title FROM events WHERE id = @id",
		map[string]value.Value{"id": value.Int64(1)})
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Message)

	res, err = backend.Queries.ValidateQuery(ctx, "SELECT * FROM nope", nil)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Message, "42P01")

	cols, err := backend.Queries.ObtainTableStructure(ctx, "events", "")
	require.NoError(t, err)
	require.Len(t, cols, 4)
	assert.True(t, cols[0].IsPrimaryKey)
	assert.True(t, cols[0].IsIdentity)

	schema, err := backend.Queries.ObtainTableSchema(ctx, "events", "")
	require.NoError(t, err)
	require.NotNil(t, schema)
	assert.Equal(t, "public", *schema)

	db, err := backend.Queries.ObtainDatabaseStructure(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 4, db.Len())
}

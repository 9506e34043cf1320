package commands

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/core/value"
	"github.com/ruslano69/dbgate/pkg/security"
	"github.com/ruslano69/dbgate/pkg/xlsx"
)

type fakeTables struct {
	created   []value.Row
	lastLimit *int
	failOn    int
}

func (f *fakeTables) ObtainRows(_ context.Context, _, _ string, limit *int) ([]value.Row, error) {
	f.lastLimit = limit
	return []value.Row{
		value.RowOf(value.P("id", value.Int64(1)), value.P("name", value.Text("Ana"))),
		value.RowOf(value.P("id", value.Int64(2)), value.P("name", value.Null())),
	}, nil
}

func (f *fakeTables) ObtainByKey(_ context.Context, _, _, _, keyValue string) ([]value.Row, error) {
	if keyValue == "missing" {
		return nil, nil
	}
	return []value.Row{value.RowOf(value.P("id", value.Text(keyValue)))}, nil
}

func (f *fakeTables) Create(_ context.Context, _, _ string, data value.Row, _ string) (bool, error) {
	if f.failOn > 0 && len(f.created)+1 == f.failOn {
		return false, &adapters.OperationError{Op: "create", Category: adapters.CategoryUniqueViolation}
	}
	f.created = append(f.created, data)
	return true, nil
}

func (f *fakeTables) Update(context.Context, string, string, string, string, value.Row, string) (int64, error) {
	return 3, nil
}

func (f *fakeTables) Delete(context.Context, string, string, string, string) (int64, error) {
	return 0, nil
}

func (f *fakeTables) ObtainPasswordHash(_ context.Context, _, _, _, _, user string) (*string, error) {
	if user != "ana" {
		return nil, nil
	}
	h := "$2a$12$abc"
	return &h, nil
}

type fakeQueries struct {
	lastSQL    string
	lastParams map[string]value.Value
}

func (f *fakeQueries) ExecuteQuery(_ context.Context, sqlText string, params map[string]value.Value, _ int, _ string) (*value.Table, error) {
	f.lastSQL, f.lastParams = sqlText, params
	t := value.NewTable("n")
	t.Append(value.RowOf(value.P("n", value.Int64(42))))
	return t, nil
}

func (f *fakeQueries) ValidateQuery(_ context.Context, sqlText string, _ map[string]value.Value) (adapters.ValidationResult, error) {
	if strings.Contains(sqlText, "nope") {
		return adapters.ValidationResult{Valid: false, Message: "Invalid object name 'nope'"}, nil
	}
	return adapters.ValidationResult{Valid: true}, nil
}

func (f *fakeQueries) ExecuteProcedure(context.Context, string, map[string]value.Value) (*value.Table, error) {
	return value.NewTable(), nil
}

func (f *fakeQueries) ObtainTableSchema(_ context.Context, table, _ string) (*string, error) {
	if table == "ghost" {
		return nil, nil
	}
	s := "sales"
	return &s, nil
}

func (f *fakeQueries) ObtainTableStructure(context.Context, string, string) ([]adapters.ColumnMetadata, error) {
	n := int64(50)
	return []adapters.ColumnMetadata{
		{Name: "id", NativeType: "int", IsPrimaryKey: true, IsIdentity: true},
		{Name: "name", NativeType: "nvarchar", Nullable: true, MaxLength: &n},
	}, nil
}

func (f *fakeQueries) ObtainDatabaseStructure(context.Context, string) (*value.Table, error) {
	return value.NewTable("table_name"), nil
}

func TestParseParams(t *testing.T) {
	params, err := ParseParams(`{"@id": 7, "name": "Ana", "score": 1.5, "gone": null}`)
	require.NoError(t, err)
	require.Len(t, params, 4)
	assert.True(t, params["@id"].Equal(value.Int64(7)))
	assert.True(t, params["name"].Equal(value.Text("Ana")))
	assert.True(t, params["gone"].IsNull())

	empty, err := ParseParams("  ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseParams(`[1, 2]`)
	assert.Error(t, err)
}

func TestLoadRows(t *testing.T) {
	rows, err := LoadRows(`{"b": 1, "a": "x"}`, "", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"b", "a"}, rows[0].Columns())

	_, err = LoadRows("", "", "")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "rows.xlsx")
	src := value.NewTable("id", "name")
	src.Append(value.RowOf(value.P("id", value.Int64(1)), value.P("name", value.Text("a"))))
	src.Append(value.RowOf(value.P("id", value.Int64(2)), value.P("name", value.Text("b"))))
	require.NoError(t, xlsx.ToXLSX(src, path, ""))

	rows, err = LoadRows("", path, "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestTableCommands(t *testing.T) {
	ctx := context.Background()
	repo := &fakeTables{}

	table, err := ObtainRows(ctx, repo, TableOptions{Table: "users"})
	require.NoError(t, err)
	assert.Nil(t, repo.lastLimit)
	assert.Equal(t, []string{"id", "name"}, table.Columns)
	assert.Equal(t, 2, table.Len())

	_, err = ObtainRows(ctx, repo, TableOptions{Table: "users", Limit: 5})
	require.NoError(t, err)
	require.NotNil(t, repo.lastLimit)
	assert.Equal(t, 5, *repo.lastLimit)

	table, err = ObtainByKey(ctx, repo, TableOptions{Table: "users", KeyColumn: "id", KeyValue: "missing"})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())

	rows := []value.Row{
		value.RowOf(value.P("name", value.Text("a"))),
		value.RowOf(value.P("name", value.Text("b"))),
	}
	count, err := Create(ctx, repo, TableOptions{Table: "users", Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count.Affected)

	_, err = Update(ctx, repo, TableOptions{Table: "users", Rows: rows})
	assert.Error(t, err)

	count, err = Update(ctx, repo, TableOptions{Table: "users", Rows: rows[:1]})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count.Affected)

	count, err = Delete(ctx, repo, TableOptions{Table: "users"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count.Affected)

	hash, err := PasswordHash(ctx, repo, TableOptions{User: "bob"})
	require.NoError(t, err)
	assert.False(t, hash.Found)
}

func TestCreate_StopsAtFirstFailure(t *testing.T) {
	repo := &fakeTables{failOn: 2}
	rows := []value.Row{
		value.RowOf(value.P("id", value.Int64(1))),
		value.RowOf(value.P("id", value.Int64(1))),
		value.RowOf(value.P("id", value.Int64(3))),
	}
	count, err := Create(context.Background(), repo, TableOptions{Table: "t", Rows: rows})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	assert.Equal(t, int64(1), count.Affected)

	var opErr *adapters.OperationError
	assert.True(t, errors.As(err, &opErr))
}

func TestExecuteQuery_Guard(t *testing.T) {
	repo := &fakeQueries{}
	guard := security.NewQueryGuard(true)

	_, err := ExecuteQuery(context.Background(), repo, guard, QueryOptions{SQL: "DELETE FROM users"})
	require.ErrorIs(t, err, security.ErrNotReadOnly)
	assert.Empty(t, repo.lastSQL)

	table, err := ExecuteQuery(context.Background(), repo, guard, QueryOptions{
		SQL:    "SELECT n FROM t WHERE id = @id",
		Params: map[string]value.Value{"id": value.Int64(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Contains(t, repo.lastParams, "id")

	_, err = ExecuteQuery(context.Background(), repo, nil, QueryOptions{SQL: "DELETE FROM users"})
	assert.NoError(t, err)
}

func TestRender_Text(t *testing.T) {
	ctx := context.Background()
	table, err := ObtainRows(ctx, &fakeTables{}, TableOptions{Table: "users"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, table, OutputOptions{}))
	out := buf.String()
	assert.Contains(t, out, "id  name")
	assert.Contains(t, out, "2   NULL")
	assert.Contains(t, out, "(2 row(s))")

	buf.Reset()
	res, err := ValidateQuery(ctx, &fakeQueries{}, QueryOptions{SQL: "SELECT * FROM nope"})
	require.NoError(t, err)
	require.NoError(t, Render(&buf, res, OutputOptions{Format: FormatText}))
	assert.Equal(t, "invalid: Invalid object name 'nope'\n", buf.String())

	buf.Reset()
	schema, err := FindSchema(ctx, &fakeQueries{}, QueryOptions{Table: "ghost"})
	require.NoError(t, err)
	require.NoError(t, Render(&buf, schema, OutputOptions{}))
	assert.Equal(t, "ghost: not found\n", buf.String())
}

func TestRender_JSONAndYAML(t *testing.T) {
	table, err := ObtainRows(context.Background(), &fakeTables{}, TableOptions{Table: "users"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, table, OutputOptions{Format: FormatJSON}))
	assert.JSONEq(t, `{"columns":["id","name"],"rows":[{"id":1,"name":"Ana"},{"id":2,"name":null}]}`, buf.String())

	buf.Reset()
	hash, err := PasswordHash(context.Background(), &fakeTables{}, TableOptions{User: "ana"})
	require.NoError(t, err)
	require.NoError(t, Render(&buf, hash, OutputOptions{Format: FormatYAML}))
	assert.Contains(t, buf.String(), "found: true")
	assert.Contains(t, buf.String(), "hash: $2a$12$abc")
}

func TestRender_XLSX(t *testing.T) {
	cols, err := DescribeTable(context.Background(), &fakeQueries{}, QueryOptions{Table: "users"})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Render(&buf, cols, OutputOptions{Format: FormatXLSX})
	assert.Error(t, err, "xlsx without a file")

	path := filepath.Join(t.TempDir(), "cols.xlsx")
	require.NoError(t, Render(&buf, cols, OutputOptions{Format: FormatXLSX, File: path}))
	assert.Contains(t, buf.String(), "Wrote 2 row(s)")

	rows, err := xlsx.FromXLSX(path, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	name, _ := rows[1].Get("name")
	assert.Equal(t, "name", name.String())

	err = Render(&buf, &Count{}, OutputOptions{Format: FormatXLSX, File: path})
	assert.Error(t, err)

	assert.Error(t, Render(&buf, cols, OutputOptions{Format: "csv"}))
}

package base

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

func TestNormalizeParamName(t *testing.T) {
	for _, in := range []string{"id", "@id", " @ID ", ":Id", "$id", "?id"} {
		got := NormalizeParamName(in)
		assert.Equal(t, "id", got, in)
		assert.Equal(t, got, NormalizeParamName(got), "idempotent for %q", in)
	}
	assert.Equal(t, "", NormalizeParamName("@"))
}

func TestRewriteNamed(t *testing.T) {
	params := map[string]value.Value{
		"id":    value.Int64(1),
		"@name": value.Text("Ana"),
	}

	tests := []struct {
		name     string
		style    PlaceholderStyle
		sql      string
		want     string
		wantArgs []value.Value
	}{
		{
			name:     "dollar reuses numbers",
			style:    DollarPlaceholders,
			sql:      "SELECT * FROM t WHERE a = @id AND b = :ID OR c = @name",
			want:     "SELECT * FROM t WHERE a = $1 AND b = $1 OR c = $2",
			wantArgs: []value.Value{value.Int64(1), value.Text("Ana")},
		},
		{
			name:     "question repeats arguments",
			style:    QuestionPlaceholders,
			sql:      "SELECT @id, @id, @user_var",
			want:     "SELECT ?, ?, @user_var",
			wantArgs: []value.Value{value.Int64(1), value.Int64(1)},
		},
		{
			name:     "literals comments casts and system variables",
			style:    DollarPlaceholders,
			sql:      "SELECT '@id', \"@id\", @id -- @id\n/* @name */ x::int, @@ROWCOUNT",
			want:     "SELECT '@id', \"@id\", $1 -- @id\n/* @name */ x::int, @@ROWCOUNT",
			wantArgs: []value.Value{value.Int64(1)},
		},
		{
			name:     "dollar quoted body",
			style:    DollarPlaceholders,
			sql:      "DO $$ BEGIN PERFORM @id; END $$; SELECT @name",
			want:     "DO $$ BEGIN PERFORM @id; END $$; SELECT $1",
			wantArgs: []value.Value{value.Text("Ana")},
		},
		{
			name:     "backslash escape in mysql literal",
			style:    QuestionPlaceholders,
			sql:      `SELECT 'it\'s @id', @id`,
			want:     `SELECT 'it\'s @id', ?`,
			wantArgs: []value.Value{value.Int64(1)},
		},
		{
			name:     "backslash escape in postgres escape string",
			style:    DollarPlaceholders,
			sql:      `SELECT E'it\'s @id', e'\\', @name`,
			want:     `SELECT E'it\'s @id', e'\\', $1`,
			wantArgs: []value.Value{value.Text("Ana")},
		},
		{
			name:     "plain postgres literal ignores backslash",
			style:    DollarPlaceholders,
			sql:      `SELECT 'C:\', @id, name'x'`,
			want:     `SELECT 'C:\', $1, name'x'`,
			wantArgs: []value.Value{value.Int64(1)},
		},
		{
			name:  "unknown markers untouched",
			style: DollarPlaceholders,
			sql:   "SELECT @other",
			want:  "SELECT @other",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args := RewriteNamed(tt.sql, params, tt.style)
			assert.Equal(t, tt.want, got)
			require.Len(t, args, len(tt.wantArgs))
			for i := range args {
				assert.True(t, args[i].Equal(tt.wantArgs[i]), "arg %d = %v", i, args[i])
			}
		})
	}
}

func TestNullParams(t *testing.T) {
	out := NullParams(map[string]value.Value{"a": value.Int64(1)})
	require.Contains(t, out, "a")
	assert.True(t, out["a"].IsNull())
}

func TestDialectQuoting(t *testing.T) {
	assert.Equal(t, "[we]]ird]", SQLServer.QuoteIdentifier("we]ird"))
	assert.Equal(t, `"a""b"`, PostgreSQL.QuoteIdentifier(`a"b`))
	assert.Equal(t, "`us``ers`", MySQL.QuoteIdentifier("us`ers"))

	assert.Equal(t, `"public"."users"`, PostgreSQL.QualifiedTable("", "users"))
	assert.Equal(t, `"sales"."users"`, PostgreSQL.QualifiedTable(" sales ", "users"))
	assert.Equal(t, "[users]", SQLServer.QualifiedTable("", "users"))
	assert.Equal(t, "`shop`.`users`", MySQL.QualifiedTable("shop", "users"))

	assert.Equal(t, "[dbo].[my.proc]", SQLServer.QualifiedRoutine("[dbo].[my.proc]"))
	assert.Equal(t, "`add_user`", MySQL.QualifiedRoutine("add_user"))
}

func TestSplitQualifiedName(t *testing.T) {
	tests := []struct {
		in, schema, object string
	}{
		{"proc", "", "proc"},
		{"dbo.proc", "dbo", "proc"},
		{"[dbo].[my.proc]", "dbo", "my.proc"},
		{`"a.b".c`, "a.b", "c"},
		{"db.sch.obj", "db.sch", "obj"},
	}
	for _, tt := range tests {
		schema, object := SplitQualifiedName(tt.in)
		assert.Equal(t, tt.schema, schema, tt.in)
		assert.Equal(t, tt.object, object, tt.in)
	}
}

func TestSelectAll(t *testing.T) {
	q, _, err := SQLServer.SelectAll("dbo", "users", 5).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT TOP (5) * FROM [dbo].[users]", q)

	q, _, err = PostgreSQL.SelectAll("", "users", 5).ToSql()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "public"."users" LIMIT 5`, q)
}

func TestTemporalHeuristics(t *testing.T) {
	assert.True(t, IsDateOnly("2025-02-01"))
	assert.True(t, IsDateOnly(" 2025-02-01 "))
	assert.False(t, IsDateOnly("2025-02-01T09:00"))
	assert.False(t, IsDateOnly("2025-02-01 09:00:00"))
	assert.False(t, IsDateOnly("20250201"))

	for _, typ := range []string{"timestamp", "timestamp without time zone", "TIMESTAMPTZ", "datetime", "datetime2", "smalldatetime", "datetimeoffset"} {
		assert.True(t, IsTimestampType(typ), typ)
	}
	for _, typ := range []string{"date", "time", "varchar"} {
		assert.False(t, IsTimestampType(typ), typ)
	}
}

type upperHasher struct{ calls int }

func (h *upperHasher) Encrypt(text string) (string, error) {
	h.calls++
	return "h(" + text + ")", nil
}

func TestEncryptFields(t *testing.T) {
	data := value.RowOf(
		value.P("user", value.Text("ana")),
		value.P("Password", value.Text("s3cret")),
		value.P("pin", value.Null()),
	)
	h := &upperHasher{}

	out, err := EncryptFields(data, " password , PIN,", h)
	require.NoError(t, err)

	pw, _ := out.Get("password")
	assert.Equal(t, "h(s3cret)", pw.String())
	pin, _ := out.Get("pin")
	assert.True(t, pin.IsNull())
	assert.Equal(t, 1, h.calls)

	orig, _ := data.Get("password")
	assert.Equal(t, "s3cret", orig.String(), "input row must not change")

	_, err = EncryptFields(data, "password", nil)
	assert.Error(t, err)

	same, err := EncryptFields(data, "", nil)
	require.NoError(t, err)
	assert.Equal(t, data.Columns(), same.Columns())
}

func TestTruncateQuery(t *testing.T) {
	assert.Equal(t, "SELECT 1 FROM t", TruncateQuery("SELECT  1\n\tFROM t"))

	long := strings.Repeat("é", MaxLoggedQuery+10)
	got := TruncateQuery(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, MaxLoggedQuery+3, len([]rune(got)))
}

func TestWrapError(t *testing.T) {
	classify := func(err error) (adapters.Category, bool) {
		if strings.Contains(err.Error(), "dup") {
			return adapters.CategoryUniqueViolation, true
		}
		return adapters.CategoryUnknown, false
	}

	assert.NoError(t, WrapError("op", "", nil, classify))

	input := adapters.InvalidInput("table", "must not be empty")
	assert.Same(t, input, WrapError("op", "", input, classify))

	tests := []struct {
		err  error
		want adapters.Category
	}{
		{errors.New("dup key"), adapters.CategoryUniqueViolation},
		{errors.New("boom"), adapters.CategoryUnknown},
		{context.DeadlineExceeded, adapters.CategoryTimeout},
		{fmt.Errorf("wrapped: %w", context.Canceled), adapters.CategoryCanceled},
		{driver.ErrBadConn, adapters.CategoryConnection},
	}
	for _, tt := range tests {
		err := WrapError("create", "INSERT INTO t VALUES (1)", tt.err, classify)
		var opErr *adapters.OperationError
		require.True(t, errors.As(err, &opErr), tt.err.Error())
		assert.Equal(t, tt.want, opErr.Category, tt.err.Error())
		assert.Equal(t, "INSERT INTO t VALUES (1)", opErr.Statement)
		assert.ErrorIs(t, err, tt.err)
	}

	first := WrapError("inner", "", errors.New("dup"), classify)
	assert.Same(t, first, WrapError("outer", "", first, classify))
}

func TestRequireIdentifier(t *testing.T) {
	assert.NoError(t, RequireIdentifier("table", "users"))
	assert.ErrorIs(t, RequireIdentifier("table", " "), adapters.ErrInvalidInput)
	assert.ErrorIs(t, RequireIdentifier("column", "a\x00b"), adapters.ErrInvalidInput)
}

func TestResolveMaxRows(t *testing.T) {
	n, err := ResolveMaxRows(0)
	require.NoError(t, err)
	assert.Equal(t, adapters.DefaultMaxRows, n)

	n, err = ResolveMaxRows(25)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	_, err = ResolveMaxRows(-1)
	assert.ErrorIs(t, err, adapters.ErrInvalidInput)
}

func TestPickSchema(t *testing.T) {
	assert.Nil(t, PickSchema(nil, "dbo"))
	assert.Equal(t, "Sales", *PickSchema([]string{"zeta", "Sales", "alpha"}, "sales"))
	assert.Equal(t, "alpha", *PickSchema([]string{"zeta", "alpha"}, "dbo"))
	assert.Equal(t, "alpha", *PickSchema([]string{"zeta", "alpha"}, ""))
}

func TestResolveProcedureInputs(t *testing.T) {
	routine := adapters.RoutineInfo{
		Name: "add_user",
		Parameters: []adapters.ParameterMetadata{
			{Name: "@p_total", Mode: adapters.ParamOut, Position: 3},
			{Name: "@p_name", Mode: adapters.ParamIn, Position: 1},
			{Name: "@p_age", Mode: adapters.ParamInOut, Position: 2},
		},
	}
	inputs := ResolveProcedureInputs(routine, map[string]value.Value{
		"P_NAME":  value.Text("Ana"),
		"p_total": value.Int64(99),
	})

	require.Len(t, inputs, 3)
	assert.Equal(t, "@p_name", inputs[0].Param.Name)
	assert.True(t, inputs[0].Value.Equal(value.Text("Ana")))
	assert.True(t, inputs[1].Value.IsNull(), "omitted INOUT is NULL")
	assert.True(t, inputs[2].Value.IsNull(), "OUT ignores caller value")
}

func TestProcedureResultTable(t *testing.T) {
	data := value.NewTable("id")
	data.Append(value.RowOf(value.P("id", value.Int64(1))))

	table := ProcedureResult{
		Data:    data,
		Outputs: []value.Pair{value.P("@p_total", value.Int64(5))},
	}.Table()

	require.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"id", "p_total"}, table.Columns)
	v, ok := table.Rows[1].Get("p_total")
	require.True(t, ok)
	assert.True(t, v.Equal(value.Int64(5)))

	empty := ProcedureResult{}.Table()
	assert.Equal(t, 0, empty.Len())
}

func TestKindTable(t *testing.T) {
	kinds := KindTable{"varchar": value.KindText, "int": value.KindInt32}
	assert.Equal(t, value.KindInt32, kinds.Kind("INT"))
	assert.Equal(t, value.KindText, kinds.Kind("varchar(50)"))
	assert.Equal(t, value.KindText, kinds.Kind("geometry"))
}

func TestDriverValue(t *testing.T) {
	assert.Nil(t, DriverValue(value.Null()))
	assert.Equal(t, int64(7), DriverValue(value.Int32(7)))
	assert.Equal(t, true, DriverValue(value.Bool(true)))
	assert.Equal(t, "abc", DriverValue(value.Text("abc")))
	assert.Equal(t, []any{int64(1), nil}, DriverValues([]value.Value{value.Int64(1), value.Null()}))
}

package adapters_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

// stubTables and stubQueries record whether the backend was reached.
type stubTables struct{ calls int }

func (s *stubTables) ObtainRows(context.Context, string, string, *int) ([]value.Row, error) {
	s.calls++
	return nil, nil
}
func (s *stubTables) ObtainByKey(context.Context, string, string, string, string) ([]value.Row, error) {
	s.calls++
	return nil, nil
}
func (s *stubTables) Create(context.Context, string, string, value.Row, string) (bool, error) {
	s.calls++
	return true, nil
}
func (s *stubTables) Update(context.Context, string, string, string, string, value.Row, string) (int64, error) {
	s.calls++
	return 1, nil
}
func (s *stubTables) Delete(context.Context, string, string, string, string) (int64, error) {
	s.calls++
	return 0, &adapters.OperationError{Op: "delete", Category: adapters.CategoryForeignKey}
}
func (s *stubTables) ObtainPasswordHash(context.Context, string, string, string, string, string) (*string, error) {
	s.calls++
	return nil, nil
}

type stubQueries struct{ calls int }

func (s *stubQueries) ExecuteQuery(context.Context, string, map[string]value.Value, int, string) (*value.Table, error) {
	s.calls++
	return value.NewTable(), nil
}
func (s *stubQueries) ValidateQuery(context.Context, string, map[string]value.Value) (adapters.ValidationResult, error) {
	s.calls++
	return adapters.ValidationResult{Valid: true}, nil
}
func (s *stubQueries) ExecuteProcedure(context.Context, string, map[string]value.Value) (*value.Table, error) {
	s.calls++
	return value.NewTable(), nil
}
func (s *stubQueries) ObtainTableSchema(context.Context, string, string) (*string, error) {
	s.calls++
	return nil, nil
}
func (s *stubQueries) ObtainTableStructure(context.Context, string, string) ([]adapters.ColumnMetadata, error) {
	s.calls++
	return nil, nil
}
func (s *stubQueries) ObtainDatabaseStructure(context.Context, string) (*value.Table, error) {
	s.calls++
	return value.NewTable(), nil
}

type blockTable struct{ name string }

func (b blockTable) CheckTable(t adapters.TableDescriptor) error {
	if strings.EqualFold(t.Name, b.name) {
		return adapters.ErrForbiddenTable
	}
	return nil
}

type recordedCall struct {
	provider adapters.Provider
	op       string
	resource string
	err      error
}

type recorder struct{ calls []recordedCall }

func (r *recorder) ObserveOperation(p adapters.Provider, op, resource string, _ time.Duration, err error) {
	r.calls = append(r.calls, recordedCall{p, op, resource, err})
}

func newTestFactory(tables *stubTables, queries *stubQueries, seen *adapters.Deps, closed *bool) *adapters.Factory {
	f := adapters.NewFactory()
	f.Register(adapters.ProviderPostgreSQL, func(deps adapters.Deps) (*adapters.Backend, error) {
		if seen != nil {
			*seen = deps
		}
		return adapters.NewBackend(tables, queries, func() error {
			if closed != nil {
				*closed = true
			}
			return nil
		}), nil
	})
	return f
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		name string
		want adapters.Provider
	}{
		{"postgres", adapters.ProviderPostgreSQL},
		{"PostgreSQL", adapters.ProviderPostgreSQL},
		{"mysql", adapters.ProviderMySQL},
		{" MariaDB ", adapters.ProviderMySQL},
		{"sqlserver", adapters.ProviderSQLServer},
		{"sqlserverexpress", adapters.ProviderSQLServer},
		{"localdb", adapters.ProviderSQLServer},
		{"", adapters.ProviderSQLServer},
		{"oracle", adapters.ProviderSQLServer},
	}
	for _, tt := range tests {
		if got := adapters.ParseProvider(tt.name); got != tt.want {
			t.Errorf("ParseProvider(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestFactory_Registry(t *testing.T) {
	f := newTestFactory(&stubTables{}, &stubQueries{}, nil, nil)

	if !f.IsRegistered(adapters.ProviderPostgreSQL) {
		t.Fatal("postgres should be registered")
	}
	if f.IsRegistered(adapters.ProviderMySQL) {
		t.Fatal("mysql should not be registered")
	}

	f.Register(adapters.ProviderMySQL, func(adapters.Deps) (*adapters.Backend, error) {
		return nil, errors.New("driver unavailable")
	})
	got := f.GetRegisteredProviders()
	if len(got) != 2 || got[0] != adapters.ProviderMySQL || got[1] != adapters.ProviderPostgreSQL {
		t.Errorf("GetRegisteredProviders() = %v", got)
	}

	_, err := f.Bind("mariadb", adapters.Deps{Connections: adapters.ConnectionString("x")})
	if err == nil || !strings.Contains(err.Error(), "driver unavailable") {
		t.Errorf("Bind(mariadb) error = %v", err)
	}

	f.Unregister(adapters.ProviderMySQL)
	if f.IsRegistered(adapters.ProviderMySQL) {
		t.Error("mysql still registered after Unregister")
	}
}

func TestFactory_BindErrors(t *testing.T) {
	f := newTestFactory(&stubTables{}, &stubQueries{}, nil, nil)

	_, err := f.Bind("sqlserver", adapters.Deps{Connections: adapters.ConnectionString("x")})
	if err == nil || !strings.Contains(err.Error(), "not linked") {
		t.Errorf("Bind(sqlserver) error = %v, want not linked", err)
	}

	_, err = f.Bind("postgres", adapters.Deps{})
	if !errors.Is(err, adapters.ErrInvalidInput) {
		t.Errorf("Bind without connections error = %v, want ErrInvalidInput", err)
	}
}

func TestFactory_BindPlain(t *testing.T) {
	tables, queries := &stubTables{}, &stubQueries{}
	var seen adapters.Deps
	var closed bool
	f := newTestFactory(tables, queries, &seen, &closed)

	backend, err := f.Bind("PostgreSQL", adapters.Deps{
		Connections: adapters.ConnectionString("postgres://localhost/app"),
		Timeouts:    adapters.Timeouts{Query: time.Second},
	})
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	if backend.Provider != adapters.ProviderPostgreSQL {
		t.Errorf("Provider = %s", backend.Provider)
	}
	if backend.Tables != adapters.TableRepository(tables) {
		t.Error("Tables wrapped although no policy or observer was given")
	}
	want := adapters.DefaultTimeouts()
	want.Query = time.Second
	if seen.Timeouts != want {
		t.Errorf("constructor saw timeouts %+v, want %+v", seen.Timeouts, want)
	}

	if err := backend.Close(); err != nil || !closed {
		t.Errorf("Close() = %v, closed = %v", err, closed)
	}
	var nilBackend *adapters.Backend
	if err := nilBackend.Close(); err != nil {
		t.Errorf("nil Close() = %v", err)
	}
}

func TestFactory_BindGuarded(t *testing.T) {
	tables, queries := &stubTables{}, &stubQueries{}
	rec := &recorder{}
	f := newTestFactory(tables, queries, nil, nil)

	backend, err := f.Bind("postgres", adapters.Deps{
		Connections: adapters.ConnectionString("postgres://localhost/app"),
		Policy:      blockTable{name: "secrets"},
		Observer:    rec,
	})
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	ctx := context.Background()

	if _, err := backend.Tables.ObtainRows(ctx, "Secrets", "", nil); !errors.Is(err, adapters.ErrForbiddenTable) {
		t.Errorf("ObtainRows(secrets) error = %v", err)
	}
	if _, err := backend.Queries.ObtainTableStructure(ctx, "secrets", "public"); !errors.Is(err, adapters.ErrForbiddenTable) {
		t.Errorf("ObtainTableStructure(secrets) error = %v", err)
	}
	if tables.calls != 0 || queries.calls != 0 {
		t.Fatalf("forbidden table reached the backend: %d/%d calls", tables.calls, queries.calls)
	}

	if _, err := backend.Tables.Create(ctx, "users", "", value.NewRow(0), ""); err != nil {
		t.Errorf("Create(users) error = %v", err)
	}
	if _, err := backend.Tables.Delete(ctx, "users", "", "id", "1"); err == nil {
		t.Error("Delete(users) should return the backend error")
	}
	if _, err := backend.Queries.ExecuteQuery(ctx, "SELECT * FROM secrets", nil, 0, ""); err != nil {
		t.Errorf("ExecuteQuery error = %v", err)
	}

	ops := make([]string, len(rec.calls))
	for i, c := range rec.calls {
		ops[i] = c.op
		if c.provider != adapters.ProviderPostgreSQL {
			t.Errorf("call %s observed with provider %s", c.op, c.provider)
		}
	}
	wantOps := "obtain_rows,obtain_table_structure,create,delete,execute_query"
	if strings.Join(ops, ",") != wantOps {
		t.Errorf("observed ops = %v, want %s", ops, wantOps)
	}
	if !errors.Is(rec.calls[0].err, adapters.ErrForbiddenTable) || rec.calls[2].err != nil {
		t.Errorf("observed errors = %v / %v", rec.calls[0].err, rec.calls[2].err)
	}
	var opErr *adapters.OperationError
	if !errors.As(rec.calls[3].err, &opErr) || opErr.Category != adapters.CategoryForeignKey {
		t.Errorf("delete observed error = %v", rec.calls[3].err)
	}
	resources := []string{rec.calls[0].resource, rec.calls[1].resource, rec.calls[2].resource, rec.calls[4].resource}
	if strings.Join(resources, ",") != "Secrets,public.secrets,users," {
		t.Errorf("observed resources = %q", resources)
	}
}

func TestObservers(t *testing.T) {
	first, second := &recorder{}, &recorder{}
	obs := adapters.Observers{first, nil, second}
	obs.ObserveOperation(adapters.ProviderMySQL, "execute_procedure", "refresh_totals", time.Second, nil)
	if len(first.calls) != 1 || len(second.calls) != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", len(first.calls), len(second.calls))
	}
	if second.calls[0].resource != "refresh_totals" {
		t.Errorf("resource = %q", second.calls[0].resource)
	}
}

func TestErrors(t *testing.T) {
	err := adapters.InvalidInput("keyColumn", "must not be empty")
	if err.Error() != "invalid input: keyColumn: must not be empty" {
		t.Errorf("InputError = %q", err)
	}
	if !errors.Is(adapters.ErrForbiddenTable, adapters.ErrInvalidInput) {
		t.Error("ErrForbiddenTable must be an ErrInvalidInput")
	}

	cause := errors.New("Invalid object name 'nope'")
	opErr := &adapters.OperationError{Op: "execute_query", Category: adapters.CategoryUnknownTable, Statement: "SELECT * FROM nope", Cause: cause}
	if !errors.Is(opErr, cause) {
		t.Error("OperationError must unwrap to its cause")
	}
	want := "execute_query: table or view does not exist: Invalid object name 'nope' (sql: SELECT * FROM nope)"
	if opErr.Error() != want {
		t.Errorf("OperationError = %q, want %q", opErr.Error(), want)
	}
	if adapters.Category("mystery").Describe() != "database error" {
		t.Error("unknown category should describe as database error")
	}

	if c, ok := adapters.ContextCategory(context.DeadlineExceeded); !ok || c != adapters.CategoryTimeout {
		t.Errorf("ContextCategory(deadline) = %s, %v", c, ok)
	}
}

func TestParamMode(t *testing.T) {
	tests := []struct {
		in     string
		mode   adapters.ParamMode
		output bool
		input  bool
	}{
		{"IN", adapters.ParamIn, false, true},
		{"out", adapters.ParamOut, true, false},
		{"IN OUT", adapters.ParamInOut, true, true},
		{"inout", adapters.ParamInOut, true, true},
		{"", adapters.ParamIn, false, true},
	}
	for _, tt := range tests {
		m := adapters.ParseParamMode(tt.in)
		if m != tt.mode || m.IsOutput() != tt.output || m.AcceptsInput() != tt.input {
			t.Errorf("ParseParamMode(%q) = %s (out %v, in %v)", tt.in, m, m.IsOutput(), m.AcceptsInput())
		}
	}
}

func TestTimeoutsWithDefaults(t *testing.T) {
	got := adapters.Timeouts{Procedure: time.Minute}.WithDefaults()
	if got.Procedure != time.Minute || got.Validate != 5*time.Second || got.Query != 30*time.Second || got.Catalog != 15*time.Second {
		t.Errorf("WithDefaults() = %+v", got)
	}
}

package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/adapters"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbgate.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  provider: PostgreSQL
  connection_string: postgres://app:secret@db:5432/app
timeouts:
  query: 45s
security:
  forbidden_tables: [secrets, hr.salaries]
logging:
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Provider != "postgresql" {
		t.Errorf("Provider = %q, want normalized postgresql", cfg.Database.Provider)
	}
	if cfg.Timeouts.Query != 45*time.Second {
		t.Errorf("Timeouts.Query = %v, want 45s", cfg.Timeouts.Query)
	}
	if cfg.Timeouts.Procedure != 0 {
		t.Errorf("Timeouts.Procedure = %v, want 0 (default applied later)", cfg.Timeouts.Procedure)
	}
	if cfg.Database.MaxOpenConns != 10 || cfg.Database.MaxIdleConns != 2 {
		t.Errorf("pool = %d/%d, want defaults 10/2", cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if len(cfg.Security.ForbiddenTables) != 2 {
		t.Errorf("ForbiddenTables = %v", cfg.Security.ForbiddenTables)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  provider: mysql
  connection_string: app:secret@tcp(localhost:3306)/shop
`)
	t.Setenv("DBGATE_DATABASE__CONNECTION_STRING", "app:other@tcp(db:3306)/shop")
	t.Setenv("DBGATE_DATABASE__MAX_OPEN_CONNS", "25")
	t.Setenv("DBGATE_LOGGING__LEVEL", "debug")
	t.Setenv("DBGATE_SECURITY__FORBIDDEN_TABLES", "secrets, audit.log ,")
	t.Setenv("DBGATE_TIMEOUTS__CATALOG", "2s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.DSN != "app:other@tcp(db:3306)/shop" {
		t.Errorf("DSN = %q", cfg.Database.DSN)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("MaxOpenConns = %d, want 25", cfg.Database.MaxOpenConns)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
	if got := strings.Join(cfg.Security.ForbiddenTables, "|"); got != "secrets|audit.log" {
		t.Errorf("ForbiddenTables = %q", got)
	}
	if cfg.Timeouts.Catalog != 2*time.Second {
		t.Errorf("Catalog = %v, want 2s", cfg.Timeouts.Catalog)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown provider", "database:\n  provider: oracle\n  connection_string: x\n"},
		{"no connection", "database:\n  provider: mysql\n"},
		{"bad format", "database:\n  connection_string: x\nlogging:\n  format: xml\n"},
		{"bcrypt too low", "database:\n  connection_string: x\nsecurity:\n  bcrypt_cost: 2\n"},
		{"bad port", "database:\n  host: db\n  port: 70000\n"},
		{"bad audit level", "database:\n  connection_string: x\naudit:\n  level: verbose\n"},
		{"audit without file", "database:\n  connection_string: x\naudit:\n  enabled: true\n  file: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load() error = nil, want validation error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() error = nil for a missing file")
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "explicit wins",
			cfg:  DatabaseConfig{Provider: "postgres", DSN: "postgres://x", Host: "ignored"},
			want: "postgres://x",
		},
		{
			name: "postgres",
			cfg:  DatabaseConfig{Provider: "postgresql", Host: "db", Name: "app", User: "app", Password: "p@ss"},
			want: "postgres://app:p%40ss@db:5432/app?sslmode=disable",
		},
		{
			name: "mysql",
			cfg:  DatabaseConfig{Provider: "mariadb", Host: "db", Port: 3307, Name: "shop", User: "root", Password: "pw"},
			want: "root:pw@tcp(db:3307)/shop?parseTime=true",
		},
		{
			name: "sqlserver",
			cfg:  DatabaseConfig{Provider: "localdb", Host: "db", Name: "app", User: "sa", Password: "pw"},
			want: "sqlserver://sa:pw@db:1433?database=app",
		},
		{
			name: "sqlserver windows auth",
			cfg:  DatabaseConfig{Host: "db", Name: "app", WindowsAuth: true},
			want: "sqlserver://db:1433?database=app&integrated+security=SSPI",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ConnectionString()
			if err != nil {
				t.Fatalf("ConnectionString() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ConnectionString() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := (DatabaseConfig{}).ConnectionString(); err == nil {
		t.Error("empty DatabaseConfig must not produce a connection string")
	}
}

type countingObserver struct{ calls int }

func (o *countingObserver) ObserveOperation(adapters.Provider, string, string, time.Duration, error) {
	o.calls++
}

func TestConfig_Deps(t *testing.T) {
	cfg := Default()
	cfg.Database.DSN = "sqlserver://sa:pw@db:1433?database=app"
	cfg.Timeouts.Query = 10 * time.Second
	cfg.Security.ForbiddenTables = []string{"secrets"}
	cfg.Security.BcryptCost = 4

	logger := NewLogger(cfg.Logging, &bytes.Buffer{})
	obs := &countingObserver{}
	deps, err := cfg.Deps(&logger, obs)
	if err != nil {
		t.Fatalf("Deps() error = %v", err)
	}

	if deps.Timeouts.Query != 10*time.Second || deps.Timeouts.Procedure != 300*time.Second {
		t.Errorf("Timeouts = %+v", deps.Timeouts)
	}
	if deps.Policy == nil {
		t.Fatal("Policy not set for forbidden tables")
	}
	err = deps.Policy.CheckTable(adapters.TableDescriptor{Schema: "dbo", Name: "Secrets"})
	if !errors.Is(err, adapters.ErrForbiddenTable) {
		t.Errorf("CheckTable() = %v, want ErrForbiddenTable", err)
	}
	if deps.Observer != obs {
		t.Error("Observer not passed through")
	}
	dsn, err := deps.Connections.ConnectionString()
	if err != nil || dsn != cfg.Database.DSN {
		t.Errorf("Connections = %q, %v", dsn, err)
	}
	hash, err := deps.Hasher.Encrypt("secret")
	if err != nil || hash == "secret" || !strings.HasPrefix(hash, "$2a$04$") {
		t.Errorf("Hasher.Encrypt() = %q, %v", hash, err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("table", "users").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, `"table":"users"`) || !strings.Contains(out, `"app":"dbgate"`) {
		t.Errorf("unexpected json output: %s", out)
	}
}

func TestSaveAndSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.yaml")
	if err := Save(path, Sample("postgres")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(sample) error = %v", err)
	}
	if cfg.Database.Port != 5432 || cfg.Database.SSLMode != "disable" {
		t.Errorf("sample database = %+v", cfg.Database)
	}
}

func TestAuditConfig_OpenAudit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "trail.log")
	cfg := Default().Audit
	cfg.Enabled = true
	cfg.File = path
	cfg.User = "etl"
	cfg.Async = false

	trail, err := cfg.OpenAudit(context.Background(), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenAudit() error = %v", err)
	}
	trail.ObserveOperation(adapters.ProviderMySQL, "delete", "orders", time.Millisecond, nil)
	if err := trail.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read trail: %v", err)
	}
	for _, want := range []string{`"operation":"delete"`, `"resource":"orders"`, `"user":"etl"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("trail %s lacks %s", data, want)
		}
	}
}

func TestAuditConfig_OpenAuditToLog(t *testing.T) {
	var buf bytes.Buffer
	cfg := AuditConfig{File: "-", Level: "minimal", Format: "json", Async: true}

	trail, err := cfg.OpenAudit(context.Background(), zerolog.New(&buf))
	if err != nil {
		t.Fatalf("OpenAudit() error = %v", err)
	}
	trail.ObserveOperation(adapters.ProviderPostgreSQL, "obtain_rows", "public.users", time.Millisecond, nil)
	if err := trail.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"component":"audit"`) || !strings.Contains(out, `"op":"obtain_rows"`) {
		t.Errorf("unexpected log output: %s", out)
	}
	if strings.Contains(out, "public.users") {
		t.Errorf("minimal level leaked the resource: %s", out)
	}

	if _, err := (AuditConfig{File: "-", Level: "loud"}).OpenAudit(context.Background(), zerolog.Nop()); err == nil {
		t.Error("OpenAudit() accepted an unknown level")
	}
}

func TestAuditConfig_OpenAuditSinks(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := AuditConfig{File: "-", Level: "standard", Format: "json"}
	cfg.Redis.Address = mr.Addr()

	trail, err := cfg.OpenAudit(context.Background(), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenAudit() error = %v", err)
	}
	trail.ObserveOperation(adapters.ProviderSQLServer, "update", "dbo.users", time.Millisecond, nil)
	if err := trail.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !mr.Exists("dbgate:last:sqlserver:update") {
		t.Error("redis sink did not store the last update")
	}

	cfg.Redis.Address = ""
	cfg.Broker.Type = "msmq"
	if _, err := cfg.OpenAudit(context.Background(), zerolog.Nop()); err == nil {
		t.Error("OpenAudit() accepted an unsupported broker")
	}
}

func TestLoad_AuditBrokerFromEnv(t *testing.T) {
	path := writeConfig(t, "database:\n  connection_string: x\n")
	t.Setenv("DBGATE_AUDIT__BROKER__TYPE", "Kafka")
	t.Setenv("DBGATE_AUDIT__BROKER__BROKERS", "k1:9092,k2:9092")
	t.Setenv("DBGATE_AUDIT__BROKER__TOPIC", "dbgate-audit")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Audit.Broker.Type != "kafka" || strings.Join(cfg.Audit.Broker.Brokers, ",") != "k1:9092,k2:9092" {
		t.Errorf("Broker = %+v", cfg.Audit.Broker)
	}

	t.Setenv("DBGATE_AUDIT__BROKER__TOPIC", "")
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted a kafka broker without topic")
	}
}

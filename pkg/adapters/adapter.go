package adapters

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/core/value"
)

// Default limits shared by every backend.
const (
	DefaultRowLimit = 1000
	DefaultMaxRows  = 10000
)

// Timeouts - per-command deadlines applied on top of the caller's context
type Timeouts struct {
	// Validate bounds ValidateQuery (SQL Server PARSEONLY round trips)
	Validate time.Duration

	// Query bounds ExecuteQuery and every table-CRUD statement
	Query time.Duration

	// Procedure bounds ExecuteProcedure
	Procedure time.Duration

	// Catalog bounds column-type and parameter catalog lookups
	Catalog time.Duration
}

// DefaultTimeouts returns the stock deadlines.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Validate:  5 * time.Second,
		Query:     30 * time.Second,
		Procedure: 300 * time.Second,
		Catalog:   15 * time.Second,
	}
}

// WithDefaults fills zero fields from DefaultTimeouts.
func (t Timeouts) WithDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Validate <= 0 {
		t.Validate = d.Validate
	}
	if t.Query <= 0 {
		t.Query = d.Query
	}
	if t.Procedure <= 0 {
		t.Procedure = d.Procedure
	}
	if t.Catalog <= 0 {
		t.Catalog = d.Catalog
	}
	return t
}

// Deps - collaborators handed to a backend constructor
type Deps struct {
	// Connections supplies the connection string; called lazily on first use
	Connections ConnectionProvider

	// Hasher encrypts the fields named in encryptFields
	Hasher Hasher

	// Logger receives warnings and debug output; nil discards
	Logger *zerolog.Logger

	// Timeouts per command class; zero fields take defaults
	Timeouts Timeouts

	// Pool sizing for the underlying *sql.DB; zero keeps driver defaults
	MaxOpenConns int
	MaxIdleConns int

	// ColumnTypes overrides the catalog-backed column type lookup (PostgreSQL)
	ColumnTypes ColumnTypeResolver

	// Parameters overrides the catalog-backed routine parameter lookup
	Parameters ParameterCatalogResolver

	// Policy, when set, vets every table name before any I/O
	Policy TablePolicy

	// Observer, when set, is told the outcome of every repository call
	Observer Observer
}

// BackendLogger returns the logger for one backend, tagged with its name.
func (d Deps) BackendLogger(backend string) zerolog.Logger {
	if d.Logger == nil {
		return zerolog.Nop()
	}
	return d.Logger.With().Str("backend", backend).Logger()
}

// TablePolicy rejects tables the deployment must not expose.
type TablePolicy interface {
	CheckTable(table TableDescriptor) error
}

// Observer records the outcome of repository calls. resource is the table or
// routine the call named; it is empty for ad-hoc SQL and database-wide calls.
type Observer interface {
	ObserveOperation(provider Provider, op, resource string, elapsed time.Duration, err error)
}

// Observers fans one call out to several observers.
type Observers []Observer

// ObserveOperation implements Observer.
func (o Observers) ObserveOperation(provider Provider, op, resource string, elapsed time.Duration, err error) {
	for _, obs := range o {
		if obs != nil {
			obs.ObserveOperation(provider, op, resource, elapsed, err)
		}
	}
}

// TableRepository - CRUD against a named table without caller-written SQL.
//
// Every implementation quotes identifiers with its dialect rules and binds
// values as parameters. Each call uses its own connection.
type TableRepository interface {
	// ObtainRows returns up to limit rows (DefaultRowLimit when nil)
	ObtainRows(ctx context.Context, table, schema string, limit *int) ([]value.Row, error)

	// ObtainByKey returns every row whose keyColumn equals keyValue
	ObtainByKey(ctx context.Context, table, schema, keyColumn, keyValue string) ([]value.Row, error)

	// Create inserts data; encryptFields is a comma-separated list of columns
	// whose values are replaced by their hash before insertion
	Create(ctx context.Context, table, schema string, data value.Row, encryptFields string) (bool, error)

	// Update sets data on rows matching the key and returns the affected count
	Update(ctx context.Context, table, schema, keyColumn, keyValue string, data value.Row, encryptFields string) (int64, error)

	// Delete removes rows matching the key and returns the affected count
	Delete(ctx context.Context, table, schema, keyColumn, keyValue string) (int64, error)

	// ObtainPasswordHash returns the stored hash for userValue, nil when absent
	ObtainPasswordHash(ctx context.Context, table, schema, userColumn, passwordColumn, userValue string) (*string, error)
}

// QueryRepository - ad-hoc queries, stored procedures and catalog metadata
type QueryRepository interface {
	// ExecuteQuery runs sqlText with named parameters
	ExecuteQuery(ctx context.Context, sqlText string, params map[string]value.Value, maxRows int, schema string) (*value.Table, error)

	// ValidateQuery checks syntax and object resolution without executing
	ValidateQuery(ctx context.Context, sqlText string, params map[string]value.Value) (ValidationResult, error)

	// ExecuteProcedure invokes a stored routine and echoes its OUT parameters
	ExecuteProcedure(ctx context.Context, name string, params map[string]value.Value) (*value.Table, error)

	// ObtainTableSchema finds the schema that owns table, preferring defaultSchema
	ObtainTableSchema(ctx context.Context, table, defaultSchema string) (*string, error)

	// ObtainTableStructure describes the columns of table
	ObtainTableStructure(ctx context.Context, table, schema string) ([]ColumnMetadata, error)

	// ObtainDatabaseStructure lists every column of every user table
	ObtainDatabaseStructure(ctx context.Context, databaseName string) (*value.Table, error)
}

// Backend - the repository pair chosen once at startup
type Backend struct {
	Provider Provider
	Tables   TableRepository
	Queries  QueryRepository

	closer func() error
}

// Close releases the connection pool behind the backend.
func (b *Backend) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	return b.closer()
}

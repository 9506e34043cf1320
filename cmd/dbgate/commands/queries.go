package commands

import (
	"context"
	"fmt"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/core/value"
	"github.com/ruslano69/dbgate/pkg/security"
)

// QueryOptions carries the arguments of the query commands.
type QueryOptions struct {
	SQL     string
	Params  map[string]value.Value
	MaxRows int
	Schema  string

	Procedure string

	Table         string
	DefaultSchema string
	Database      string
}

// SchemaResult is the outcome of FindSchema.
type SchemaResult struct {
	Table  string  `json:"table" yaml:"table"`
	Found  bool    `json:"found" yaml:"found"`
	Schema *string `json:"schema" yaml:"schema"`
}

// ExecuteQuery runs ad-hoc SQL after the guard accepts it.
func ExecuteQuery(ctx context.Context, repo adapters.QueryRepository, guard *security.QueryGuard, opts QueryOptions) (*value.Table, error) {
	if guard != nil {
		if err := guard.Check(opts.SQL); err != nil {
			return nil, err
		}
	}
	return repo.ExecuteQuery(ctx, opts.SQL, opts.Params, opts.MaxRows, opts.Schema)
}

// ValidateQuery checks SQL without running it.
func ValidateQuery(ctx context.Context, repo adapters.QueryRepository, opts QueryOptions) (adapters.ValidationResult, error) {
	return repo.ValidateQuery(ctx, opts.SQL, opts.Params)
}

// ExecuteProcedure calls a stored routine.
func ExecuteProcedure(ctx context.Context, repo adapters.QueryRepository, opts QueryOptions) (*value.Table, error) {
	t, err := repo.ExecuteProcedure(ctx, opts.Procedure, opts.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s: %w", opts.Procedure, err)
	}
	return t, nil
}

// FindSchema resolves the schema that owns a table.
func FindSchema(ctx context.Context, repo adapters.QueryRepository, opts QueryOptions) (*SchemaResult, error) {
	schema, err := repo.ObtainTableSchema(ctx, opts.Table, opts.DefaultSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema of %s: %w", opts.Table, err)
	}
	return &SchemaResult{Table: opts.Table, Found: schema != nil, Schema: schema}, nil
}

// DescribeTable lists the columns of a table.
func DescribeTable(ctx context.Context, repo adapters.QueryRepository, opts QueryOptions) ([]adapters.ColumnMetadata, error) {
	cols, err := repo.ObtainTableStructure(ctx, opts.Table, opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", opts.Table, err)
	}
	return cols, nil
}

// DatabaseStructure lists every column of every user table.
func DatabaseStructure(ctx context.Context, repo adapters.QueryRepository, opts QueryOptions) (*value.Table, error) {
	t, err := repo.ObtainDatabaseStructure(ctx, opts.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to read database structure: %w", err)
	}
	return t, nil
}

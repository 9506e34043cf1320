package commands

import (
	"context"
	"fmt"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

// TableOptions carries the arguments of the table commands.
type TableOptions struct {
	Table  string
	Schema string

	// Limit for ObtainRows; 0 selects the backend default
	Limit int

	KeyColumn string
	KeyValue  string

	Rows          []value.Row
	EncryptFields string

	UserColumn     string
	PasswordColumn string
	User           string
}

// Count reports the affected rows of a write command.
type Count struct {
	Operation string `json:"operation" yaml:"operation"`
	Table     string `json:"table" yaml:"table"`
	Affected  int64  `json:"affected" yaml:"affected"`
}

// HashResult is the outcome of PasswordHash.
type HashResult struct {
	User  string  `json:"user" yaml:"user"`
	Found bool    `json:"found" yaml:"found"`
	Hash  *string `json:"hash" yaml:"hash"`
}

// ObtainRows lists rows of a table.
func ObtainRows(ctx context.Context, repo adapters.TableRepository, opts TableOptions) (*value.Table, error) {
	var limit *int
	if opts.Limit != 0 {
		limit = &opts.Limit
	}
	rows, err := repo.ObtainRows(ctx, opts.Table, opts.Schema, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", opts.Table, err)
	}
	return toTable(rows), nil
}

// ObtainByKey lists the rows matching the key.
func ObtainByKey(ctx context.Context, repo adapters.TableRepository, opts TableOptions) (*value.Table, error) {
	rows, err := repo.ObtainByKey(ctx, opts.Table, opts.Schema, opts.KeyColumn, opts.KeyValue)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s by %s: %w", opts.Table, opts.KeyColumn, err)
	}
	return toTable(rows), nil
}

// Create inserts every row in opts.Rows and stops at the first failure.
func Create(ctx context.Context, repo adapters.TableRepository, opts TableOptions) (*Count, error) {
	res := &Count{Operation: "create", Table: opts.Table}
	for i, row := range opts.Rows {
		ok, err := repo.Create(ctx, opts.Table, opts.Schema, row, opts.EncryptFields)
		if err != nil {
			return res, fmt.Errorf("row %d: %w", i+1, err)
		}
		if ok {
			res.Affected++
		}
	}
	return res, nil
}

// Update applies the single row in opts.Rows to the rows matching the key.
func Update(ctx context.Context, repo adapters.TableRepository, opts TableOptions) (*Count, error) {
	if len(opts.Rows) != 1 {
		return nil, fmt.Errorf("update takes exactly one data row, got %d", len(opts.Rows))
	}
	n, err := repo.Update(ctx, opts.Table, opts.Schema, opts.KeyColumn, opts.KeyValue, opts.Rows[0], opts.EncryptFields)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", opts.Table, err)
	}
	return &Count{Operation: "update", Table: opts.Table, Affected: n}, nil
}

// Delete removes the rows matching the key.
func Delete(ctx context.Context, repo adapters.TableRepository, opts TableOptions) (*Count, error) {
	n, err := repo.Delete(ctx, opts.Table, opts.Schema, opts.KeyColumn, opts.KeyValue)
	if err != nil {
		return nil, fmt.Errorf("failed to delete from %s: %w", opts.Table, err)
	}
	return &Count{Operation: "delete", Table: opts.Table, Affected: n}, nil
}

// PasswordHash looks up the stored hash of one user.
func PasswordHash(ctx context.Context, repo adapters.TableRepository, opts TableOptions) (*HashResult, error) {
	hash, err := repo.ObtainPasswordHash(ctx, opts.Table, opts.Schema, opts.UserColumn, opts.PasswordColumn, opts.User)
	if err != nil {
		return nil, fmt.Errorf("failed to read password hash: %w", err)
	}
	return &HashResult{User: opts.User, Found: hash != nil, Hash: hash}, nil
}

func toTable(rows []value.Row) *value.Table {
	t := value.NewTable()
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

// Package postgres implements the PostgreSQL backend on top of pgx.
//
// Connections come from a pgxpool.Pool exposed through database/sql, so the
// repositories share the per-call *sql.Conn model of the other backends
// while pool sizing follows pgxpool rules.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
)

// DriverName is the database/sql driver registered by pgx/v5/stdlib.
const DriverName = "pgx"

// DefaultSchema is assumed when the caller passes none.
const DefaultSchema = "public"

// Pool defaults applied when Deps leaves sizing at zero.
const (
	defaultMaxConns = 10
	defaultMinConns = 2
)

func init() {
	adapters.Register(adapters.ProviderPostgreSQL, New)
}

// New builds the PostgreSQL backend. The pool is created on the first
// repository call.
func New(deps adapters.Deps) (*adapters.Backend, error) {
	opener := &poolOpener{maxConns: deps.MaxOpenConns, minConns: deps.MaxIdleConns}
	conn := base.NewConnector(DriverName, deps.Connections, base.WithOpenFunc(opener.open))

	backend := NewWithConnector(conn, deps)
	return adapters.NewBackend(backend.Tables, backend.Queries, func() error {
		err := conn.Close()
		opener.close()
		return err
	}), nil
}

// NewWithConnector builds the backend over an existing connector.
func NewWithConnector(conn *base.Connector, deps adapters.Deps) *adapters.Backend {
	deps.Timeouts = deps.Timeouts.WithDefaults()
	return adapters.NewBackend(
		NewTableRepository(conn, deps),
		NewQueryRepository(conn, deps),
		conn.Close,
	)
}

// poolOpener is a base.OpenFunc that builds a pgxpool.Pool and wraps it in
// a *sql.DB.
type poolOpener struct {
	maxConns int
	minConns int
	pool     *pgxpool.Pool
}

func (o *poolOpener) open(_, dsn string) (*sql.DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if o.maxConns > 0 {
		config.MaxConns = int32(o.maxConns)
	} else {
		config.MaxConns = defaultMaxConns
	}
	if o.minConns > 0 {
		config.MinConns = int32(o.minConns)
	} else {
		config.MinConns = defaultMinConns
	}
	if config.MinConns > config.MaxConns {
		config.MinConns = config.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	o.pool = pool
	return stdlib.OpenDBFromPool(pool), nil
}

func (o *poolOpener) close() {
	if o.pool != nil {
		o.pool.Close()
	}
}

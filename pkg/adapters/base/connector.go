package base

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/ruslano69/dbgate/pkg/adapters"
)

// OpenFunc opens a database handle; sql.Open by default, a sqlmock opener in tests.
type OpenFunc func(driverName, dsn string) (*sql.DB, error)

// Connector lazily opens one *sql.DB and hands out one *sql.Conn per call.
// The connection string is fetched on first use only.
type Connector struct {
	driver   string
	provider adapters.ConnectionProvider
	open     OpenFunc
	maxOpen  int
	maxIdle  int

	once sync.Once
	db   *sql.DB
	err  error
}

// ConnectorOption customises a Connector.
type ConnectorOption func(*Connector)

// WithOpenFunc replaces sql.Open.
func WithOpenFunc(open OpenFunc) ConnectorOption {
	return func(c *Connector) { c.open = open }
}

// WithPoolLimits sets MaxOpenConns and MaxIdleConns; zero keeps driver defaults.
func WithPoolLimits(maxOpen, maxIdle int) ConnectorOption {
	return func(c *Connector) {
		c.maxOpen = maxOpen
		c.maxIdle = maxIdle
	}
}

// NewConnector creates a Connector for driverName.
func NewConnector(driverName string, provider adapters.ConnectionProvider, opts ...ConnectorOption) *Connector {
	c := &Connector{
		driver:   driverName,
		provider: provider,
		open:     sql.Open,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewConnectorFromDB wraps an already opened handle.
func NewConnectorFromDB(db *sql.DB) *Connector {
	c := &Connector{db: db}
	c.once.Do(func() {})
	return c
}

// DB returns the shared handle, opening it on first call.
func (c *Connector) DB() (*sql.DB, error) {
	c.once.Do(func() {
		if c.provider == nil {
			c.err = errors.New("no connection provider configured")
			return
		}
		dsn, err := c.provider.ConnectionString()
		if err != nil {
			c.err = fmt.Errorf("failed to obtain connection string: %w", err)
			return
		}
		db, err := c.open(c.driver, dsn)
		if err != nil {
			c.err = fmt.Errorf("failed to open %s: %w", c.driver, err)
			return
		}
		if c.maxOpen > 0 {
			db.SetMaxOpenConns(c.maxOpen)
		}
		if c.maxIdle > 0 {
			db.SetMaxIdleConns(c.maxIdle)
		}
		c.db = db
	})
	return c.db, c.err
}

// Conn acquires a dedicated connection. The caller must Close it.
func (c *Connector) Conn(ctx context.Context) (*sql.Conn, error) {
	db, err := c.DB()
	if err != nil {
		return nil, &adapters.OperationError{Op: "connect", Category: adapters.CategoryConnection, Cause: err}
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		category := adapters.CategoryConnection
		if cat, ok := adapters.ContextCategory(err); ok {
			category = cat
		}
		return nil, &adapters.OperationError{Op: "connect", Category: category, Cause: err}
	}
	return conn, nil
}

// Close closes the shared handle if it was opened.
func (c *Connector) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

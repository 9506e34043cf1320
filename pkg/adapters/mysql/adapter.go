// Package mysql implements the MySQL / MariaDB backend on top of
// github.com/go-sql-driver/mysql.
package mysql

import (
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
)

// DriverName is the database/sql driver used for every connection.
const DriverName = "mysql"

func init() {
	adapters.Register(adapters.ProviderMySQL, New)
}

// New builds the MySQL backend. The database is not contacted until the
// first repository call.
func New(deps adapters.Deps) (*adapters.Backend, error) {
	conn := base.NewConnector(DriverName, deps.Connections,
		base.WithOpenFunc(openDB),
		base.WithPoolLimits(deps.MaxOpenConns, deps.MaxIdleConns))
	return NewWithConnector(conn, deps), nil
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

// openDB parses dsn and forces parseTime so DATE and DATETIME columns scan
// as time.Time. Multi-result support stays on for CALL.
func openDB(_, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// dsnDatabase returns the database named in the connection string, or ""
// when it cannot be determined.
func dsnDatabase(provider adapters.ConnectionProvider) string {
	if provider == nil {
		return ""
	}
	dsn, err := provider.ConnectionString()
	if err != nil {
		return ""
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return ""
	}
	return cfg.DBName
}

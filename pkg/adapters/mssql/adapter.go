// Package mssql implements the SQL Server family backend (SQL Server,
// SQL Server Express, LocalDB) on top of github.com/denisenkom/go-mssqldb.
package mssql

import (
	_ "github.com/denisenkom/go-mssqldb" // registers the "sqlserver" driver

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
)

// DriverName is the database/sql driver used for every connection.
// "sqlserver" accepts @name and @pN parameters.
const DriverName = "sqlserver"

// DefaultSchema is assumed by metadata lookups when none is given.
const DefaultSchema = "dbo"

func init() {
	adapters.Register(adapters.ProviderSQLServer, New)
}

// New builds the SQL Server backend. The database is not contacted until the
// first repository call.
func New(deps adapters.Deps) (*adapters.Backend, error) {
	conn := base.NewConnector(DriverName, deps.Connections,
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

/*
Package adapters defines the database-agnostic data-access contracts and the
backend selector.

# Layers

	┌─────────────────────────────────────────┐
	│   Caller (CLI, HTTP layer, jobs)        │
	└─────────────────┬───────────────────────┘
	                  │  *adapters.Backend
	┌─────────────────▼───────────────────────┐
	│  TableRepository / QueryRepository      │  ← pkg/adapters/adapter.go
	│  (policy + metrics decorator)           │  ← pkg/adapters/guarded.go
	└─────────────────┬───────────────────────┘
	                  │
	        ┌─────────┼─────────┐
	        │         │         │
	┌───────▼────┐ ┌──▼──────┐ ┌▼────────┐
	│ SQL Server │ │PostgreSQL│ │ MySQL   │  ← pkg/adapters/{mssql,postgres,mysql}
	└────────────┘ └──────────┘ └─────────┘
	        shared helpers: pkg/adapters/base

# Selecting a backend

The provider name is resolved once with ParseProvider:

  - "postgres", "postgresql"                            → PostgreSQL
  - "mysql", "mariadb"                                  → MySQL
  - "sqlserver", "sqlserverexpress", "localdb", "mssql" → SQL Server
  - anything else, including ""                         → SQL Server

Backends register themselves from init(), so a binary links only the
drivers it imports:

	import (
	    "github.com/ruslano69/dbgate/pkg/adapters"
	    _ "github.com/ruslano69/dbgate/pkg/adapters/postgres"
	)

	backend, err := adapters.Bind("postgresql", adapters.Deps{
	    Connections: adapters.ConnectionString(dsn),
	    Hasher:      hasher,
	    Logger:      &logger,
	})
	if err != nil {
	    return err
	}
	defer backend.Close()

	rows, err := backend.Tables.ObtainByKey(ctx, "orders", "", "created_at", "2025-02-01")

# Errors

Structural input problems are reported before any I/O and satisfy
errors.Is(err, ErrInvalidInput). Backend failures are *OperationError values
carrying a dialect-independent Category, the truncated statement and the
driver error as Cause.
*/
package adapters

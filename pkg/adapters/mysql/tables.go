package mysql

import (
	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
)

// TableRepository - table CRUD for MySQL. Keys are bound as the raw string;
// the server converts implicitly.
type TableRepository struct {
	*base.TableHelper
}

var _ adapters.TableRepository = (*TableRepository)(nil)

// NewTableRepository creates the repository; each call takes its own
// connection from conn.
func NewTableRepository(conn *base.Connector, deps adapters.Deps) *TableRepository {
	return &TableRepository{
		TableHelper: &base.TableHelper{
			Dialect:  base.MySQL,
			Conn:     conn,
			Binder:   base.PlainBinder{Dialect: base.MySQL},
			Decode:   decodeColumn,
			Classify: classify,
			Hasher:   deps.Hasher,
			Logger:   deps.BackendLogger(DriverName),
			Timeout:  deps.Timeouts.WithDefaults().Query,
		},
	}
}

package mssql

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/adapters/base"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

// TableRepository - table CRUD for SQL Server
type TableRepository struct {
	*base.TableHelper
}

var _ adapters.TableRepository = (*TableRepository)(nil)

// NewTableRepository creates the repository; each call takes its own
// connection from conn.
func NewTableRepository(conn *base.Connector, deps adapters.Deps) *TableRepository {
	return &TableRepository{
		TableHelper: &base.TableHelper{
			Dialect:   base.SQLServer,
			Conn:      conn,
			Binder:    binder{},
			Decode:    decodeColumn,
			Classify:  classify,
			Statement: typedStatement,
			Hasher:    deps.Hasher,
			Logger:    deps.BackendLogger(DriverName),
			Timeout:   deps.Timeouts.WithDefaults().Query,
		},
	}
}

// binder hands out Bindings; typedStatement turns them into declared
// sp_executesql arguments.
type binder struct{}

func (binder) KeyPredicate(_ context.Context, _ adapters.TableDescriptor, column, raw string, _ bool) (sq.Sqlizer, error) {
	return sq.Eq{base.SQLServer.QuoteIdentifier(column): Bind(value.Text(raw))}, nil
}

func (binder) DataArgs(_ context.Context, _ adapters.TableDescriptor, data value.Row) ([]any, error) {
	args := make([]any, data.Len())
	for i := range args {
		_, v := data.At(i)
		args[i] = Bind(v)
	}
	return args, nil
}

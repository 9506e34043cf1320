// Package base holds the logic shared by the SQL Server, PostgreSQL and
// MySQL backends.
//
// # Components
//
// Dialect - identifier quoting, table qualification and squirrel placeholder
// format per backend:
//
//	SQL Server:  [schema].[table]   @p1   SELECT TOP (n) *
//	PostgreSQL:  "schema"."table"   $1    LIMIT n
//	MySQL:       `schema`.`table`   ?     LIMIT n
//
// Connector - opens the *sql.DB on first use and hands out one *sql.Conn per
// repository call. The connection is released on every exit path.
//
// TableHelper - the table CRUD operations. A dialect plugs in a ValueBinder
// (how keys and data become arguments), a ColumnDecoder (how scanned values
// become value.Value) and a Classifier (how driver errors map to categories).
//
// RewriteNamed - turns @name / :name markers into $n or ? for drivers without
// named parameters, leaving literals, comments and casts alone.
//
// # Usage
//
//	conn := base.NewConnector("pgx", deps.Connections)
//	tables := &base.TableHelper{
//	    Dialect:  base.PostgreSQL,
//	    Conn:     conn,
//	    Binder:   binder,
//	    Decode:   kinds.KindDecoder(),
//	    Classify: classify,
//	}
package base

package base

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect captures the SQL spelling differences between backends.
type Dialect struct {
	// Name for logs and errors: "sqlserver", "postgres", "mysql"
	Name string

	// OpenQuote and CloseQuote delimit identifiers; CloseQuote is doubled
	// when it appears inside a name
	OpenQuote  string
	CloseQuote string

	// Placeholder is the squirrel placeholder format of the driver
	Placeholder sq.PlaceholderFormat

	// TopClause selects row limiting with SELECT TOP (n) instead of LIMIT n
	TopClause bool

	// DefaultSchema is used when the caller passes no schema; empty means
	// the table name is left unqualified
	DefaultSchema string
}

// Stock dialects.
var (
	SQLServer = Dialect{
		Name:        "sqlserver",
		OpenQuote:   "[",
		CloseQuote:  "]",
		Placeholder: sq.AtP,
		TopClause:   true,
	}

	PostgreSQL = Dialect{
		Name:          "postgres",
		OpenQuote:     `"`,
		CloseQuote:    `"`,
		Placeholder:   sq.Dollar,
		DefaultSchema: "public",
	}

	MySQL = Dialect{
		Name:        "mysql",
		OpenQuote:   "`",
		CloseQuote:  "`",
		Placeholder: sq.Question,
	}
)

// QuoteIdentifier wraps name in the dialect quotes, doubling any embedded
// closing quote.
//
//	SQL Server: [name]   PostgreSQL: "name"   MySQL: `name`
func (d Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.CloseQuote, d.CloseQuote+d.CloseQuote)
	return d.OpenQuote + escaped + d.CloseQuote
}

// QualifiedTable returns the quoted table reference. schema falls back to
// DefaultSchema; when both are empty the name stays unqualified.
func (d Dialect) QualifiedTable(schema, table string) string {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = d.DefaultSchema
	}
	if s == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(s) + "." + d.QuoteIdentifier(table)
}

// QualifiedRoutine quotes a possibly schema-qualified routine name
// ("dbo.proc" or "proc").
func (d Dialect) QualifiedRoutine(name string) string {
	schema, routine := SplitQualifiedName(name)
	if schema == "" {
		return d.QuoteIdentifier(routine)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(routine)
}

// Builder returns a squirrel statement builder with the dialect placeholders.
func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

// SelectAll builds SELECT * FROM table limited to n rows.
func (d Dialect) SelectAll(schema, table string, n int) sq.SelectBuilder {
	b := d.Builder().Select("*").From(d.QualifiedTable(schema, table))
	if d.TopClause {
		return b.Options(fmt.Sprintf("TOP (%d)", n))
	}
	return b.Limit(uint64(n))
}

// SplitQualifiedName splits "schema.name" at the last unquoted dot and strips
// one layer of [], "" or `` quoting from each part.
func SplitQualifiedName(name string) (schema, object string) {
	name = strings.TrimSpace(name)
	idx := -1
	depth := byte(0)
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case depth == 0 && (c == '[' || c == '"' || c == '`'):
			depth = closingFor(c)
		case depth != 0 && c == depth:
			depth = 0
		case depth == 0 && c == '.':
			idx = i
		}
	}
	if idx < 0 {
		return "", unquote(name)
	}
	return unquote(name[:idx]), unquote(name[idx+1:])
}

func closingFor(open byte) byte {
	if open == '[' {
		return ']'
	}
	return open
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '[' && last == ']') || (first == '"' && last == '"') || (first == '`' && last == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

package value

import "strings"

// Table is a result set: column names in select order plus rows.
type Table struct {
	Columns []string `json:"columns" yaml:"columns"`
	Rows    []Row    `json:"rows" yaml:"rows"`
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns, Rows: []Row{}}
}

// Append adds r, registering any column the table has not seen yet.
func (t *Table) Append(r Row) {
	for _, c := range r.names {
		if !t.hasColumn(c) {
			t.Columns = append(t.Columns, c)
		}
	}
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) hasColumn(name string) bool {
	for _, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

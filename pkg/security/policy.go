package security

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ruslano69/dbgate/pkg/adapters"
)

// ForbiddenTables rejects a configured set of tables before any query runs.
//
// Entries are "table" or "schema.table" and match case-insensitively. A bare
// table entry blocks the name in every schema.
type ForbiddenTables struct {
	anySchema map[string]struct{}
	qualified map[string]struct{}
}

var _ adapters.TablePolicy = (*ForbiddenTables)(nil)

// NewForbiddenTables builds the policy from configuration entries. Blank
// entries are ignored.
func NewForbiddenTables(entries []string) *ForbiddenTables {
	p := &ForbiddenTables{
		anySchema: make(map[string]struct{}),
		qualified: make(map[string]struct{}),
	}
	for _, e := range entries {
		schema, table := splitEntry(e)
		if table == "" {
			continue
		}
		if schema == "" {
			p.anySchema[table] = struct{}{}
		} else {
			p.qualified[schema+"."+table] = struct{}{}
		}
	}
	return p
}

// CheckTable implements adapters.TablePolicy.
func (p *ForbiddenTables) CheckTable(table adapters.TableDescriptor) error {
	name := strings.ToLower(strings.TrimSpace(table.Name))
	if _, ok := p.anySchema[name]; ok {
		return fmt.Errorf("%w: %s", adapters.ErrForbiddenTable, table)
	}
	schema := strings.ToLower(strings.TrimSpace(table.Schema))
	if schema != "" {
		if _, ok := p.qualified[schema+"."+name]; ok {
			return fmt.Errorf("%w: %s", adapters.ErrForbiddenTable, table)
		}
	}
	return nil
}

// Len returns the number of configured entries.
func (p *ForbiddenTables) Len() int { return len(p.anySchema) + len(p.qualified) }

// Entries lists the configured entries in name order.
func (p *ForbiddenTables) Entries() []string {
	out := make([]string, 0, p.Len())
	for t := range p.anySchema {
		out = append(out, t)
	}
	for t := range p.qualified {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func splitEntry(e string) (schema, table string) {
	e = strings.ToLower(strings.TrimSpace(e))
	if i := strings.LastIndexByte(e, '.'); i >= 0 {
		return strings.TrimSpace(e[:i]), strings.TrimSpace(e[i+1:])
	}
	return "", e
}

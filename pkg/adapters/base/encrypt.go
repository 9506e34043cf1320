package base

import (
	"fmt"
	"strings"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

// ParseEncryptFields splits a comma-separated column list into a
// lower-cased set. Blank entries are ignored.
func ParseEncryptFields(list string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range strings.Split(list, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}

// EncryptFields returns a copy of data where every listed column holding a
// non-NULL value is replaced by hasher.Encrypt of its text form. data itself
// is not modified.
func EncryptFields(data value.Row, list string, hasher adapters.Hasher) (value.Row, error) {
	fields := ParseEncryptFields(list)
	if len(fields) == 0 {
		return data, nil
	}

	out := data.Clone()
	for i := 0; i < out.Len(); i++ {
		name, v := out.At(i)
		if _, ok := fields[strings.ToLower(name)]; !ok || v.IsNull() {
			continue
		}
		if hasher == nil {
			return value.Row{}, fmt.Errorf("column %s must be encrypted but no hasher is configured", name)
		}
		hashed, err := hasher.Encrypt(v.String())
		if err != nil {
			return value.Row{}, fmt.Errorf("failed to encrypt column %s: %w", name, err)
		}
		out.Set(name, value.Text(hashed))
	}
	return out, nil
}

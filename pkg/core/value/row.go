package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Row is an ordered set of named values.
// Column lookup is case-insensitive; the first spelling of a column wins.
type Row struct {
	names  []string
	values []Value
	index  map[string]int
}

// NewRow returns an empty row with room for n columns.
func NewRow(n int) Row {
	return Row{
		names:  make([]string, 0, n),
		values: make([]Value, 0, n),
		index:  make(map[string]int, n),
	}
}

// RowOf builds a row from pairs, kept in argument order.
func RowOf(pairs ...Pair) Row {
	r := NewRow(len(pairs))
	for _, p := range pairs {
		r.Set(p.Name, p.Value)
	}
	return r
}

// Pair is one named value.
type Pair struct {
	Name  string
	Value Value
}

// P is shorthand for Pair{name, v}.
func P(name string, v Value) Pair { return Pair{Name: name, Value: v} }

// Set assigns v to column name, appending the column if it is new.
func (r *Row) Set(name string, v Value) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	key := strings.ToLower(name)
	if i, ok := r.index[key]; ok {
		r.values[i] = v
		return
	}
	r.index[key] = len(r.names)
	r.names = append(r.names, name)
	r.values = append(r.values, v)
}

// Get returns the value of column name.
func (r Row) Get(name string) (Value, bool) {
	i, ok := r.index[strings.ToLower(name)]
	if !ok {
		return Null(), false
	}
	return r.values[i], true
}

// Has reports whether the row carries column name.
func (r Row) Has(name string) bool {
	_, ok := r.index[strings.ToLower(name)]
	return ok
}

// Columns returns the column names in insertion order.
func (r Row) Columns() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// At returns the i-th column name and value.
func (r Row) At(i int) (string, Value) { return r.names[i], r.values[i] }

// Len returns the number of columns.
func (r Row) Len() int { return len(r.names) }

// Clone returns an independent copy of r.
func (r Row) Clone() Row {
	c := NewRow(r.Len())
	for i, n := range r.names {
		c.Set(n, r.values[i])
	}
	return c
}

// MarshalJSON writes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := r.values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML writes the row as a mapping node with keys in column order.
func (r Row) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i, n := range r.names {
		var v yaml.Node
		plain, err := r.values[i].MarshalYAML()
		if err != nil {
			return nil, err
		}
		if err := v.Encode(plain); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n},
			&v,
		)
	}
	return node, nil
}

// UnmarshalJSON reads a JSON object into a row, preserving key order.
// Numbers become Int64 when integral and Float64 otherwise; strings become
// Text; null becomes NULL. Nested objects and arrays are rejected.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row: expected JSON object")
	}

	*r = NewRow(0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		v, err := FromJSONToken(valTok)
		if err != nil {
			return err
		}
		r.Set(key, v)
	}
	_, err = dec.Token()
	return err
}

// FromJSONToken converts one scalar JSON token into a Value.
func FromJSONToken(tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return Text(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int64(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Float64(f), nil
	case float64:
		return Float64(t), nil
	default:
		return Null(), &ConversionError{Raw: "composite JSON value", Kind: KindText}
	}
}

package value

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRowCaseInsensitiveLookup(t *testing.T) {
	r := RowOf(P("Id", Int64(1)), P("Name", Text("a")))

	v, ok := r.Get("ID")
	if !ok || !v.Equal(Int64(1)) {
		t.Fatalf("Get(ID) = %v, %v", v, ok)
	}

	r.Set("NAME", Text("b"))
	if r.Len() != 2 {
		t.Fatalf("Set on existing column must not append, len=%d", r.Len())
	}
	if got := r.Columns(); got[1] != "Name" {
		t.Errorf("first spelling must win, got %q", got[1])
	}
	if v, _ := r.Get("name"); v.String() != "b" {
		t.Errorf("value not replaced: %v", v)
	}
}

func TestRowJSONKeepsOrder(t *testing.T) {
	r := RowOf(P("z", Int64(1)), P("a", Null()), P("m", Text("x")))
	got, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"z":1,"a":null,"m":"x"}`
	if string(got) != want {
		t.Errorf("json = %s, want %s", got, want)
	}
}

func TestRowUnmarshalJSON(t *testing.T) {
	var r Row
	if err := json.Unmarshal([]byte(`{"b":2,"a":"x","c":null,"d":1.5,"e":true}`), &r); err != nil {
		t.Fatal(err)
	}
	if strings.Join(r.Columns(), ",") != "b,a,c,d,e" {
		t.Errorf("order lost: %v", r.Columns())
	}
	if v, _ := r.Get("b"); v.Kind() != KindInt64 {
		t.Errorf("b kind = %s", v.Kind())
	}
	if v, _ := r.Get("d"); v.Kind() != KindFloat64 {
		t.Errorf("d kind = %s", v.Kind())
	}
	if v, _ := r.Get("c"); !v.IsNull() {
		t.Errorf("c = %v", v)
	}

	if err := json.Unmarshal([]byte(`{"a":{"nested":1}}`), &r); err == nil {
		t.Error("nested objects must be rejected")
	}
	if err := json.Unmarshal([]byte(`[1,2]`), &r); err == nil {
		t.Error("arrays must be rejected")
	}
}

func TestRowYAMLKeepsOrder(t *testing.T) {
	r := RowOf(P("z", Int64(1)), P("a", Text("x")))
	out, err := yaml.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "z: 1\na: x\n" {
		t.Errorf("yaml = %q", out)
	}
}

func TestTableAppendRegistersColumns(t *testing.T) {
	tbl := NewTable("id")
	tbl.Append(RowOf(P("ID", Int64(1))))
	tbl.Append(RowOf(P("id", Int64(2)), P("extra", Text("x"))))

	if strings.Join(tbl.Columns, ",") != "id,extra" {
		t.Errorf("columns = %v", tbl.Columns)
	}
	if tbl.Len() != 2 {
		t.Errorf("len = %d", tbl.Len())
	}
}

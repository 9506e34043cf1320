package base

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/core/value"
)

// ResolveMaxRows applies the default and rejects non-positive values.
func ResolveMaxRows(maxRows int) (int, error) {
	if maxRows == 0 {
		return adapters.DefaultMaxRows, nil
	}
	if maxRows < 0 {
		return 0, adapters.InvalidInput("maxRows", "must be greater than zero")
	}
	return maxRows, nil
}

// WarnOnOverflow logs when a result set is larger than maxRows. Rows are
// never dropped.
func WarnOnOverflow(logger zerolog.Logger, t *value.Table, maxRows int, sqlText string) {
	if t.Len() > maxRows {
		logger.Warn().
			Int("rows", t.Len()).
			Int("max_rows", maxRows).
			Str("sql", TruncateQuery(sqlText)).
			Msg("result set exceeds max rows")
	}
}

// PickSchema chooses among the schemas that own a table: preferred when
// present (case-insensitive), otherwise the alphabetically first one.
func PickSchema(candidates []string, preferred string) *string {
	if len(candidates) == 0 {
		return nil
	}
	if preferred != "" {
		for _, c := range candidates {
			if strings.EqualFold(c, preferred) {
				s := c
				return &s
			}
		}
	}
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	return &sorted[0]
}

// ProcedureInput is one resolved routine argument.
type ProcedureInput struct {
	Param adapters.ParameterMetadata
	Value value.Value
}

// ResolveProcedureInputs pairs catalog parameters with caller values by
// normalized name. Input parameters the caller omitted are NULL; OUT
// parameters always start NULL.
func ResolveProcedureInputs(routine adapters.RoutineInfo, params map[string]value.Value) []ProcedureInput {
	norm := NormalizeParams(params)
	ordered := append([]adapters.ParameterMetadata(nil), routine.Parameters...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	out := make([]ProcedureInput, 0, len(ordered))
	for _, p := range ordered {
		v := value.Null()
		if p.Mode.AcceptsInput() {
			if given, ok := norm[NormalizeParamName(p.Name)]; ok {
				v = given
			}
		}
		out = append(out, ProcedureInput{Param: p, Value: v})
	}
	return out
}

// ProcedureResult keeps the data rows of a routine apart from the values of
// its output parameters until the caller-facing table is assembled.
type ProcedureResult struct {
	Data    *value.Table
	Outputs []value.Pair
}

// Table returns the data rows followed by one single-column row per output
// parameter, keyed by the parameter name without its marker.
func (r ProcedureResult) Table() *value.Table {
	t := r.Data
	if t == nil {
		t = value.NewTable()
	}
	for _, o := range r.Outputs {
		t.Append(value.RowOf(value.P(strings.TrimLeft(o.Name, "@:$?"), o.Value)))
	}
	return t
}

package adapters

import (
	"context"
	"strings"
)

// TableDescriptor identifies a table; Schema may be empty.
type TableDescriptor struct {
	Schema string
	Name   string
}

// String renders schema.name without quoting, for logs.
func (d TableDescriptor) String() string {
	if d.Schema == "" {
		return d.Name
	}
	return d.Schema + "." + d.Name
}

// ColumnMetadata - one column as reported by the catalog
type ColumnMetadata struct {
	Name         string  `json:"name" yaml:"name"`
	NativeType   string  `json:"native_type" yaml:"native_type"`
	Nullable     bool    `json:"nullable" yaml:"nullable"`
	IsPrimaryKey bool    `json:"is_primary_key" yaml:"is_primary_key"`
	IsIdentity   bool    `json:"is_identity" yaml:"is_identity"`
	MaxLength    *int64  `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Default      *string `json:"default,omitempty" yaml:"default,omitempty"`
}

// ParamMode - direction of a routine parameter
type ParamMode string

const (
	ParamIn    ParamMode = "IN"
	ParamOut   ParamMode = "OUT"
	ParamInOut ParamMode = "INOUT"
)

// ParseParamMode maps catalog spellings (IN, OUT, INOUT, IN OUT) to a mode.
// Anything unrecognised is IN.
func ParseParamMode(s string) ParamMode {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "OUT":
		return ParamOut
	case "INOUT":
		return ParamInOut
	default:
		return ParamIn
	}
}

// IsOutput reports whether the parameter returns a value to the caller.
func (m ParamMode) IsOutput() bool { return m == ParamOut || m == ParamInOut }

// AcceptsInput reports whether the caller supplies a value.
func (m ParamMode) AcceptsInput() bool { return m == ParamIn || m == ParamInOut }

// ParameterMetadata - one routine parameter
type ParameterMetadata struct {
	Name       string
	Mode       ParamMode
	NativeType string
	Position   int
	MaxLength  int64
}

// RoutineKind - function or procedure, where the dialect distinguishes them
type RoutineKind string

const (
	RoutineProcedure RoutineKind = "PROCEDURE"
	RoutineFunction  RoutineKind = "FUNCTION"
)

// RoutineInfo - parameter catalog of one routine
type RoutineInfo struct {
	Schema     string
	Name       string
	Kind       RoutineKind
	Parameters []ParameterMetadata
}

// ValidationResult - outcome of ValidateQuery
type ValidationResult struct {
	Valid   bool   `json:"valid" yaml:"valid"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// ConnectionProvider supplies the connection string for the configured backend.
type ConnectionProvider interface {
	ConnectionString() (string, error)
}

// ConnectionString is a fixed ConnectionProvider.
type ConnectionString string

// ConnectionString returns s.
func (s ConnectionString) ConnectionString() (string, error) { return string(s), nil }

// Hasher turns plaintext into a one-way hash.
type Hasher interface {
	Encrypt(text string) (string, error)
}

// ColumnTypeResolver returns column name, spelled as in the catalog, →
// native type name. Callers match names case-insensitively.
type ColumnTypeResolver interface {
	ColumnTypes(ctx context.Context, table TableDescriptor) (map[string]string, error)
}

// ParameterCatalogResolver describes the parameters of a stored routine.
type ParameterCatalogResolver interface {
	Parameters(ctx context.Context, schema, routine string) (RoutineInfo, error)
}

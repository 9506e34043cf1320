package value

import "fmt"

// Kind identifies the scalar category carried by a Value.
type Kind uint8

// Supported scalar kinds.
const (
	KindNull Kind = iota
	KindInt64
	KindInt32
	KindInt16
	KindFloat64
	KindDecimal
	KindBool
	KindText
	KindBytes
	KindDate
	KindTime
	KindDateTime
	KindDateTimeTZ
	KindUUID
)

var kindNames = map[Kind]string{
	KindNull:       "null",
	KindInt64:      "int64",
	KindInt32:      "int32",
	KindInt16:      "int16",
	KindFloat64:    "float64",
	KindDecimal:    "decimal",
	KindBool:       "bool",
	KindText:       "text",
	KindBytes:      "bytes",
	KindDate:       "date",
	KindTime:       "time",
	KindDateTime:   "datetime",
	KindDateTimeTZ: "datetimetz",
	KindUUID:       "uuid",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsInteger reports whether k is one of the signed integer kinds.
func (k Kind) IsInteger() bool {
	return k == KindInt64 || k == KindInt32 || k == KindInt16
}

// IsNumeric reports whether k holds a number.
func (k Kind) IsNumeric() bool {
	return k.IsInteger() || k == KindFloat64 || k == KindDecimal
}

// IsTemporal reports whether k holds a date, a time of day or a timestamp.
func (k Kind) IsTemporal() bool {
	switch k {
	case KindDate, KindTime, KindDateTime, KindDateTimeTZ:
		return true
	default:
		return false
	}
}

// IsTimestamp reports whether k carries both a date and a time component.
func (k Kind) IsTimestamp() bool {
	return k == KindDateTime || k == KindDateTimeTZ
}

// ParseKind is the inverse of Kind.String. ok is false for unknown names.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return KindNull, false
}

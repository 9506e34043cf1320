// Package value defines the scalar sum type exchanged with the repositories.
//
// A Value is one of a closed set of kinds (see Kind). Rows are built from
// Values only; there is no untyped representation of row data.
package value

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Layouts used when a Value is rendered as text.
const (
	DateLayout       = "2006-01-02"
	TimeLayout       = "15:04:05.999999999"
	DateTimeLayout   = "2006-01-02T15:04:05.999999999"
	DateTimeTZLayout = time.RFC3339Nano
)

// Value is an immutable nullable scalar.
// The zero Value is NULL.
type Value struct {
	kind Kind
	i    int64
	f    float64
	dec  decimal.Decimal
	b    bool
	s    string
	raw  []byte
	t    time.Time
	tod  time.Duration
	id   uuid.UUID
}

// Null returns the NULL value.
func Null() Value { return Value{} }

// Int64 wraps a 64-bit integer.
func Int64(v int64) Value { return Value{kind: KindInt64, i: v} }

// Int32 wraps a 32-bit integer.
func Int32(v int32) Value { return Value{kind: KindInt32, i: int64(v)} }

// Int16 wraps a 16-bit integer.
func Int16(v int16) Value { return Value{kind: KindInt16, i: int64(v)} }

// Float64 wraps a double precision float.
func Float64(v float64) Value { return Value{kind: KindFloat64, f: v} }

// Decimal wraps an exact decimal.
func Decimal(v decimal.Decimal) Value { return Value{kind: KindDecimal, dec: v} }

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Text wraps a string.
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Bytes wraps a byte sequence. The slice is copied.
func Bytes(v []byte) Value {
	if v == nil {
		return Null()
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return Value{kind: KindBytes, raw: cp}
}

// Date wraps a calendar date; the time-of-day part of t is dropped.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// TimeOfDay wraps a time of day expressed as the offset from midnight.
func TimeOfDay(d time.Duration) Value {
	if d < 0 {
		d = 0
	}
	return Value{kind: KindTime, tod: d % (24 * time.Hour)}
}

// DateTime wraps a timestamp without zone. The wall clock of t is kept
// and its location is discarded.
func DateTime(t time.Time) Value {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return Value{kind: KindDateTime, t: time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)}
}

// DateTimeTZ wraps a timestamp with zone.
func DateTimeTZ(t time.Time) Value { return Value{kind: KindDateTimeTZ, t: t} }

// UUID wraps a unique identifier.
func UUID(v uuid.UUID) Value { return Value{kind: KindUUID, id: v} }

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int returns the integer payload for integer kinds.
func (v Value) Int() (int64, bool) {
	if v.kind.IsInteger() {
		return v.i, true
	}
	return 0, false
}

// Float returns the float payload. Integers and decimals are widened.
func (v Value) Float() (float64, bool) {
	switch {
	case v.kind == KindFloat64:
		return v.f, true
	case v.kind.IsInteger():
		return float64(v.i), true
	case v.kind == KindDecimal:
		f, _ := v.dec.Float64()
		return f, true
	}
	return 0, false
}

// DecimalValue returns the decimal payload.
func (v Value) DecimalValue() (decimal.Decimal, bool) {
	if v.kind == KindDecimal {
		return v.dec, true
	}
	return decimal.Zero, false
}

// BoolValue returns the boolean payload.
func (v Value) BoolValue() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

// TextValue returns the string payload of a Text value.
func (v Value) TextValue() (string, bool) {
	if v.kind == KindText {
		return v.s, true
	}
	return "", false
}

// BytesValue returns the byte payload.
func (v Value) BytesValue() ([]byte, bool) {
	if v.kind == KindBytes {
		return v.raw, true
	}
	return nil, false
}

// Time returns the time payload of Date, DateTime and DateTimeTZ values.
func (v Value) Time() (time.Time, bool) {
	switch v.kind {
	case KindDate, KindDateTime, KindDateTimeTZ:
		return v.t, true
	}
	return time.Time{}, false
}

// TimeOfDayValue returns the offset from midnight of a Time value.
func (v Value) TimeOfDayValue() (time.Duration, bool) {
	if v.kind == KindTime {
		return v.tod, true
	}
	return 0, false
}

// UUIDValue returns the identifier payload.
func (v Value) UUIDValue() (uuid.UUID, bool) {
	if v.kind == KindUUID {
		return v.id, true
	}
	return uuid.Nil, false
}

// String renders v as text. NULL renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindInt64, KindInt32, KindInt16:
		return strconv.FormatInt(v.i, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDecimal:
		return v.dec.String()
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindText:
		return v.s
	case KindBytes:
		return base64.StdEncoding.EncodeToString(v.raw)
	case KindDate:
		return v.t.Format(DateLayout)
	case KindTime:
		return formatTimeOfDay(v.tod)
	case KindDateTime:
		return v.t.Format(DateTimeLayout)
	case KindDateTimeTZ:
		return v.t.Format(DateTimeTZLayout)
	case KindUUID:
		return v.id.String()
	default:
		return fmt.Sprintf("%v", v.kind)
	}
}

// Equal reports whether a and b have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindDecimal:
		return v.dec.Equal(o.dec)
	case KindBytes:
		return string(v.raw) == string(o.raw)
	case KindDate, KindDateTime, KindDateTimeTZ:
		return v.t.Equal(o.t)
	case KindFloat64:
		return v.f == o.f
	default:
		return v.String() == o.String()
	}
}

// MarshalJSON renders numbers and booleans natively, decimals as strings to
// keep precision, and everything else through String.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindInt64, KindInt32, KindInt16:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat64:
		return json.Marshal(v.f)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.String())
	}
}

// MarshalYAML lets yaml.v3 encoders render a Value as a plain scalar.
func (v Value) MarshalYAML() (interface{}, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindInt64, KindInt32, KindInt16:
		return v.i, nil
	case KindFloat64:
		return v.f, nil
	case KindBool:
		return v.b, nil
	default:
		return v.String(), nil
	}
}

func formatTimeOfDay(d time.Duration) string {
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(d).Format(TimeLayout)
}

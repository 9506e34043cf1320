package value

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConversionError reports that a raw value cannot be represented in the
// requested kind.
type ConversionError struct {
	Raw  string
	Kind Kind
	Err  error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot convert %q to %s: %v", e.Raw, e.Kind, e.Err)
	}
	return fmt.Sprintf("cannot convert %q to %s", e.Raw, e.Kind)
}

func (e *ConversionError) Unwrap() error { return e.Err }

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	DateLayout,
}

var timeLayouts = []string{
	"15:04:05.999999999",
	"15:04",
}

// Parse converts text into a Value of kind k.
// Text and NULL kinds never fail.
func Parse(s string, k Kind) (Value, error) {
	raw := strings.TrimSpace(s)

	switch k {
	case KindNull:
		return Null(), nil
	case KindText:
		return Text(s), nil
	case KindInt64, KindInt32, KindInt16:
		return parseInteger(raw, k)
	case KindFloat64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Null(), &ConversionError{Raw: s, Kind: k, Err: err}
		}
		return Float64(f), nil
	case KindDecimal:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return Null(), &ConversionError{Raw: s, Kind: k, Err: err}
		}
		return Decimal(d), nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Null(), &ConversionError{Raw: s, Kind: k, Err: err}
		}
		return Bool(b), nil
	case KindBytes:
		return parseBytes(raw)
	case KindDate:
		t, err := ParseDate(raw)
		if err != nil {
			return Null(), &ConversionError{Raw: s, Kind: k, Err: err}
		}
		return Date(t), nil
	case KindTime:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				h, m, sec := t.Clock()
				return TimeOfDay(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
					time.Duration(sec)*time.Second + time.Duration(t.Nanosecond())), nil
			}
		}
		return Null(), &ConversionError{Raw: s, Kind: k}
	case KindDateTime:
		t, err := parseTimestamp(raw)
		if err != nil {
			return Null(), &ConversionError{Raw: s, Kind: k, Err: err}
		}
		return DateTime(t), nil
	case KindDateTimeTZ:
		t, err := parseTimestamp(raw)
		if err != nil {
			return Null(), &ConversionError{Raw: s, Kind: k, Err: err}
		}
		return DateTimeTZ(t), nil
	case KindUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return Null(), &ConversionError{Raw: s, Kind: k, Err: err}
		}
		return UUID(id), nil
	default:
		return Null(), &ConversionError{Raw: s, Kind: k}
	}
}

// ParseDate accepts a bare date or a full timestamp and keeps only the
// calendar date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := parseTimestamp(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected 2025-09-25 or 2025-09-25T00:00:00)", s)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// Convert coerces v into kind k. NULL stays NULL; same-kind values are
// returned unchanged; everything else goes through the textual form.
func Convert(v Value, k Kind) (Value, error) {
	if v.IsNull() || v.kind == k {
		return v, nil
	}
	switch {
	case v.kind.IsInteger() && k.IsInteger():
		return narrowInteger(v.i, k, v.String())
	case v.kind.IsInteger() && k == KindFloat64:
		return Float64(float64(v.i)), nil
	case v.kind.IsInteger() && k == KindDecimal:
		return Decimal(decimal.NewFromInt(v.i)), nil
	case v.kind == KindFloat64 && k == KindDecimal:
		return Decimal(decimal.NewFromFloat(v.f)), nil
	case v.kind == KindDecimal && k == KindFloat64:
		f, _ := v.dec.Float64()
		return Float64(f), nil
	case v.kind.IsTimestamp() && k == KindDate:
		return Date(v.t), nil
	case v.kind == KindDateTime && k == KindDateTimeTZ:
		return DateTimeTZ(v.t), nil
	case v.kind == KindDateTimeTZ && k == KindDateTime:
		return DateTime(v.t), nil
	case v.kind == KindDate && k.IsTimestamp():
		if k == KindDateTime {
			return DateTime(v.t), nil
		}
		return DateTimeTZ(v.t), nil
	case k == KindText:
		return Text(v.String()), nil
	}
	return Parse(v.String(), k)
}

func parseInteger(raw string, k Kind) (Value, error) {
	i, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Null(), &ConversionError{Raw: raw, Kind: k, Err: err}
	}
	return narrowInteger(i, k, raw)
}

func narrowInteger(i int64, k Kind, raw string) (Value, error) {
	switch k {
	case KindInt16:
		if i < math.MinInt16 || i > math.MaxInt16 {
			return Null(), &ConversionError{Raw: raw, Kind: k, Err: strconv.ErrRange}
		}
		return Int16(int16(i)), nil
	case KindInt32:
		if i < math.MinInt32 || i > math.MaxInt32 {
			return Null(), &ConversionError{Raw: raw, Kind: k, Err: strconv.ErrRange}
		}
		return Int32(int32(i)), nil
	default:
		return Int64(i), nil
	}
}

func parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// parseBytes accepts 0x-prefixed hex or standard base64.
func parseBytes(raw string) (Value, error) {
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		b, err := hex.DecodeString(raw[2:])
		if err != nil {
			return Null(), &ConversionError{Raw: raw, Kind: KindBytes, Err: err}
		}
		return Bytes(b), nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return Null(), &ConversionError{Raw: raw, Kind: KindBytes, Err: err}
	}
	return Bytes(b), nil
}

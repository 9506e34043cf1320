package value

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FromDriver converts a value scanned by database/sql into a Value of kind k.
// Drivers hand numerics and some temporals back as text or bytes; those are
// parsed. A nil raw value is NULL regardless of k.
func FromDriver(raw any, k Kind) (Value, error) {
	if raw == nil {
		return Null(), nil
	}

	switch x := raw.(type) {
	case int64:
		return fromInt(x, k)
	case int32:
		return fromInt(int64(x), k)
	case int:
		return fromInt(int64(x), k)
	case float64:
		switch k {
		case KindDecimal:
			return Decimal(decimal.NewFromFloat(x)), nil
		case KindText:
			return Text(strconv.FormatFloat(x, 'g', -1, 64)), nil
		}
		return Float64(x), nil
	case float32:
		return FromDriver(float64(x), k)
	case bool:
		if k == KindText {
			return Text(strconv.FormatBool(x)), nil
		}
		return Bool(x), nil
	case time.Time:
		return fromTime(x, k), nil
	case decimal.Decimal:
		return Decimal(x), nil
	case uuid.UUID:
		return UUID(x), nil
	case [16]byte:
		return UUID(uuid.UUID(x)), nil
	case []byte:
		switch k {
		case KindBytes:
			return Bytes(x), nil
		case KindUUID:
			if len(x) == 16 {
				id, err := uuid.FromBytes(x)
				if err != nil {
					return Null(), err
				}
				return UUID(id), nil
			}
		}
		return fromString(string(x), k)
	case string:
		return fromString(x, k)
	default:
		return Text(fmt.Sprint(raw)), nil
	}
}

func fromInt(i int64, k Kind) (Value, error) {
	switch k {
	case KindInt16, KindInt32:
		return narrowInteger(i, k, strconv.FormatInt(i, 10))
	case KindBool:
		return Bool(i != 0), nil
	case KindFloat64:
		return Float64(float64(i)), nil
	case KindDecimal:
		return Decimal(decimal.NewFromInt(i)), nil
	case KindText:
		return Text(strconv.FormatInt(i, 10)), nil
	default:
		return Int64(i), nil
	}
}

func fromTime(t time.Time, k Kind) Value {
	switch k {
	case KindDate:
		return Date(t)
	case KindTime:
		h, m, s := t.Clock()
		return TimeOfDay(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
			time.Duration(s)*time.Second + time.Duration(t.Nanosecond()))
	case KindDateTime:
		return DateTime(t)
	default:
		return DateTimeTZ(t)
	}
}

// fromString parses driver text. Unparseable text is kept as Text.
func fromString(s string, k Kind) (Value, error) {
	if k == KindText || k == KindNull {
		return Text(s), nil
	}
	if k == KindBytes {
		return Bytes([]byte(s)), nil
	}
	v, err := Parse(s, k)
	if err != nil {
		return Text(s), nil
	}
	return v, nil
}

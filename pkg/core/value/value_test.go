package value

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		kind    Kind
		want    string
		wantErr bool
	}{
		{"int64", " 42 ", KindInt64, "42", false},
		{"int16 overflow", "40000", KindInt16, "", true},
		{"int32", "-7", KindInt32, "-7", false},
		{"float", "1.5", KindFloat64, "1.5", false},
		{"decimal keeps scale", "10.50", KindDecimal, "10.5", false},
		{"bool", "TRUE", KindBool, "true", false},
		{"bad bool", "yes", KindBool, "", true},
		{"date", "2025-02-01", KindDate, "2025-02-01", false},
		{"date from timestamp", "2025-02-01T09:30:00", KindDate, "2025-02-01", false},
		{"time", "09:30:15", KindTime, "09:30:15", false},
		{"time short", "23:00", KindTime, "23:00:00", false},
		{"datetime space", "2025-02-01 09:00:00", KindDateTime, "2025-02-01T09:00:00", false},
		{"datetimetz", "2025-02-01T09:00:00Z", KindDateTimeTZ, "2025-02-01T09:00:00Z", false},
		{"uuid", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", KindUUID, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", false},
		{"bad uuid", "not-a-uuid", KindUUID, "", true},
		{"hex bytes", "0x0102", KindBytes, "AQI=", false},
		{"text untouched", "  padded ", KindText, "  padded ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw, tt.kind)
			if tt.wantErr {
				var convErr *ConversionError
				if !errors.As(err, &convErr) {
					t.Fatalf("expected ConversionError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Kind() != tt.kind {
				t.Errorf("kind = %s, want %s", got.Kind(), tt.kind)
			}
			if got.String() != tt.want {
				t.Errorf("String() = %q, want %q", got.String(), tt.want)
			}
		})
	}
}

func TestParseIntegerRangeError(t *testing.T) {
	_, err := Parse("99999999999", KindInt32)
	if !errors.Is(err, strconv.ErrRange) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
}

func TestConvert(t *testing.T) {
	ts := time.Date(2025, 2, 1, 23, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   Value
		kind Kind
		want Value
	}{
		{"null stays null", Null(), KindInt64, Null()},
		{"int widen to decimal", Int32(5), KindDecimal, Decimal(decimal.NewFromInt(5))},
		{"int narrow", Int64(12), KindInt16, Int16(12)},
		{"text to int", Text("77"), KindInt64, Int64(77)},
		{"timestamp to date", DateTime(ts), KindDate, Date(ts)},
		{"int to text", Int64(3), KindText, Text("3")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.in, tt.kind)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Convert() = %v (%s), want %v (%s)", got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestDateTimeDropsLocation(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	v := DateTime(time.Date(2025, 2, 1, 9, 0, 0, 0, loc))
	if v.String() != "2025-02-01T09:00:00" {
		t.Errorf("wall clock not kept: %s", v)
	}
}

func TestBytesCopiesInput(t *testing.T) {
	src := []byte{1, 2, 3}
	v := Bytes(src)
	src[0] = 9
	b, _ := v.BytesValue()
	if b[0] != 1 {
		t.Error("Bytes must copy its input")
	}
	if !Bytes(nil).IsNull() {
		t.Error("Bytes(nil) must be NULL")
	}
}

func TestValueMarshalJSON(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	tests := []struct {
		v    Value
		want string
	}{
		{Null(), `null`},
		{Int64(1), `1`},
		{Float64(2.5), `2.5`},
		{Bool(true), `true`},
		{Decimal(decimal.RequireFromString("1.10")), `"1.1"`},
		{Text("a\"b"), `"a\"b"`},
		{UUID(id), `"6ba7b810-9dad-11d1-80b4-00c04fd430c8"`},
	}
	for _, tt := range tests {
		got, err := json.Marshal(tt.v)
		if err != nil {
			t.Fatalf("marshal %v: %v", tt.v, err)
		}
		if string(got) != tt.want {
			t.Errorf("json = %s, want %s", got, tt.want)
		}
	}
}

func TestFromDriver(t *testing.T) {
	ts := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  any
		kind Kind
		want Value
	}{
		{"nil", nil, KindInt64, Null()},
		{"int to int32", int64(7), KindInt32, Int32(7)},
		{"int to bool", int64(1), KindBool, Bool(true)},
		{"numeric bytes", []byte("12.34"), KindDecimal, Decimal(decimal.RequireFromString("12.34"))},
		{"numeric string", "12.34", KindDecimal, Decimal(decimal.RequireFromString("12.34"))},
		{"binary", []byte{0xde, 0xad}, KindBytes, Bytes([]byte{0xde, 0xad})},
		{"date", ts, KindDate, Date(ts)},
		{"timestamp", ts, KindDateTime, DateTime(ts)},
		{"unparseable text kept", "n/a", KindInt64, Text("n/a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromDriver(tt.raw, tt.kind)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("FromDriver() = %v (%s), want %v (%s)", got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

package data

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Row is a Set whose fields are allocated at run time from a list of kinds.
// Each field holds a value of exactly the Go type its kind requires, so a Row
// always passes Check.
type Row struct {
	types  []FieldType
	sizes  []int
	fields []any
}

// NewRow allocates a Row. sizes may be nil; when given, sizes[i] is the fixed
// length of field i and is only used for Char and Binary kinds.
func NewRow(types []FieldType, sizes []int) *Row {
	r := &Row{
		types:  append([]FieldType(nil), types...),
		sizes:  make([]int, len(types)),
		fields: make([]any, len(types)),
	}
	for i, t := range types {
		if t.IsFixed() && i < len(sizes) {
			r.sizes[i] = sizes[i]
		}
		r.fields[i] = newValue(t, r.sizes[i])
	}
	return r
}

func (r *Row) NumFields() int { return len(r.types) }

func (r *Row) FieldType(i int) FieldType {
	if i < 0 || i >= len(r.types) {
		return Nothing
	}
	return r.types[i]
}

func (r *Row) FieldSize(i int) int {
	if i < 0 || i >= len(r.sizes) {
		return 0
	}
	return r.sizes[i]
}

func (r *Row) Field(i int) any {
	if i < 0 || i >= len(r.fields) {
		return nil
	}
	return r.fields[i]
}

// Values returns the current field values. Null fields are nil, Wtext fields
// are returned as strings.
func (r *Row) Values() []any {
	out := make([]any, len(r.fields))
	for i, p := range r.fields {
		out[i] = valueOf(r.types[i], p)
	}
	return out
}

// Assign stores loosely typed values into the row, converting each one to its
// field's kind. It accepts what encoding/json produces (float64 or
// json.Number, string, bool, nil) as well as the native Go types. Binary kinds accept base64 strings.
func (r *Row) Assign(vals []any) error {
	if len(vals) != len(r.fields) {
		return fmt.Errorf("row has %d fields, got %d values", len(r.fields), len(vals))
	}
	for i, v := range vals {
		if err := assign(r.types[i], r.sizes[i], r.fields[i], v); err != nil {
			return fmt.Errorf("field %d (%s): %w", i, r.types[i], err)
		}
	}
	return nil
}

func newValue(t FieldType, size int) any {
	if t.IsNullable() {
		switch t.Base() {
		case UTiny:
			return new(Nullable[uint8])
		case UShort:
			return new(Nullable[uint16])
		case UInt:
			return new(Nullable[uint32])
		case UBigint:
			return new(Nullable[uint64])
		case Tiny:
			return new(Nullable[int8])
		case Short:
			return new(Nullable[int16])
		case Int:
			return new(Nullable[int32])
		case Bigint:
			return new(Nullable[int64])
		case Float:
			return new(Nullable[float32])
		case Double:
			return new(Nullable[float64])
		case Time:
			return new(Nullable[time.Duration])
		case Date, Datetime:
			return new(Nullable[time.Time])
		case Blob, Char, Binary:
			return new(Nullable[[]byte])
		case Text:
			return new(Nullable[string])
		case Wtext:
			return new(Nullable[[]rune])
		case Bit:
			return new(Nullable[bool])
		}
		return nil
	}
	switch t {
	case UTiny:
		return new(uint8)
	case UShort:
		return new(uint16)
	case UInt:
		return new(uint32)
	case UBigint:
		return new(uint64)
	case Tiny:
		return new(int8)
	case Short:
		return new(int16)
	case Int:
		return new(int32)
	case Bigint:
		return new(int64)
	case Float:
		return new(float32)
	case Double:
		return new(float64)
	case Time:
		return new(time.Duration)
	case Date, Datetime:
		return new(time.Time)
	case Blob:
		return new([]byte)
	case Char, Binary:
		b := make([]byte, size)
		return &b
	case Text:
		return new(string)
	case Wtext:
		return new([]rune)
	case Bit:
		return new(bool)
	}
	return nil
}

func valueOf(t FieldType, ptr any) any {
	if t.IsNullable() {
		nv := ptr.(NullableValue)
		if nv.IsNull() {
			return nil
		}
		ptr = nv.Ptr()
	}
	switch p := ptr.(type) {
	case *uint8:
		return *p
	case *uint16:
		return *p
	case *uint32:
		return *p
	case *uint64:
		return *p
	case *int8:
		return *p
	case *int16:
		return *p
	case *int32:
		return *p
	case *int64:
		return *p
	case *float32:
		return *p
	case *float64:
		return *p
	case *time.Duration:
		return *p
	case *time.Time:
		return *p
	case *[]byte:
		if t.Base() == Char {
			return strings.TrimRight(string(*p), "\x00")
		}
		return *p
	case *string:
		return *p
	case *[]rune:
		return string(*p)
	case *bool:
		return *p
	}
	return nil
}

func assign(t FieldType, size int, ptr any, v any) error {
	if t.IsNullable() {
		nv := ptr.(NullableValue)
		if v == nil {
			nv.SetNull()
			return nil
		}
		if err := assign(t.Base(), size, nv.Ptr(), v); err != nil {
			return err
		}
		nv.SetValid()
		return nil
	}
	if v == nil {
		return fmt.Errorf("null value for non-nullable field")
	}
	switch p := ptr.(type) {
	case *uint8:
		u, err := toUnsigned(v, math.MaxUint8)
		*p = uint8(u)
		return err
	case *uint16:
		u, err := toUnsigned(v, math.MaxUint16)
		*p = uint16(u)
		return err
	case *uint32:
		u, err := toUnsigned(v, math.MaxUint32)
		*p = uint32(u)
		return err
	case *uint64:
		u, err := toUnsigned(v, math.MaxUint64)
		*p = u
		return err
	case *int8:
		n, err := toSigned(v, math.MinInt8, math.MaxInt8)
		*p = int8(n)
		return err
	case *int16:
		n, err := toSigned(v, math.MinInt16, math.MaxInt16)
		*p = int16(n)
		return err
	case *int32:
		n, err := toSigned(v, math.MinInt32, math.MaxInt32)
		*p = int32(n)
		return err
	case *int64:
		n, err := toSigned(v, math.MinInt64, math.MaxInt64)
		*p = n
		return err
	case *float32:
		f, err := toFloat(v)
		*p = float32(f)
		return err
	case *float64:
		f, err := toFloat(v)
		*p = f
		return err
	case *time.Duration:
		d, err := toDuration(v)
		*p = d
		return err
	case *time.Time:
		tm, err := toTime(t, v)
		*p = tm
		return err
	case *[]byte:
		b, err := toBytes(t, v)
		if err != nil {
			return err
		}
		if t.IsFixed() {
			if len(b) > size {
				return fmt.Errorf("%d bytes exceed fixed size %d", len(b), size)
			}
			fixed := make([]byte, size)
			copy(fixed, b)
			b = fixed
		}
		*p = b
		return nil
	case *string:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("cannot assign %T to text", v)
		}
		*p = s
		return nil
	case *[]rune:
		switch s := v.(type) {
		case string:
			*p = []rune(s)
		case []rune:
			*p = s
		default:
			return fmt.Errorf("cannot assign %T to wtext", v)
		}
		return nil
	case *bool:
		switch b := v.(type) {
		case bool:
			*p = b
		case float64:
			*p = b != 0
		case int64:
			*p = b != 0
		case json.Number:
			*p = b.String() != "0"
		default:
			return fmt.Errorf("cannot assign %T to bit", v)
		}
		return nil
	}
	return fmt.Errorf("unsupported field pointer %T", ptr)
}

func toSigned(v any, lo, hi int64) (int64, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("value %d out of range", x)
		}
		n = int64(x)
	case json.Number:
		parsed, err := strconv.ParseInt(x.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value %s is not an integer in range", x)
		}
		n = parsed
	case float64:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, fmt.Errorf("value %v is not an integer in range", x)
		}
		n = int64(x)
	default:
		return 0, fmt.Errorf("cannot assign %T to integer", v)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("value %d out of range [%d, %d]", n, lo, hi)
	}
	return n, nil
}

func toUnsigned(v any, hi uint64) (uint64, error) {
	var u uint64
	switch x := v.(type) {
	case uint:
		u = uint64(x)
	case uint8:
		u = uint64(x)
	case uint16:
		u = uint64(x)
	case uint32:
		u = uint64(x)
	case uint64:
		u = x
	case json.Number:
		parsed, err := strconv.ParseUint(x.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value %s is not an unsigned integer in range", x)
		}
		u = parsed
	case float64:
		if x != math.Trunc(x) || x < 0 || x >= math.MaxUint64 {
			return 0, fmt.Errorf("value %v is not an unsigned integer in range", x)
		}
		u = uint64(x)
	default:
		n, err := toSigned(v, 0, math.MaxInt64)
		if err != nil {
			return 0, err
		}
		u = uint64(n)
	}
	if u > hi {
		return 0, fmt.Errorf("value %d out of range [0, %d]", u, hi)
	}
	return u, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case json.Number:
		return x.Float64()
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	}
	return 0, fmt.Errorf("cannot assign %T to float", v)
}

func toDuration(v any) (time.Duration, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case string:
		return ParseTimeOfDay(x)
	}
	return 0, fmt.Errorf("cannot assign %T to time", v)
}

func toTime(t FieldType, v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		if t.Base() == Date {
			return time.Parse(DateLayout, x)
		}
		return time.Parse(time.RFC3339Nano, x)
	}
	return time.Time{}, fmt.Errorf("cannot assign %T to %s", v, t)
}

func toBytes(t FieldType, v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		if t.Base() == Char {
			return []byte(x), nil
		}
		return base64.StdEncoding.DecodeString(x)
	}
	return nil, fmt.Errorf("cannot assign %T to binary", v)
}

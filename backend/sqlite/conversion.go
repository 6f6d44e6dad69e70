package sqlite

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/asyncsql/data"
)

// convertParam turns a bound parameter field into a value go-sqlite3 can bind.
func convertParam(t data.FieldType, ptr any) (any, error) {
	if t.IsNullable() {
		nv := ptr.(data.NullableValue)
		if nv.IsNull() {
			return nil, nil
		}
		ptr = nv.Ptr()
	}
	switch p := ptr.(type) {
	case *uint8:
		return int64(*p), nil
	case *uint16:
		return int64(*p), nil
	case *uint32:
		return int64(*p), nil
	case *uint64:
		if *p > math.MaxInt64 {
			return nil, fmt.Errorf("value %d does not fit a SQLite integer", *p)
		}
		return int64(*p), nil
	case *int8:
		return int64(*p), nil
	case *int16:
		return int64(*p), nil
	case *int32:
		return int64(*p), nil
	case *int64:
		return *p, nil
	case *float32:
		return float64(*p), nil
	case *float64:
		return *p, nil
	case *time.Duration:
		return data.FormatTimeOfDay(*p), nil
	case *time.Time:
		if t.Base() == data.Date {
			return p.Format(data.DateLayout), nil
		}
		return p.UTC().Format(sqlite3.SQLiteTimestampFormats[0]), nil
	case *[]byte:
		if t.Base() == data.Char {
			return string(bytes.TrimRight(*p, "\x00")), nil
		}
		if *p == nil {
			// A nil slice would be bound as NULL.
			return []byte{}, nil
		}
		return *p, nil
	case *string:
		return *p, nil
	case *[]rune:
		return string(*p), nil
	case *bool:
		if *p {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, fmt.Errorf("unsupported parameter pointer %T", ptr)
}

// convertResult stores a value scanned from SQLite into a result field.
func convertResult(t data.FieldType, size int, ptr any, v any) error {
	if t.IsNullable() {
		nv := ptr.(data.NullableValue)
		if v == nil {
			nv.SetNull()
			return nil
		}
		if err := convertResult(t.Base(), size, nv.Ptr(), v); err != nil {
			return err
		}
		nv.SetValid()
		return nil
	}
	if v == nil {
		return fmt.Errorf("NULL value for non-nullable %s field", t)
	}
	switch p := ptr.(type) {
	case *uint8:
		n, err := asUnsigned(v, math.MaxUint8)
		*p = uint8(n)
		return err
	case *uint16:
		n, err := asUnsigned(v, math.MaxUint16)
		*p = uint16(n)
		return err
	case *uint32:
		n, err := asUnsigned(v, math.MaxUint32)
		*p = uint32(n)
		return err
	case *uint64:
		n, err := asUnsigned(v, math.MaxInt64)
		*p = n
		return err
	case *int8:
		n, err := asSigned(v, math.MinInt8, math.MaxInt8)
		*p = int8(n)
		return err
	case *int16:
		n, err := asSigned(v, math.MinInt16, math.MaxInt16)
		*p = int16(n)
		return err
	case *int32:
		n, err := asSigned(v, math.MinInt32, math.MaxInt32)
		*p = int32(n)
		return err
	case *int64:
		n, err := asSigned(v, math.MinInt64, math.MaxInt64)
		*p = n
		return err
	case *float32:
		f, err := asFloat(v)
		*p = float32(f)
		return err
	case *float64:
		f, err := asFloat(v)
		*p = f
		return err
	case *time.Duration:
		d, err := asTimeOfDay(v)
		*p = d
		return err
	case *time.Time:
		tm, err := asTime(v)
		if err != nil {
			return err
		}
		if t.Base() == data.Date {
			y, m, d := tm.Date()
			tm = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
		*p = tm
		return nil
	case *[]byte:
		b, err := asBytes(v)
		if err != nil {
			return err
		}
		if t.IsFixed() {
			// Longer values are truncated, shorter ones padded with NULs.
			fixed := make([]byte, size)
			copy(fixed, b)
			b = fixed
		}
		*p = b
		return nil
	case *string:
		s, err := asString(v)
		*p = s
		return err
	case *[]rune:
		s, err := asString(v)
		*p = []rune(s)
		return err
	case *bool:
		n, err := asSigned(v, math.MinInt64, math.MaxInt64)
		*p = n != 0
		return err
	}
	return fmt.Errorf("unsupported result pointer %T", ptr)
}

func asSigned(v any, lo, hi int64) (int64, error) {
	var n int64
	switch x := v.(type) {
	case int64:
		n = x
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("value %v is not an integer", x)
		}
		n = int64(x)
	case bool:
		if x {
			n = 1
		}
	case []byte, string:
		s, _ := asString(v)
		parsed, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not an integer", s)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("cannot convert %T to an integer", v)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("value %d out of range [%d, %d]", n, lo, hi)
	}
	return n, nil
}

func asUnsigned(v any, hi int64) (uint64, error) {
	n, err := asSigned(v, 0, hi)
	return uint64(n), err
}

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case []byte, string:
		s, _ := asString(v)
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", s)
		}
		return f, nil
	}
	return 0, fmt.Errorf("cannot convert %T to a float", v)
}

func asTimeOfDay(v any) (time.Duration, error) {
	switch x := v.(type) {
	case int64:
		return time.Duration(x) * time.Second, nil
	case []byte, string:
		s, _ := asString(v)
		return data.ParseTimeOfDay(s)
	}
	return 0, fmt.Errorf("cannot convert %T to a time of day", v)
}

func asTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case int64:
		return time.Unix(x, 0).UTC(), nil
	case []byte, string:
		s, _ := asString(v)
		s = strings.TrimSuffix(s, "Z")
		for _, layout := range sqlite3.SQLiteTimestampFormats {
			if tm, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return tm, nil
			}
		}
		return time.Time{}, fmt.Errorf("value %q is not a timestamp", s)
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to a timestamp", v)
}

func asBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return append([]byte(nil), x...), nil
	case string:
		return []byte(x), nil
	}
	return nil, fmt.Errorf("cannot convert %T to bytes", v)
}

func asString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	}
	return "", fmt.Errorf("cannot convert %T to text", v)
}

package data

import (
	"fmt"
	"time"
)

// BindingError reports a violation of the Set contract. These are programmer
// errors: a record that fails Check will fail the same way on every call.
type BindingError struct {
	Index  int
	Type   FieldType
	Reason string
}

func (e *BindingError) Error() string {
	if e.Index < 0 {
		return "binding: " + e.Reason
	}
	return fmt.Sprintf("binding: field %d (%s): %s", e.Index, e.Type, e.Reason)
}

// Check verifies that every field of s is bindable: the kind is valid, the
// pointer has the Go type the kind requires, nullable kinds point at a
// Nullable, and fixed kinds report a positive size matching their buffer. A nil
// Set passes.
func Check(s Set) error {
	if s == nil {
		return nil
	}
	n := s.NumFields()
	if n < 0 {
		return &BindingError{Index: -1, Reason: fmt.Sprintf("negative field count %d", n)}
	}
	for i := 0; i < n; i++ {
		if err := checkField(s, i); err != nil {
			return err
		}
	}
	return nil
}

// MustCheck panics if Check fails.
func MustCheck(s Set) {
	if err := Check(s); err != nil {
		panic(err)
	}
}

func checkField(s Set, i int) error {
	t := s.FieldType(i)
	fail := func(format string, args ...any) error {
		return &BindingError{Index: i, Type: t, Reason: fmt.Sprintf(format, args...)}
	}
	if !t.Valid() {
		return fail("invalid field type")
	}
	ptr := s.Field(i)
	if ptr == nil {
		return fail("nil field pointer")
	}
	size := 0
	if t.IsFixed() {
		size = s.FieldSize(i)
		if size <= 0 {
			return fail("fixed size field reports size %d", size)
		}
	}
	if t.IsNullable() {
		nv, ok := ptr.(NullableValue)
		if !ok {
			return fail("nullable kind bound to %T", ptr)
		}
		ptr = nv.Ptr()
		if nv.IsNull() {
			// A null buffer is resized when a value is stored into it.
			size = 0
		}
	}
	if !pointerMatches(t.Base(), ptr) {
		return fail("pointer %T does not match kind", ptr)
	}
	if size > 0 {
		if b := *ptr.(*[]byte); len(b) != size {
			return fail("buffer length %d, want %d", len(b), size)
		}
	}
	return nil
}

func pointerMatches(base FieldType, ptr any) bool {
	switch ptr.(type) {
	case *uint8:
		return base == UTiny
	case *uint16:
		return base == UShort
	case *uint32:
		return base == UInt
	case *uint64:
		return base == UBigint
	case *int8:
		return base == Tiny
	case *int16:
		return base == Short
	case *int32:
		return base == Int
	case *int64:
		return base == Bigint
	case *float32:
		return base == Float
	case *float64:
		return base == Double
	case *time.Duration:
		return base == Time
	case *time.Time:
		return base == Date || base == Datetime
	case *[]byte:
		return base == Blob || base == Char || base == Binary
	case *string:
		return base == Text
	case *[]rune:
		return base == Wtext
	case *bool:
		return base == Bit
	}
	return false
}

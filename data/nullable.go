package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// NullableValue is the type erased view of a Nullable that the execution
// engine uses. Ptr returns the address of the wrapped value.
type NullableValue interface {
	IsNull() bool
	SetNull()
	SetValid()
	Ptr() any
}

// Nullable adds SQL NULL to any value type. The zero value is null.
type Nullable[T any] struct {
	Value T
	Valid bool
}

// NewNullable returns a non-null Nullable holding v.
func NewNullable[T any](v T) Nullable[T] {
	return Nullable[T]{Value: v, Valid: true}
}

// IsNull reports whether n holds no value.
func (n Nullable[T]) IsNull() bool {
	return !n.Valid
}

// Get returns the wrapped value and whether it is present.
func (n Nullable[T]) Get() (T, bool) {
	return n.Value, n.Valid
}

// Set stores v and marks n as not null.
func (n *Nullable[T]) Set(v T) {
	n.Value = v
	n.Valid = true
}

// SetNull marks n as null and resets the wrapped value.
func (n *Nullable[T]) SetNull() {
	var zero T
	n.Value = zero
	n.Valid = false
}

// SetValid marks n as not null without touching the wrapped value.
func (n *Nullable[T]) SetValid() {
	n.Valid = true
}

// Ptr returns the address of the wrapped value.
func (n *Nullable[T]) Ptr() any {
	return &n.Value
}

func (n Nullable[T]) String() string {
	if !n.Valid {
		return "NULL"
	}
	return fmt.Sprint(n.Value)
}

// MarshalJSON encodes null values as JSON null.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON decodes JSON null as a null value.
func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.SetNull()
		return nil
	}
	if err := json.Unmarshal(b, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

type (
	UTinyNullable    = Nullable[uint8]
	UShortNullable   = Nullable[uint16]
	UIntNullable     = Nullable[uint32]
	UBigintNullable  = Nullable[uint64]
	TinyNullable     = Nullable[int8]
	ShortNullable    = Nullable[int16]
	IntNullable      = Nullable[int32]
	BigintNullable   = Nullable[int64]
	FloatNullable    = Nullable[float32]
	DoubleNullable   = Nullable[float64]
	TimeNullable     = Nullable[time.Duration]
	DateNullable     = Nullable[time.Time]
	DatetimeNullable = Nullable[time.Time]
	BlobNullable     = Nullable[[]byte]
	TextNullable     = Nullable[string]
	WtextNullable    = Nullable[[]rune]
	BitNullable      = Nullable[bool]
)

package data

import (
	"fmt"
	"strings"
)

// FieldType identifies the value domain of a bound field. Kinds ending in N
// hold their value in a Nullable and may carry SQL NULL.
type FieldType int

const (
	UTiny FieldType = iota
	UShort
	UInt
	UBigint
	Tiny
	Short
	Int
	Bigint
	Float
	Double
	Time
	Date
	Datetime
	Blob
	Text
	Wtext
	Char
	Binary
	Bit
	UTinyN
	UShortN
	UIntN
	UBigintN
	TinyN
	ShortN
	IntN
	BigintN
	FloatN
	DoubleN
	TimeN
	DateN
	DatetimeN
	BlobN
	TextN
	WtextN
	CharN
	BinaryN
	BitN
	Nothing
)

// nullableOffset is the distance between a kind and its nullable counterpart.
const nullableOffset = UTinyN - UTiny

var typeNames = [...]string{
	"utiny", "ushort", "uint", "ubigint",
	"tiny", "short", "int", "bigint",
	"float", "double",
	"time", "date", "datetime",
	"blob", "text", "wtext", "char", "binary", "bit",
}

// Valid reports whether t is one of the bindable kinds.
func (t FieldType) Valid() bool {
	return t >= UTiny && t < Nothing
}

// IsNullable reports whether t stores its value in a Nullable.
func (t FieldType) IsNullable() bool {
	return t >= UTinyN && t < Nothing
}

// Base strips nullability from t.
func (t FieldType) Base() FieldType {
	if t.IsNullable() {
		return t - nullableOffset
	}
	return t
}

// Nullable returns the nullable counterpart of t.
func (t FieldType) Nullable() FieldType {
	if t >= UTiny && t < UTinyN {
		return t + nullableOffset
	}
	return t
}

// IsFixed reports whether t is a fixed size kind whose length comes from
// Set.FieldSize.
func (t FieldType) IsFixed() bool {
	b := t.Base()
	return b == Char || b == Binary
}

// IsInteger reports whether t is one of the integer kinds.
func (t FieldType) IsInteger() bool {
	b := t.Base()
	return b >= UTiny && b <= Bigint
}

// IsUnsigned reports whether t is one of the unsigned integer kinds.
func (t FieldType) IsUnsigned() bool {
	b := t.Base()
	return b >= UTiny && b <= UBigint
}

func (t FieldType) String() string {
	if !t.Valid() {
		return "nothing"
	}
	name := typeNames[t.Base()]
	if t.IsNullable() {
		return name + "_n"
	}
	return name
}

// ParseFieldType parses the names produced by String. Matching is case
// insensitive and accepts both the "_n" suffix and a trailing "?" for nullable
// kinds.
func ParseFieldType(s string) (FieldType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	nullable := false
	switch {
	case strings.HasSuffix(name, "_n"):
		name, nullable = strings.TrimSuffix(name, "_n"), true
	case strings.HasSuffix(name, "?"):
		name, nullable = strings.TrimSuffix(name, "?"), true
	}
	for i, n := range typeNames {
		if n == name {
			t := FieldType(i)
			if nullable {
				t = t.Nullable()
			}
			return t, nil
		}
	}
	return Nothing, fmt.Errorf("unknown field type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t FieldType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid field type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

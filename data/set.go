/*
Package data defines how native Go records are bound to statement parameters
and results.

A record becomes bindable by implementing Set: it reports how many fields it
has, the FieldType of each one, the size of fixed length fields, and a pointer
to each field's storage. The execution engine only ever inspects these
(type, pointer, size) triples, so one statement implementation can bind any
record type without per-query marshalling code.

Field order must match the statement's placeholder order (parameters) or column
order (results). Fields of a nullable kind must point at a Nullable.

	type User struct {
		ID    int64
		Email string
		Age   data.Nullable[int32]
	}

	func (u *User) SqlFields() data.Fields {
		return data.Fields{
			{Type: data.Bigint, Ptr: &u.ID},
			{Type: data.Text, Ptr: &u.Email},
			{Type: data.IntN, Ptr: &u.Age},
		}
	}

	params := data.Bind(&User{Email: "a@example.com"})
*/
package data

// Set is the capability contract of a bindable record. Every index passed in
// must lie in [0, NumFields()), and FieldType must return the same kind for an
// index on every call. Pointers returned by Field must stay valid while any
// operation referencing the record is in flight.
type Set interface {
	NumFields() int
	FieldType(i int) FieldType
	// FieldSize is only consulted for Char and Binary kinds and their nullable
	// forms, where it is the fixed length in bytes. Other kinds return 0.
	FieldSize(i int) int
	Field(i int) any
}

// Field describes one bound field.
type Field struct {
	Type FieldType
	Size int
	Ptr  any
}

// Fields is a field descriptor table. It implements Set directly.
type Fields []Field

func (f Fields) NumFields() int { return len(f) }

func (f Fields) FieldType(i int) FieldType {
	if i < 0 || i >= len(f) {
		return Nothing
	}
	return f[i].Type
}

func (f Fields) FieldSize(i int) int {
	if i < 0 || i >= len(f) {
		return 0
	}
	return f[i].Size
}

func (f Fields) Field(i int) any {
	if i < 0 || i >= len(f) {
		return nil
	}
	return f[i].Ptr
}

// Describer is implemented by records that publish their descriptor table.
type Describer interface {
	SqlFields() Fields
}

// Bind turns a Describer into a Set. The descriptor table is built once, so
// the record's field addresses must not move afterwards.
func Bind(d Describer) Set {
	return &boundRecord{Describer: d, fields: d.SqlFields()}
}

type boundRecord struct {
	Describer
	fields Fields
}

func (b *boundRecord) NumFields() int            { return b.fields.NumFields() }
func (b *boundRecord) FieldType(i int) FieldType { return b.fields.FieldType(i) }
func (b *boundRecord) FieldSize(i int) int       { return b.fields.FieldSize(i) }
func (b *boundRecord) Field(i int) any           { return b.fields.Field(i) }

// Record returns the Describer a Set was bound from, or nil when s was not
// created by Bind.
func Record(s Set) Describer {
	if b, ok := s.(*boundRecord); ok {
		return b.Describer
	}
	return nil
}

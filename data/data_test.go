package data

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID      int64
	Name    string
	Score   Nullable[float64]
	Created Nullable[time.Time]
	Tag     []byte
}

func newTestRecord() *testRecord {
	return &testRecord{Tag: make([]byte, 4)}
}

func (r *testRecord) SqlFields() Fields {
	return Fields{
		{Type: Bigint, Ptr: &r.ID},
		{Type: Text, Ptr: &r.Name},
		{Type: DoubleN, Ptr: &r.Score},
		{Type: DatetimeN, Ptr: &r.Created},
		{Type: Binary, Size: 4, Ptr: &r.Tag},
	}
}

func TestNullableRoundTrip(t *testing.T) {
	n := NewNullable(int32(42))
	require.False(t, n.IsNull())
	v, ok := n.Get()
	require.True(t, ok)
	require.Equal(t, int32(42), v)
	require.Equal(t, "42", n.String())

	var empty Nullable[string]
	require.True(t, empty.IsNull())
	require.Equal(t, "NULL", empty.String())

	empty.Set("x")
	require.False(t, empty.IsNull())
	empty.SetNull()
	require.True(t, empty.IsNull())
	require.Equal(t, "", empty.Value)
}

func TestNullableJSON(t *testing.T) {
	b, err := json.Marshal([]Nullable[int64]{NewNullable(int64(7)), {}})
	require.NoError(t, err)
	require.Equal(t, `[7,null]`, string(b))

	var out []Nullable[int64]
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out, 2)
	require.Equal(t, NewNullable(int64(7)), out[0])
	require.True(t, out[1].IsNull())
}

func TestNullableValueView(t *testing.T) {
	var n Nullable[uint16]
	var nv NullableValue = &n
	*nv.Ptr().(*uint16) = 9
	nv.SetValid()
	require.Equal(t, NewNullable(uint16(9)), n)
}

func TestFieldTypeNullability(t *testing.T) {
	for ft := UTiny; ft <= Bit; ft++ {
		require.False(t, ft.IsNullable(), ft.String())
		require.True(t, ft.Nullable().IsNullable(), ft.String())
		require.Equal(t, ft, ft.Nullable().Base())
		require.Equal(t, ft.Nullable(), ft.Nullable().Nullable())
	}
	require.False(t, Nothing.Valid())
	require.True(t, CharN.IsFixed())
	require.True(t, Binary.IsFixed())
	require.False(t, Blob.IsFixed())
	require.True(t, UBigintN.IsUnsigned())
	require.False(t, Bigint.IsUnsigned())
}

func TestParseFieldType(t *testing.T) {
	for ft := UTiny; ft < Nothing; ft++ {
		parsed, err := ParseFieldType(ft.String())
		require.NoError(t, err)
		require.Equal(t, ft, parsed)
	}
	ft, err := ParseFieldType(" DateTime? ")
	require.NoError(t, err)
	require.Equal(t, DatetimeN, ft)

	_, err = ParseFieldType("varchar")
	require.Error(t, err)

	var decoded struct {
		Types []FieldType `json:"types"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"types":["int","text_n"]}`), &decoded))
	require.Equal(t, []FieldType{Int, TextN}, decoded.Types)
}

func TestFieldsOutOfRange(t *testing.T) {
	set := Bind(newTestRecord())
	require.Equal(t, 5, set.NumFields())
	require.Equal(t, Nothing, set.FieldType(5))
	require.Equal(t, Nothing, set.FieldType(-1))
	require.Nil(t, set.Field(5))
	require.Equal(t, 4, set.FieldSize(4))
	require.Equal(t, 0, set.FieldSize(0))
}

func TestBindKeepsRecord(t *testing.T) {
	rec := newTestRecord()
	set := Bind(rec)
	*set.Field(0).(*int64) = 12
	require.Equal(t, int64(12), rec.ID)
	require.Same(t, rec, Record(set).(*testRecord))
	require.Nil(t, Record(Fields{}))
}

func TestCheckAcceptsValidRecords(t *testing.T) {
	require.NoError(t, Check(nil))
	require.NoError(t, Check(Bind(newTestRecord())))
	require.NoError(t, Check(NewRow([]FieldType{CharN, Binary, Wtext, TimeN}, []int{3, 8, 0, 0})))
}

func TestCheckContractViolations(t *testing.T) {
	var i32 int32
	var s string
	buf := make([]byte, 2)
	tests := []struct {
		name   string
		fields Fields
		index  int
	}{
		{"invalid type", Fields{{Type: Nothing, Ptr: &i32}}, 0},
		{"nil pointer", Fields{{Type: Int}}, 0},
		{"wrong pointer", Fields{{Type: Text, Ptr: &s}, {Type: Bigint, Ptr: &i32}}, 1},
		{"nullable kind on plain value", Fields{{Type: IntN, Ptr: &i32}}, 0},
		{"nullable with wrong inner type", Fields{{Type: IntN, Ptr: &Nullable[int64]{}}}, 0},
		{"fixed without size", Fields{{Type: Char, Ptr: &buf}}, 0},
		{"fixed length mismatch", Fields{{Type: Binary, Size: 4, Ptr: &buf}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.fields)
			require.Error(t, err)
			var be *BindingError
			require.ErrorAs(t, err, &be)
			require.Equal(t, tt.index, be.Index)
			require.Panics(t, func() { MustCheck(tt.fields) })
		})
	}
}

func TestContainerRoundTrip(t *testing.T) {
	c := NewDescribedContainer(newTestRecord)
	require.True(t, c.Empty())

	const k = 5
	for i := 0; i < k; i++ {
		set := c.Manufacture()
		*set.Field(0).(*int64) = int64(i)
	}
	require.Equal(t, k, c.Len())
	require.False(t, c.Empty())

	var ids []int64
	for rec := range c.All() {
		ids = append(ids, rec.ID)
	}
	require.Equal(t, []int64{0, 1, 2, 3, 4}, ids)

	ids = ids[:0]
	for rec := range c.Backward() {
		ids = append(ids, rec.ID)
	}
	require.Equal(t, []int64{4, 3, 2, 1, 0}, ids)

	front, ok := c.Front()
	require.True(t, ok)
	require.Equal(t, int64(0), front.ID)

	c.Trim()
	require.Equal(t, k-1, c.Len())
	back, ok := c.Back()
	require.True(t, ok)
	require.Equal(t, int64(3), back.ID)
}

func TestContainerTrimEmpty(t *testing.T) {
	c := NewContainer(func() *Row { return NewRow([]FieldType{Int}, nil) })
	c.Trim()
	require.Equal(t, 0, c.Len())
	_, ok := c.Back()
	require.False(t, ok)

	c.Manufacture()
	c.Trim()
	require.True(t, c.Empty())
}

func TestRowAssignAndValues(t *testing.T) {
	row := NewRow(
		[]FieldType{UTiny, Bigint, DoubleN, Text, Wtext, BlobN, Char, Bit, Date, Time, IntN},
		[]int{0, 0, 0, 0, 0, 0, 4, 0, 0, 0, 0},
	)
	err := row.Assign([]any{
		float64(200), float64(-5), 1.5, "hello", "héllo", "AQID", "ab", true,
		"2024-02-29", "13:04:05.25", nil,
	})
	require.NoError(t, err)
	require.NoError(t, Check(row))

	vals := row.Values()
	assert.Equal(t, uint8(200), vals[0])
	assert.Equal(t, int64(-5), vals[1])
	assert.Equal(t, 1.5, vals[2])
	assert.Equal(t, "hello", vals[3])
	assert.Equal(t, "héllo", vals[4])
	assert.Equal(t, []byte{1, 2, 3}, vals[5])
	assert.Equal(t, "ab", vals[6])
	assert.Equal(t, true, vals[7])
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), vals[8])
	assert.Equal(t, 13*time.Hour+4*time.Minute+5*time.Second+250*time.Millisecond, vals[9])
	assert.Nil(t, vals[10])
	assert.Equal(t, []byte{'a', 'b', 0, 0}, *row.Field(6).(*[]byte))
}

func TestRowAssignErrors(t *testing.T) {
	row := NewRow([]FieldType{UTiny, Int, Char}, []int{0, 0, 2})
	require.Error(t, row.Assign([]any{float64(1)}))
	require.Error(t, row.Assign([]any{float64(256), float64(1), "a"}))
	require.Error(t, row.Assign([]any{float64(1), 1.5, "a"}))
	require.Error(t, row.Assign([]any{float64(1), nil, "a"}))
	require.Error(t, row.Assign([]any{float64(1), float64(1), "abc"}))
	require.NoError(t, row.Assign([]any{float64(1), float64(1), "ab"}))
}

func TestTimeOfDay(t *testing.T) {
	tests := []struct {
		d time.Duration
		s string
	}{
		{0, "00:00:00"},
		{26*time.Hour + 3*time.Second, "26:00:03"},
		{time.Minute + 500*time.Microsecond, "00:01:00.0005"},
		{-(time.Hour + time.Nanosecond), "-01:00:00.000000001"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.s, FormatTimeOfDay(tt.d))
		d, err := ParseTimeOfDay(tt.s)
		require.NoError(t, err)
		require.Equal(t, tt.d, d)
	}
	for _, bad := range []string{"", "12:00", "aa:00:00", "00:61:00", "00:00:00.x"} {
		_, err := ParseTimeOfDay(bad)
		require.Error(t, err, bad)
	}
}

func TestRowAssignJSONNumbers(t *testing.T) {
	row := NewRow([]FieldType{UBigint, Bigint, Double, Bit}, nil)
	require.NoError(t, row.Assign([]any{
		json.Number("18446744073709551615"), json.Number("-9"), json.Number("2.5"), json.Number("0"),
	}))
	require.Equal(t, []any{uint64(18446744073709551615), int64(-9), 2.5, false}, row.Values())
	require.Error(t, row.Assign([]any{json.Number("-1"), json.Number("1"), json.Number("1"), json.Number("1")}))
}

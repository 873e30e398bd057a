package puller

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpectScalars(t *testing.T) {
	r := require.New(t)
	p := FromJSONC([]byte(`[
		// comments and trailing commas are accepted
		1.5, 0.1, 42, 9007199254740993, -7, 200, "hi", null, true, "AQID",
	]`))
	r.NoError(p.BeginArray())

	f, err := p.ExpectFloat()
	r.NoError(err)
	r.Equal(float32(1.5), f)

	d, err := p.ExpectDouble()
	r.NoError(err)
	r.Equal(0.1, d)

	i, err := p.ExpectInt()
	r.NoError(err)
	r.Equal(int32(42), i)

	l, err := p.ExpectLong()
	r.NoError(err)
	r.Equal(int64(9007199254740993), l)

	s16, err := p.ExpectShort()
	r.NoError(err)
	r.Equal(int16(-7), s16)

	b, err := p.ExpectByte()
	r.NoError(err)
	r.Equal(byte(200), b)

	s, err := p.ExpectString()
	r.NoError(err)
	r.Equal("hi", s)

	s, err = p.ExpectString()
	r.NoError(err)
	r.Empty(s)

	ok, err := p.ExpectBoolean()
	r.NoError(err)
	r.True(ok)

	raw, err := p.ExpectBytes()
	r.NoError(err)
	r.Equal([]byte{1, 2, 3}, raw)

	r.False(p.More())
	r.NoError(p.EndArray())
	r.NoError(p.ExpectEnd())
}

func TestExpectFloatNarrowing(t *testing.T) {
	for _, input := range []string{"0.1", "1e300", "16777217"} {
		_, err := FromJSONC([]byte(input)).ExpectFloat()
		require.ErrorIs(t, err, ErrOutOfRange, input)
	}
	for _, input := range []string{"0.5", "-2.25", "16777216"} {
		_, err := FromJSONC([]byte(input)).ExpectFloat()
		require.NoError(t, err, input)
	}
}

func TestExpectIntegerRange(t *testing.T) {
	tests := []struct {
		input string
		read  func(*Puller) error
	}{
		{"2147483648", func(p *Puller) error { _, err := p.ExpectInt(); return err }},
		{"1.5", func(p *Puller) error { _, err := p.ExpectLong(); return err }},
		{"40000", func(p *Puller) error { _, err := p.ExpectShort(); return err }},
		{"256", func(p *Puller) error { _, err := p.ExpectByte(); return err }},
		{"-1", func(p *Puller) error { _, err := p.ExpectByte(); return err }},
	}
	for _, tt := range tests {
		require.ErrorIs(t, tt.read(FromJSONC([]byte(tt.input))), ErrOutOfRange, tt.input)
	}
}

func TestExpectTypeMismatch(t *testing.T) {
	r := require.New(t)

	_, err := FromJSONC([]byte(`"1"`)).ExpectInt()
	r.ErrorIs(err, ErrTypeMismatch)

	_, err = FromJSONC([]byte(`1`)).ExpectString()
	r.ErrorIs(err, ErrTypeMismatch)

	_, err = FromJSONC([]byte(`null`)).ExpectBoolean()
	r.ErrorIs(err, ErrTypeMismatch)

	_, err = FromJSONC([]byte(`"not base64!"`)).ExpectBytes()
	r.ErrorIs(err, ErrTypeMismatch)

	r.ErrorIs(FromJSONC([]byte(`[]`)).BeginObject(), ErrTypeMismatch)
	r.ErrorIs(FromJSONC([]byte(`1`)).ExpectNull(), ErrTypeMismatch)
}

func TestCheckNull(t *testing.T) {
	r := require.New(t)
	p := FromJSONC([]byte(`[null, 3]`))
	r.NoError(p.BeginArray())

	isNull, err := p.CheckNull()
	r.NoError(err)
	r.True(isNull)
	r.NoError(p.ExpectNull())

	isNull, err = p.CheckNull()
	r.NoError(err)
	r.False(isNull)
	i, err := p.ExpectInt()
	r.NoError(err)
	r.Equal(int32(3), i)
}

func TestSkipValue(t *testing.T) {
	r := require.New(t)
	p := New(strings.NewReader(`{"a": {"b": [1, [2, {}]], "c": "x"}, "d": 4}`))
	r.NoError(p.BeginObject())

	name, err := p.NextName()
	r.NoError(err)
	r.Equal("a", name)
	r.NoError(p.SkipValue())

	name, err = p.NextName()
	r.NoError(err)
	r.Equal("d", name)
	d, err := p.ExpectInt()
	r.NoError(err)
	r.Equal(int32(4), d)
	r.NoError(p.EndObject())
}

func TestExpectEndTrailing(t *testing.T) {
	p := FromJSONC([]byte(`1 2`))
	_, err := p.ExpectInt()
	require.NoError(t, err)
	require.Error(t, p.ExpectEnd())
}

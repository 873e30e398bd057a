package parcel

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParcelScalars(t *testing.T) {
	r := require.New(t)

	p := New()
	p.WriteInt(math.MinInt32)
	p.WriteInt(math.MaxInt32)
	p.WriteLong(math.MinInt64)
	p.WriteLong(math.MaxInt64)
	p.WriteShort(math.MinInt16)
	p.WriteShort(math.MaxInt16)
	p.WriteUint8(0xff)
	p.WriteFloat(1.5)
	p.WriteFloat(float32(math.Copysign(0, -1)))
	p.WriteDouble(-2.25)
	p.WriteDouble(math.Inf(1))
	p.WriteString("")
	p.WriteString("héllo")
	r.NoError(p.Err())

	p.SetDataPosition(0)
	r.Equal(int32(math.MinInt32), p.ReadInt())
	r.Equal(int32(math.MaxInt32), p.ReadInt())
	r.Equal(int64(math.MinInt64), p.ReadLong())
	r.Equal(int64(math.MaxInt64), p.ReadLong())
	r.Equal(int16(math.MinInt16), p.ReadShort())
	r.Equal(int16(math.MaxInt16), p.ReadShort())
	r.Equal(uint8(0xff), p.ReadUint8())
	r.Equal(float32(1.5), p.ReadFloat())
	negZero := p.ReadFloat()
	r.True(math.Signbit(float64(negZero)))
	r.Equal(-2.25, p.ReadDouble())
	r.True(math.IsInf(p.ReadDouble(), 1))
	r.Equal("", p.ReadString())
	r.Equal("héllo", p.ReadString())
	r.NoError(p.Err())
	r.Equal(0, p.Len())
}

func TestParcelIntEncoding(t *testing.T) {
	tests := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x02}},
		{-1, []byte{0x01}},
		{3, []byte{0x06}},
		{64, []byte{0x80, 0x01}},
	}
	for _, tt := range tests {
		p := New()
		p.WriteInt(tt.v)
		assert.Equal(t, tt.want, p.Bytes(), "WriteInt(%d)", tt.v)
	}
}

func TestParcelStickyError(t *testing.T) {
	r := require.New(t)

	p := FromBytes([]byte{0x02})
	r.Equal(int32(1), p.ReadInt())
	r.Equal(int64(0), p.ReadLong())
	r.ErrorIs(p.Err(), ErrUnexpectedEOF)

	// Later reads are no-ops returning zero values.
	r.Equal("", p.ReadString())
	r.Equal(float64(0), p.ReadDouble())
	r.ErrorIs(p.Err(), ErrUnexpectedEOF)
}

func TestParcelReadIntOverflow(t *testing.T) {
	p := New()
	p.WriteLong(math.MaxInt32 + 1)
	p.SetDataPosition(0)
	p.ReadInt()
	require.ErrorIs(t, p.Err(), ErrOverflow)
}

func TestParcelStringLimits(t *testing.T) {
	opts := DefaultOptions
	opts.Limits.MaxStringLength = 4

	p := NewWithOptions(opts)
	p.WriteString("12345")
	require.ErrorIs(t, p.Err(), ErrMaxStringLength)
	require.True(t, IsLimitExceeded(p.Err()))

	p = New()
	p.WriteString(string([]byte{0xff, 0xfe}))
	require.ErrorIs(t, p.Err(), ErrInvalidUTF8)
}

func TestParcelMaxSize(t *testing.T) {
	opts := DefaultOptions
	opts.Limits.MaxParcelSize = 8

	p := NewWithOptions(opts)
	p.WriteDouble(1)
	require.NoError(t, p.Err())
	p.WriteUint8(1)
	require.ErrorIs(t, p.Err(), ErrMaxSizeExceeded)
}

func TestParcelArrays(t *testing.T) {
	r := require.New(t)

	p := New()
	p.WriteIntArray([]int32{math.MinInt32, 0, math.MaxInt32})
	p.WriteIntArray(nil)
	p.WriteIntArray([]int32{})
	p.WriteLongArray([]int64{-1, 1})
	p.WriteShortArray([]int16{7})
	p.WriteFloatArray([]float32{1.5, -2.25})
	p.WriteDoubleArray([]float64{math.SmallestNonzeroFloat64})
	p.WriteStringArray([]string{"a", "", "c"})
	p.WriteByteArray([]byte{})
	p.WriteByteArray(nil)
	p.WriteByteArray([]byte{1, 2, 3})
	r.NoError(p.Err())

	p.SetDataPosition(0)
	r.Equal([]int32{math.MinInt32, 0, math.MaxInt32}, p.CreateIntArray())
	r.Nil(p.CreateIntArray())
	empty := p.CreateIntArray()
	r.NotNil(empty)
	r.Empty(empty)
	r.Equal([]int64{-1, 1}, p.CreateLongArray())
	r.Equal([]int16{7}, p.CreateShortArray())
	r.Equal([]float32{1.5, -2.25}, p.CreateFloatArray())
	r.Equal([]float64{math.SmallestNonzeroFloat64}, p.CreateDoubleArray())
	r.Equal([]string{"a", "", "c"}, p.CreateStringArray())
	zeroLen := p.CreateByteArray()
	r.NotNil(zeroLen)
	r.Len(zeroLen, 0)
	r.Nil(p.CreateByteArray())
	r.Equal([]byte{1, 2, 3}, p.CreateByteArray())
	r.NoError(p.Err())
}

func TestParcelArrayCountExceedsData(t *testing.T) {
	p := New()
	p.WriteLong(1000)
	p.WriteInt(1)
	p.SetDataPosition(0)
	require.Nil(t, p.CreateIntArray())
	require.ErrorIs(t, p.Err(), ErrMaxArrayLength)
}

func TestParcelReadCount(t *testing.T) {
	tests := []struct {
		name    string
		count   int32
		extra   int
		want    int
		wantErr error
	}{
		{name: "zero", count: 0, want: 0},
		{name: "negative", count: -1, want: 0},
		{name: "very_negative", count: math.MinInt32, want: 0},
		{name: "fits", count: 3, extra: 3, want: 3},
		{name: "past_data", count: 10, extra: 2, want: 0, wantErr: ErrMaxArrayLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			p.WriteInt(tt.count)
			for i := 0; i < tt.extra; i++ {
				p.WriteInt(0)
			}
			p.SetDataPosition(0)
			assert.Equal(t, tt.want, p.ReadCount())
			if tt.wantErr != nil {
				assert.ErrorIs(t, p.Err(), tt.wantErr)
			} else {
				assert.NoError(t, p.Err())
			}
		})
	}
}

func TestDateTicks(t *testing.T) {
	r := require.New(t)

	r.Equal(AbsentDate, DateTicks(nil))
	r.Nil(TicksDate(AbsentDate))

	for _, ticks := range []int64{0, -2, 1, math.MaxInt64 / 1000, 1_700_000_000_123} {
		got := TicksDate(ticks)
		r.NotNil(got, "ticks %d", ticks)
		r.Equal(ticks, DateTicks(got))
	}

	now := time.Date(2024, 2, 29, 12, 30, 15, 250_000_000, time.UTC)
	r.True(now.Equal(*TicksDate(DateTicks(&now))))
}

func TestBoolInt(t *testing.T) {
	assert.Equal(t, int32(1), BoolInt(true))
	assert.Equal(t, int32(0), BoolInt(false))
}

type color int32

const (
	colorRed color = iota
	colorGreen
)

var colorValues = []color{colorRed, colorGreen}

func TestOrdinal(t *testing.T) {
	assert.Equal(t, int32(0), Ordinal(colorRed, colorValues))
	assert.Equal(t, int32(1), Ordinal(colorGreen, colorValues))
	assert.Equal(t, int32(-1), Ordinal(color(9), colorValues))
}

func TestEnumAt(t *testing.T) {
	tests := []struct {
		name    string
		ordinal int32
		want    color
		wantErr bool
	}{
		{name: "first", ordinal: 0, want: colorRed},
		{name: "last", ordinal: 1, want: colorGreen},
		{name: "count", ordinal: 2, wantErr: true},
		{name: "negative", ordinal: -1, wantErr: true},
		{name: "far", ordinal: 5, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			p.WriteInt(tt.ordinal)
			p.SetDataPosition(0)
			got := EnumAt(p, colorValues)
			if tt.wantErr {
				require.ErrorIs(t, p.Err(), ErrOrdinalOutOfRange)
				var de *DecodeError
				require.True(t, errors.As(p.Err(), &de))
				require.Equal(t, 0, de.Offset)
				return
			}
			require.NoError(t, p.Err())
			require.Equal(t, tt.want, got)
		})
	}
}

func TestPoolReset(t *testing.T) {
	p := Get()
	p.WriteInt(1)
	Put(p)

	p2 := Get()
	defer Put(p2)
	require.Equal(t, 0, p2.Size())
	require.NoError(t, p2.Err())
}

func TestVersionInfo(t *testing.T) {
	assert.Contains(t, VersionInfo(), Version)
}

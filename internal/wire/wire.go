// Package wire provides the low-level encoding primitives of the parcel format.
//
// Integers are stored as varints (signed values ZigZag encoded), floating
// point values as their exact IEEE 754 bits in little-endian order.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// MaxVarintLen64 is the maximum number of bytes of a varint-encoded uint64.
const MaxVarintLen64 = 10

// Sizes of the fixed-width encodings.
const (
	Fixed32Size = 4
	Fixed64Size = 8
)

var (
	// ErrVarintOverflow indicates the varint overflows a 64-bit integer.
	ErrVarintOverflow = errors.New("parcel: varint overflows uint64")

	// ErrTruncated indicates the input ended in the middle of a value.
	ErrTruncated = errors.New("parcel: truncated value")

	// ErrVarintTooLong indicates the varint encoding exceeds MaxVarintLen64 bytes.
	ErrVarintTooLong = errors.New("parcel: varint exceeds maximum length")
)

// AppendUvarint appends the varint encoding of v to buf.
//
//   - 0 → [0x00]
//   - 127 → [0x7f]
//   - 300 → [0xac, 0x02]
func AppendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// AppendSvarint appends the ZigZag varint encoding of v to buf,
// so -1 takes one byte rather than ten.
func AppendSvarint(buf []byte, v int64) []byte {
	return AppendUvarint(buf, uint64(v<<1)^uint64(v>>63))
}

// DecodeUvarint decodes a varint from data, returning the value and the
// number of bytes consumed.
func DecodeUvarint(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrTruncated
	}
	if data[0] < 0x80 {
		return uint64(data[0]), 1, nil
	}

	var v uint64
	var shift uint
	for i := 0; i < len(data); i++ {
		if i >= MaxVarintLen64 {
			return 0, 0, ErrVarintTooLong
		}
		b := data[i]
		// The tenth byte may only carry bit 63.
		if i == MaxVarintLen64-1 {
			if b >= 0x80 {
				return 0, 0, ErrVarintTooLong
			}
			if b > 1 {
				return 0, 0, ErrVarintOverflow
			}
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrTruncated
}

// DecodeSvarint decodes a ZigZag varint from data.
func DecodeSvarint(data []byte) (int64, int, error) {
	uv, n, err := DecodeUvarint(data)
	if err != nil {
		return 0, n, err
	}
	return int64(uv>>1) ^ -int64(uv&1), n, nil
}

// UvarintSize returns the number of bytes needed to encode v as a varint.
func UvarintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// PutUvarint writes v into buf, which must hold UvarintSize(v) bytes,
// and returns the number of bytes written.
func PutUvarint(buf []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		buf[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	buf[i] = byte(v)
	return i + 1
}

// AppendFixed32 appends v in little-endian order.
func AppendFixed32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}

// AppendFixed64 appends v in little-endian order.
func AppendFixed64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

// DecodeFixed32 decodes a little-endian 32-bit value.
func DecodeFixed32(data []byte) (uint32, error) {
	if len(data) < Fixed32Size {
		return 0, ErrTruncated
	}
	return binary.LittleEndian.Uint32(data), nil
}

// DecodeFixed64 decodes a little-endian 64-bit value.
func DecodeFixed64(data []byte) (uint64, error) {
	if len(data) < Fixed64Size {
		return 0, ErrTruncated
	}
	return binary.LittleEndian.Uint64(data), nil
}

// AppendFloat32 appends the exact bits of v. Negative zero and NaN
// payloads survive the round trip.
func AppendFloat32(buf []byte, v float32) []byte {
	return AppendFixed32(buf, math.Float32bits(v))
}

// AppendFloat64 appends the exact bits of v.
func AppendFloat64(buf []byte, v float64) []byte {
	return AppendFixed64(buf, math.Float64bits(v))
}

// DecodeFloat32 decodes a float32 written by AppendFloat32.
func DecodeFloat32(data []byte) (float32, error) {
	bits, err := DecodeFixed32(data)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// DecodeFloat64 decodes a float64 written by AppendFloat64.
func DecodeFloat64(data []byte) (float64, error) {
	bits, err := DecodeFixed64(data)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

package parcel

import (
	"unicode/utf8"

	"github.com/blockberries/parcelgen/internal/wire"
)

// Parcel is an ordered binary container. Values are appended at the end
// and read back from a separate read position, in the order they were
// written. Nothing on the wire names a field: reader and writer must agree
// on the sequence of operations.
//
// The first error encountered sticks; later operations become no-ops and
// reads return zero values. Check Err after a sequence of operations.
type Parcel struct {
	buf   []byte
	pos   int
	opts  Options
	depth int
	err   error
}

// New creates an empty Parcel with default options.
func New() *Parcel {
	return NewWithOptions(DefaultOptions)
}

// NewWithOptions creates an empty Parcel with the specified options.
func NewWithOptions(opts Options) *Parcel {
	return &Parcel{
		buf:  make([]byte, 0, 256),
		opts: opts,
	}
}

// FromBytes creates a Parcel positioned at the start of data.
// The Parcel takes ownership of data.
func FromBytes(data []byte) *Parcel {
	return FromBytesWithOptions(data, DefaultOptions)
}

// FromBytesWithOptions creates a Parcel over data with the specified options.
func FromBytesWithOptions(data []byte, opts Options) *Parcel {
	return &Parcel{
		buf:  data,
		opts: opts,
	}
}

// Reset clears the parcel for reuse.
func (p *Parcel) Reset() {
	p.buf = p.buf[:0]
	p.pos = 0
	p.depth = 0
	p.err = nil
}

// Options returns the parcel's options.
func (p *Parcel) Options() Options {
	return p.opts
}

// Bytes returns the written data. The slice is only valid until the next write.
func (p *Parcel) Bytes() []byte {
	return p.buf
}

// Size returns the total number of bytes in the parcel.
func (p *Parcel) Size() int {
	return len(p.buf)
}

// Len returns the number of unread bytes.
func (p *Parcel) Len() int {
	if p.pos >= len(p.buf) {
		return 0
	}
	return len(p.buf) - p.pos
}

// DataPosition returns the current read position.
func (p *Parcel) DataPosition() int {
	return p.pos
}

// SetDataPosition moves the read position, typically back to 0 after writing.
func (p *Parcel) SetDataPosition(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(p.buf) {
		pos = len(p.buf)
	}
	p.pos = pos
}

// Err returns the first error that occurred, if any.
func (p *Parcel) Err() error {
	return p.err
}

func (p *Parcel) setError(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *Parcel) setErrorAt(err error, message string) {
	if p.err == nil {
		p.err = NewDecodeErrorAt(p.pos, message, err)
	}
}

// grow checks that n more bytes fit under the size limit.
func (p *Parcel) grow(n int) bool {
	if p.err != nil {
		return false
	}
	if limit := p.opts.Limits.MaxParcelSize; limit > 0 && int64(len(p.buf)+n) > limit {
		p.setError(NewEncodeError("", "parcel too large", ErrMaxSizeExceeded))
		return false
	}
	return true
}

// ensure checks that n unread bytes are available.
func (p *Parcel) ensure(n int) bool {
	if p.err != nil {
		return false
	}
	if n < 0 || p.pos+n > len(p.buf) {
		p.setErrorAt(ErrUnexpectedEOF, "unexpected end of data")
		return false
	}
	return true
}

func (p *Parcel) enterNested() bool {
	if p.opts.Limits.MaxDepth > 0 && p.depth >= p.opts.Limits.MaxDepth {
		p.setError(ErrMaxDepthExceeded)
		return false
	}
	p.depth++
	return true
}

func (p *Parcel) exitNested() {
	if p.depth > 0 {
		p.depth--
	}
}

func (p *Parcel) writeUvarint(v uint64) {
	if !p.grow(wire.UvarintSize(v)) {
		return
	}
	p.buf = wire.AppendUvarint(p.buf, v)
}

func (p *Parcel) writeSvarint(v int64) {
	if !p.grow(wire.MaxVarintLen64) {
		return
	}
	p.buf = wire.AppendSvarint(p.buf, v)
}

func (p *Parcel) readUvarint() uint64 {
	if p.err != nil {
		return 0
	}
	v, n, err := wire.DecodeUvarint(p.buf[p.pos:])
	if err != nil {
		if err == wire.ErrTruncated {
			p.setErrorAt(ErrUnexpectedEOF, "truncated varint")
		} else {
			p.setErrorAt(ErrInvalidVarint, err.Error())
		}
		return 0
	}
	p.pos += n
	return v
}

func (p *Parcel) readSvarint() int64 {
	if p.err != nil {
		return 0
	}
	v, n, err := wire.DecodeSvarint(p.buf[p.pos:])
	if err != nil {
		if err == wire.ErrTruncated {
			p.setErrorAt(ErrUnexpectedEOF, "truncated varint")
		} else {
			p.setErrorAt(ErrInvalidVarint, err.Error())
		}
		return 0
	}
	p.pos += n
	return v
}

// WriteInt writes a 32-bit signed integer.
func (p *Parcel) WriteInt(v int32) {
	p.writeSvarint(int64(v))
}

// ReadInt reads a 32-bit signed integer.
func (p *Parcel) ReadInt() int32 {
	v := p.readSvarint()
	if v < -1<<31 || v > 1<<31-1 {
		p.setErrorAt(ErrOverflow, "int32 overflow")
		return 0
	}
	return int32(v)
}

// WriteLong writes a 64-bit signed integer.
func (p *Parcel) WriteLong(v int64) {
	p.writeSvarint(v)
}

// ReadLong reads a 64-bit signed integer.
func (p *Parcel) ReadLong() int64 {
	return p.readSvarint()
}

// WriteShort writes a 16-bit signed integer.
func (p *Parcel) WriteShort(v int16) {
	p.writeSvarint(int64(v))
}

// ReadShort reads a 16-bit signed integer.
func (p *Parcel) ReadShort() int16 {
	v := p.readSvarint()
	if v < -1<<15 || v > 1<<15-1 {
		p.setErrorAt(ErrOverflow, "int16 overflow")
		return 0
	}
	return int16(v)
}

// WriteUint8 writes a single byte.
func (p *Parcel) WriteUint8(v uint8) {
	if !p.grow(1) {
		return
	}
	p.buf = append(p.buf, v)
}

// ReadUint8 reads a single byte.
func (p *Parcel) ReadUint8() uint8 {
	if !p.ensure(1) {
		return 0
	}
	v := p.buf[p.pos]
	p.pos++
	return v
}

// WriteFloat writes a float32, preserving its exact bits.
func (p *Parcel) WriteFloat(v float32) {
	if !p.grow(wire.Fixed32Size) {
		return
	}
	p.buf = wire.AppendFloat32(p.buf, v)
}

// ReadFloat reads a float32.
func (p *Parcel) ReadFloat() float32 {
	if !p.ensure(wire.Fixed32Size) {
		return 0
	}
	v, _ := wire.DecodeFloat32(p.buf[p.pos:])
	p.pos += wire.Fixed32Size
	return v
}

// WriteDouble writes a float64, preserving its exact bits.
func (p *Parcel) WriteDouble(v float64) {
	if !p.grow(wire.Fixed64Size) {
		return
	}
	p.buf = wire.AppendFloat64(p.buf, v)
}

// ReadDouble reads a float64.
func (p *Parcel) ReadDouble() float64 {
	if !p.ensure(wire.Fixed64Size) {
		return 0
	}
	v, _ := wire.DecodeFloat64(p.buf[p.pos:])
	p.pos += wire.Fixed64Size
	return v
}

// WriteString writes a length-prefixed string.
func (p *Parcel) WriteString(s string) {
	if p.err != nil {
		return
	}
	if limit := p.opts.Limits.MaxStringLength; limit > 0 && len(s) > limit {
		p.setError(NewEncodeError("", "string too long", ErrMaxStringLength))
		return
	}
	if p.opts.ValidateUTF8 && !utf8.ValidString(s) {
		p.setError(NewEncodeError("", "invalid string", ErrInvalidUTF8))
		return
	}
	p.writeUvarint(uint64(len(s)))
	if !p.grow(len(s)) {
		return
	}
	p.buf = append(p.buf, s...)
}

// ReadString reads a length-prefixed string.
func (p *Parcel) ReadString() string {
	n := p.readUvarint()
	if p.err != nil {
		return ""
	}
	if limit := p.opts.Limits.MaxStringLength; limit > 0 && n > uint64(limit) {
		p.setErrorAt(ErrMaxStringLength, "string too long")
		return ""
	}
	if n > uint64(p.Len()) {
		p.setErrorAt(ErrUnexpectedEOF, "string exceeds remaining data")
		return ""
	}
	s := string(p.buf[p.pos : p.pos+int(n)])
	if p.opts.ValidateUTF8 && !utf8.ValidString(s) {
		p.setErrorAt(ErrInvalidUTF8, "invalid string")
		return ""
	}
	p.pos += int(n)
	return s
}

// writeRaw appends a length-prefixed byte slice.
func (p *Parcel) writeRaw(b []byte) {
	p.writeUvarint(uint64(len(b)))
	if !p.grow(len(b)) {
		return
	}
	p.buf = append(p.buf, b...)
}

// readRaw reads a length-prefixed byte slice, copying it out of the parcel.
func (p *Parcel) readRaw() []byte {
	n := p.readUvarint()
	if p.err != nil {
		return nil
	}
	if n > uint64(p.Len()) {
		p.setErrorAt(ErrUnexpectedEOF, "payload exceeds remaining data")
		return nil
	}
	out := make([]byte, n)
	copy(out, p.buf[p.pos:])
	p.pos += int(n)
	return out
}

package parcel

import (
	"reflect"

	"github.com/blockberries/parcelgen/internal/wire"
)

// Container is implemented by every generated message type: it can rebuild
// itself from a parcel and write its own fields, in declared order, to a
// parcel. Nested message fields rely on this to recurse.
type Container interface {
	// ParcelName is the name the loader resolves when reading the
	// container back.
	ParcelName() string

	// ReadFromParcel reads the fields written by WriteToParcel.
	ReadFromParcel(source *Parcel) error

	// WriteToParcel writes the fields. Errors stick on dest.
	WriteToParcel(dest *Parcel, flags int)
}

// FlagWriteReturnValue marks a container written as a return value.
// Flags are passed through nested writes unchanged.
const FlagWriteReturnValue = 0x0001

func isNilContainer(c Container) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// WriteContainer writes c as a self-describing sub-container: its name
// followed by a length-framed body. A nil container is written as an
// empty name.
func (p *Parcel) WriteContainer(c Container, flags int) {
	if p.err != nil {
		return
	}
	if isNilContainer(c) {
		p.WriteString("")
		return
	}
	name := c.ParcelName()
	p.WriteString(name)
	if !p.enterNested() {
		return
	}
	defer p.exitNested()

	// Reserve room for the body length and close the gap afterwards.
	if !p.grow(wire.MaxVarintLen64) {
		return
	}
	checkpoint := len(p.buf)
	p.buf = append(p.buf, make([]byte, wire.MaxVarintLen64)...)
	c.WriteToParcel(p, flags)
	if p.err != nil {
		return
	}

	bodyStart := checkpoint + wire.MaxVarintLen64
	bodyLen := len(p.buf) - bodyStart
	var lenBuf [wire.MaxVarintLen64]byte
	n := wire.PutUvarint(lenBuf[:], uint64(bodyLen))
	if shift := wire.MaxVarintLen64 - n; shift > 0 {
		copy(p.buf[checkpoint+n:], p.buf[bodyStart:])
		p.buf = p.buf[:len(p.buf)-shift]
	}
	copy(p.buf[checkpoint:], lenBuf[:n])
}

// ReadContainer reads a container written by WriteContainer. The name is
// resolved through loader, or DefaultRegistry when loader is nil. It
// returns nil for a nil container or on error.
func (p *Parcel) ReadContainer(loader *Registry) Container {
	name := p.ReadString()
	if p.err != nil || name == "" {
		return nil
	}
	size := p.readUvarint()
	if p.err != nil {
		return nil
	}
	if size > uint64(p.Len()) {
		p.setErrorAt(ErrUnexpectedEOF, "container body exceeds remaining data")
		return nil
	}
	if loader == nil {
		loader = DefaultRegistry
	}
	create, ok := loader.creator(name)
	if !ok {
		p.setError(&DecodeError{Type: name, Offset: p.pos, Message: "no container registered", Cause: ErrUnknownType})
		return nil
	}
	if !p.enterNested() {
		return nil
	}
	defer p.exitNested()

	end := p.pos + int(size)
	body := &Parcel{
		buf:   p.buf[p.pos:end],
		opts:  p.opts,
		depth: p.depth,
	}
	c := create()
	err := c.ReadFromParcel(body)
	if err == nil {
		err = body.Err()
	}
	if err != nil {
		p.setError(&DecodeError{Type: name, Offset: p.pos + body.pos, Message: "container body", Cause: err})
		return nil
	}
	if body.Len() != 0 {
		p.setError(&DecodeError{Type: name, Offset: p.pos + body.pos, Message: "container body not consumed", Cause: ErrTrailingData})
		return nil
	}
	p.pos = end
	return c
}

// WriteContainerArray writes a slice of containers. A nil slice reads back
// as nil; nil elements read back as nil.
func WriteContainerArray[T Container](dest *Parcel, items []T, flags int) {
	if dest.err != nil {
		return
	}
	if items == nil {
		dest.writeSvarint(nilArray)
		return
	}
	if limit := dest.opts.Limits.MaxArrayLength; limit > 0 && len(items) > limit {
		dest.setError(NewEncodeError("", "container array too long", ErrMaxArrayLength))
		return
	}
	dest.writeSvarint(int64(len(items)))
	for _, item := range items {
		dest.WriteContainer(item, flags)
	}
}

// ReadContainerArray reads a slice written by WriteContainerArray. The
// caller casts each element to its concrete type.
func (p *Parcel) ReadContainerArray(loader *Registry) []Container {
	n := p.readArrayCount(1)
	if n < 0 {
		return nil
	}
	out := make([]Container, n)
	for i := range out {
		out[i] = p.ReadContainer(loader)
		if p.err != nil {
			return nil
		}
	}
	return out
}

// Marshal writes c into a new byte slice.
func Marshal(c Container) ([]byte, error) {
	return MarshalWithOptions(c, DefaultOptions)
}

// MarshalWithOptions writes c into a new byte slice using opts.
func MarshalWithOptions(c Container, opts Options) ([]byte, error) {
	p := Get()
	defer Put(p)
	p.opts = opts
	c.WriteToParcel(p, 0)
	if err := p.Err(); err != nil {
		return nil, err
	}
	out := make([]byte, p.Size())
	copy(out, p.Bytes())
	return out, nil
}

// Unmarshal reads c from data, which must hold exactly one container body.
func Unmarshal(data []byte, c Container) error {
	return UnmarshalWithOptions(data, c, DefaultOptions)
}

// UnmarshalWithOptions reads c from data using opts.
func UnmarshalWithOptions(data []byte, c Container, opts Options) error {
	p := FromBytesWithOptions(data, opts)
	if err := c.ReadFromParcel(p); err != nil {
		return err
	}
	if err := p.Err(); err != nil {
		return err
	}
	if p.Len() != 0 {
		return NewDecodeErrorAt(p.pos, "unread data after container", ErrTrailingData)
	}
	return nil
}

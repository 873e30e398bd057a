package parcel

import (
	"fmt"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/ugorji/go/codec"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

// ValueCodec serializes values written through the opaque value channel.
type ValueCodec interface {
	// Name identifies the codec on the wire.
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Value channel tags.
const (
	valueNil   = 0
	valueProto = 1
	valueCodec = 2
)

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func (cborCodec) Name() string { return "cbor" }

func (c cborCodec) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }

func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

func newCBORCodec() cborCodec {
	// Core deterministic encoding: equal values always produce equal bytes.
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	enc, err := encOptions.EncMode()
	if err != nil {
		panic("parcel: CBOR encoder initialization failed: " + err.Error())
	}
	dec, err := cbor.DecOptions{
		// Dynamic targets decode maps as map[string]any rather than
		// map[any]any.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("parcel: CBOR decoder initialization failed: " + err.Error())
	}
	return cborCodec{enc: enc, dec: dec}
}

type msgpackCodec struct {
	handle *codec.MsgpackHandle
}

func (msgpackCodec) Name() string { return "msgpack" }

func (c msgpackCodec) Marshal(v any) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, c.handle).Encode(v); err != nil {
		return nil, err
	}
	return out, nil
}

func (c msgpackCodec) Unmarshal(data []byte, v any) error {
	return codec.NewDecoderBytes(data, c.handle).Decode(v)
}

func newMsgpackCodec() msgpackCodec {
	h := &codec.MsgpackHandle{WriteExt: true}
	h.MapType = reflect.TypeOf(map[string]any(nil))
	h.RawToString = true
	return msgpackCodec{handle: h}
}

var (
	// CBOR is the default value codec.
	CBOR ValueCodec = newCBORCodec()

	// Msgpack encodes values as MessagePack.
	Msgpack ValueCodec = newMsgpackCodec()
)

var valueCodecs = map[string]ValueCodec{
	CBOR.Name():    CBOR,
	Msgpack.Name(): Msgpack,
}

// LookupValueCodec returns the value codec registered under name.
func LookupValueCodec(name string) (ValueCodec, bool) {
	c, ok := valueCodecs[name]
	return c, ok
}

// WriteValue writes an arbitrary value through the opaque channel.
// Protocol buffer messages travel as their full name and wire bytes; other
// values as their type name and the codec-encoded payload. A nil value is
// written as a single tag and reads back as nil.
func (p *Parcel) WriteValue(v any) {
	if p.err != nil {
		return
	}
	if v == nil {
		p.WriteUint8(valueNil)
		return
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		p.WriteUint8(valueNil)
		return
	}

	if m, ok := v.(proto.Message); ok {
		b, err := proto.Marshal(m)
		if err != nil {
			p.setError(NewEncodeError(string(m.ProtoReflect().Descriptor().FullName()), "proto marshal", err))
			return
		}
		p.WriteUint8(valueProto)
		p.WriteString(string(m.ProtoReflect().Descriptor().FullName()))
		p.writeRaw(b)
		return
	}

	name := ValueName(reflect.TypeOf(v))
	c := p.opts.valueCodec()
	b, err := c.Marshal(v)
	if err != nil {
		p.setError(NewEncodeError(name, "value codec "+c.Name(), fmt.Errorf("%w: %v", ErrValueCodec, err)))
		return
	}
	p.WriteUint8(valueCodec)
	p.WriteString(name)
	p.WriteString(c.Name())
	p.writeRaw(b)
}

// ReadValue reads a value written by WriteValue. Types registered with
// loader (or DefaultRegistry when loader is nil) come back as exactly that
// type; unregistered types decode into their dynamic form (map[string]any,
// []any and so on). The caller casts the result.
func (p *Parcel) ReadValue(loader *Registry) any {
	tag := p.ReadUint8()
	if p.err != nil {
		return nil
	}
	if loader == nil {
		loader = DefaultRegistry
	}

	switch tag {
	case valueNil:
		return nil

	case valueProto:
		name := p.ReadString()
		b := p.readRaw()
		if p.err != nil {
			return nil
		}
		mt, err := protoregistry.GlobalTypes.FindMessageByName(protoreflect.FullName(name))
		if err != nil {
			p.setError(&DecodeError{Type: name, Offset: p.pos, Message: "proto message not registered", Cause: ErrUnknownType})
			return nil
		}
		m := mt.New().Interface()
		if err := proto.Unmarshal(b, m); err != nil {
			p.setError(&DecodeError{Type: name, Offset: p.pos, Message: "proto unmarshal", Cause: err})
			return nil
		}
		return m

	case valueCodec:
		name := p.ReadString()
		codecName := p.ReadString()
		b := p.readRaw()
		if p.err != nil {
			return nil
		}
		c, ok := LookupValueCodec(codecName)
		if !ok {
			p.setError(&DecodeError{Type: name, Offset: p.pos, Message: "unknown value codec " + codecName, Cause: ErrValueCodec})
			return nil
		}
		return p.decodeValue(loader, name, c, b)

	default:
		p.setError(NewDecodeErrorAt(p.pos-1, fmt.Sprintf("unknown value tag %d", tag), ErrUnknownType))
		return nil
	}
}

func (p *Parcel) decodeValue(loader *Registry, name string, c ValueCodec, b []byte) any {
	t, ok := loader.valueType(name)
	if !ok {
		var v any
		if err := c.Unmarshal(b, &v); err != nil {
			p.setError(&DecodeError{Type: name, Offset: p.pos, Message: "value codec " + c.Name(), Cause: fmt.Errorf("%w: %v", ErrValueCodec, err)})
			return nil
		}
		return v
	}

	ptr := reflect.New(t)
	if err := c.Unmarshal(b, ptr.Interface()); err != nil {
		p.setError(&DecodeError{Type: name, Offset: p.pos, Message: "value codec " + c.Name(), Cause: fmt.Errorf("%w: %v", ErrValueCodec, err)})
		return nil
	}
	v := ptr.Elem().Interface()
	if tm, ok := v.(time.Time); ok {
		// Codecs may attach a fixed zone; keep the instant in UTC.
		return tm.UTC()
	}
	return v
}

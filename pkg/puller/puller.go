// Package puller reads JSON documents one value at a time, the way a
// generated codec would consume them, and checks instance documents
// against a schema.
package puller

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
)

var (
	// ErrTypeMismatch is returned when the next value is not of the
	// expected JSON type.
	ErrTypeMismatch = errors.New("puller: unexpected value type")

	// ErrOutOfRange is returned when a number does not fit the expected
	// type, including a double that a float cannot represent exactly.
	ErrOutOfRange = errors.New("puller: value out of range")
)

// Puller reads values from a JSON token stream. Numbers are kept as
// text until a caller asks for a specific width.
type Puller struct {
	dec    *json.Decoder
	peeked json.Token
	ok     bool
}

// New creates a puller reading strict JSON from r.
func New(r io.Reader) *Puller {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Puller{dec: dec}
}

// FromJSONC creates a puller over data, which may carry comments and
// trailing commas.
func FromJSONC(data []byte) *Puller {
	return New(bytes.NewReader(jsonc.ToJSON(data)))
}

// Peek returns the next token without consuming it.
func (p *Puller) Peek() (json.Token, error) {
	if !p.ok {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		p.peeked, p.ok = tok, true
	}
	return p.peeked, nil
}

func (p *Puller) next() (json.Token, error) {
	tok, err := p.Peek()
	p.ok = false
	return tok, err
}

// More reports whether the current array or object has another element.
func (p *Puller) More() bool {
	if p.ok {
		d, isDelim := p.peeked.(json.Delim)
		return !isDelim || (d != ']' && d != '}')
	}
	return p.dec.More()
}

// CheckNull reports whether the next value is null, without consuming it.
func (p *Puller) CheckNull() (bool, error) {
	tok, err := p.Peek()
	if err != nil {
		return false, err
	}
	return tok == nil, nil
}

// ExpectNull consumes a null.
func (p *Puller) ExpectNull() error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok != nil {
		return errors.Wrapf(ErrTypeMismatch, "expected null, got %v", tok)
	}
	return nil
}

func (p *Puller) expectDelim(want json.Delim) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return errors.Wrapf(ErrTypeMismatch, "expected %q, got %v", want, tok)
	}
	return nil
}

// BeginObject consumes the opening brace of an object.
func (p *Puller) BeginObject() error { return p.expectDelim('{') }

// EndObject consumes the closing brace of an object.
func (p *Puller) EndObject() error { return p.expectDelim('}') }

// BeginArray consumes the opening bracket of an array.
func (p *Puller) BeginArray() error { return p.expectDelim('[') }

// EndArray consumes the closing bracket of an array.
func (p *Puller) EndArray() error { return p.expectDelim(']') }

// NextName consumes an object key.
func (p *Puller) NextName() (string, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	name, ok := tok.(string)
	if !ok {
		return "", errors.Wrapf(ErrTypeMismatch, "expected object key, got %v", tok)
	}
	return name, nil
}

func (p *Puller) number() (json.Number, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	n, ok := tok.(json.Number)
	if !ok {
		return "", errors.Wrapf(ErrTypeMismatch, "expected number, got %v", tok)
	}
	return n, nil
}

// ExpectDouble consumes a number as a float64.
func (p *Puller) ExpectDouble() (float64, error) {
	n, err := p.number()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, errors.Wrapf(ErrOutOfRange, "value %s is not a double", n)
	}
	return v, nil
}

// ExpectFloat consumes a number as a float32. The value must survive the
// narrowing unchanged.
func (p *Puller) ExpectFloat() (float32, error) {
	d, err := p.ExpectDouble()
	if err != nil {
		return 0, err
	}
	f := float32(d)
	if float64(f) != d {
		return 0, errors.Wrapf(ErrOutOfRange, "value %v is too big for float", d)
	}
	return f, nil
}

func (p *Puller) integer(bits int) (int64, error) {
	n, err := p.number()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(string(n), 10, bits)
	if err != nil {
		return 0, errors.Wrapf(ErrOutOfRange, "value %s is not a %d-bit integer", n, bits)
	}
	return v, nil
}

// ExpectInt consumes a number as an int32.
func (p *Puller) ExpectInt() (int32, error) {
	v, err := p.integer(32)
	return int32(v), err
}

// ExpectLong consumes a number as an int64.
func (p *Puller) ExpectLong() (int64, error) {
	return p.integer(64)
}

// ExpectShort consumes a number as an int16.
func (p *Puller) ExpectShort() (int16, error) {
	v, err := p.integer(16)
	return int16(v), err
}

// ExpectByte consumes a number between 0 and 255.
func (p *Puller) ExpectByte() (byte, error) {
	v, err := p.integer(64)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > math.MaxUint8 {
		return 0, errors.Wrapf(ErrOutOfRange, "value %d is not a byte", v)
	}
	return byte(v), nil
}

// ExpectString consumes a string. A null reads as the empty string.
func (p *Puller) ExpectString() (string, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	switch v := tok.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	}
	return "", errors.Wrapf(ErrTypeMismatch, "expected string, got %v", tok)
}

// ExpectBoolean consumes true or false.
func (p *Puller) ExpectBoolean() (bool, error) {
	tok, err := p.next()
	if err != nil {
		return false, err
	}
	b, ok := tok.(bool)
	if !ok {
		return false, errors.Wrapf(ErrTypeMismatch, "expected boolean, got %v", tok)
	}
	return b, nil
}

// ExpectBytes consumes a base64 string, the form encoding/json gives
// []byte. A null reads as nil.
func (p *Puller) ExpectBytes() ([]byte, error) {
	isNull, err := p.CheckNull()
	if err != nil {
		return nil, err
	}
	if isNull {
		return nil, p.ExpectNull()
	}
	s, err := p.ExpectString()
	if err != nil {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(ErrTypeMismatch, "expected base64 bytes: %v", err)
	}
	return b, nil
}

// SkipValue consumes the next value, including any nested values.
func (p *Puller) SkipValue() error {
	depth := 0
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			default:
				depth--
			}
		}
		if depth == 0 {
			return nil
		}
	}
}

// ExpectEnd reports an error unless the document has no further values.
func (p *Puller) ExpectEnd() error {
	if _, err := p.Peek(); err != io.EOF {
		if err != nil {
			return err
		}
		return errors.New("puller: trailing data after document")
	}
	return nil
}

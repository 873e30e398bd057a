package puller

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/blockberries/parcelgen/pkg/schema"
)

var (
	// ErrUnknownField is returned for an object key the message does not
	// declare, inherited fields included.
	ErrUnknownField = errors.New("puller: unknown field")

	// ErrDuplicateField is returned when an object repeats a key.
	ErrDuplicateField = errors.New("puller: duplicate field")

	// ErrUnknownConstant is returned for an enum value naming no constant.
	ErrUnknownConstant = errors.New("puller: unknown enum constant")
)

// CheckError locates a failure inside an instance document.
type CheckError struct {
	// Path is the dotted field path, for example "Polygon.points[2].x".
	Path string
	Err  error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// Checker validates JSON instance documents against the messages of a
// schema. A document holds one object per message with a key per field;
// enums are spelled by constant name, dates as RFC 3339 strings or
// millisecond ticks and bytes as base64. Values of opaque types and of
// container or other classes are accepted as they are.
type Checker struct {
	schema  *schema.Schema
	classes map[string]schema.Class
}

// NewChecker creates a checker for s. Classes override the kinds declared
// in the schema, typically with the result of typeinfo.Resolve.
func NewChecker(s *schema.Schema, classes map[string]schema.Class) *Checker {
	return &Checker{schema: s, classes: classes}
}

// Check validates data, a JSON or JSONC document, as an instance of m.
func (c *Checker) Check(m *schema.Message, data []byte) error {
	p := FromJSONC(data)
	if err := c.CheckMessage(p, m); err != nil {
		return err
	}
	if err := p.ExpectEnd(); err != nil {
		return &CheckError{Path: m.Name, Err: err}
	}
	return nil
}

// CheckMessage consumes one instance of m from p.
func (c *Checker) CheckMessage(p *Puller, m *schema.Message) error {
	return c.message(p, m.Name, m)
}

func (c *Checker) message(p *Puller, path string, m *schema.Message) error {
	if err := p.BeginObject(); err != nil {
		return &CheckError{Path: path, Err: err}
	}
	fields := make(map[string]*schema.Field)
	for _, f := range m.AllFields() {
		fields[f.Name] = f
	}
	seen := make(map[string]bool)
	for p.More() {
		name, err := p.NextName()
		if err != nil {
			return &CheckError{Path: path, Err: err}
		}
		fieldPath := path + "." + name
		f, ok := fields[name]
		if !ok {
			return &CheckError{Path: fieldPath, Err: ErrUnknownField}
		}
		if seen[name] {
			return &CheckError{Path: fieldPath, Err: ErrDuplicateField}
		}
		seen[name] = true
		if err := c.field(p, fieldPath, f); err != nil {
			return err
		}
	}
	if err := p.EndObject(); err != nil {
		return &CheckError{Path: path, Err: err}
	}
	return nil
}

func (c *Checker) field(p *Puller, path string, f *schema.Field) error {
	if !f.Sequence {
		return c.value(p, path, f.Type)
	}
	isNull, err := p.CheckNull()
	if err != nil {
		return &CheckError{Path: path, Err: err}
	}
	if isNull {
		return wrap(path, p.ExpectNull())
	}
	if err := p.BeginArray(); err != nil {
		return &CheckError{Path: path, Err: err}
	}
	for i := 0; p.More(); i++ {
		if err := c.value(p, fmt.Sprintf("%s[%d]", path, i), f.Type); err != nil {
			return err
		}
	}
	return wrap(path, p.EndArray())
}

func (c *Checker) value(p *Puller, path string, t schema.Type) error {
	switch t := t.(type) {
	case *schema.Message:
		isNull, err := p.CheckNull()
		if err != nil {
			return &CheckError{Path: path, Err: err}
		}
		if isNull {
			return wrap(path, p.ExpectNull())
		}
		return c.message(p, path, t)
	case *schema.Enum:
		name, err := p.ExpectString()
		if err != nil {
			return &CheckError{Path: path, Err: err}
		}
		if t.Ordinal(name) < 0 {
			return &CheckError{Path: path, Err: errors.Wrapf(ErrUnknownConstant, "%s has no constant %q", t.Name, name)}
		}
		return nil
	case *schema.Constrained:
		return wrap(path, c.scalar(p, t.Base.Kind))
	case *schema.Primitive:
		if t.Kind != schema.KindCustom {
			return wrap(path, c.scalar(p, t.Kind))
		}
		return wrap(path, c.custom(p, t.Name))
	}
	return wrap(path, p.SkipValue())
}

func (c *Checker) scalar(p *Puller, kind schema.Kind) error {
	var err error
	switch kind {
	case schema.KindInt:
		_, err = p.ExpectInt()
	case schema.KindLong:
		_, err = p.ExpectLong()
	case schema.KindShort:
		_, err = p.ExpectShort()
	case schema.KindByte:
		_, err = p.ExpectByte()
	case schema.KindFloat:
		_, err = p.ExpectFloat()
	case schema.KindDouble:
		_, err = p.ExpectDouble()
	case schema.KindBool:
		_, err = p.ExpectBoolean()
	case schema.KindString:
		_, err = p.ExpectString()
	case schema.KindBytes:
		_, err = p.ExpectBytes()
	default:
		err = p.SkipValue()
	}
	return err
}

// classKind mirrors the generator's lookup order: explicit classes, then
// the schema, then the builtin date primitive.
func (c *Checker) classKind(name string) schema.ClassKind {
	if cls, ok := c.classes[name]; ok {
		return cls.Kind
	}
	if cls := c.schema.Class(name); cls != nil {
		return cls.Kind
	}
	if name == "date" {
		return schema.ClassDate
	}
	return schema.ClassUnresolved
}

func (c *Checker) custom(p *Puller, name string) error {
	switch c.classKind(name) {
	case schema.ClassDate:
		return date(p)
	case schema.ClassBool:
		_, err := p.ExpectBoolean()
		return err
	}
	return p.SkipValue()
}

func date(p *Puller) error {
	tok, err := p.Peek()
	if err != nil {
		return err
	}
	switch v := tok.(type) {
	case nil:
		return p.ExpectNull()
	case json.Number:
		_, err := p.ExpectLong()
		return err
	case string:
		p.ok = false
		if _, err := time.Parse(time.RFC3339Nano, v); err != nil {
			return errors.Wrapf(ErrTypeMismatch, "expected RFC 3339 date: %v", err)
		}
		return nil
	}
	return errors.Wrapf(ErrTypeMismatch, "expected date, got %v", tok)
}

func wrap(path string, err error) error {
	if err == nil {
		return nil
	}
	return &CheckError{Path: path, Err: err}
}

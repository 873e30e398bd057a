// Package schema holds the message model parcelgen generates code from,
// and loads it from YAML schema documents.
//
// A Schema is built once, from a Document, and is read-only afterwards:
// generators may share it across goroutines.
package schema

import "fmt"

// Position represents a position in a schema document.
type Position struct {
	Filename string
	Line     int
	Column   int
}

// String returns the position as file:line:column.
func (p Position) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// Schema is a resolved set of messages and the types they reference.
type Schema struct {
	// Package is the schema package; it prefixes canonical message names.
	Package string

	Enums       []*Enum
	Constrained []*Constrained
	Opaque      []*Opaque
	Classes     []*Class
	Messages    []*Message
}

// Message returns the message called name, or nil.
func (s *Schema) Message(name string) *Message {
	for _, m := range s.Messages {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Enum returns the enumeration called name, or nil.
func (s *Schema) Enum(name string) *Enum {
	for _, e := range s.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Class returns the physical class declared for the custom primitive
// called name, or nil.
func (s *Schema) Class(name string) *Class {
	for _, c := range s.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Type describes the declared type of a field. It is one of *Primitive,
// *Enum, *Message, *Constrained or *Opaque.
type Type interface {
	// TypeName returns the name the type is declared under.
	TypeName() string
	typeNode()
}

// Kind is the subkind of a primitive type.
type Kind int

const (
	KindInt Kind = iota
	KindLong
	KindShort
	KindFloat
	KindDouble
	KindBool
	KindString
	KindByte
	KindBytes
	// KindCustom is a primitive the schema language knows by name only;
	// its representation comes from a physical class.
	KindCustom
)

var kindNames = [...]string{
	KindInt:    "int",
	KindLong:   "long",
	KindShort:  "short",
	KindFloat:  "float",
	KindDouble: "double",
	KindBool:   "bool",
	KindString: "string",
	KindByte:   "byte",
	KindBytes:  "bytes",
	KindCustom: "custom",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// builtinPrimitives maps every primitive spelling a document may use.
var builtinPrimitives = map[string]Kind{
	"int":     KindInt,
	"integer": KindInt,
	"long":    KindLong,
	"short":   KindShort,
	"float":   KindFloat,
	"double":  KindDouble,
	"bool":    KindBool,
	"boolean": KindBool,
	"string":  KindString,
	"byte":    KindByte,
	"bytes":   KindBytes,
	"date":    KindCustom,
}

// LookupPrimitive returns the builtin primitive spelled name.
func LookupPrimitive(name string) (*Primitive, bool) {
	k, ok := builtinPrimitives[name]
	if !ok {
		return nil, false
	}
	return &Primitive{Name: name, Kind: k}, true
}

// Primitive is a builtin or custom primitive type.
type Primitive struct {
	Name string
	Kind Kind
}

func (t *Primitive) TypeName() string { return t.Name }
func (*Primitive) typeNode()          {}

// Enum is an enumeration. Constants are in declaration order; a constant's
// position is its ordinal.
type Enum struct {
	Position  Position
	Name      string
	Constants []string
	Doc       string
}

func (t *Enum) TypeName() string { return t.Name }
func (*Enum) typeNode()          {}

// Ordinal returns the position of constant, or -1.
func (t *Enum) Ordinal(constant string) int {
	for i, c := range t.Constants {
		if c == constant {
			return i
		}
	}
	return -1
}

// Constrained is a primitive narrowed by validation rules. It keeps the
// base primitive's representation but reports no physical class.
type Constrained struct {
	Position Position
	Name     string
	Base     *Primitive
	Rules    map[string]string
}

func (t *Constrained) TypeName() string { return t.Name }
func (*Constrained) typeNode()          {}

// Opaque is a type whose content the generator knows nothing about.
// GoType names the Go type values are cast to on decode; empty means any.
type Opaque struct {
	Position   Position
	Name       string
	GoType     string
	ImportPath string
}

func (t *Opaque) TypeName() string { return t.Name }
func (*Opaque) typeNode()          {}

// ClassKind is the category of a physical class.
type ClassKind string

const (
	ClassUnresolved ClassKind = ""
	ClassDate       ClassKind = "date"
	ClassBool       ClassKind = "bool"
	ClassEnum       ClassKind = "enum"
	ClassContainer  ClassKind = "container"
	ClassOther      ClassKind = "other"
)

// Valid reports whether k is a known class kind.
func (k ClassKind) Valid() bool {
	switch k {
	case ClassUnresolved, ClassDate, ClassBool, ClassEnum, ClassContainer, ClassOther:
		return true
	}
	return false
}

// Class is the Go representation of a custom primitive. An unresolved
// kind is filled in by inspecting GoType.
type Class struct {
	Position Position
	// Name is the custom primitive the class belongs to.
	Name string
	// GoType is the qualified Go type, for example "time.Time" or
	// "geo.Point".
	GoType string
	// ImportPath is the package GoType lives in.
	ImportPath string
	Kind       ClassKind
}

// Message is a named message with ordered fields and an optional parent.
type Message struct {
	Position Position
	Package  string
	Name     string
	Parent   *Message
	Fields   []*Field
	Doc      string
}

func (t *Message) TypeName() string { return t.Name }
func (*Message) typeNode()          {}

// CanonicalName returns the package-qualified message name.
func (t *Message) CanonicalName() string {
	if t.Package == "" {
		return t.Name
	}
	return t.Package + "." + t.Name
}

// Ancestors returns the parent chain, nearest parent first.
func (t *Message) Ancestors() []*Message {
	var out []*Message
	for p := t.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}

// AllFields returns the fields in encoding order: inherited fields first,
// root-most ancestor first, then own fields.
func (t *Message) AllFields() []*Field {
	var out []*Field
	if t.Parent != nil {
		out = t.Parent.AllFields()
	}
	return append(out, t.Fields...)
}

// Field is a message field.
type Field struct {
	Position Position
	Name     string
	Type     Type
	// Sequence marks a field holding zero or more values.
	Sequence bool
	Doc      string
}

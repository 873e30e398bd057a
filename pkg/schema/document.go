package schema

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Document is a schema document as written in YAML. Type references are
// still names; Build resolves them into a Schema.
//
//	package: shapes
//	enums:
//	  - name: Status
//	    constants: [ACTIVE, INACTIVE]
//	messages:
//	  - name: Point
//	    fields:
//	      - {name: x, type: float}
//	      - {name: y, type: float}
type Document struct {
	Filename string `yaml:"-"`

	Package     string           `yaml:"package"`
	Enums       []EnumDoc        `yaml:"enums,omitempty"`
	Constrained []ConstrainedDoc `yaml:"constrained,omitempty"`
	Opaque      []OpaqueDoc      `yaml:"opaque,omitempty"`
	Classes     []ClassDoc       `yaml:"classes,omitempty"`
	Messages    []MessageDoc     `yaml:"messages"`
}

// EnumDoc declares an enumeration.
type EnumDoc struct {
	Name      string   `yaml:"name"`
	Doc       string   `yaml:"doc,omitempty"`
	Constants []string `yaml:"constants,flow"`

	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

// ConstrainedDoc declares a primitive narrowed by validation rules.
type ConstrainedDoc struct {
	Name  string            `yaml:"name"`
	Base  string            `yaml:"base"`
	Rules map[string]string `yaml:"rules,omitempty"`

	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

// OpaqueDoc declares a type carried through the generic value channel.
type OpaqueDoc struct {
	Name   string `yaml:"name"`
	GoType string `yaml:"go_type,omitempty"`
	Import string `yaml:"import,omitempty"`

	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

// ClassDoc declares the Go representation of a custom primitive.
type ClassDoc struct {
	Name   string `yaml:"name"`
	GoType string `yaml:"go_type"`
	Import string `yaml:"import,omitempty"`
	Kind   string `yaml:"kind,omitempty"`

	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

// MessageDoc declares a message.
type MessageDoc struct {
	Name   string     `yaml:"name"`
	Parent string     `yaml:"parent,omitempty"`
	Doc    string     `yaml:"doc,omitempty"`
	Fields []FieldDoc `yaml:"fields"`

	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

// FieldDoc declares a message field.
type FieldDoc struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Sequence bool   `yaml:"sequence,omitempty"`
	Doc      string `yaml:"doc,omitempty"`

	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

func (d *EnumDoc) UnmarshalYAML(value *yaml.Node) error {
	type raw EnumDoc
	if err := value.Decode((*raw)(d)); err != nil {
		return err
	}
	d.Line, d.Column = value.Line, value.Column
	return nil
}

func (d *ConstrainedDoc) UnmarshalYAML(value *yaml.Node) error {
	type raw ConstrainedDoc
	if err := value.Decode((*raw)(d)); err != nil {
		return err
	}
	d.Line, d.Column = value.Line, value.Column
	return nil
}

func (d *OpaqueDoc) UnmarshalYAML(value *yaml.Node) error {
	type raw OpaqueDoc
	if err := value.Decode((*raw)(d)); err != nil {
		return err
	}
	d.Line, d.Column = value.Line, value.Column
	return nil
}

func (d *ClassDoc) UnmarshalYAML(value *yaml.Node) error {
	type raw ClassDoc
	if err := value.Decode((*raw)(d)); err != nil {
		return err
	}
	d.Line, d.Column = value.Line, value.Column
	return nil
}

func (d *MessageDoc) UnmarshalYAML(value *yaml.Node) error {
	type raw MessageDoc
	if err := value.Decode((*raw)(d)); err != nil {
		return err
	}
	d.Line, d.Column = value.Line, value.Column
	return nil
}

// UnmarshalYAML accepts both the mapping form and the short "name: type"
// form, where a leading "[]" on the type marks a sequence:
//
//	fields:
//	  - x: float
//	  - tags: "[]string"
func (d *FieldDoc) UnmarshalYAML(value *yaml.Node) error {
	d.Line, d.Column = value.Line, value.Column
	if value.Kind == yaml.MappingNode && len(value.Content) == 2 {
		key := value.Content[0].Value
		if key != "name" && key != "type" && value.Content[1].Kind == yaml.ScalarNode {
			d.Name = key
			d.Type = value.Content[1].Value
			if len(d.Type) > 2 && d.Type[:2] == "[]" {
				d.Type = d.Type[2:]
				d.Sequence = true
			}
			return nil
		}
	}
	type raw FieldDoc
	if err := value.Decode((*raw)(d)); err != nil {
		return err
	}
	d.Line, d.Column = value.Line, value.Column
	return nil
}

func (d *Document) pos(line, column int) Position {
	return Position{Filename: d.Filename, Line: line, Column: column}
}

// ParseDocument decodes a schema document. Unknown top-level keys are
// rejected.
func ParseDocument(filename string, data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	doc := &Document{}
	if err := dec.Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "failed to parse schema %s", filename)
	}
	doc.Filename = filename
	return doc, nil
}

// LoadDocument reads and decodes the schema document at path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read schema")
	}
	return ParseDocument(path, data)
}

// LoadFile reads, validates and builds the schema at path. Validation
// warnings are returned alongside a usable schema.
func LoadFile(path string) (*Schema, []ValidationError, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, nil, err
	}
	return Build(doc)
}

package schema

import (
	"github.com/pkg/errors"
)

// ErrInvalidSchema is returned by Build when validation reports errors.
var ErrInvalidSchema = errors.New("schema: invalid schema")

// Build validates doc and resolves it into a Schema. The returned
// diagnostics include warnings even when the build succeeds.
func Build(doc *Document) (*Schema, []ValidationError, error) {
	diags := Validate(doc)
	if HasErrors(diags) {
		return nil, diags, errors.Wrapf(ErrInvalidSchema, "%s: %d validation errors",
			doc.Filename, countErrors(diags))
	}

	s := &Schema{Package: doc.Package}
	b := &builder{doc: doc, schema: s, named: make(map[string]Type)}

	for _, e := range doc.Enums {
		t := &Enum{
			Position:  doc.pos(e.Line, e.Column),
			Name:      e.Name,
			Constants: append([]string(nil), e.Constants...),
			Doc:       e.Doc,
		}
		s.Enums = append(s.Enums, t)
		b.named[t.Name] = t
	}
	for _, c := range doc.Constrained {
		base, _ := LookupPrimitive(c.Base)
		t := &Constrained{
			Position: doc.pos(c.Line, c.Column),
			Name:     c.Name,
			Base:     base,
			Rules:    c.Rules,
		}
		s.Constrained = append(s.Constrained, t)
		b.named[t.Name] = t
	}
	for _, o := range doc.Opaque {
		t := &Opaque{
			Position:   doc.pos(o.Line, o.Column),
			Name:       o.Name,
			GoType:     o.GoType,
			ImportPath: o.Import,
		}
		s.Opaque = append(s.Opaque, t)
		b.named[t.Name] = t
	}
	for _, c := range doc.Classes {
		s.Classes = append(s.Classes, &Class{
			Position:   doc.pos(c.Line, c.Column),
			Name:       c.Name,
			GoType:     c.GoType,
			ImportPath: c.Import,
			Kind:       ClassKind(c.Kind),
		})
		if _, builtin := builtinPrimitives[c.Name]; !builtin {
			b.named[c.Name] = &Primitive{Name: c.Name, Kind: KindCustom}
		}
	}

	// Messages are created before any field is resolved so fields can
	// reference messages declared later, or the message itself.
	for _, m := range doc.Messages {
		t := &Message{
			Position: doc.pos(m.Line, m.Column),
			Package:  doc.Package,
			Name:     m.Name,
			Doc:      m.Doc,
		}
		s.Messages = append(s.Messages, t)
		b.named[t.Name] = t
	}
	for i, m := range doc.Messages {
		t := s.Messages[i]
		if m.Parent != "" {
			t.Parent = b.named[m.Parent].(*Message)
		}
		for _, f := range m.Fields {
			t.Fields = append(t.Fields, &Field{
				Position: doc.pos(f.Line, f.Column),
				Name:     f.Name,
				Type:     b.resolve(f.Type),
				Sequence: f.Sequence,
				Doc:      f.Doc,
			})
		}
	}
	return s, diags, nil
}

type builder struct {
	doc    *Document
	schema *Schema
	named  map[string]Type
}

func (b *builder) resolve(name string) Type {
	if t, ok := b.named[name]; ok {
		return t
	}
	// Validation guarantees every remaining name is a builtin.
	p, _ := LookupPrimitive(name)
	return p
}

func countErrors(diags []ValidationError) int {
	n := 0
	for _, d := range diags {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

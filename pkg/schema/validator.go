package schema

import (
	"fmt"
	"go/token"
	"sort"
	"strings"
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Position Position
	Message  string
	Severity Severity
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Position, e.Severity, e.Message)
}

// Severity indicates the severity of a validation error.
type Severity int

const (
	// SeverityError is a fatal error that prevents code generation.
	SeverityError Severity = iota
	// SeverityWarning is a non-fatal issue.
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// TypeDefKind indicates the kind of a named type definition.
type TypeDefKind int

const (
	TypeDefMessage TypeDefKind = iota
	TypeDefEnum
	TypeDefConstrained
	TypeDefOpaque
	TypeDefClass
)

func (k TypeDefKind) String() string {
	switch k {
	case TypeDefMessage:
		return "message"
	case TypeDefEnum:
		return "enum"
	case TypeDefConstrained:
		return "constrained type"
	case TypeDefOpaque:
		return "opaque type"
	case TypeDefClass:
		return "custom primitive"
	default:
		return "unknown"
	}
}

// TypeDef records where a named type was defined.
type TypeDef struct {
	Name     string
	Kind     TypeDefKind
	Position Position
}

// Validator validates schema documents before they are built.
type Validator struct {
	doc      *Document
	errors   []ValidationError
	types    map[string]TypeDef
	messages map[string]*MessageDoc
}

// NewValidator creates a new validator for the given document.
func NewValidator(doc *Document) *Validator {
	return &Validator{
		doc:      doc,
		types:    make(map[string]TypeDef),
		messages: make(map[string]*MessageDoc),
	}
}

// Validate performs validation and returns any errors and warnings,
// sorted by position.
func (v *Validator) Validate() []ValidationError {
	v.errors = nil

	if v.doc.Package == "" {
		v.addWarning(v.doc.pos(1, 1), "schema has no package; message names will not be qualified")
	} else if !token.IsIdentifier(v.doc.Package) {
		v.addError(v.doc.pos(1, 1), "package %q is not a valid identifier", v.doc.Package)
	}

	// First pass: collect all type definitions
	v.collectTypes()

	for i := range v.doc.Enums {
		v.validateEnum(&v.doc.Enums[i])
	}
	for i := range v.doc.Constrained {
		v.validateConstrained(&v.doc.Constrained[i])
	}
	for i := range v.doc.Classes {
		v.validateClass(&v.doc.Classes[i])
	}
	for i := range v.doc.Messages {
		v.validateMessage(&v.doc.Messages[i])
	}

	sort.SliceStable(v.errors, func(i, j int) bool {
		if v.errors[i].Position.Line != v.errors[j].Position.Line {
			return v.errors[i].Position.Line < v.errors[j].Position.Line
		}
		return v.errors[i].Position.Column < v.errors[j].Position.Column
	})

	return v.errors
}

func (v *Validator) define(name string, kind TypeDefKind, pos Position) {
	if name == "" {
		v.addError(pos, "%s has no name", kind)
		return
	}
	if _, ok := builtinPrimitives[name]; ok && kind != TypeDefClass {
		v.addError(pos, "%s %q shadows a builtin primitive", kind, name)
		return
	}
	if existing, ok := v.types[name]; ok {
		v.addError(pos, "duplicate type name %q (previously defined at %d:%d)",
			name, existing.Position.Line, existing.Position.Column)
		return
	}
	v.types[name] = TypeDef{Name: name, Kind: kind, Position: pos}
}

// collectTypes collects all type definitions for reference checking.
func (v *Validator) collectTypes() {
	for _, e := range v.doc.Enums {
		v.define(e.Name, TypeDefEnum, v.doc.pos(e.Line, e.Column))
	}
	for _, c := range v.doc.Constrained {
		v.define(c.Name, TypeDefConstrained, v.doc.pos(c.Line, c.Column))
	}
	for _, o := range v.doc.Opaque {
		v.define(o.Name, TypeDefOpaque, v.doc.pos(o.Line, o.Column))
	}
	for _, c := range v.doc.Classes {
		v.define(c.Name, TypeDefClass, v.doc.pos(c.Line, c.Column))
	}
	for i := range v.doc.Messages {
		m := &v.doc.Messages[i]
		v.define(m.Name, TypeDefMessage, v.doc.pos(m.Line, m.Column))
		if _, ok := v.messages[m.Name]; !ok && m.Name != "" {
			v.messages[m.Name] = m
		}
	}
}

func (v *Validator) validateEnum(e *EnumDoc) {
	pos := v.doc.pos(e.Line, e.Column)
	if len(e.Constants) == 0 {
		v.addError(pos, "enum %q has no constants", e.Name)
	}
	seen := make(map[string]bool)
	for _, c := range e.Constants {
		if !token.IsIdentifier(c) {
			v.addError(pos, "enum %q: constant %q is not a valid identifier", e.Name, c)
		}
		if seen[c] {
			v.addError(pos, "enum %q: duplicate constant %q", e.Name, c)
		}
		seen[c] = true
	}
}

func (v *Validator) validateConstrained(c *ConstrainedDoc) {
	pos := v.doc.pos(c.Line, c.Column)
	k, ok := builtinPrimitives[c.Base]
	if !ok || k == KindCustom {
		v.addError(pos, "constrained type %q: base %q is not a builtin primitive", c.Name, c.Base)
	}
}

func (v *Validator) validateClass(c *ClassDoc) {
	pos := v.doc.pos(c.Line, c.Column)
	if c.GoType == "" {
		v.addError(pos, "custom primitive %q has no go_type", c.Name)
	}
	if !ClassKind(c.Kind).Valid() {
		v.addError(pos, "custom primitive %q: unknown kind %q", c.Name, c.Kind)
	}
	if strings.Contains(c.GoType, ".") && c.Import == "" && !strings.HasPrefix(c.GoType, "time.") {
		v.addWarning(pos, "custom primitive %q: qualified go_type %q has no import", c.Name, c.GoType)
	}
}

func (v *Validator) validateMessage(m *MessageDoc) {
	pos := v.doc.pos(m.Line, m.Column)

	if m.Parent != "" {
		def, ok := v.types[m.Parent]
		switch {
		case !ok:
			v.addError(pos, "message %q: undefined parent %q", m.Name, m.Parent)
		case def.Kind != TypeDefMessage:
			v.addError(pos, "message %q: parent %q is a %s, not a message", m.Name, m.Parent, def.Kind)
		case v.inheritanceCycle(m):
			v.addError(pos, "message %q: inheritance cycle through %q", m.Name, m.Parent)
		}
	}

	inherited := v.inheritedFields(m)
	names := make(map[string]bool)
	for _, f := range m.Fields {
		fpos := v.doc.pos(f.Line, f.Column)
		if f.Name == "" {
			v.addError(fpos, "message %q: field has no name", m.Name)
			continue
		}
		if names[f.Name] {
			v.addError(fpos, "duplicate field name %q in message %q", f.Name, m.Name)
		}
		names[f.Name] = true
		if owner, ok := inherited[f.Name]; ok {
			v.addError(fpos, "field %s.%s shadows field inherited from %q", m.Name, f.Name, owner)
		}
		if f.Type == "" {
			v.addError(fpos, "field %s.%s has no type", m.Name, f.Name)
			continue
		}
		if _, ok := builtinPrimitives[f.Type]; ok {
			continue
		}
		if _, ok := v.types[f.Type]; !ok {
			v.addError(fpos, "undefined type %q in field %s.%s", f.Type, m.Name, f.Name)
		}
	}
}

// inheritanceCycle reports whether following parents from m returns to m.
func (v *Validator) inheritanceCycle(m *MessageDoc) bool {
	seen := map[string]bool{m.Name: true}
	for p := v.messages[m.Parent]; p != nil; p = v.messages[p.Parent] {
		if seen[p.Name] {
			return true
		}
		seen[p.Name] = true
	}
	return false
}

// inheritedFields maps each field name declared by an ancestor of m to
// the ancestor declaring it.
func (v *Validator) inheritedFields(m *MessageDoc) map[string]string {
	out := make(map[string]string)
	seen := map[string]bool{m.Name: true}
	for p := v.messages[m.Parent]; p != nil && !seen[p.Name]; p = v.messages[p.Parent] {
		seen[p.Name] = true
		for _, f := range p.Fields {
			if _, ok := out[f.Name]; !ok {
				out[f.Name] = p.Name
			}
		}
	}
	return out
}

func (v *Validator) addError(pos Position, format string, args ...any) {
	v.errors = append(v.errors, ValidationError{
		Position: pos,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
	})
}

func (v *Validator) addWarning(pos Position, format string, args ...any) {
	v.errors = append(v.errors, ValidationError{
		Position: pos,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityWarning,
	})
}

// HasErrors returns true if there are any errors (not warnings).
func (v *Validator) HasErrors() bool {
	return HasErrors(v.errors)
}

// HasErrors reports whether errs holds any error-severity issue.
func HasErrors(errs []ValidationError) bool {
	for _, err := range errs {
		if err.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity issues.
func (v *Validator) Errors() []ValidationError {
	var errors []ValidationError
	for _, err := range v.errors {
		if err.Severity == SeverityError {
			errors = append(errors, err)
		}
	}
	return errors
}

// Warnings returns only the warning-severity issues.
func (v *Validator) Warnings() []ValidationError {
	var warnings []ValidationError
	for _, err := range v.errors {
		if err.Severity == SeverityWarning {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// Validate is a convenience function that validates a document.
func Validate(doc *Document) []ValidationError {
	return NewValidator(doc).Validate()
}

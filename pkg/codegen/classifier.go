package codegen

import (
	"github.com/blockberries/parcelgen/pkg/schema"
)

// Strategy is how a field's value is written to and read from a parcel.
type Strategy int

const (
	// NativeScalar uses the parcel's own operation for the primitive.
	NativeScalar Strategy = iota
	// DateTimestamp writes a millisecond tick count, -1 for no date.
	DateTimestamp
	// BooleanFlag writes an int, 1 for true and 0 for false.
	BooleanFlag
	// EnumOrdinal writes the constant's declaration index.
	EnumOrdinal
	// NestedContainer delegates to the referenced message's own codec.
	NestedContainer
	// OpaqueFallback goes through the parcel's generic value channel and
	// casts the result back on decode.
	OpaqueFallback
)

var strategyNames = [...]string{
	NativeScalar:    "native-scalar",
	DateTimestamp:   "date-timestamp",
	BooleanFlag:     "boolean-flag",
	EnumOrdinal:     "enum-ordinal",
	NestedContainer: "nested-container",
	OpaqueFallback:  "opaque-fallback",
}

func (s Strategy) String() string {
	if s >= 0 && int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return "unknown"
}

// Decision is the classification of one field.
type Decision struct {
	Strategy Strategy
	// Sequence is set when the field holds zero or more values; the
	// strategy then applies per element.
	Sequence bool
	// Scalar holds the parcel operations for NativeScalar.
	Scalar ScalarOps
	// Class is the physical class the decision was made from, if any.
	Class *schema.Class
	// GoType is the Go type of a single value.
	GoType string
	// Values is the call returning an enum's constants in ordinal order.
	Values string
	// ImportPath is the package GoType needs, if any.
	ImportPath string
}

// CountLoop reports whether a sequence of this decision is written as a
// count followed by one element at a time.
func (d Decision) CountLoop() bool {
	if !d.Sequence {
		return false
	}
	switch d.Strategy {
	case NativeScalar:
		return !d.Scalar.HasArray()
	case NestedContainer:
		return false
	}
	return true
}

// FieldType returns the Go type of the struct field.
func (d Decision) FieldType() string {
	if d.Sequence {
		return "[]" + d.GoType
	}
	return d.GoType
}

// Classifier decides the strategy of each field. It keeps no state
// between calls and is safe for concurrent use.
type Classifier struct {
	opts    Options
	classes classTable
}

// NewClassifier creates a classifier resolving custom primitives through
// the classes of s and opts.
func NewClassifier(s *schema.Schema, opts Options) *Classifier {
	return &Classifier{
		opts:    opts,
		classes: classTable{options: opts.Classes, schema: s},
	}
}

// Classify returns the decision for f. The first matching rule wins:
//
//  1. an unconstrained primitive with a native operation
//  2. a date class
//  3. a boolean class
//  4. an enum class
//  5. a container class, or a message reference
//  6. a declared enumeration
//  7. anything else goes through the opaque value channel
//
// Classification never fails.
func (c *Classifier) Classify(f *schema.Field) Decision {
	d := c.classify(f.Type)
	d.Sequence = f.Sequence
	return d
}

func (c *Classifier) classify(t schema.Type) Decision {
	if p, ok := t.(*schema.Primitive); ok {
		if ops, ok := LookupScalar(p.Kind); ok {
			return Decision{Strategy: NativeScalar, Scalar: ops, GoType: ops.GoType}
		}
	}

	if cls, ok := c.classes.lookup(t); ok {
		switch cls.Kind {
		case schema.ClassDate:
			return Decision{Strategy: DateTimestamp, Class: &cls, GoType: "*time.Time", ImportPath: "time"}
		case schema.ClassBool:
			return Decision{Strategy: BooleanFlag, Class: &cls, GoType: cls.GoType, ImportPath: cls.ImportPath}
		case schema.ClassEnum:
			return Decision{
				Strategy:   EnumOrdinal,
				Class:      &cls,
				GoType:     cls.GoType,
				Values:     valuesFunc(cls.GoType) + "()",
				ImportPath: cls.ImportPath,
			}
		case schema.ClassContainer:
			return Decision{Strategy: NestedContainer, Class: &cls, GoType: "*" + cls.GoType, ImportPath: cls.ImportPath}
		}
	}

	if m, ok := t.(*schema.Message); ok {
		return Decision{Strategy: NestedContainer, GoType: "*" + c.opts.typeName(m.Name)}
	}

	if c.opts.isEnumDeclaration(t) {
		name := c.opts.typeName(t.TypeName())
		return Decision{Strategy: EnumOrdinal, GoType: name, Values: name + "Values()"}
	}

	return c.opaque(t)
}

// opaque picks the Go type a value read from the generic channel is cast
// to. "any" means no cast.
func (c *Classifier) opaque(t schema.Type) Decision {
	d := Decision{Strategy: OpaqueFallback, GoType: "any"}
	if cls, ok := c.classes.lookup(t); ok {
		d.Class = &cls
		if cls.GoType != "" {
			d.GoType = cls.GoType
			d.ImportPath = cls.ImportPath
		}
		return d
	}
	switch t := t.(type) {
	case *schema.Opaque:
		if t.GoType != "" {
			d.GoType = t.GoType
			d.ImportPath = t.ImportPath
		}
	case *schema.Constrained:
		if t.Base != nil {
			d.GoType = goPrimitive(t.Base.Kind)
		}
	}
	return d
}

// FieldPlan is a field with its Go name and decision.
type FieldPlan struct {
	Field    *schema.Field
	GoName   string
	Decision Decision
}

// Plan is the classified form of one message's own fields, in declared
// order. Inherited fields belong to the parent's plan.
type Plan struct {
	Message *schema.Message
	Fields  []FieldPlan
}

// PlanMessage classifies every own field of m.
func (c *Classifier) PlanMessage(m *schema.Message) *Plan {
	plan := &Plan{Message: m, Fields: make([]FieldPlan, 0, len(m.Fields))}
	for _, f := range m.Fields {
		plan.Fields = append(plan.Fields, FieldPlan{
			Field:    f,
			GoName:   c.opts.fieldName(f),
			Decision: c.Classify(f),
		})
	}
	return plan
}

package codegen

import (
	"strings"

	"github.com/blockberries/parcelgen/pkg/schema"
)

// builtinClasses are the physical classes of the primitives the parcel
// has no native operation for.
var builtinClasses = map[string]schema.Class{
	"bool":    {Name: "bool", GoType: "bool", Kind: schema.ClassBool},
	"boolean": {Name: "boolean", GoType: "bool", Kind: schema.ClassBool},
	"date":    {Name: "date", GoType: "time.Time", ImportPath: "time", Kind: schema.ClassDate},
}

// classTable resolves custom primitives to physical classes. Lookups go
// through option classes, then schema classes, then the builtins.
type classTable struct {
	options map[string]schema.Class
	schema  *schema.Schema
}

// lookup returns the physical class of t. Only an unconstrained primitive
// has one.
func (c classTable) lookup(t schema.Type) (schema.Class, bool) {
	p, ok := t.(*schema.Primitive)
	if !ok {
		return schema.Class{}, false
	}
	if cls, ok := c.options[p.Name]; ok {
		return normalizeClass(cls), true
	}
	if c.schema != nil {
		if cls := c.schema.Class(p.Name); cls != nil {
			return normalizeClass(*cls), true
		}
	}
	cls, ok := builtinClasses[p.Name]
	return cls, ok
}

// normalizeClass treats a class nobody resolved as one the generator
// cannot introspect.
func normalizeClass(c schema.Class) schema.Class {
	if c.Kind == schema.ClassUnresolved {
		c.Kind = schema.ClassOther
	}
	return c
}

// valuesFunc returns the function listing the constants of a Go enum type,
// in ordinal order: "geo.Direction" has "geo.DirectionValues".
func valuesFunc(goType string) string {
	return strings.TrimPrefix(goType, "*") + "Values"
}

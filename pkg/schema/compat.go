package schema

import (
	"fmt"
	"sort"
)

// Parcels carry no field names or tags: fields are positional and enum
// constants travel as ordinals. Most edits to a message or enum therefore
// change how existing bytes decode.

// BreakingChangeType indicates the kind of breaking change detected.
type BreakingChangeType int

const (
	// MessageRemoved indicates a message was removed.
	MessageRemoved BreakingChangeType = iota
	// ParentChanged indicates a message's parent was added, removed or replaced.
	ParentChanged
	// FieldRemoved indicates a field was removed.
	FieldRemoved
	// FieldAdded indicates a field was added.
	FieldAdded
	// FieldMoved indicates a field changed position.
	FieldMoved
	// FieldTypeChanged indicates a field's representation changed.
	FieldTypeChanged
	// EnumRemoved indicates an enum was removed.
	EnumRemoved
	// EnumConstantRemoved indicates an enum constant was removed.
	EnumConstantRemoved
	// EnumConstantMoved indicates an enum constant changed ordinal, by
	// reordering or by an insertion before it.
	EnumConstantMoved
)

// String returns a human-readable description of the breaking change type.
func (t BreakingChangeType) String() string {
	switch t {
	case MessageRemoved:
		return "message removed"
	case ParentChanged:
		return "parent changed"
	case FieldRemoved:
		return "field removed"
	case FieldAdded:
		return "field added"
	case FieldMoved:
		return "field moved"
	case FieldTypeChanged:
		return "field type changed"
	case EnumRemoved:
		return "enum removed"
	case EnumConstantRemoved:
		return "enum constant removed"
	case EnumConstantMoved:
		return "enum ordinal changed"
	default:
		return "unknown breaking change"
	}
}

// BreakingChange represents an incompatible schema change.
type BreakingChange struct {
	// Type is the kind of breaking change.
	Type BreakingChangeType
	// Message describes the specific change.
	Message string
	// Location identifies where in the schema the change occurred.
	Location string
}

// Error returns the breaking change as an error string.
func (b BreakingChange) Error() string {
	if b.Location != "" {
		return fmt.Sprintf("%s: %s at %s", b.Type, b.Message, b.Location)
	}
	return fmt.Sprintf("%s: %s", b.Type, b.Message)
}

// CompatibilityReport contains the results of a schema compatibility check.
type CompatibilityReport struct {
	// Breaking contains all breaking changes detected.
	Breaking []BreakingChange
	// Warnings contains non-breaking but notable changes.
	Warnings []string
}

// IsCompatible returns true if no breaking changes were detected.
func (r *CompatibilityReport) IsCompatible() bool {
	return len(r.Breaking) == 0
}

func (r *CompatibilityReport) breaking(t BreakingChangeType, location, format string, args ...any) {
	r.Breaking = append(r.Breaking, BreakingChange{
		Type:     t,
		Message:  fmt.Sprintf(format, args...),
		Location: location,
	})
}

func (r *CompatibilityReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// CheckCompatibility compares two schemas and returns a compatibility report.
// The 'old' schema is the existing/deployed version, and 'new' is the proposed version.
func CheckCompatibility(oldSchema, newSchema *Schema) *CompatibilityReport {
	report := &CompatibilityReport{}

	for _, oldMsg := range oldSchema.Messages {
		newMsg := newSchema.Message(oldMsg.Name)
		if newMsg == nil {
			report.breaking(MessageRemoved, oldMsg.Name, "message %q was removed", oldMsg.Name)
			continue
		}
		checkMessageCompat(oldMsg, newMsg, report)
	}

	for _, oldEnum := range oldSchema.Enums {
		newEnum := newSchema.Enum(oldEnum.Name)
		if newEnum == nil {
			report.breaking(EnumRemoved, oldEnum.Name, "enum %q was removed", oldEnum.Name)
			continue
		}
		checkEnumCompat(oldEnum, newEnum, report)
	}

	sort.SliceStable(report.Breaking, func(i, j int) bool {
		return report.Breaking[i].Location < report.Breaking[j].Location
	})
	return report
}

func parentName(m *Message) string {
	if m.Parent == nil {
		return ""
	}
	return m.Parent.Name
}

// checkMessageCompat checks for breaking changes between two message versions.
func checkMessageCompat(oldMsg, newMsg *Message, report *CompatibilityReport) {
	if oldParent, newParent := parentName(oldMsg), parentName(newMsg); oldParent != newParent {
		report.breaking(ParentChanged, oldMsg.Name, "parent changed from %q to %q", oldParent, newParent)
	}

	newIndex := make(map[string]int, len(newMsg.Fields))
	for i, f := range newMsg.Fields {
		newIndex[f.Name] = i
	}
	oldIndex := make(map[string]int, len(oldMsg.Fields))
	for i, f := range oldMsg.Fields {
		oldIndex[f.Name] = i
	}

	for i, oldF := range oldMsg.Fields {
		loc := oldMsg.Name + "." + oldF.Name
		j, ok := newIndex[oldF.Name]
		if !ok {
			// Same position and representation under a new name decodes
			// identically.
			if i < len(newMsg.Fields) {
				newF := newMsg.Fields[i]
				if _, existed := oldIndex[newF.Name]; !existed && representation(oldF) == representation(newF) {
					report.warn("field %s was renamed to %q", loc, newF.Name)
					continue
				}
			}
			report.breaking(FieldRemoved, loc, "field %q was removed", oldF.Name)
			continue
		}
		if i != j {
			report.breaking(FieldMoved, loc, "field %q moved from position %d to %d", oldF.Name, i, j)
		}
		newF := newMsg.Fields[j]
		oldRep, newRep := representation(oldF), representation(newF)
		switch {
		case oldRep == newRep:
			if oldF.Type.TypeName() != newF.Type.TypeName() {
				report.warn("field %s changed type from %s to %s with the same representation",
					loc, oldF.Type.TypeName(), newF.Type.TypeName())
			}
		case widens(oldF, newF):
			report.warn("field %s widened from %s to %s; old readers may overflow on new data",
				loc, oldRep, newRep)
		default:
			report.breaking(FieldTypeChanged, loc, "field %q type changed from %s to %s",
				oldF.Name, oldRep, newRep)
		}
	}

	for i, newF := range newMsg.Fields {
		if _, ok := oldIndex[newF.Name]; ok {
			continue
		}
		if i < len(oldMsg.Fields) {
			oldF := oldMsg.Fields[i]
			if _, kept := newIndex[oldF.Name]; !kept && representation(oldF) == representation(newF) {
				// Reported as a rename above.
				continue
			}
		}
		report.breaking(FieldAdded, newMsg.Name+"."+newF.Name, "field %q was added at position %d", newF.Name, i)
	}
}

// checkEnumCompat checks for breaking changes between two enum versions.
// Appending constants keeps every existing ordinal.
func checkEnumCompat(oldEnum, newEnum *Enum, report *CompatibilityReport) {
	for i, c := range oldEnum.Constants {
		loc := oldEnum.Name + "." + c
		j := newEnum.Ordinal(c)
		switch {
		case j < 0:
			report.breaking(EnumConstantRemoved, loc, "enum constant %q (%d) was removed", c, i)
		case i != j:
			report.breaking(EnumConstantMoved, loc, "enum constant %q ordinal changed from %d to %d", c, i, j)
		}
	}
	if n := len(newEnum.Constants) - len(oldEnum.Constants); n > 0 && report.enumPrefixKept(oldEnum, newEnum) {
		report.warn("enum %s gained %d constants; old readers reject their ordinals", oldEnum.Name, n)
	}
}

func (r *CompatibilityReport) enumPrefixKept(oldEnum, newEnum *Enum) bool {
	for i, c := range oldEnum.Constants {
		if i >= len(newEnum.Constants) || newEnum.Constants[i] != c {
			return false
		}
	}
	return true
}

// representation describes how a field's value is laid out in a parcel.
func representation(f *Field) string {
	var rep string
	switch t := f.Type.(type) {
	case *Primitive:
		if t.Kind == KindCustom {
			rep = t.Name
		} else {
			rep = t.Kind.String()
		}
	case *Constrained:
		rep = t.Base.Kind.String()
	case *Enum:
		rep = "enum " + t.Name
	case *Message:
		rep = "message " + t.Name
	case *Opaque:
		rep = "value"
	default:
		rep = f.Type.TypeName()
	}
	if f.Sequence {
		return "[]" + rep
	}
	return rep
}

// intWidth ranks integer kinds that share the signed varint encoding.
var intWidth = map[string]int{
	"short": 1,
	"int":   2,
	"long":  3,
}

// widens reports whether the change only widens a single integer field.
func widens(oldF, newF *Field) bool {
	if oldF.Sequence || newF.Sequence {
		return false
	}
	oldW, ok := intWidth[representation(oldF)]
	if !ok {
		return false
	}
	newW, ok := intWidth[representation(newF)]
	return ok && newW > oldW
}

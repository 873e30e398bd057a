package codegen

import (
	"testing"

	"github.com/blockberries/parcelgen/pkg/schema"
)

// allStrategies declares at least one field per classification rule.
const allStrategies = `
package: shapes
enums:
  - {name: Status, constants: [ACTIVE, INACTIVE]}
constrained:
  - {name: Percent, base: int}
opaque:
  - {name: Payload}
  - {name: Config, go_type: geo.Config, import: example.com/geo}
classes:
  - {name: Timestamp, go_type: time.Time, import: time, kind: date}
  - {name: Toggle, go_type: geo.Toggle, import: example.com/geo, kind: bool}
  - {name: Direction, go_type: geo.Direction, import: example.com/geo, kind: enum}
  - {name: Region, go_type: geo.Region, import: example.com/geo, kind: container}
  - {name: Color, go_type: geo.Color, import: example.com/geo, kind: other}
  - {name: Lazy, go_type: geo.Lazy, import: example.com/geo}
messages:
  - name: Shape
    fields:
      - {name: id, type: long}
  - name: Everything
    parent: Shape
    fields:
      - {name: count, type: int}
      - {name: small, type: short}
      - {name: ratio, type: double}
      - {name: label, type: string}
      - {name: octet, type: byte}
      - {name: raw, type: bytes}
      - {name: enabled, type: bool}
      - {name: created, type: date}
      - {name: seen, type: Timestamp}
      - {name: toggle, type: Toggle}
      - {name: heading, type: Direction}
      - {name: region, type: Region}
      - {name: origin, type: Point}
      - {name: status, type: Status}
      - {name: fill, type: Percent}
      - {name: payload, type: Payload}
      - {name: config, type: Config}
      - {name: color, type: Color}
      - {name: lazy, type: Lazy}
  - name: Point
    fields:
      - {name: x, type: float}
      - {name: y, type: float}
`

func buildSchema(t *testing.T, input string) *schema.Schema {
	t.Helper()
	doc, err := schema.ParseDocument("test.yaml", []byte(input))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	s, diags, err := schema.Build(doc)
	if err != nil {
		t.Fatalf("build error: %v %v", err, diags)
	}
	return s
}

func fieldNamed(t *testing.T, m *schema.Message, name string) *schema.Field {
	t.Helper()
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("no field %q in %s", name, m.Name)
	return nil
}

func TestClassify(t *testing.T) {
	s := buildSchema(t, allStrategies)
	msg := s.Message("Everything")
	c := NewClassifier(s, DefaultOptions())

	tests := []struct {
		field    string
		strategy Strategy
		goType   string
		extra    string
	}{
		{"count", NativeScalar, "int32", "WriteInt"},
		{"small", NativeScalar, "int16", "WriteShort"},
		{"ratio", NativeScalar, "float64", "WriteDouble"},
		{"label", NativeScalar, "string", "WriteString"},
		{"octet", NativeScalar, "byte", "WriteUint8"},
		{"raw", NativeScalar, "[]byte", "WriteByteArray"},
		{"enabled", BooleanFlag, "bool", ""},
		{"created", DateTimestamp, "*time.Time", ""},
		{"seen", DateTimestamp, "*time.Time", ""},
		{"toggle", BooleanFlag, "geo.Toggle", ""},
		{"heading", EnumOrdinal, "geo.Direction", "geo.DirectionValues()"},
		{"region", NestedContainer, "*geo.Region", ""},
		{"origin", NestedContainer, "*Point", ""},
		{"status", EnumOrdinal, "Status", "StatusValues()"},
		{"fill", OpaqueFallback, "int32", ""},
		{"payload", OpaqueFallback, "any", ""},
		{"config", OpaqueFallback, "geo.Config", ""},
		{"color", OpaqueFallback, "geo.Color", ""},
		{"lazy", OpaqueFallback, "geo.Lazy", ""},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			d := c.Classify(fieldNamed(t, msg, tt.field))
			if d.Strategy != tt.strategy {
				t.Errorf("strategy = %s, want %s", d.Strategy, tt.strategy)
			}
			if d.GoType != tt.goType {
				t.Errorf("GoType = %q, want %q", d.GoType, tt.goType)
			}
			if d.Sequence {
				t.Error("Sequence should be false")
			}
			switch tt.strategy {
			case NativeScalar:
				if d.Scalar.Write != tt.extra {
					t.Errorf("write op = %q, want %q", d.Scalar.Write, tt.extra)
				}
			case EnumOrdinal:
				if d.Values != tt.extra {
					t.Errorf("Values = %q, want %q", d.Values, tt.extra)
				}
			}
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	s := buildSchema(t, allStrategies)
	c := NewClassifier(s, DefaultOptions())
	for _, m := range s.Messages {
		for _, f := range m.Fields {
			d := c.Classify(f)
			if d.Strategy < NativeScalar || d.Strategy > OpaqueFallback {
				t.Errorf("%s.%s: strategy %d out of range", m.Name, f.Name, d.Strategy)
			}
			if d.GoType == "" {
				t.Errorf("%s.%s: empty Go type", m.Name, f.Name)
			}
		}
	}
}

func TestClassifyRuleOrder(t *testing.T) {
	s := buildSchema(t, allStrategies)
	msg := s.Message("Everything")

	t.Run("native scalar ignores classes", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Classes = map[string]schema.Class{
			"int": {Name: "int", GoType: "time.Time", Kind: schema.ClassDate},
		}
		d := NewClassifier(s, opts).Classify(fieldNamed(t, msg, "count"))
		if d.Strategy != NativeScalar {
			t.Errorf("strategy = %s, want native-scalar", d.Strategy)
		}
	})

	t.Run("option classes override schema classes", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Classes = map[string]schema.Class{
			"Timestamp": {Name: "Timestamp", GoType: "geo.Stamp", Kind: schema.ClassContainer},
		}
		d := NewClassifier(s, opts).Classify(fieldNamed(t, msg, "seen"))
		if d.Strategy != NestedContainer || d.GoType != "*geo.Stamp" {
			t.Errorf("got %s %s, want nested-container *geo.Stamp", d.Strategy, d.GoType)
		}
	})

	t.Run("enum predicate", func(t *testing.T) {
		opts := DefaultOptions()
		opts.IsEnumDeclaration = func(schema.Type) bool { return false }
		d := NewClassifier(s, opts).Classify(fieldNamed(t, msg, "status"))
		if d.Strategy != OpaqueFallback {
			t.Errorf("strategy = %s, want opaque-fallback", d.Strategy)
		}

		opts.IsEnumDeclaration = func(t schema.Type) bool { return t.TypeName() == "Payload" }
		d = NewClassifier(s, opts).Classify(fieldNamed(t, msg, "payload"))
		if d.Strategy != EnumOrdinal || d.Values != "PayloadValues()" {
			t.Errorf("got %s %q, want enum-ordinal PayloadValues()", d.Strategy, d.Values)
		}
	})

	t.Run("type prefix", func(t *testing.T) {
		opts := DefaultOptions()
		opts.TypePrefix = "PG"
		c := NewClassifier(s, opts)
		if d := c.Classify(fieldNamed(t, msg, "status")); d.Values != "PGStatusValues()" {
			t.Errorf("Values = %q", d.Values)
		}
		if d := c.Classify(fieldNamed(t, msg, "origin")); d.GoType != "*PGPoint" {
			t.Errorf("GoType = %q", d.GoType)
		}
	})
}

func TestClassifySequence(t *testing.T) {
	s := buildSchema(t, `
package: flags
enums:
  - {name: Status, constants: [ACTIVE, INACTIVE]}
messages:
  - name: Flags
    fields:
      - {name: bits, type: bool, sequence: true}
      - {name: counts, type: int, sequence: true}
      - {name: blobs, type: bytes, sequence: true}
      - {name: octets, type: byte, sequence: true}
      - {name: states, type: Status, sequence: true}
      - {name: when, type: date, sequence: true}
      - {name: children, type: Flags, sequence: true}
`)
	msg := s.Message("Flags")
	c := NewClassifier(s, DefaultOptions())

	tests := []struct {
		field     string
		countLoop bool
		fieldType string
	}{
		{"bits", true, "[]bool"},
		{"counts", false, "[]int32"},
		{"blobs", true, "[][]byte"},
		{"octets", false, "[]byte"},
		{"states", true, "[]Status"},
		{"when", true, "[]*time.Time"},
		{"children", false, "[]*Flags"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			d := c.Classify(fieldNamed(t, msg, tt.field))
			if !d.Sequence {
				t.Fatal("Sequence should be set")
			}
			if d.CountLoop() != tt.countLoop {
				t.Errorf("CountLoop() = %v, want %v", d.CountLoop(), tt.countLoop)
			}
			if d.FieldType() != tt.fieldType {
				t.Errorf("FieldType() = %q, want %q", d.FieldType(), tt.fieldType)
			}
		})
	}
}

func TestLookupScalar(t *testing.T) {
	if _, ok := LookupScalar(schema.KindBool); ok {
		t.Error("bool must not have a native scalar")
	}
	if _, ok := LookupScalar(schema.KindCustom); ok {
		t.Error("custom primitives must not have a native scalar")
	}
	ops, ok := LookupScalar(schema.KindBytes)
	if !ok || ops.HasArray() {
		t.Errorf("bytes: %+v, want a single-value op without array form", ops)
	}
	ops, ok = LookupScalar(schema.KindFloat)
	if !ok || ops.WriteArray != "WriteFloatArray" || ops.CreateArray != "CreateFloatArray" {
		t.Errorf("float: %+v", ops)
	}
}

func TestStrategyString(t *testing.T) {
	if got := EnumOrdinal.String(); got != "enum-ordinal" {
		t.Errorf("String() = %q", got)
	}
	if got := Strategy(42).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
}

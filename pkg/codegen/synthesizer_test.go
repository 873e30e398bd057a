package codegen

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"testing"
)

// wireCall matches the parcel operations in an emitted statement.
var wireCall = regexp.MustCompile(`\b(?:source|dest)\.(\w+)\(|parcel\.(EnumAt|WriteContainerArray)\(|\.(ReadFromParcel|WriteToParcel)\(`)

// wireOps lists the parcel operations of a program, tagged by field, with
// read and write spellings folded onto the value they move.
func wireOps(p *Program) []string {
	var ops []string
	for _, in := range p.Instructions {
		text := in.Text
		for _, m := range wireCall.FindAllStringSubmatch(text, -1) {
			var op string
			switch {
			case m[1] != "":
				op = m[1]
			case m[2] == "EnumAt":
				op = "Int"
			case m[2] != "":
				op = "ContainerArray"
			default:
				op = "parent"
			}
			switch {
			case op == "Err":
				continue
			case op == "ReadCount":
				op = "Int"
			case strings.HasPrefix(op, "Create"):
				op = strings.TrimPrefix(op, "Create")
			case strings.HasPrefix(op, "Read"):
				op = strings.TrimPrefix(op, "Read")
			case strings.HasPrefix(op, "Write"):
				op = strings.TrimPrefix(op, "Write")
			}
			ops = append(ops, in.Field+":"+op)
		}
	}
	return ops
}

func TestDecodeEncodeMirror(t *testing.T) {
	s := buildSchema(t, allStrategies+`
  - name: Repeated
    parent: Everything
    fields:
      - {name: counts, type: int, sequence: true}
      - {name: blobs, type: bytes, sequence: true}
      - {name: bits, type: bool, sequence: true}
      - {name: days, type: date, sequence: true}
      - {name: states, type: Status, sequence: true}
      - {name: headings, type: Direction, sequence: true}
      - {name: points, type: Point, sequence: true}
      - {name: regions, type: Region, sequence: true}
      - {name: payloads, type: Payload, sequence: true}
      - {name: fills, type: Percent, sequence: true}
`)
	synth := NewSynthesizer(s, DefaultOptions())

	for _, m := range s.Messages {
		t.Run(m.Name, func(t *testing.T) {
			var dec, enc Program
			synth.Decode(m, &dec)
			synth.Encode(m, &enc)

			decOps, encOps := wireOps(&dec), wireOps(&enc)
			if !reflect.DeepEqual(decOps, encOps) {
				t.Fatalf("decode and encode differ:\ndecode: %v\nencode: %v", decOps, encOps)
			}

			want := make([]string, 0, len(m.Fields)+1)
			if m.Parent != nil {
				want = append(want, "")
			}
			for _, f := range m.Fields {
				want = append(want, f.Name)
			}
			if got := dec.Fields(); !reflect.DeepEqual(got, want) {
				t.Errorf("decode field order = %q, want %q", got, want)
			}
			if got := enc.Fields(); !reflect.DeepEqual(got, want) {
				t.Errorf("encode field order = %q, want %q", got, want)
			}
		})
	}
}

func TestParentFirst(t *testing.T) {
	s := buildSchema(t, allStrategies)
	synth := NewSynthesizer(s, DefaultOptions())
	m := s.Message("Everything")

	var dec, enc Program
	synth.Decode(m, &dec)
	synth.Encode(m, &enc)

	if got := dec.Instructions[0]; got.Op != OpBeginBlock || got.Text != "if err := m.Shape.ReadFromParcel(source); err != nil" {
		t.Errorf("first decode instruction = %+v", got)
	}
	if got := enc.Instructions[0]; got.Op != OpStatement || got.Text != "m.Shape.WriteToParcel(dest, flags)" {
		t.Errorf("first encode instruction = %+v", got)
	}

	// The parent's own fields are never duplicated into the child.
	for _, in := range append(dec.Instructions, enc.Instructions...) {
		if strings.Contains(in.Text, "m.Id") {
			t.Errorf("inherited field emitted in child: %q", in.Text)
		}
	}
}

func TestFlagsScenario(t *testing.T) {
	s := buildSchema(t, `
package: flags
messages:
  - name: Flags
    fields:
      - {name: bits, type: boolean, sequence: true}
`)
	synth := NewSynthesizer(s, DefaultOptions())
	m := s.Message("Flags")

	dec := NewGoWriter(0)
	synth.Decode(m, dec)
	wantDecode := `bitsCount := source.ReadCount()
m.Bits = make([]bool, bitsCount)
for i := range m.Bits {
	m.Bits[i] = source.ReadInt() == 1
}
`
	if dec.String() != wantDecode {
		t.Errorf("decode:\n%s\nwant:\n%s", dec.String(), wantDecode)
	}

	enc := NewGoWriter(0)
	synth.Encode(m, enc)
	wantEncode := `dest.WriteInt(int32(len(m.Bits)))
for _, v := range m.Bits {
	dest.WriteInt(parcel.BoolInt(v))
}
`
	if enc.String() != wantEncode {
		t.Errorf("encode:\n%s\nwant:\n%s", enc.String(), wantEncode)
	}
}

func TestNestedSequenceEmission(t *testing.T) {
	s := buildSchema(t, `
package: shapes
messages:
  - name: Polygon
    fields:
      - {name: points, type: Point, sequence: true}
  - name: Point
    fields:
      - {name: x, type: float}
`)
	synth := NewSynthesizer(s, DefaultOptions())
	m := s.Message("Polygon")

	dec := NewGoWriter(0)
	synth.Decode(m, dec)
	wantDecode := `pointsItems := source.ReadContainerArray(parcelLoader)
if pointsItems != nil {
	m.Points = make([]*Point, len(pointsItems))
	for i, v := range pointsItems {
		if v != nil {
			m.Points[i] = v.(*Point)
		}
	}
}
`
	if dec.String() != wantDecode {
		t.Errorf("decode:\n%s\nwant:\n%s", dec.String(), wantDecode)
	}

	enc := NewGoWriter(0)
	synth.Encode(m, enc)
	if want := "parcel.WriteContainerArray(dest, m.Points, flags)\n"; enc.String() != want {
		t.Errorf("encode = %q, want %q", enc.String(), want)
	}
}

func TestLoaderExpr(t *testing.T) {
	s := buildSchema(t, allStrategies)
	opts := DefaultOptions()
	opts.LoaderExpr = "registry"
	synth := NewSynthesizer(s, opts)

	w := NewGoWriter(0)
	synth.Decode(s.Message("Everything"), w)
	out := w.String()
	if !strings.Contains(out, "source.ReadContainer(registry)") || !strings.Contains(out, "source.ReadValue(registry)") {
		t.Errorf("loader expression not passed through:\n%s", out)
	}
	if strings.Contains(out, "parcelLoader") {
		t.Errorf("default loader used:\n%s", out)
	}
}

func TestProgramReplay(t *testing.T) {
	s := buildSchema(t, allStrategies)
	synth := NewSynthesizer(s, DefaultOptions())
	m := s.Message("Everything")

	var p Program
	synth.Decode(m, &p)
	replayed := NewGoWriter(1)
	p.Replay(replayed)

	direct := NewGoWriter(1)
	synth.Decode(m, direct)
	if replayed.String() != direct.String() {
		t.Errorf("replay differs:\n%s\n---\n%s", replayed.String(), direct.String())
	}

	var copied Program
	p.Replay(&copied)
	if !reflect.DeepEqual(copied.Instructions, p.Instructions) {
		t.Error("replay into a program should preserve field tags")
	}
}

func TestPlanCached(t *testing.T) {
	s := buildSchema(t, allStrategies)
	synth := NewSynthesizer(s, DefaultOptions())
	m := s.Message("Everything")

	var wg sync.WaitGroup
	plans := make([]*Plan, 8)
	for i := range plans {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			plans[i] = synth.Plan(m)
		}(i)
	}
	wg.Wait()
	for _, p := range plans[1:] {
		if p != plans[0] {
			t.Fatal("plan recomputed")
		}
	}
	if len(plans[0].Fields) != len(m.Fields) {
		t.Errorf("plan has %d fields, want %d", len(plans[0].Fields), len(m.Fields))
	}
}

func TestSafeFieldName(t *testing.T) {
	s := buildSchema(t, `
package: x
messages:
  - name: M
    fields:
      - {name: parcel_name, type: string}
      - {name: _count, type: int}
      - {name: user_id, type: long}
`)
	plan := NewSynthesizer(s, DefaultOptions()).Plan(s.Message("M"))
	got := []string{plan.Fields[0].GoName, plan.Fields[1].GoName, plan.Fields[2].GoName}
	want := []string{"ParcelNameField", "Count", "UserId"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("names = %v, want %v", got, want)
	}
}

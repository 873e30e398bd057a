package schema

import (
	"strings"
	"testing"
)

func buildTestSchema(t *testing.T, input string) *Schema {
	t.Helper()
	s, diags, err := Build(parseTestDoc(t, input))
	if err != nil {
		t.Fatalf("build error: %v %v", err, diags)
	}
	return s
}

const compatBase = `
package: test
enums:
  - {name: Status, constants: [ACTIVE, INACTIVE]}
messages:
  - name: Base
    fields:
      - {name: id, type: long}
  - name: User
    parent: Base
    fields:
      - {name: name, type: string}
      - {name: age, type: int}
      - {name: status, type: Status}
`

func TestCheckCompatibility_NoChanges(t *testing.T) {
	s := buildTestSchema(t, compatBase)
	report := CheckCompatibility(s, s)
	if !report.IsCompatible() {
		t.Errorf("identical schemas should be compatible, got %v", report.Breaking)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", report.Warnings)
	}
}

func TestCheckCompatibility(t *testing.T) {
	tests := []struct {
		name     string
		replace  [2]string
		breaking []BreakingChangeType
		warning  string
	}{
		{
			name:     "field_type_changed",
			replace:  [2]string{"{name: age, type: int}", "{name: age, type: string}"},
			breaking: []BreakingChangeType{FieldTypeChanged},
		},
		{
			name:    "field_widened",
			replace: [2]string{"{name: age, type: int}", "{name: age, type: long}"},
			warning: "widened",
		},
		{
			name:     "field_became_sequence",
			replace:  [2]string{"{name: age, type: int}", "{name: age, type: int, sequence: true}"},
			breaking: []BreakingChangeType{FieldTypeChanged},
		},
		{
			name:    "field_renamed",
			replace: [2]string{"{name: age, type: int}", "{name: years, type: int}"},
			warning: "renamed",
		},
		{
			name: "field_reordered",
			replace: [2]string{
				"- {name: name, type: string}\n      - {name: age, type: int}",
				"- {name: age, type: int}\n      - {name: name, type: string}",
			},
			breaking: []BreakingChangeType{FieldMoved, FieldMoved},
		},
		{
			name:     "field_removed",
			replace:  [2]string{"      - {name: age, type: int}\n", ""},
			breaking: []BreakingChangeType{FieldRemoved, FieldMoved},
		},
		{
			name:     "field_added",
			replace:  [2]string{"      - {name: status, type: Status}\n", "      - {name: status, type: Status}\n      - {name: email, type: string}\n"},
			breaking: []BreakingChangeType{FieldAdded},
		},
		{
			name:     "parent_removed",
			replace:  [2]string{"    parent: Base\n", ""},
			breaking: []BreakingChangeType{ParentChanged},
		},
		{
			name:    "enum_appended",
			replace: [2]string{"[ACTIVE, INACTIVE]", "[ACTIVE, INACTIVE, BANNED]"},
			warning: "gained 1 constants",
		},
		{
			name:     "enum_inserted",
			replace:  [2]string{"[ACTIVE, INACTIVE]", "[ACTIVE, PENDING, INACTIVE]"},
			breaking: []BreakingChangeType{EnumConstantMoved},
		},
		{
			name:     "enum_reordered",
			replace:  [2]string{"[ACTIVE, INACTIVE]", "[INACTIVE, ACTIVE]"},
			breaking: []BreakingChangeType{EnumConstantMoved, EnumConstantMoved},
		},
		{
			name:     "enum_constant_removed",
			replace:  [2]string{"[ACTIVE, INACTIVE]", "[ACTIVE]"},
			breaking: []BreakingChangeType{EnumConstantRemoved},
		},
	}

	old := buildTestSchema(t, compatBase)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(compatBase, tt.replace[0]) {
				t.Fatalf("base schema does not contain %q", tt.replace[0])
			}
			updated := buildTestSchema(t, strings.Replace(compatBase, tt.replace[0], tt.replace[1], 1))
			report := CheckCompatibility(old, updated)

			if len(report.Breaking) != len(tt.breaking) {
				t.Fatalf("got %d breaking changes, want %d: %v", len(report.Breaking), len(tt.breaking), report.Breaking)
			}
			got := make(map[BreakingChangeType]int)
			for _, b := range report.Breaking {
				got[b.Type]++
			}
			for _, want := range tt.breaking {
				if got[want] == 0 {
					t.Errorf("missing %s in %v", want, report.Breaking)
				}
				got[want]--
			}

			if tt.warning != "" {
				found := false
				for _, w := range report.Warnings {
					if strings.Contains(w, tt.warning) {
						found = true
					}
				}
				if !found {
					t.Errorf("no warning containing %q in %v", tt.warning, report.Warnings)
				}
			}
		})
	}
}

func TestCheckCompatibility_Removed(t *testing.T) {
	old := buildTestSchema(t, compatBase)
	updated := buildTestSchema(t, `
package: test
messages:
  - name: Base
    fields:
      - {name: id, type: long}
`)
	report := CheckCompatibility(old, updated)
	var types []string
	for _, b := range report.Breaking {
		types = append(types, b.Type.String())
	}
	want := "message removed,enum removed"
	if strings.Join(types, ",") != want && strings.Join(types, ",") != "enum removed,message removed" {
		t.Errorf("breaking = %v, want %s", types, want)
	}
}

func TestBreakingChangeError(t *testing.T) {
	b := BreakingChange{Type: FieldMoved, Message: "field \"x\" moved", Location: "P.x"}
	if got, want := b.Error(), `field moved: field "x" moved at P.x`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

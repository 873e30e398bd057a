package puller

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/parcelgen/pkg/schema"
)

const shapes = `
package: shapes
enums:
  - {name: Status, constants: [ACTIVE, INACTIVE]}
constrained:
  - {name: Percent, base: int}
opaque:
  - {name: Payload}
classes:
  - {name: Toggle, go_type: geo.Toggle, import: example.com/geo, kind: bool}
  - {name: Region, go_type: geo.Region, import: example.com/geo, kind: container}
messages:
  - name: Shape
    fields:
      - {name: id, type: long}
      - {name: created, type: date}
  - name: Polygon
    parent: Shape
    fields:
      - {name: points, type: Point, sequence: true}
      - {name: status, type: Status}
      - {name: flags, type: bool, sequence: true}
      - {name: fill, type: Percent}
      - {name: payload, type: Payload}
      - {name: visible, type: Toggle}
      - {name: region, type: Region}
      - {name: raw, type: bytes}
  - name: Point
    fields:
      - {name: x, type: float}
      - {name: y, type: float}
`

func newChecker(t *testing.T) (*Checker, *schema.Schema) {
	t.Helper()
	doc, err := schema.ParseDocument("shapes.yaml", []byte(shapes))
	require.NoError(t, err)
	s, diags, err := schema.Build(doc)
	require.NoError(t, err, "%v", diags)
	return NewChecker(s, nil), s
}

func TestCheckValid(t *testing.T) {
	c, s := newChecker(t)
	err := c.Check(s.Message("Polygon"), []byte(`{
		// inherited fields come first on the wire but may appear anywhere here
		"points": [{"x": 1.5, "y": -2.25}, null, {}],
		"id": 7,
		"created": "2024-01-02T03:04:05Z",
		"status": "INACTIVE",
		"flags": [true, false, true],
		"fill": 40,
		"payload": {"anything": [1, "two"]},
		"visible": false,
		"region": {"opaque": true},
		"raw": "AQID",
	}`))
	require.NoError(t, err)
}

func TestCheckNullsAndTicks(t *testing.T) {
	c, s := newChecker(t)
	require.NoError(t, c.Check(s.Message("Polygon"), []byte(`{"points": null, "created": null, "raw": null}`)))
	require.NoError(t, c.Check(s.Message("Shape"), []byte(`{"created": 1700000000000}`)))
	require.NoError(t, c.Check(s.Message("Polygon"), []byte(`{}`)))
}

func TestCheckErrors(t *testing.T) {
	c, s := newChecker(t)
	tests := []struct {
		name  string
		input string
		path  string
		want  error
	}{
		{"unknown field", `{"colour": 1}`, "Polygon.colour", ErrUnknownField},
		{"duplicate field", `{"id": 1, "id": 2}`, "Polygon.id", ErrDuplicateField},
		{"unknown constant", `{"status": "DELETED"}`, "Polygon.status", ErrUnknownConstant},
		{"narrowing", `{"points": [{"x": 0.1}]}`, "Polygon.points[0].x", ErrOutOfRange},
		{"constrained base", `{"fill": "full"}`, "Polygon.fill", ErrTypeMismatch},
		{"bool class", `{"visible": 1}`, "Polygon.visible", ErrTypeMismatch},
		{"sequence", `{"flags": true}`, "Polygon.flags", ErrTypeMismatch},
		{"date", `{"created": "yesterday"}`, "Polygon.created", ErrTypeMismatch},
		{"not an object", `[]`, "Polygon", ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Check(s.Message("Polygon"), []byte(tt.input))
			require.ErrorIs(t, err, tt.want)
			var ce *CheckError
			require.True(t, errors.As(err, &ce))
			require.Equal(t, tt.path, ce.Path)
		})
	}
}

func TestCheckTrailingData(t *testing.T) {
	c, s := newChecker(t)
	require.Error(t, c.Check(s.Message("Point"), []byte(`{} {}`)))
}

func TestCheckClassOverride(t *testing.T) {
	_, s := newChecker(t)
	c := NewChecker(s, map[string]schema.Class{
		"Region": {Name: "Region", Kind: schema.ClassBool},
	})
	err := c.Check(s.Message("Polygon"), []byte(`{"region": {}}`))
	require.ErrorIs(t, err, ErrTypeMismatch)
}

// Package testdata contains Go types for physical class resolution.
package testdata

import "github.com/blockberries/parcelgen/pkg/parcel"

// Direction is an enum: it has a DirectionValues function.
type Direction int32

const (
	North Direction = iota
	East
	South
	West
)

// DirectionValues returns the directions in ordinal order.
func DirectionValues() []Direction {
	return []Direction{North, East, South, West}
}

// Priority is a named integer without a Values function.
type Priority uint8

// Toggle has an underlying bool.
type Toggle bool

// Region implements parcel.Container through its pointer.
type Region struct {
	Name string
}

func (*Region) ParcelName() string { return "testdata.Region" }

func (r *Region) ReadFromParcel(source *parcel.Parcel) error {
	r.Name = source.ReadString()
	return source.Err()
}

func (r *Region) WriteToParcel(dest *parcel.Parcel, flags int) {
	dest.WriteString(r.Name)
}

// Color is a plain struct.
type Color struct {
	R, G, B uint8
}

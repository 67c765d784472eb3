// Package geom defines the polygonal value handed between the dicing stages.
package geom

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var ErrNotPolygonal = errors.New("geometry is not a polygon or multipolygon")

// Geometry is a polygon or multipolygon. Multi records the wire type so a
// decoded Polygon re-encodes as a Polygon.
type Geometry struct {
	Polygons orb.MultiPolygon
	Multi    bool
}

func FromPolygon(p orb.Polygon) Geometry {
	if len(p) == 0 {
		return Geometry{}
	}
	return Geometry{Polygons: orb.MultiPolygon{p}}
}

func FromMultiPolygon(mp orb.MultiPolygon) Geometry {
	return Geometry{Polygons: mp, Multi: true}
}

// FromParts wraps parts as a Polygon when there is exactly one, otherwise as
// a MultiPolygon.
func FromParts(parts []orb.Polygon) Geometry {
	switch len(parts) {
	case 0:
		return Geometry{}
	case 1:
		return FromPolygon(parts[0])
	default:
		return FromMultiPolygon(orb.MultiPolygon(parts))
	}
}

func FromOrb(g orb.Geometry) (Geometry, error) {
	switch v := g.(type) {
	case orb.Polygon:
		return FromPolygon(v), nil
	case orb.MultiPolygon:
		return FromMultiPolygon(v), nil
	case nil:
		return Geometry{}, ErrNotPolygonal
	default:
		return Geometry{}, fmt.Errorf("%w: got %s", ErrNotPolygonal, g.GeoJSONType())
	}
}

// Orb returns the orb geometry matching the wire type.
func (g Geometry) Orb() orb.Geometry {
	if !g.Multi {
		switch len(g.Polygons) {
		case 0:
			return orb.Polygon{}
		case 1:
			return g.Polygons[0]
		}
	}
	if g.Polygons == nil {
		return orb.MultiPolygon{}
	}
	return g.Polygons
}

func (g Geometry) IsEmpty() bool {
	for _, p := range g.Polygons {
		if len(p) > 0 && len(p[0]) > 0 {
			return false
		}
	}
	return true
}

func (g Geometry) Bound() orb.Bound {
	return g.Polygons.Bound()
}

// Area is the planar area in square degrees, holes subtracted.
func (g Geometry) Area() float64 {
	var a float64
	for _, p := range g.Polygons {
		a += planar.Area(p)
	}
	return a
}

func (g Geometry) NumRings() int {
	n := 0
	for _, p := range g.Polygons {
		n += len(p)
	}
	return n
}

func (g Geometry) Clone() Geometry {
	return Geometry{Polygons: g.Polygons.Clone(), Multi: g.Multi}
}

func (g Geometry) Equal(o Geometry) bool {
	if g.Multi != o.Multi || len(g.Polygons) != len(o.Polygons) {
		return false
	}
	return g.Polygons.Equal(o.Polygons)
}

func (g Geometry) String() string {
	kind := "Polygon"
	if g.Multi {
		kind = "MultiPolygon"
	}
	return fmt.Sprintf("%s(parts=%d, rings=%d)", kind, len(g.Polygons), g.NumRings())
}

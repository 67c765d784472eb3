// Package repair turns possibly invalid polygons into valid ones before they
// are clipped. The heavy lifting is GEOS make-valid; this package feeds it
// clean rings and hands back oriented orb polygons.
package repair

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/planar"
	"github.com/twpayne/go-geos"

	"github.com/mohammed-shakir/grid-dicer/internal/geom"
)

// a GEOS context serializes its calls, so each worker borrows its own
var contexts = sync.Pool{
	New: func() any { return geos.NewContext() },
}

// Repair never fails. Self-intersecting rings are split, overlapping parts
// are merged and holes are subtracted from their shell. Exteriors come back
// counter-clockwise and holes clockwise; parts that collapse to no area
// vanish, and a geometry with nothing left is returned empty.
// Repair(Repair(g)) is Repair(g).
func Repair(g geom.Geometry) geom.Geometry {
	in := prepare(g.Polygons)
	if len(in) == 0 {
		return geom.Geometry{Multi: g.Multi}
	}
	valid, err := makeValid(in)
	if err != nil {
		return geom.Geometry{Multi: g.Multi}
	}

	parts := polygonal(valid, nil)
	if len(parts) == 0 {
		return geom.Geometry{Multi: g.Multi}
	}
	if g.Multi {
		return geom.FromMultiPolygon(orb.MultiPolygon(parts))
	}
	return geom.FromParts(parts)
}

// makeValid runs the structure make-valid (shells unioned, holes
// subtracted, collapsed parts discarded) and returns the result in normal
// form so equal inputs give equal vertex order.
func makeValid(mp orb.MultiPolygon) (out orb.Geometry, err error) {
	b, err := wkb.Marshal(mp)
	if err != nil {
		return nil, err
	}

	ctx := contexts.Get().(*geos.Context)
	defer contexts.Put(ctx)
	defer func() {
		// go-geos panics on GEOS exceptions
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("repair: geos: %v", r)
		}
	}()

	src, err := ctx.NewGeomFromWKB(b)
	if err != nil {
		return nil, fmt.Errorf("repair: read wkb: %w", err)
	}
	defer src.Destroy()
	valid := src.MakeValidWithParams(geos.MakeValidStructure, geos.MakeValidDiscardCollapsed)
	defer valid.Destroy()
	merged := valid.UnaryUnion()
	defer merged.Destroy()
	merged = merged.Normalize()

	return wkb.Unmarshal(merged.ToWKB())
}

// polygonal collects the polygon parts of g, oriented, skipping lines and
// points a collection may carry.
func polygonal(g orb.Geometry, out []orb.Polygon) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		if p := orientPolygon(v); p != nil {
			out = append(out, p)
		}
	case orb.MultiPolygon:
		for _, p := range v {
			out = polygonal(p, out)
		}
	case orb.Collection:
		for _, c := range v {
			out = polygonal(c, out)
		}
	}
	return out
}

func orientPolygon(p orb.Polygon) orb.Polygon {
	if len(p) == 0 || len(p[0]) < 4 || planar.Area(p) == 0 {
		return nil
	}
	out := make(orb.Polygon, 0, len(p))
	out = append(out, orient(p[0], true))
	for _, h := range p[1:] {
		if len(h) >= 4 {
			out = append(out, orient(h, false))
		}
	}
	return out
}

// prepare drops non-finite points, repeated points and rings with fewer
// than three distinct points, which GEOS would reject outright. A polygon
// whose exterior goes is dropped with its holes.
func prepare(mp orb.MultiPolygon) orb.MultiPolygon {
	var out orb.MultiPolygon
	for _, p := range mp {
		if len(p) == 0 {
			continue
		}
		shell := clean(p[0])
		if shell == nil {
			continue
		}
		poly := orb.Polygon{shell}
		for _, h := range p[1:] {
			if r := clean(h); r != nil {
				poly = append(poly, r)
			}
		}
		out = append(out, poly)
	}
	return out
}

// clean returns r closed and without non-finite or consecutive duplicate
// points, or nil when fewer than three distinct points remain.
func clean(r orb.Ring) orb.Ring {
	out := make(orb.Ring, 0, len(r)+1)
	for _, pt := range r {
		if !finite(pt) {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == pt {
			continue
		}
		out = append(out, pt)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	distinct := make(map[orb.Point]struct{}, len(out))
	for _, pt := range out {
		distinct[pt] = struct{}{}
		if len(distinct) >= 3 {
			return append(out, out[0])
		}
	}
	return nil
}

func finite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}

func orient(r orb.Ring, ccw bool) orb.Ring {
	out := slices.Clone(r)
	if (signedArea(out) > 0) != ccw {
		slices.Reverse(out)
	}
	return out
}

// signedArea is positive for counter-clockwise rings.
func signedArea(r orb.Ring) float64 {
	if len(r) < 3 {
		return 0
	}
	// shift towards the origin to limit cancellation
	ox, oy := r[0][0], r[0][1]
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		x1, y1 := r[i][0]-ox, r[i][1]-oy
		x2, y2 := r[i+1][0]-ox, r[i+1][1]-oy
		sum += x1*y2 - x2*y1
	}
	return sum / 2
}

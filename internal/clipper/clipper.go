// Package clipper intersects polygonal geometries with grid tiles.
package clipper

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"

	"github.com/mohammed-shakir/grid-dicer/internal/geom"
	"github.com/mohammed-shakir/grid-dicer/internal/grid"
	"github.com/mohammed-shakir/grid-dicer/internal/repair"
)

type Options struct {
	// MinArea drops parts whose area is at or below it. Parts with exactly
	// zero area are always dropped.
	MinArea float64
}

type Clipper struct {
	minArea float64
}

// Piece is the part of a geometry inside one tile.
type Piece struct {
	Tile     grid.Tile
	Geometry geom.Geometry
}

func New(opts Options) *Clipper {
	m := opts.MinArea
	if m < 0 || math.IsNaN(m) {
		m = 0
	}
	return &Clipper{minArea: m}
}

var defaultClipper = New(Options{})

// Clip uses a clipper with no minimum area.
func Clip(g geom.Geometry, t grid.Tile) (geom.Geometry, bool) {
	return defaultClipper.Clip(g, t)
}

func ClipAgainstGrid(g geom.Geometry, idx *grid.Index) []Piece {
	return defaultClipper.ClipAgainstGrid(g, idx)
}

// Clip returns the intersection of g with the tile rectangle. It reports false
// when the intersection is empty or has no area, so geometry that only
// touches the tile along an edge yields nothing. That zero-area rule is what
// settles shared tile edges: candidate tiles from Overlapping include edge
// neighbours, and only tiles the geometry has area in keep a piece.
//
// g is expected to be valid (see repair.Repair).
func (c *Clipper) Clip(g geom.Geometry, t grid.Tile) (geom.Geometry, bool) {
	var parts []orb.Polygon
	for _, p := range g.Polygons {
		if len(p) == 0 || len(p[0]) == 0 {
			continue
		}
		pb := p.Bound()
		if !pb.Intersects(t.Bound) {
			continue
		}
		if contains(t.Bound, pb) {
			if out := c.clean(p.Clone()); out != nil {
				parts = append(parts, out)
			}
			continue
		}
		// clip.Polygon works in place and joins pieces of a concave part
		// with zero-width edges along the tile border; repair splits them
		cut := clip.Polygon(t.Bound, p.Clone())
		if len(cut) == 0 {
			continue
		}
		for _, q := range repair.Repair(geom.FromPolygon(cut)).Polygons {
			if out := c.clean(q); out != nil {
				parts = append(parts, out)
			}
		}
	}
	if len(parts) == 0 {
		return geom.Geometry{}, false
	}
	return geom.FromParts(parts), true
}

// ClipAgainstGrid dices g into one piece per tile it covers with positive
// area. Pieces come back in tile id order.
func (c *Clipper) ClipAgainstGrid(g geom.Geometry, idx *grid.Index) []Piece {
	if g.IsEmpty() {
		return nil
	}
	b := g.Bound()
	// most records sit inside one tile; skip the edge neighbours
	if t, ok := idx.TileAt(b.Center()); ok && contains(t.Bound, b) {
		if frag, ok := c.Clip(g, t); ok {
			return []Piece{{Tile: t, Geometry: frag}}
		}
		return nil
	}
	tiles := idx.Overlapping(b)
	if len(tiles) == 0 {
		return nil
	}
	out := make([]Piece, 0, len(tiles))
	for _, t := range tiles {
		if frag, ok := c.Clip(g, t); ok {
			out = append(out, Piece{Tile: t, Geometry: frag})
		}
	}
	return out
}

// clean drops degenerate rings left by clipping; a polygon without a usable
// exterior is dropped entirely.
func (c *Clipper) clean(p orb.Polygon) orb.Polygon {
	if len(p) == 0 {
		return nil
	}
	out := make(orb.Polygon, 0, len(p))
	for i, r := range p {
		r = tidyRing(r)
		if len(r) < 4 || planar.Area(r) == 0 {
			if i == 0 {
				return nil
			}
			continue
		}
		out = append(out, r)
	}
	a := planar.Area(out)
	if a == 0 || a <= c.minArea {
		return nil
	}
	return out
}

// tidyRing removes repeated consecutive points and closes the ring.
func tidyRing(r orb.Ring) orb.Ring {
	if len(r) == 0 {
		return nil
	}
	out := make(orb.Ring, 0, len(r)+1)
	for _, pt := range r {
		if len(out) > 0 && out[len(out)-1] == pt {
			continue
		}
		out = append(out, pt)
	}
	if len(out) > 1 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}

func contains(outer, inner orb.Bound) bool {
	return inner.Min[0] >= outer.Min[0] && inner.Max[0] <= outer.Max[0] &&
		inner.Min[1] >= outer.Min[1] && inner.Max[1] <= outer.Max[1]
}

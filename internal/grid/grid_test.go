package grid

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

func TestBuild_RejectsBadCellSizes(t *testing.T) {
	for _, c := range []float64{0, -1, 0.7, 7, 360, math.NaN(), math.Inf(1)} {
		if _, err := Build(c); !errors.Is(err, ErrInvalidCellSize) {
			t.Fatalf("cell=%v: want ErrInvalidCellSize, got %v", c, err)
		}
	}
}

func TestBuild_Dimensions(t *testing.T) {
	cases := map[float64][2]int{
		1:    {180, 360},
		0.5:  {360, 720},
		0.1:  {1800, 3600},
		10:   {18, 36},
		180:  {1, 2},
		0.25: {720, 1440},
	}
	for cell, want := range cases {
		g, err := Build(cell)
		if err != nil {
			t.Fatalf("cell=%v: %v", cell, err)
		}
		if g.Rows() != want[0] || g.Cols() != want[1] {
			t.Fatalf("cell=%v: rows=%d cols=%d want %v", cell, g.Rows(), g.Cols(), want)
		}
		if g.Len() != want[0]*want[1] {
			t.Fatalf("cell=%v: len=%d", cell, g.Len())
		}
	}
}

func TestTileNumbering_RowMajorFromNorthWest(t *testing.T) {
	g, err := Build(1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	first, ok := g.Tile(0)
	if !ok {
		t.Fatalf("tile 0 missing")
	}
	want := orb.Bound{Min: orb.Point{-180, 89}, Max: orb.Point{-179, 90}}
	if !first.Bound.Equal(want) {
		t.Fatalf("tile 0 bound=%v want %v", first.Bound, want)
	}
	second, _ := g.Tile(1)
	if second.Row != 0 || second.Col != 1 || second.Bound.Min.X() != -179 {
		t.Fatalf("tile 1 = %+v", second)
	}
	nextRow, _ := g.Tile(360)
	if nextRow.Row != 1 || nextRow.Col != 0 || nextRow.Bound.Max.Y() != 89 {
		t.Fatalf("tile 360 = %+v", nextRow)
	}
	last, _ := g.Tile(g.Len() - 1)
	if last.Bound.Max.X() != 180 || last.Bound.Min.Y() != -90 {
		t.Fatalf("last tile = %+v", last)
	}
	if _, ok := g.Tile(g.Len()); ok {
		t.Fatalf("expected out-of-range id to fail")
	}
	if _, ok := g.Tile(-1); ok {
		t.Fatalf("expected negative id to fail")
	}
}

func TestGrid_CoversGlobeWithoutOverlap(t *testing.T) {
	for _, cell := range []float64{1, 2.5, 15, 0.5} {
		g, err := Build(cell)
		if err != nil {
			t.Fatalf("Build(%v): %v", cell, err)
		}
		var area float64
		n := 0
		for tile := range g.Tiles() {
			area += planar.Area(tile.Polygon())
			if tile.ID != n {
				t.Fatalf("cell=%v: tiles out of order at %d", cell, n)
			}
			if tile.Col > 0 {
				west, _ := g.Tile(tile.ID - 1)
				if west.Bound.Max.X() != tile.Bound.Min.X() {
					t.Fatalf("cell=%v: gap/overlap between %d and %d", cell, west.ID, tile.ID)
				}
			}
			if tile.Row > 0 {
				north, _ := g.Tile(tile.ID - g.Cols())
				if north.Bound.Min.Y() != tile.Bound.Max.Y() {
					t.Fatalf("cell=%v: gap/overlap between %d and %d", cell, north.ID, tile.ID)
				}
			}
			n++
		}
		if n != g.Len() {
			t.Fatalf("cell=%v: iterated %d tiles, want %d", cell, n, g.Len())
		}
		if math.Abs(area-LonDeg*LatDeg) > 1e-6 {
			t.Fatalf("cell=%v: tile area sum %v want %v", cell, area, LonDeg*LatDeg)
		}
	}
}

func TestOverlapping_IncludesEdgeTouchingTiles(t *testing.T) {
	g, _ := Build(1)

	// interior bbox inside one tile
	in := g.Overlapping(orb.Bound{Min: orb.Point{10.2, 20.2}, Max: orb.Point{10.8, 20.8}})
	if len(in) != 1 {
		t.Fatalf("interior bbox: got %d tiles", len(in))
	}
	if !in[0].Bound.Contains(orb.Point{10.5, 20.5}) {
		t.Fatalf("wrong tile %+v", in[0])
	}

	// bbox exactly equal to one tile touches its 8 neighbours
	exact := g.Overlapping(orb.Bound{Min: orb.Point{10, 20}, Max: orb.Point{11, 21}})
	if len(exact) != 9 {
		t.Fatalf("exact tile bbox: got %d tiles, want 9", len(exact))
	}
	for i := 1; i < len(exact); i++ {
		if exact[i-1].ID >= exact[i].ID {
			t.Fatalf("tiles must be in id order")
		}
	}

	whole := g.Overlapping(orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}})
	if len(whole) != g.Len() {
		t.Fatalf("whole globe: got %d want %d", len(whole), g.Len())
	}
}

func TestOverlapping_OutsideGlobe(t *testing.T) {
	g, _ := Build(1)
	cases := []orb.Bound{
		{Min: orb.Point{10, 91}, Max: orb.Point{11, 92}},
		{Min: orb.Point{181, 0}, Max: orb.Point{182, 1}},
		{Min: orb.Point{-200, -95}, Max: orb.Point{-190, -91}},
		{Min: orb.Point{1, 1}, Max: orb.Point{-1, -1}},
	}
	for _, b := range cases {
		if got := g.Overlapping(b); len(got) != 0 {
			t.Fatalf("bound %v: expected no tiles, got %d", b, len(got))
		}
	}
}

func TestTileAt_HalfOpenOwnership(t *testing.T) {
	g, _ := Build(1)

	cases := []struct {
		p        orb.Point
		row, col int
	}{
		{orb.Point{0.5, 0.5}, 89, 180},
		{orb.Point{0, 0.5}, 89, 180},    // west edge is owned
		{orb.Point{1, 0.5}, 89, 181},    // east edge belongs to the neighbour
		{orb.Point{0.5, 1}, 89, 180},    // north edge is owned
		{orb.Point{0.5, 0}, 90, 180},    // south edge belongs to the tile below
		{orb.Point{-180, 90}, 0, 0},     // north-west corner of the globe
		{orb.Point{180, -90}, 179, 359}, // south-east corner of the globe
		{orb.Point{180, 0.5}, 89, 359},
	}
	for _, c := range cases {
		tile, ok := g.TileAt(c.p)
		if !ok {
			t.Fatalf("%v: no tile", c.p)
		}
		if tile.Row != c.row || tile.Col != c.col {
			t.Fatalf("%v: got row=%d col=%d want row=%d col=%d", c.p, tile.Row, tile.Col, c.row, c.col)
		}
	}

	for _, p := range []orb.Point{{0, 90.5}, {180.1, 0}, {math.NaN(), 0}} {
		if _, ok := g.TileAt(p); ok {
			t.Fatalf("%v: expected no tile", p)
		}
	}
}

func TestTileAt_EveryPointMapsToExactlyOneClosedTile(t *testing.T) {
	g, _ := Build(0.5)
	for lon := -180.0; lon <= 180; lon += 0.25 {
		for lat := -90.0; lat <= 90; lat += 0.25 {
			p := orb.Point{lon, lat}
			tile, ok := g.TileAt(p)
			if !ok {
				t.Fatalf("%v: no tile", p)
			}
			if !tile.Bound.Contains(p) {
				t.Fatalf("%v: owning tile %+v does not contain it", p, tile)
			}
		}
	}
}

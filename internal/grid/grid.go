// Package grid builds the global fishnet of fixed-size lat/lon tiles that
// polygons are diced against.
package grid

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/paulmach/orb"
)

const (
	LonDeg = 360.0
	LatDeg = 180.0

	originLon = -180.0
	originLat = 90.0

	// tolerance on 360/cell and 180/cell being whole numbers
	divisorTolerance = 1e-9
)

var ErrInvalidCellSize = errors.New("invalid cell size")

// Tile is one cell of the grid. Row 0 is the northernmost row, column 0 the
// westernmost column.
type Tile struct {
	ID    int
	Row   int
	Col   int
	Bound orb.Bound
}

func (t Tile) Polygon() orb.Polygon {
	return t.Bound.ToPolygon()
}

// Index is immutable once built and safe for concurrent readers.
type Index struct {
	cell float64
	rows int
	cols int
}

// Build creates the grid for cellSize degrees. The size must divide both 360
// and 180 exactly; remainder tiles are not produced.
func Build(cellSize float64) (*Index, error) {
	if math.IsNaN(cellSize) || math.IsInf(cellSize, 0) || cellSize <= 0 {
		return nil, fmt.Errorf("%w: %v must be a positive number of degrees", ErrInvalidCellSize, cellSize)
	}
	cols, ok := wholeDivisions(LonDeg, cellSize)
	if !ok {
		return nil, fmt.Errorf("%w: %v does not divide %v", ErrInvalidCellSize, cellSize, LonDeg)
	}
	rows, ok := wholeDivisions(LatDeg, cellSize)
	if !ok {
		return nil, fmt.Errorf("%w: %v does not divide %v", ErrInvalidCellSize, cellSize, LatDeg)
	}
	return &Index{cell: cellSize, rows: rows, cols: cols}, nil
}

func wholeDivisions(span, size float64) (int, bool) {
	q := span / size
	n := math.Round(q)
	if n < 1 || math.Abs(q-n) > divisorTolerance*math.Max(1, n) {
		return 0, false
	}
	if n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

func (x *Index) CellSize() float64 { return x.cell }
func (x *Index) Rows() int          { return x.rows }
func (x *Index) Cols() int          { return x.cols }
func (x *Index) Len() int           { return x.rows * x.cols }

// Tile returns the tile with the given id.
func (x *Index) Tile(id int) (Tile, bool) {
	if id < 0 || id >= x.Len() {
		return Tile{}, false
	}
	return x.at(id/x.cols, id%x.cols), true
}

func (x *Index) at(row, col int) Tile {
	// edges are computed from the integer position so neighbours share them exactly
	west := originLon + float64(col)*x.cell
	east := originLon + float64(col+1)*x.cell
	north := originLat - float64(row)*x.cell
	south := originLat - float64(row+1)*x.cell
	if col == x.cols-1 {
		east = originLon + LonDeg
	}
	if row == x.rows-1 {
		south = originLat - LatDeg
	}
	return Tile{
		ID:  row*x.cols + col,
		Row: row,
		Col: col,
		Bound: orb.Bound{
			Min: orb.Point{west, south},
			Max: orb.Point{east, north},
		},
	}
}

// Overlapping returns every tile whose closed rectangle intersects b,
// including tiles that only touch b along an edge or a corner. Tiles are
// returned in id order.
func (x *Index) Overlapping(b orb.Bound) []Tile {
	minCol, maxCol, ok := x.colRange(b.Min.X(), b.Max.X())
	if !ok {
		return nil
	}
	minRow, maxRow, ok := x.rowRange(b.Min.Y(), b.Max.Y())
	if !ok {
		return nil
	}
	out := make([]Tile, 0, (maxRow-minRow+1)*(maxCol-minCol+1))
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			t := x.at(r, c)
			if t.Bound.Intersects(b) {
				out = append(out, t)
			}
		}
	}
	return out
}

func (x *Index) colRange(minX, maxX float64) (int, int, bool) {
	if math.IsNaN(minX) || math.IsNaN(maxX) || minX > maxX {
		return 0, 0, false
	}
	if maxX < originLon || minX > originLon+LonDeg {
		return 0, 0, false
	}
	// widen by one column each side, the Intersects check trims the excess
	lo := int(math.Floor((minX-originLon)/x.cell)) - 1
	hi := int(math.Floor((maxX-originLon)/x.cell)) + 1
	return max(lo, 0), min(hi, x.cols-1), true
}

func (x *Index) rowRange(minY, maxY float64) (int, int, bool) {
	if math.IsNaN(minY) || math.IsNaN(maxY) || minY > maxY {
		return 0, 0, false
	}
	if minY > originLat || maxY < originLat-LatDeg {
		return 0, 0, false
	}
	lo := int(math.Floor((originLat-maxY)/x.cell)) - 1
	hi := int(math.Floor((originLat-minY)/x.cell)) + 1
	return max(lo, 0), min(hi, x.rows-1), true
}

// TileAt returns the tile owning p. Tiles own their west and north edges and
// leave the east and south edges to their neighbours; the easternmost column
// and southernmost row also own the antimeridian and the south pole.
func (x *Index) TileAt(p orb.Point) (Tile, bool) {
	lon, lat := p.X(), p.Y()
	if math.IsNaN(lon) || math.IsNaN(lat) ||
		lon < originLon || lon > originLon+LonDeg ||
		lat > originLat || lat < originLat-LatDeg {
		return Tile{}, false
	}
	col := int(math.Floor((lon - originLon) / x.cell))
	row := int(math.Floor((originLat - lat) / x.cell))
	col = min(max(col, 0), x.cols-1)
	row = min(max(row, 0), x.rows-1)

	// float division can land one cell off near an edge; settle on the
	// neighbour whose half-open rectangle really holds the point
	t := x.at(row, col)
	if lon < t.Bound.Min.X() && col > 0 {
		col--
	} else if lon >= t.Bound.Max.X() && col < x.cols-1 {
		col++
	}
	if lat > t.Bound.Max.Y() && row > 0 {
		row--
	} else if lat <= t.Bound.Min.Y() && row < x.rows-1 {
		row++
	}
	return x.at(row, col), true
}

// Tiles yields every tile of the globe in id order.
func (x *Index) Tiles() iter.Seq[Tile] {
	return func(yield func(Tile) bool) {
		for r := 0; r < x.rows; r++ {
			for c := 0; c < x.cols; c++ {
				if !yield(x.at(r, c)) {
					return
				}
			}
		}
	}
}

func (x *Index) String() string {
	return fmt.Sprintf("grid(cell=%g, rows=%d, cols=%d)", x.cell, x.rows, x.cols)
}

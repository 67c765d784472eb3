// Package model defines core domain types shared across the pipeline.
package model

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mohammed-shakir/grid-dicer/internal/geom"
)

// RawRecord is one row handed over by a record source: an undecoded payload
// plus the ids that travel with it.
type RawRecord struct {
	ListID     int64
	LocationID int64
	Data       []byte
	Hex        bool
}

type SourceRecord struct {
	ListID     int64
	LocationID int64
	Geometry   geom.Geometry
}

// Fragment is the part of one source geometry that falls inside one tile.
// WKB holds the encoded geometry; Hex tells whether it is hex text.
type Fragment struct {
	ListID     int64
	LocationID int64
	TileID     int
	Geometry   geom.Geometry
	WKB        []byte
	Hex        bool
}

// HexWKB returns the encoded geometry as uppercase hex.
func (f Fragment) HexWKB() string {
	if f.Hex {
		return string(f.WKB)
	}
	return strings.ToUpper(hex.EncodeToString(f.WKB))
}

func (f Fragment) String() string {
	return fmt.Sprintf("fragment(list=%d, location=%d, tile=%d)", f.ListID, f.LocationID, f.TileID)
}

// Package wkbcodec decodes and encodes polygonal geometries as well-known
// binary, raw or hex. Output is always little-endian; hex output is uppercase.
package wkbcodec

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/mohammed-shakir/grid-dicer/internal/core/model"
	"github.com/mohammed-shakir/grid-dicer/internal/geom"
)

const (
	TypePolygon      uint32 = 3
	TypeMultiPolygon uint32 = 6

	headerLen = 5
	sridLen   = 4

	flagZ    uint32 = 0x80000000
	flagM    uint32 = 0x40000000
	flagSRID uint32 = 0x20000000

	minRingPoints = 4
)

type decodeOptions struct {
	allowSRID bool
	srids     []int
}

type DecodeOption func(*decodeOptions)

// WithSRID accepts EWKB input carrying an SRID. Only the listed SRIDs are
// allowed (4326 when none are given); SRID 0 is always accepted.
func WithSRID(allowed ...int) DecodeOption {
	return func(o *decodeOptions) {
		o.allowSRID = true
		if len(allowed) == 0 {
			allowed = []int{4326}
		}
		o.srids = append(o.srids[:0], allowed...)
	}
}

// DecodeRecord decodes the payload of a raw source record.
func DecodeRecord(r model.RawRecord, opts ...DecodeOption) (geom.Geometry, error) {
	if r.Hex {
		return DecodeHex(string(r.Data), opts...)
	}
	return Decode(r.Data, opts...)
}

// DecodeHex decodes hex WKB. Upper- and lowercase digits are both accepted.
func DecodeHex(s string, opts ...DecodeOption) (geom.Geometry, error) {
	s = strings.TrimSpace(s)
	if len(s) > 1 && (s[:2] == "\\x" || s[:2] == "0x") {
		s = s[2:]
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return geom.Geometry{}, malformed("invalid hex", err)
	}
	return Decode(data, opts...)
}

// Decode decodes raw WKB into a Polygon or MultiPolygon value.
func Decode(data []byte, opts ...DecodeOption) (geom.Geometry, error) {
	var o decodeOptions
	for _, f := range opts {
		f(&o)
	}

	typ, err := readHeader(data)
	if err != nil {
		return geom.Geometry{}, err
	}
	if typ&(flagZ|flagM) != 0 {
		return geom.Geometry{}, unsupported(fmt.Sprintf("type 0x%08x has z/m dimensions", typ))
	}
	hasSRID := typ&flagSRID != 0
	base := typ &^ flagSRID
	if base > 1000 {
		return geom.Geometry{}, unsupported(fmt.Sprintf("type %d has z/m dimensions", base))
	}
	if base != TypePolygon && base != TypeMultiPolygon {
		return geom.Geometry{}, unsupported(fmt.Sprintf("type %d", base))
	}

	var g orb.Geometry
	if hasSRID {
		if !o.allowSRID {
			return geom.Geometry{}, malformed("srid-prefixed input without srid option", nil)
		}
		var srid int
		g, srid, err = ewkb.Unmarshal(data)
		if err != nil {
			return geom.Geometry{}, malformed("ewkb", err)
		}
		if srid != 0 && !slices.Contains(o.srids, srid) {
			return geom.Geometry{}, malformed(fmt.Sprintf("srid %d not accepted", srid), nil)
		}
	} else {
		g, err = wkb.Unmarshal(data)
		if err != nil {
			return geom.Geometry{}, malformed("wkb", err)
		}
	}

	want := encodedLen(g)
	if hasSRID {
		want += sridLen
	}
	if want != len(data) {
		return geom.Geometry{}, malformed(fmt.Sprintf("declared %d bytes, buffer has %d", want, len(data)), nil)
	}

	out, err := geom.FromOrb(g)
	if err != nil {
		// nested members of a multipolygon that are not polygons
		return geom.Geometry{}, unsupported(err.Error())
	}
	if err := checkRings(out); err != nil {
		return geom.Geometry{}, err
	}
	return out, nil
}

// Encode writes g as little-endian WKB, as uppercase hex text when asHex is set.
func Encode(g geom.Geometry, asHex bool) ([]byte, error) {
	if err := checkRings(g); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	raw, err := wkb.Marshal(g.Orb(), binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}
	if !asHex {
		return raw, nil
	}
	out := make([]byte, hex.EncodedLen(len(raw)))
	hex.Encode(out, raw)
	return bytes.ToUpper(out), nil
}

// EncodeHex is Encode with hex output, as a string.
func EncodeHex(g geom.Geometry) (string, error) {
	b, err := Encode(g, true)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readHeader(data []byte) (uint32, error) {
	if len(data) < headerLen {
		return 0, malformed(fmt.Sprintf("header needs %d bytes, have %d", headerLen, len(data)), nil)
	}
	var bo binary.ByteOrder
	switch data[0] {
	case 0:
		bo = binary.BigEndian
	case 1:
		bo = binary.LittleEndian
	default:
		return 0, malformed(fmt.Sprintf("byte order flag %d", data[0]), nil)
	}
	return bo.Uint32(data[1:headerLen]), nil
}

func checkRings(g geom.Geometry) error {
	for pi, p := range g.Polygons {
		for ri, r := range p {
			if len(r) < minRingPoints {
				return malformed(fmt.Sprintf("polygon %d ring %d has %d points", pi, ri, len(r)), nil)
			}
			if r[0] != r[len(r)-1] {
				return malformed(fmt.Sprintf("polygon %d ring %d is not closed", pi, ri), nil)
			}
		}
	}
	return nil
}

// encodedLen is the WKB size of a 2D polygon or multipolygon.
func encodedLen(g orb.Geometry) int {
	switch v := g.(type) {
	case orb.Polygon:
		return polygonLen(v)
	case orb.MultiPolygon:
		n := headerLen + 4
		for _, p := range v {
			n += polygonLen(p)
		}
		return n
	default:
		return -1
	}
}

func polygonLen(p orb.Polygon) int {
	n := headerLen + 4
	for _, r := range p {
		n += 4 + 16*len(r)
	}
	return n
}

package geojsonsink

import (
	"bytes"
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/grid-dicer/internal/core/model"
	"github.com/mohammed-shakir/grid-dicer/internal/geom"
)

func unitSquare(x, y float64) geom.Geometry {
	return geom.FromPolygon(orb.Polygon{{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}})
}

func TestSink_WritesFeatureCollection(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)
	ctx := context.Background()

	for i, f := range []model.Fragment{
		{ListID: 1, LocationID: 10, TileID: 32580, Geometry: unitSquare(0, 0)},
		{ListID: 1, LocationID: 10, TileID: 32581, Geometry: unitSquare(1, 0)},
	} {
		if err := s.Write(ctx, f); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	if err != nil {
		t.Fatalf("output is not a feature collection: %v\n%s", err, buf.String())
	}
	if len(fc.Features) != 2 {
		t.Fatalf("features=%d want 2", len(fc.Features))
	}
	f := fc.Features[1]
	if f.Properties.MustInt("grid") != 32581 || f.Properties.MustInt("location_id") != 10 || f.Properties.MustInt("list_id") != 1 {
		t.Fatalf("properties %v", f.Properties)
	}
	if f.Geometry.GeoJSONType() != "Polygon" {
		t.Fatalf("geometry type %s", f.Geometry.GeoJSONType())
	}
	if !f.Geometry.(orb.Polygon).Equal(unitSquare(1, 0).Polygons[0]) {
		t.Fatalf("geometry %v", f.Geometry)
	}

	if err := s.Write(ctx, model.Fragment{Geometry: unitSquare(2, 0)}); err == nil {
		t.Fatalf("expected write after flush to fail")
	}
}

func TestSink_EmptyCollection(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf).Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	if err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}
	if len(fc.Features) != 0 {
		t.Fatalf("features=%d want 0", len(fc.Features))
	}
}

func TestFeature_MultiPolygonFragment(t *testing.T) {
	g := geom.FromMultiPolygon(orb.MultiPolygon{unitSquare(0, 0).Polygons[0], unitSquare(5, 5).Polygons[0]})
	feat := Feature(model.Fragment{Geometry: g})
	if feat.Geometry.GeoJSONType() != "MultiPolygon" {
		t.Fatalf("type %s", feat.Geometry.GeoJSONType())
	}
}

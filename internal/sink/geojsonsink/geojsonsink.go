// Package geojsonsink streams fragments into a GeoJSON FeatureCollection.
// Each feature carries list_id, location_id and grid (the tile id).
package geojsonsink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/grid-dicer/internal/core/model"
	"github.com/mohammed-shakir/grid-dicer/internal/core/observability"
)

const (
	prefix = `{"type":"FeatureCollection","features":[`
	suffix = "]}\n"
)

type Sink struct {
	buf    *bufio.Writer
	closer io.Closer
	n      int
	open   bool
	done   bool
}

func New(w io.Writer) *Sink {
	return &Sink{buf: bufio.NewWriterSize(w, 1<<20)}
}

func Create(path string) (*Sink, error) {
	f, err := os.Create(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("geojsonsink: create %s: %w", path, err)
	}
	s := New(f)
	s.closer = f
	return s, nil
}

func Feature(f model.Fragment) *geojson.Feature {
	feat := geojson.NewFeature(f.Geometry.Orb())
	feat.Properties = geojson.Properties{
		"list_id":     f.ListID,
		"location_id": f.LocationID,
		"grid":        f.TileID,
	}
	return feat
}

func (s *Sink) Write(_ context.Context, f model.Fragment) error {
	err := s.write(f)
	observability.ObserveSinkOp("geojson", err)
	return err
}

func (s *Sink) write(f model.Fragment) error {
	if s.done {
		return fmt.Errorf("geojsonsink: write after flush")
	}
	b, err := Feature(f).MarshalJSON()
	if err != nil {
		return fmt.Errorf("geojsonsink: marshal location %d tile %d: %w", f.LocationID, f.TileID, err)
	}
	if err := s.begin(); err != nil {
		return err
	}
	if s.n > 0 {
		if err := s.buf.WriteByte(','); err != nil {
			return fmt.Errorf("geojsonsink: %w", err)
		}
	}
	if _, err := s.buf.Write(b); err != nil {
		return fmt.Errorf("geojsonsink: %w", err)
	}
	s.n++
	return nil
}

func (s *Sink) begin() error {
	if s.open {
		return nil
	}
	s.open = true
	if _, err := s.buf.WriteString(prefix); err != nil {
		return fmt.Errorf("geojsonsink: %w", err)
	}
	return nil
}

// Flush closes the collection. Writes after Flush fail.
func (s *Sink) Flush(_ context.Context) error {
	err := s.finish()
	observability.ObserveSinkOp("geojson", err)
	return err
}

func (s *Sink) finish() error {
	if !s.done {
		if err := s.begin(); err != nil {
			return err
		}
		if _, err := s.buf.WriteString(suffix); err != nil {
			return fmt.Errorf("geojsonsink: %w", err)
		}
		s.done = true
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("geojsonsink: flush: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

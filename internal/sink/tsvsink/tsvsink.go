// Package tsvsink writes fragments as tab separated list_id, location_id,
// geom rows with uppercase hex WKB, the layout downstream loaders expect.
package tsvsink

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/grid-dicer/internal/core/model"
	"github.com/mohammed-shakir/grid-dicer/internal/core/observability"
)

var header = []string{"list_id", "location_id", "geom"}

type Sink struct {
	buf    *bufio.Writer
	w      *csv.Writer
	closer io.Closer
	header bool
	row    [3]string
}

func New(w io.Writer) *Sink {
	buf := bufio.NewWriterSize(w, 1<<20)
	cw := csv.NewWriter(buf)
	cw.Comma = '\t'
	return &Sink{buf: buf, w: cw}
}

// Create truncates path and writes to it.
func Create(path string) (*Sink, error) {
	f, err := os.Create(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("tsvsink: create %s: %w", path, err)
	}
	s := New(f)
	s.closer = f
	return s, nil
}

func (s *Sink) writeHeader() error {
	if s.header {
		return nil
	}
	s.header = true
	return s.w.Write(header)
}

func (s *Sink) Write(_ context.Context, f model.Fragment) error {
	err := s.writeRow(f.ListID, f.LocationID, f.HexWKB())
	observability.ObserveSinkOp("tsv", err)
	return err
}

func (s *Sink) writeRow(list, loc int64, geom string) error {
	if err := s.writeHeader(); err != nil {
		return fmt.Errorf("tsvsink: header: %w", err)
	}
	s.row[0] = strconv.FormatInt(list, 10)
	s.row[1] = strconv.FormatInt(loc, 10)
	s.row[2] = geom
	if err := s.w.Write(s.row[:]); err != nil {
		return fmt.Errorf("tsvsink: write location %d: %w", loc, err)
	}
	return nil
}

// Flush writes buffered rows. An empty run still gets its header.
func (s *Sink) Flush(_ context.Context) error {
	if err := s.writeHeader(); err != nil {
		return fmt.Errorf("tsvsink: header: %w", err)
	}
	s.w.Flush()
	err := s.w.Error()
	if err == nil {
		err = s.buf.Flush()
	}
	observability.ObserveSinkOp("tsv", err)
	if err != nil {
		return fmt.Errorf("tsvsink: flush: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// WriteRecords dumps source records undiced in the same layout. Raw payloads
// are hex encoded.
func WriteRecords(w io.Writer, recs []model.RawRecord) error {
	s := New(w)
	for _, r := range recs {
		g := string(r.Data)
		if !r.Hex {
			g = strings.ToUpper(hex.EncodeToString(r.Data))
		}
		if err := s.writeRow(r.ListID, r.LocationID, g); err != nil {
			return err
		}
	}
	return s.Flush(context.Background())
}

// WriteRecordsFile is WriteRecords into a freshly created file.
func WriteRecordsFile(path string, recs []model.RawRecord) (err error) {
	f, err := os.Create(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return fmt.Errorf("tsvsink: create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return WriteRecords(f, recs)
}

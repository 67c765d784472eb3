// Package tsvsource reads dicer input from tab separated text: one
// list_id, location_id, geom row per record with hex WKB in the geom column
// and an optional header row.
package tsvsource

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/grid-dicer/internal/core/model"
)

var ErrBadRow = errors.New("tsvsource: bad row")

type Source struct {
	r      *csv.Reader
	closer io.Closer
	row    int
}

func New(r io.Reader) *Source {
	cr := csv.NewReader(bufio.NewReaderSize(r, 1<<20))
	cr.Comma = '\t'
	cr.FieldsPerRecord = 3
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return &Source{r: cr}
}

func Open(path string) (*Source, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("tsvsource: open %s: %w", path, err)
	}
	s := New(f)
	s.closer = f
	return s, nil
}

// Next returns the next record; the geom column is passed through as hex.
func (s *Source) Next(ctx context.Context) (model.RawRecord, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.RawRecord{}, err
		}
		row, err := s.r.Read()
		if errors.Is(err, io.EOF) {
			return model.RawRecord{}, io.EOF
		}
		s.row++
		if err != nil {
			return model.RawRecord{}, fmt.Errorf("tsvsource: row %d: %w", s.row, err)
		}
		if s.row == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "list_id") {
			continue
		}
		listID, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
		if err != nil {
			return model.RawRecord{}, fmt.Errorf("%w: row %d: list_id %q", ErrBadRow, s.row, row[0])
		}
		locID, err := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
		if err != nil {
			return model.RawRecord{}, fmt.Errorf("%w: row %d: location_id %q", ErrBadRow, s.row, row[1])
		}
		return model.RawRecord{
			ListID:     listID,
			LocationID: locID,
			Data:       []byte(strings.TrimSpace(row[2])),
			Hex:        true,
		}, nil
	}
}

func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Package source holds record sources for the dicer.
package source

import (
	"context"
	"io"
	"sync"

	"github.com/mohammed-shakir/grid-dicer/internal/core/model"
)

// Slice serves records from memory in order.
type Slice struct {
	mu   sync.Mutex
	recs []model.RawRecord
	pos  int
}

func NewSlice(recs ...model.RawRecord) *Slice {
	return &Slice{recs: recs}
}

func (s *Slice) Next(ctx context.Context) (model.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.RawRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.recs) {
		return model.RawRecord{}, io.EOF
	}
	r := s.recs[s.pos]
	s.pos++
	return r, nil
}

func (s *Slice) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

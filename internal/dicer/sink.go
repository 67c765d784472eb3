package dicer

import (
	"context"
	"errors"
	"sync"

	"github.com/mohammed-shakir/grid-dicer/internal/core/model"
)

var ErrSink = errors.New("dicer: sink failure")

// Source yields raw records until it returns io.EOF.
type Source interface {
	Next(ctx context.Context) (model.RawRecord, error)
}

type Sink interface {
	Write(ctx context.Context, f model.Fragment) error
	Flush(ctx context.Context) error
}

// Serialized guards a Sink with a mutex so concurrent workers can share it.
// WriteAll hands one record's fragments over as a unit.
type Serialized struct {
	mu   sync.Mutex
	sink Sink
}

func Serialize(s Sink) *Serialized {
	if ss, ok := s.(*Serialized); ok {
		return ss
	}
	return &Serialized{sink: s}
}

func (s *Serialized) Write(ctx context.Context, f model.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Write(ctx, f)
}

// WriteAll writes frags back to back without letting another record's
// fragments in between. It checks ctx before taking the lock so a record
// cancelled while waiting is not written at all.
func (s *Serialized) WriteAll(ctx context.Context, frags []model.Fragment) error {
	if len(frags) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, f := range frags {
		if err := s.sink.Write(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serialized) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Flush(ctx)
}

// Package redissink stores fragments in Redis under frag:<list>:<loc>:<tile>
// with a per-location set of tile ids under loc:<list>:<loc>.
package redissink

import (
	"context"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/grid-dicer/internal/core/model"
	"github.com/mohammed-shakir/grid-dicer/internal/sink/keys"
)

type Options struct {
	TTL time.Duration
	// BatchSize is the number of fragments buffered before a pipeline is sent.
	BatchSize int
	// DedupeSize bounds the digests remembered for skipping unchanged
	// fragments on re-runs.
	DedupeSize int
}

// Sink is not safe for concurrent use; the dicer serializes writes.
type Sink struct {
	cli       *Client
	ttl       time.Duration
	batchSize int
	pending   Batch
	digests   map[string]uint64
	written   *lru.Cache[string, uint64]
	unchanged int
}

func New(cli *Client, opts Options) *Sink {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 256
	}
	if opts.DedupeSize <= 0 {
		opts.DedupeSize = 1 << 16
	}
	c, _ := lru.New[string, uint64](opts.DedupeSize)
	s := &Sink{cli: cli, ttl: opts.TTL, batchSize: opts.BatchSize, written: c}
	s.reset()
	return s
}

func (s *Sink) reset() {
	s.pending = Batch{Values: map[string][]byte{}, Members: map[string][]string{}}
	s.digests = map[string]uint64{}
}

func (s *Sink) Write(ctx context.Context, f model.Fragment) error {
	k := keys.Fragment(f.ListID, f.LocationID, f.TileID)
	d := keys.Digest(f.WKB)
	if prev, ok := s.written.Get(k); ok && prev == d {
		s.unchanged++
		return nil
	}
	s.pending.Values[k] = f.WKB
	loc := keys.Location(f.ListID, f.LocationID)
	s.pending.Members[loc] = append(s.pending.Members[loc], strconv.Itoa(f.TileID))
	s.digests[k] = d
	if s.pending.Len() >= s.batchSize {
		return s.Flush(ctx)
	}
	return nil
}

func (s *Sink) Flush(ctx context.Context) error {
	if err := s.cli.WriteBatch(ctx, s.pending, s.ttl); err != nil {
		return err
	}
	for k, d := range s.digests {
		s.written.Add(k, d)
	}
	s.reset()
	return nil
}

// Unchanged counts fragments skipped because the same payload was already
// written under their key.
func (s *Sink) Unchanged() int { return s.unchanged }

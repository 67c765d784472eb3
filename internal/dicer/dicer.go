// Package dicer runs batches of polygon records through decode, repair and
// grid clipping, and streams the resulting tile fragments to a sink.
package dicer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/grid-dicer/internal/clipper"
	"github.com/mohammed-shakir/grid-dicer/internal/codec/wkbcodec"
	"github.com/mohammed-shakir/grid-dicer/internal/core/model"
	"github.com/mohammed-shakir/grid-dicer/internal/core/observability"
	"github.com/mohammed-shakir/grid-dicer/internal/grid"
	"github.com/mohammed-shakir/grid-dicer/internal/logger"
	"github.com/mohammed-shakir/grid-dicer/internal/repair"
)

var (
	ErrBusy    = errors.New("dicer: run already in progress")
	ErrNoIndex = errors.New("dicer: grid index is required")
)

type Config struct {
	Workers         int
	QueueSize       int
	MinFragmentArea float64
	HexOutput       bool
	Decode          []wkbcodec.DecodeOption
}

type Options struct {
	Logger *slog.Logger
	// DedupeSize bounds the set of location ids remembered for duplicate
	// detection.
	DedupeSize int
	// OnLoad sees the whole batch after loading and before any record is
	// diced. An error aborts the run.
	OnLoad func(ctx context.Context, recs []model.RawRecord) error
}

type Orchestrator struct {
	cfg     Config
	opts    Options
	idx     *grid.Index
	clip    *clipper.Clipper
	log     *slog.Logger
	state   stateBox
	running atomic.Bool
}

func New(cfg Config, idx *grid.Index, opts Options) (*Orchestrator, error) {
	if idx == nil {
		return nil, ErrNoIndex
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	o := &Orchestrator{
		cfg:  cfg,
		opts: opts,
		idx:  idx,
		clip: clipper.New(clipper.Options{MinArea: cfg.MinFragmentArea}),
		log:  log,
	}
	o.state.onMove = func(s State) {
		observability.SetRunState(int(s))
		log.Debug("dicer state", "state", s.String())
	}
	return o, nil
}

func (o *Orchestrator) State() State { return o.state.load() }

// Readiness reports whether the orchestrator can take a new batch.
func (o *Orchestrator) Readiness() (bool, string) {
	s := o.State()
	return s == Idle, s.String()
}

type job struct {
	idx int
	rec model.RawRecord
}

// Run loads the whole batch from src, dices every record and writes the
// fragments to sink. The returned summary is valid even when err is not nil.
func (o *Orchestrator) Run(ctx context.Context, src Source, sink Sink) (Summary, error) {
	if !o.running.CompareAndSwap(false, true) {
		return Summary{}, ErrBusy
	}
	defer o.running.Store(false)
	defer o.state.reset()

	start := time.Now()
	ctx = logger.WithComponent(logger.WithRunID(ctx, logger.NewID()), "dicer")

	o.state.advance(Loading)
	recs, err := Load(ctx, src)
	if err != nil {
		return Summary{Duration: time.Since(start)}, err
	}
	if o.opts.OnLoad != nil {
		if err := o.opts.OnLoad(ctx, recs); err != nil {
			return Summary{Total: len(recs), Duration: time.Since(start)}, fmt.Errorf("dicer: on load: %w", err)
		}
	}
	o.log.InfoContext(ctx, "batch loaded", "records", len(recs), "workers", o.cfg.Workers,
		"cell_size", o.idx.CellSize())

	runCtx, fail := context.WithCancelCause(ctx)
	defer fail(nil)

	out := Serialize(sink)
	col := newCollector(len(recs))

	n := o.cfg.Workers
	queues := make([]chan job, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		queues[i] = make(chan job, o.cfg.QueueSize)
		go func(jobs <-chan job) {
			defer wg.Done()
			o.worker(runCtx, jobs, out, col, fail)
		}(queues[i])
	}

	seen := newSeenSet(o.opts.DedupeSize)
dispatch:
	for i, rec := range recs {
		if runCtx.Err() != nil {
			break
		}
		if !seen.firstTime(rec.LocationID) {
			col.skip(i, Skip{ListID: rec.ListID, LocationID: rec.LocationID, Reason: ReasonDuplicate})
			observability.ObserveRecord(ReasonDuplicate, 0)
			o.log.WarnContext(ctx, "record skipped", "list_id", rec.ListID,
				"location_id", rec.LocationID, "reason", ReasonDuplicate)
			continue
		}
		select {
		case queues[shard(rec.LocationID, n)] <- job{idx: i, rec: rec}:
		case <-runCtx.Done():
			break dispatch
		}
	}
	for _, q := range queues {
		close(q)
	}
	wg.Wait()

	sum := col.summary()
	if cause := context.Cause(runCtx); errors.Is(cause, ErrSink) {
		sum.Duration = time.Since(start)
		o.log.ErrorContext(ctx, "run aborted", "err", cause, "summary", sum.String())
		return sum, cause
	}
	if err := ctx.Err(); err != nil {
		sum.Duration = time.Since(start)
		o.log.WarnContext(ctx, "run cancelled", "summary", sum.String())
		return sum, err
	}

	o.state.advance(Emitting)
	if err := out.Flush(ctx); err != nil {
		sum.Duration = time.Since(start)
		return sum, fmt.Errorf("%w: flush: %w", ErrSink, err)
	}
	sum.Duration = time.Since(start)
	o.log.InfoContext(ctx, "run complete",
		"total", sum.Total, "processed", sum.Processed, "empty", sum.Empty,
		"skipped", sum.Skipped, "fragments", sum.Fragments, "dur", sum.Duration.String())
	return sum, nil
}

func (o *Orchestrator) worker(ctx context.Context, jobs <-chan job, out *Serialized, col *collector, fail context.CancelCauseFunc) {
	for j := range jobs {
		// keep draining so the dispatcher never blocks on a dead worker
		if ctx.Err() != nil {
			continue
		}
		t0 := time.Now()
		rec := j.rec
		lctx := logger.WithListID(ctx, rec.ListID)

		frags, empty, err := o.dice(rec)
		if err != nil {
			reason := wkbcodec.Reason(err)
			col.skip(j.idx, Skip{ListID: rec.ListID, LocationID: rec.LocationID, Reason: reason, Err: err.Error()})
			observability.ObserveRecord(reason, time.Since(t0).Seconds())
			o.log.WarnContext(lctx, "record skipped",
				"location_id", rec.LocationID, "reason", reason, "err", err)
			continue
		}

		if len(frags) > 0 {
			o.state.advance(Emitting)
			if err := out.WriteAll(ctx, frags); err != nil {
				if ctx.Err() == nil {
					fail(fmt.Errorf("%w: location %d: %w", ErrSink, rec.LocationID, err))
				}
				continue
			}
		} else if ctx.Err() != nil {
			continue
		}

		col.done(len(frags), empty)
		outcome := "processed"
		if empty {
			outcome = "empty"
		}
		observability.ObserveRecord(outcome, time.Since(t0).Seconds())
		observability.AddFragments(len(frags))
		o.log.DebugContext(lctx, "record diced",
			"location_id", rec.LocationID, "fragments", len(frags), "outcome", outcome)
	}
}

// dice turns one record into encoded fragments. empty is true when repair
// left nothing of the geometry.
func (o *Orchestrator) dice(rec model.RawRecord) ([]model.Fragment, bool, error) {
	g, err := wkbcodec.DecodeRecord(rec, o.cfg.Decode...)
	if err != nil {
		return nil, false, err
	}
	return o.cut(model.SourceRecord{ListID: rec.ListID, LocationID: rec.LocationID, Geometry: g})
}

func (o *Orchestrator) cut(sr model.SourceRecord) ([]model.Fragment, bool, error) {
	o.state.advance(Repairing)
	g := repair.Repair(sr.Geometry)
	if g.IsEmpty() {
		return nil, true, nil
	}

	o.state.advance(Clipping)
	pieces := o.clip.ClipAgainstGrid(g, o.idx)
	frags := make([]model.Fragment, 0, len(pieces))
	for _, p := range pieces {
		b, err := wkbcodec.Encode(p.Geometry, o.cfg.HexOutput)
		if err != nil {
			return nil, false, fmt.Errorf("encode tile %d: %w", p.Tile.ID, err)
		}
		frags = append(frags, model.Fragment{
			ListID:     sr.ListID,
			LocationID: sr.LocationID,
			TileID:     p.Tile.ID,
			Geometry:   p.Geometry,
			WKB:        b,
			Hex:        o.cfg.HexOutput,
		})
	}
	return frags, false, nil
}

// Load drains src into memory.
func Load(ctx context.Context, src Source) ([]model.RawRecord, error) {
	var out []model.RawRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("dicer: load record %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
}

func shard(locationID int64, n int) int {
	if n <= 1 {
		return 0
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(locationID))
	return int(xxhash.Sum64(b[:]) % uint64(n))
}

type indexedSkip struct {
	idx  int
	skip Skip
}

type collector struct {
	mu    sync.Mutex
	sum   Summary
	skips []indexedSkip
}

func newCollector(total int) *collector {
	return &collector{sum: Summary{Total: total}}
}

func (c *collector) done(frags int, empty bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sum.Processed++
	c.sum.Fragments += frags
	if empty {
		c.sum.Empty++
	}
}

func (c *collector) skip(idx int, s Skip) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sum.Skipped++
	c.skips = append(c.skips, indexedSkip{idx: idx, skip: s})
}

// summary lists skips in input order.
func (c *collector) summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.Slice(c.skips, func(i, j int) bool { return c.skips[i].idx < c.skips[j].idx })
	out := c.sum
	out.SkippedIDs = make([]int64, 0, len(c.skips))
	out.Skips = make([]Skip, 0, len(c.skips))
	for _, s := range c.skips {
		out.SkippedIDs = append(out.SkippedIDs, s.skip.LocationID)
		out.Skips = append(out.Skips, s.skip)
	}
	return out
}

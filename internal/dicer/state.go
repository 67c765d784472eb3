package dicer

import "sync/atomic"

type State int32

const (
	Idle State = iota
	Loading
	Repairing
	Clipping
	Emitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Repairing:
		return "repairing"
	case Clipping:
		return "clipping"
	case Emitting:
		return "emitting"
	default:
		return "unknown"
	}
}

// stateBox only moves forward during a run; reset puts it back to Idle.
// Workers race to report their stage so the first record to reach a stage
// moves the whole run there.
type stateBox struct {
	v      atomic.Int32
	onMove func(State)
}

func (b *stateBox) load() State { return State(b.v.Load()) }

func (b *stateBox) advance(s State) {
	for {
		cur := b.v.Load()
		if cur >= int32(s) {
			return
		}
		if b.v.CompareAndSwap(cur, int32(s)) {
			if b.onMove != nil {
				b.onMove(s)
			}
			return
		}
	}
}

func (b *stateBox) reset() {
	b.v.Store(int32(Idle))
	if b.onMove != nil {
		b.onMove(Idle)
	}
}

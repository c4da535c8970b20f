// Package engine implements the state engine (C5): it owns the multi-coin
// book exclusively and exposes the advance/snapshot operations the
// broadcast layer pulls from, under a single-writer/multi-reader
// concurrency discipline (spec §5).
package engine

import (
	"log/slog"
	"sync"

	"github.com/hlreplicator/orderbook-server/internal/book"
	"github.com/hlreplicator/orderbook-server/internal/domain"
	"github.com/hlreplicator/orderbook-server/internal/l2"
	"github.com/hlreplicator/orderbook-server/internal/reconcile"
)

// TimedSnapshot is a full L4 snapshot paired with the (height, time) it
// was computed at.
type TimedSnapshot struct {
	Time     uint64
	Height   uint64
	Snapshot book.Snapshots
}

// L2Frame is an L2 snapshot paired with the engine time it reflects.
type L2Frame struct {
	Time     uint64
	Snapshot l2.Snapshots
}

// Engine wraps a MultiCoinBook with the (height, time, snapped) state
// machine described in spec §4.5. A single sync.RWMutex serializes writers
// against each other and lets readers run concurrently with an idle
// writer (spec §5 option (a)).
type Engine struct {
	mu sync.RWMutex

	book       *book.MultiCoinBook
	height     uint64
	time       uint64
	snapped    bool
	ignoreSpot bool
	l2Depth    int

	logger *slog.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger attaches a structured logger used for non-fatal diagnostics
// (e.g. status records left unreferenced by any diff in a block).
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithL2Depth sets the number of price levels kept per side when
// deriving L2 snapshots. The zero value means unlimited.
func WithL2Depth(depth int) Option {
	return func(e *Engine) { e.l2Depth = depth }
}

// FromSnapshot constructs an Engine from a full L4 snapshot at the given
// (height, time). ignoreTriggers filters out trigger orders during
// import; ignoreSpot controls whether ApplyUpdates skips diffs on spot
// coins.
func FromSnapshot(snapshot book.Snapshots, height, time uint64, ignoreTriggers, ignoreSpot bool, opts ...Option) *Engine {
	e := &Engine{
		book:       book.FromSnapshots(snapshot, ignoreTriggers),
		height:     height,
		time:       time,
		snapped:    false,
		ignoreSpot: ignoreSpot,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Height returns the engine's current block height.
func (e *Engine) Height() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.height
}

// ComputeSnapshot always succeeds and returns the engine's current state
// as a full L4 snapshot. Safe to call concurrently with ApplyUpdates and
// other readers: the read lock is held for the entire per-coin parallel
// copy, so ApplyUpdates can never observe (or race with) a partial copy
// of the book, and concurrent ComputeSnapshot/L2Snapshot/Height calls
// still run unblocked against each other under the shared read lock.
func (e *Engine) ComputeSnapshot() TimedSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return TimedSnapshot{Time: e.time, Height: e.height, Snapshot: e.book.ToSnapshotsParallel()}
}

// L2Snapshots returns an L2 view of the book, but only once per (height,
// time): it returns nothing if Snapped is already true. If
// preventFutureSnaps is true, it sets Snapped to true as a side effect,
// so a subsequent call at the same height returns nothing; called with
// false, it can be invoked an unlimited number of times.
func (e *Engine) L2Snapshots(preventFutureSnaps bool) (L2Frame, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snapped {
		return L2Frame{}, false
	}
	if preventFutureSnaps {
		e.snapped = true
	}
	return L2Frame{Time: e.time, Snapshot: l2.Project(e.book, e.l2Depth)}, true
}

// L2Snapshot always succeeds and returns the current L2 view, independent
// of the per-block dedup flag tracked by L2Snapshots. Use this for
// on-subscribe welcome frames, which must be delivered regardless of
// whether a dedup'd broadcast has already gone out for the current
// (height, time) (spec §6).
func (e *Engine) L2Snapshot() L2Frame {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return L2Frame{Time: e.time, Snapshot: l2.Project(e.book, e.l2Depth)}
}

// ComputeUniverse returns the set of coins currently known to the book.
func (e *Engine) ComputeUniverse() map[domain.Coin]struct{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Universe()
}

// ApplyUpdates reconciles one block's status and diff batches into the
// book (spec §4.4). It is CPU-bound and must not suspend: it holds the
// write lock for its entire duration, which is the only way to satisfy
// the non-cancellable, all-or-nothing batch requirement in spec §5.
//
// On success, height advances by exactly 1, time is set to the block
// time, and Snapped is cleared. A tolerated no-op replay (incoming block
// <= current height) leaves all three untouched. Any other error leaves
// the book exactly as it was before the call.
func (e *Engine) ApplyUpdates(statuses reconcile.Batch[reconcile.OrderStatusEvent], diffs reconcile.Batch[reconcile.OrderDiffEvent]) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := reconcile.Apply(e.book, e.height, statuses, diffs, e.ignoreSpot, e.logger)
	if err != nil {
		return err
	}
	if !result.Applied {
		return nil
	}
	e.height = result.Height
	e.time = result.Time
	e.snapped = false
	return nil
}

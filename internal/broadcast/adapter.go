// Package broadcast defines the interface boundary between the order-book
// state engine and the WebSocket broadcast layer (C7). The engine exposes
// exactly the five read operations of Source; broadcast owns framing, subscription
// state, compression, and back-pressure, and never mutates the book.
package broadcast

import (
	"github.com/hlreplicator/orderbook-server/internal/book"
	"github.com/hlreplicator/orderbook-server/internal/domain"
	"github.com/hlreplicator/orderbook-server/internal/engine"
	"github.com/hlreplicator/orderbook-server/internal/l2"
)

// Source is the read-only surface of the state engine that the broadcast
// layer is allowed to pull from.
type Source interface {
	// ComputeSnapshot always succeeds and returns the current full L4
	// snapshot, for use when a new subscriber joins.
	ComputeSnapshot() engine.TimedSnapshot

	// L2Snapshots returns an L2 frame only if one has not already been
	// emitted for the current (height, time); see engine.Engine.L2Snapshots.
	L2Snapshots(preventFutureSnaps bool) (engine.L2Frame, bool)

	// L2Snapshot always succeeds and returns the current L2 view,
	// independent of the per-block dedup flag. Used for on-subscribe
	// welcome frames, which must never be suppressed by that dedup state.
	L2Snapshot() engine.L2Frame

	// ComputeUniverse returns the set of coins currently known to the book.
	ComputeUniverse() map[domain.Coin]struct{}

	// Height returns the engine's current block height.
	Height() uint64
}

var _ Source = (*engine.Engine)(nil)

// SnapshotKind selects which form of book state a new subscriber receives
// on join.
type SnapshotKind int

const (
	// SnapshotL2 sends an aggregated depth snapshot on subscribe.
	SnapshotL2 SnapshotKind = iota
	// SnapshotL4 sends the full per-order snapshot on subscribe.
	SnapshotL4
)

// WelcomeL4 is what a subscriber receives immediately on registration when
// SnapshotKind is SnapshotL4.
type WelcomeL4 struct {
	Height uint64
	Time   uint64
	Book   book.Snapshots
}

// WelcomeL2 is what a subscriber receives immediately on registration when
// SnapshotKind is SnapshotL2.
type WelcomeL2 struct {
	Height uint64
	Time   uint64
	Book   l2.Snapshots
}

// Package ingest watches the node-data directory layout described in
// spec §6 for new per-block batch files and hands decoded batches to the
// state engine (C8). Deserialization of the actual upstream node file
// format is out of scope (spec.md §1); BatchDecoder is the pluggable seam
// a real deployment would implement against that format.
package ingest

import (
	"path/filepath"

	"github.com/hlreplicator/orderbook-server/internal/reconcile"
)

// EventSource identifies which of the three node-data directories a file
// belongs to.
type EventSource int

const (
	// Fills has a directory mapping but is neither watched by Watcher nor
	// consumed by the engine: matching/execution is a non-goal (spec.md §1).
	Fills EventSource = iota
	OrderStatuses
	OrderDiffs
)

// Dir returns the directory this event source is read from, rooted at
// root, per the layout in spec §6.
func (s EventSource) Dir(root string) string {
	switch s {
	case Fills:
		return filepath.Join(root, "hl", "data", "node_fills_by_block")
	case OrderStatuses:
		return filepath.Join(root, "hl", "data", "node_order_statuses_by_block")
	case OrderDiffs:
		return filepath.Join(root, "hl", "data", "node_raw_book_diffs_by_block")
	default:
		return ""
	}
}

// BatchDecoder turns the raw bytes of one node-data file into a typed
// batch. The upstream node's actual wire format is undocumented here;
// implementations are free to deserialize however that format requires.
type BatchDecoder interface {
	DecodeStatuses(data []byte) (reconcile.Batch[reconcile.OrderStatusEvent], error)
	DecodeDiffs(data []byte) (reconcile.Batch[reconcile.OrderDiffEvent], error)
}

// BlockPair is one block's matched status and diff batches, ready for
// reconcile.Apply.
type BlockPair struct {
	Statuses reconcile.Batch[reconcile.OrderStatusEvent]
	Diffs    reconcile.Batch[reconcile.OrderDiffEvent]
}

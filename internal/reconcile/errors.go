package reconcile

import (
	"errors"

	"github.com/hlreplicator/orderbook-server/internal/book"
	"github.com/hlreplicator/orderbook-server/internal/domain"
)

// Error kinds produced while reconciling a block's status and diff
// batches into book mutations. Each is a distinct sentinel so callers can
// distinguish kinds with errors.Is while fmt.Errorf wrapping still carries
// context for logs.
var (
	// ErrBlockGap is returned when the incoming block number is more than
	// one past the engine's current height. The caller must re-snapshot
	// and resume.
	ErrBlockGap = errors.New("reconcile: block gap, caller must re-snapshot")

	// ErrBlockMismatch is returned when the status and diff batches for a
	// block disagree on block number. This is a programming error in the
	// caller, not a data-stream condition.
	ErrBlockMismatch = errors.New("reconcile: status/diff block number mismatch")

	// ErrOrphanNew is returned when a New diff has no matching
	// book-inserting status and is not from a special address.
	ErrOrphanNew = errors.New("reconcile: new diff without matching status")

	// ErrOrphanUpdate is returned when an Update diff targets an oid not
	// resting on the book.
	ErrOrphanUpdate = errors.New("reconcile: update diff for unknown oid")

	// ErrOrphanRemove is returned when a Remove diff targets an oid not
	// resting on the book.
	ErrOrphanRemove = errors.New("reconcile: remove diff for unknown oid")
)

// KindOf classifies err into one of the error-kind labels from spec §7,
// for use as a metrics/log label. Returns "none" for nil and "unknown" for
// any other error.
func KindOf(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, domain.ErrParse):
		return "parse_error"
	case errors.Is(err, ErrBlockGap):
		return "block_gap"
	case errors.Is(err, ErrBlockMismatch):
		return "block_mismatch"
	case errors.Is(err, ErrOrphanNew):
		return "orphan_new"
	case errors.Is(err, ErrOrphanUpdate):
		return "orphan_update"
	case errors.Is(err, ErrOrphanRemove):
		return "orphan_remove"
	case errors.Is(err, book.ErrDuplicateOid):
		return "duplicate_oid"
	default:
		return "unknown"
	}
}

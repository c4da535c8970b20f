// Package reconcile implements the update reconciler (C4): it merges a
// block's order-status batch and raw-book-diff batch into a single
// consistent set of mutations against a multi-coin book.
package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/hlreplicator/orderbook-server/internal/book"
	"github.com/hlreplicator/orderbook-server/internal/domain"
)

// Result carries the (height, time) the book now reflects after a
// successful, mutating apply. Applied is false for a tolerated no-op
// replay (incoming block <= current height): the book is untouched and
// Height/Time are not meaningful.
type Result struct {
	Height  uint64
	Time    uint64
	Applied bool
}

// Apply reconciles one block's status and diff batches against mb.
//
// If the incoming block is more than one past currentHeight, it fails
// with ErrBlockGap and mb is untouched. If the incoming block is at or
// before currentHeight, it is a tolerated no-op: Result.Applied is false
// and mb is untouched. Otherwise every diff is applied in its original
// order; on any error mb is restored to its pre-apply state via an undo
// log and the error is returned.
func Apply(
	mb *book.MultiCoinBook,
	currentHeight uint64,
	statuses Batch[OrderStatusEvent],
	diffs Batch[OrderDiffEvent],
	ignoreSpot bool,
	logger *slog.Logger,
) (Result, error) {
	if statuses.BlockNumber != diffs.BlockNumber {
		return Result{}, fmt.Errorf("%w: statuses=%d diffs=%d", ErrBlockMismatch, statuses.BlockNumber, diffs.BlockNumber)
	}
	height := statuses.BlockNumber
	blockTime := statuses.BlockTimeMillis()

	if height > currentHeight+1 {
		return Result{}, fmt.Errorf("%w: expecting block %d, got %d", ErrBlockGap, currentHeight+1, height)
	}
	if height <= currentHeight {
		return Result{Applied: false}, nil
	}

	orderMap := make(map[domain.Oid]OrderStatusEvent, len(statuses.Events))
	for _, status := range statuses.Events {
		if status.IsInsertedIntoBook() {
			orderMap[domain.Oid(status.Order.Oid)] = status
		}
	}

	var undo undoLog
	for _, diff := range diffs.Events {
		oid := domain.Oid(diff.Oid)
		coin := diff.Coin
		if coin.IsSpot() && ignoreSpot {
			continue
		}

		if err := applyDiff(mb, orderMap, diff, oid, coin, blockTime, &undo); err != nil {
			undo.rollback()
			return Result{}, err
		}
	}

	if len(orderMap) > 0 && logger != nil {
		logger.Warn("status records unreferenced by any diff in block",
			"block_number", height, "unreferenced_count", len(orderMap))
	}

	return Result{Height: height, Time: blockTime, Applied: true}, nil
}

func applyDiff(
	mb *book.MultiCoinBook,
	orderMap map[domain.Oid]OrderStatusEvent,
	diff OrderDiffEvent,
	oid domain.Oid,
	coin domain.Coin,
	blockTime uint64,
	undo *undoLog,
) error {
	switch diff.RawBookDiff.Kind {
	case DiffNew:
		sz, err := domain.ParseSz(diff.RawBookDiff.Sz)
		if err != nil {
			return fmt.Errorf("new diff oid=%d coin=%s: %w", oid.Value(), coin, err)
		}

		if status, ok := orderMap[oid]; ok {
			delete(orderMap, oid)
			order, err := liftStatusOrder(status, sz, blockTime)
			if err != nil {
				return fmt.Errorf("new diff oid=%d coin=%s: %w", oid.Value(), coin, err)
			}
			if err := mb.AddOrder(order); err != nil {
				return fmt.Errorf("new diff oid=%d coin=%s: %w", oid.Value(), coin, err)
			}
			undo.push(func() { mb.CancelOrder(oid, coin) })
			return nil
		}

		if IsSpecialAddress(diff.User) {
			px, err := domain.ParsePx(diff.Px)
			if err != nil {
				return fmt.Errorf("new diff oid=%d coin=%s: %w", oid.Value(), coin, err)
			}
			order := domain.L4Order{
				User:      diff.User,
				Coin:      coin,
				Side:      diff.Side,
				LimitPx:   px,
				Sz:        sz,
				Oid:       oid,
				Timestamp: blockTime,
				IsTrigger: false,
				Tif:       "Alo",
				OrderType: "Limit",
			}
			if err := mb.AddOrder(order); err != nil {
				return fmt.Errorf("new diff oid=%d coin=%s: %w", oid.Value(), coin, err)
			}
			undo.push(func() { mb.CancelOrder(oid, coin) })
			return nil
		}

		return fmt.Errorf("%w: oid=%d coin=%s", ErrOrphanNew, oid.Value(), coin)

	case DiffUpdate:
		newSz, err := domain.ParseSz(diff.RawBookDiff.NewSz)
		if err != nil {
			return fmt.Errorf("update diff oid=%d coin=%s: %w", oid.Value(), coin, err)
		}
		prev, existed := mb.Get(oid, coin)
		if !existed {
			return fmt.Errorf("%w: oid=%d coin=%s", ErrOrphanUpdate, oid.Value(), coin)
		}
		mb.ModifySz(oid, coin, newSz)
		prevSz := prev.Sz
		undo.push(func() { mb.ModifySz(oid, coin, prevSz) })
		return nil

	case DiffRemove:
		removed, existed := mb.Get(oid, coin)
		if !existed {
			return fmt.Errorf("%w: oid=%d coin=%s", ErrOrphanRemove, oid.Value(), coin)
		}
		mb.CancelOrder(oid, coin)
		undo.push(func() { _ = mb.AddOrder(removed) })
		return nil

	default:
		return fmt.Errorf("reconcile: unknown diff kind %d for oid=%d coin=%s", diff.RawBookDiff.Kind, oid.Value(), coin)
	}
}

func liftStatusOrder(status OrderStatusEvent, sz domain.Sz, ts uint64) (domain.L4Order, error) {
	limitPx, err := domain.ParsePx(status.Order.LimitPx)
	if err != nil {
		return domain.L4Order{}, fmt.Errorf("status limit_px: %w", err)
	}
	var triggerPx domain.Px
	if status.Order.TriggerPx != "" {
		triggerPx, err = domain.ParsePx(status.Order.TriggerPx)
		if err != nil {
			return domain.L4Order{}, fmt.Errorf("status trigger_px: %w", err)
		}
	}
	return domain.L4Order{
		User:       status.User,
		Coin:       status.Order.Coin,
		Side:       status.Order.Side,
		LimitPx:    limitPx,
		Sz:         sz,
		Oid:        domain.Oid(status.Order.Oid),
		Timestamp:  ts,
		IsTrigger:  status.Order.IsTrigger,
		TriggerPx:  triggerPx,
		ReduceOnly: status.Order.ReduceOnly,
		OrderType:  status.Order.OrderType,
		Tif:        status.Order.Tif,
		Cloid:      status.Order.Cloid,
	}, nil
}

// undoLog accumulates inverse operations so a failed batch can be rolled
// back to leave the book exactly as it was before Apply was called,
// satisfying the "abort leaves pre-apply state" policy in spec §7.
type undoLog []func()

func (u *undoLog) push(fn func()) { *u = append(*u, fn) }

func (u *undoLog) rollback() {
	for i := len(*u) - 1; i >= 0; i-- {
		(*u)[i]()
	}
}

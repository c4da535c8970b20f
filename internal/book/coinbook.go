// Package book implements the per-coin (C2) and multi-coin (C3) L4 order
// book: ordered bid/ask price ladders keyed by oid, with a side index for
// O(log n) price lookup and O(1) cancellation within a level.
package book

import (
	"container/list"
	"errors"
	"fmt"

	"github.com/hlreplicator/orderbook-server/internal/domain"
)

// ErrDuplicateOid is returned by Add when the oid is already resting on
// this coin's book.
var ErrDuplicateOid = errors.New("book: duplicate oid")

type orderLoc struct {
	side domain.Side
	px   domain.Px
	elem *list.Element
}

// CoinBook is the L4 order book for a single coin: two ordered ladders
// (bids descending, asks ascending) plus an oid -> location index.
type CoinBook struct {
	bids  *ladder
	asks  *ladder
	index map[domain.Oid]*orderLoc
}

// NewCoinBook returns an empty single-coin book.
func NewCoinBook() *CoinBook {
	return &CoinBook{
		bids:  newLadder(true),
		asks:  newLadder(false),
		index: make(map[domain.Oid]*orderLoc),
	}
}

func (b *CoinBook) ladderFor(side domain.Side) *ladder {
	if side == domain.Bid {
		return b.bids
	}
	return b.asks
}

// Add inserts order at the tail of its price level. Fails with
// ErrDuplicateOid if the oid is already present on this coin's book.
func (b *CoinBook) Add(order domain.L4Order) error {
	if _, exists := b.index[order.Oid]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateOid, order.Oid.Value())
	}
	lad := b.ladderFor(order.Side)
	lvl := lad.levelFor(order.LimitPx)
	stored := order
	elem := lvl.orders.PushBack(&stored)
	b.index[order.Oid] = &orderLoc{side: order.Side, px: order.LimitPx, elem: elem}
	return nil
}

// ModifySize overwrites the size of the resting order with the given oid.
// Returns false if the oid is not present. A zero new size is permitted:
// the diff stream, not this call, owns removal.
func (b *CoinBook) ModifySize(oid domain.Oid, newSz domain.Sz) bool {
	loc, ok := b.index[oid]
	if !ok {
		return false
	}
	order := loc.elem.Value.(*domain.L4Order)
	order.ModifySz(newSz)
	return true
}

// Cancel removes the resting order with the given oid. Returns false if
// the oid is not present.
func (b *CoinBook) Cancel(oid domain.Oid) bool {
	loc, ok := b.index[oid]
	if !ok {
		return false
	}
	lad := b.ladderFor(loc.side)
	lvl, ok := lad.get(loc.px)
	if !ok {
		delete(b.index, oid)
		return true
	}
	lvl.orders.Remove(loc.elem)
	lad.dropLevelIfEmpty(loc.px)
	delete(b.index, oid)
	return true
}

// Get returns a value copy of the resting order with the given oid.
func (b *CoinBook) Get(oid domain.Oid) (domain.L4Order, bool) {
	loc, ok := b.index[oid]
	if !ok {
		return domain.L4Order{}, false
	}
	return *loc.elem.Value.(*domain.L4Order), true
}

// Snapshot returns an immutable ordered list of orders per side: bids then
// asks, each in price-priority/FIFO order.
func (b *CoinBook) Snapshot() (bids, asks []domain.L4Order) {
	return b.bids.snapshot(), b.asks.snapshot()
}

// BestBidAsk returns the best resting price on each side, if any.
func (b *CoinBook) BestBidAsk() (bestBid, bestAsk domain.Px, haveBid, haveAsk bool) {
	bestBid, haveBid = b.bids.best()
	bestAsk, haveAsk = b.asks.best()
	return
}

// Len returns the number of resting orders on this coin's book.
func (b *CoinBook) Len() int { return len(b.index) }

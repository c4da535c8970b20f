package book

import (
	"container/list"

	"github.com/tidwall/btree"

	"github.com/hlreplicator/orderbook-server/internal/domain"
)

// level holds every order resting at a single price, in FIFO insertion
// order. Elements are *domain.L4Order.
type level struct {
	price  domain.Px
	orders *list.List
}

func newLevel(px domain.Px) *level {
	return &level{price: px, orders: list.New()}
}

// ladder is one side of a single coin's book: price levels kept in
// price-priority order (bids descending, asks ascending) in a BTreeG
// keyed by price, each a FIFO queue of resting orders.
type ladder struct {
	tree *btree.BTreeG[*level]
}

func newLadder(descending bool) *ladder {
	less := func(a, b *level) bool { return a.price < b.price }
	if descending {
		less = func(a, b *level) bool { return a.price > b.price }
	}
	return &ladder{tree: btree.NewBTreeG(less)}
}

// get returns the level at px, if present.
func (l *ladder) get(px domain.Px) (*level, bool) {
	return l.tree.Get(&level{price: px})
}

// levelFor returns the level for px, creating and inserting it into the
// tree if it does not already exist.
func (l *ladder) levelFor(px domain.Px) *level {
	if lvl, ok := l.get(px); ok {
		return lvl
	}
	lvl := newLevel(px)
	l.tree.Set(lvl)
	return lvl
}

// dropLevelIfEmpty removes px from the tree once its queue drains.
func (l *ladder) dropLevelIfEmpty(px domain.Px) {
	lvl, ok := l.get(px)
	if !ok || lvl.orders.Len() > 0 {
		return
	}
	l.tree.Delete(lvl)
}

// best returns the first (best) price on this side, if any.
func (l *ladder) best() (domain.Px, bool) {
	lvl, ok := l.tree.Min()
	if !ok {
		return 0, false
	}
	return lvl.price, true
}

// snapshot returns every order on this side, in price-priority then FIFO
// order, as value copies.
func (l *ladder) snapshot() []domain.L4Order {
	out := make([]domain.L4Order, 0)
	l.tree.Scan(func(lvl *level) bool {
		for e := lvl.orders.Front(); e != nil; e = e.Next() {
			out = append(out, *e.Value.(*domain.L4Order))
		}
		return true
	})
	return out
}

// Package l2 derives an L2 (aggregated depth) view from the L4 multi-coin
// book (C6): per coin, per side, it sums size and counts orders at each
// price level and emits the top N levels in price-priority order.
package l2

import (
	"github.com/hlreplicator/orderbook-server/internal/book"
	"github.com/hlreplicator/orderbook-server/internal/domain"
)

// Level is one aggregated price level: total resting size and how many
// distinct orders make it up.
type Level struct {
	Px         domain.Px
	TotalSize  domain.Sz
	OrderCount int
}

// CoinLevels is the top-N bid/ask levels for one coin, bids descending and
// asks ascending in natural price-priority order.
type CoinLevels struct {
	Bids []Level
	Asks []Level
}

// Snapshots maps coin -> its aggregated depth view.
type Snapshots map[domain.Coin]CoinLevels

// Project aggregates mb into a depth-limited L2 view. depth is the number
// of price levels to keep per side; depth <= 0 means unlimited. The
// caller is expected to hold at least a read lock on mb for the duration
// of this call.
func Project(mb *book.MultiCoinBook, depth int) Snapshots {
	out := make(Snapshots)
	mb.Range(func(coin domain.Coin, cb *book.CoinBook) {
		bids, asks := cb.Snapshot()
		out[coin] = CoinLevels{
			Bids: aggregate(bids, depth),
			Asks: aggregate(asks, depth),
		}
	})
	return out
}

// aggregate collapses a price-priority-ordered, FIFO-within-level slice of
// orders into depth-limited aggregated levels. Orders at the same price
// are guaranteed contiguous by book.CoinBook.Snapshot's ordering.
func aggregate(orders []domain.L4Order, depth int) []Level {
	levels := make([]Level, 0)
	var cur *Level
	for _, o := range orders {
		if cur == nil || cur.Px != o.LimitPx {
			if depth > 0 && len(levels) >= depth {
				break
			}
			levels = append(levels, Level{Px: o.LimitPx})
			cur = &levels[len(levels)-1]
		}
		cur.TotalSize = cur.TotalSize.Add(o.Sz)
		cur.OrderCount++
	}
	return levels
}

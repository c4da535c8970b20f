package book

import (
	"sync"

	"github.com/hlreplicator/orderbook-server/internal/domain"
)

// CoinSnapshot is the full L4 view of one coin's book.
type CoinSnapshot struct {
	Bids []domain.L4Order
	Asks []domain.L4Order
}

// Snapshots is a full L4 snapshot of every coin in the universe.
type Snapshots map[domain.Coin]CoinSnapshot

// MultiCoinBook maps Coin -> CoinBook, lazily creating a side book on the
// first Add for that coin. It holds no lock of its own: callers (the state
// engine) serialize access.
type MultiCoinBook struct {
	coins map[domain.Coin]*CoinBook
}

// NewMultiCoinBook returns an empty multi-coin book.
func NewMultiCoinBook() *MultiCoinBook {
	return &MultiCoinBook{coins: make(map[domain.Coin]*CoinBook)}
}

// FromSnapshots reconstructs a multi-coin book from a full L4 snapshot. If
// ignoreTriggers is true, trigger orders are filtered out during import.
func FromSnapshots(snap Snapshots, ignoreTriggers bool) *MultiCoinBook {
	mb := NewMultiCoinBook()
	for coin, cs := range snap {
		cb := NewCoinBook()
		for _, o := range cs.Bids {
			if ignoreTriggers && o.IsTrigger {
				continue
			}
			_ = cb.Add(o)
		}
		for _, o := range cs.Asks {
			if ignoreTriggers && o.IsTrigger {
				continue
			}
			_ = cb.Add(o)
		}
		mb.coins[coin] = cb
	}
	return mb
}

func (mb *MultiCoinBook) coinBook(coin domain.Coin) *CoinBook {
	cb, ok := mb.coins[coin]
	if !ok {
		cb = NewCoinBook()
		mb.coins[coin] = cb
	}
	return cb
}

// AddOrder inserts order into its coin's book, lazily creating the coin's
// book on first use. Fails with ErrDuplicateOid if already present.
func (mb *MultiCoinBook) AddOrder(order domain.L4Order) error {
	return mb.coinBook(order.Coin).Add(order)
}

// ModifySz overwrites the size of the resting order with the given oid on
// the given coin's book. Returns false if not present.
func (mb *MultiCoinBook) ModifySz(oid domain.Oid, coin domain.Coin, newSz domain.Sz) bool {
	cb, ok := mb.coins[coin]
	if !ok {
		return false
	}
	return cb.ModifySize(oid, newSz)
}

// CancelOrder removes the resting order with the given oid from the given
// coin's book. Returns false if not present.
func (mb *MultiCoinBook) CancelOrder(oid domain.Oid, coin domain.Coin) bool {
	cb, ok := mb.coins[coin]
	if !ok {
		return false
	}
	return cb.Cancel(oid)
}

// Get returns a value copy of the resting order with the given oid on the
// given coin's book.
func (mb *MultiCoinBook) Get(oid domain.Oid, coin domain.Coin) (domain.L4Order, bool) {
	cb, ok := mb.coins[coin]
	if !ok {
		return domain.L4Order{}, false
	}
	return cb.Get(oid)
}

// Universe returns the set of coins with a book, even if currently empty.
func (mb *MultiCoinBook) Universe() map[domain.Coin]struct{} {
	out := make(map[domain.Coin]struct{}, len(mb.coins))
	for coin := range mb.coins {
		out[coin] = struct{}{}
	}
	return out
}

// Coin returns the book for coin and whether it exists.
func (mb *MultiCoinBook) Coin(coin domain.Coin) (*CoinBook, bool) {
	cb, ok := mb.coins[coin]
	return cb, ok
}

// Range calls fn once for every coin currently in the universe, each with
// its CoinBook. fn must not retain the CoinBook pointer past the call.
func (mb *MultiCoinBook) Range(fn func(coin domain.Coin, cb *CoinBook)) {
	for coin, cb := range mb.coins {
		fn(coin, cb)
	}
}

// ToSnapshotsParallel produces a full L4 per-coin snapshot, computed with a
// bounded worker pool across coins since each coin's copy is independent.
func (mb *MultiCoinBook) ToSnapshotsParallel() Snapshots {
	type result struct {
		coin domain.Coin
		snap CoinSnapshot
	}

	coins := make([]domain.Coin, 0, len(mb.coins))
	books := make([]*CoinBook, 0, len(mb.coins))
	for coin, cb := range mb.coins {
		coins = append(coins, coin)
		books = append(books, cb)
	}

	results := make([]result, len(coins))
	const maxWorkers = 8
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	for i := range coins {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			bids, asks := books[i].Snapshot()
			results[i] = result{coin: coins[i], snap: CoinSnapshot{Bids: bids, Asks: asks}}
		}(i)
	}
	wg.Wait()

	out := make(Snapshots, len(results))
	for _, r := range results {
		out[r.coin] = r.snap
	}
	return out
}

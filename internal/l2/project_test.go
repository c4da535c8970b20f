package l2

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hlreplicator/orderbook-server/internal/book"
	"github.com/hlreplicator/orderbook-server/internal/domain"
)

func addOrder(t *testing.T, mb *book.MultiCoinBook, oid uint64, coin domain.Coin, side domain.Side, px, sz string) {
	t.Helper()
	p, err := domain.ParsePx(px)
	require.NoError(t, err)
	s, err := domain.ParseSz(sz)
	require.NoError(t, err)
	require.NoError(t, mb.AddOrder(domain.L4Order{Oid: domain.Oid(oid), Coin: coin, Side: side, LimitPx: p, Sz: s}))
}

func TestProjectAggregatesSamePriceLevel(t *testing.T) {
	mb := book.NewMultiCoinBook()
	addOrder(t, mb, 1, "BTC", domain.Bid, "100", "1")
	addOrder(t, mb, 2, "BTC", domain.Bid, "100", "2")
	addOrder(t, mb, 3, "BTC", domain.Bid, "99", "5")

	levels := Project(mb, 0)["BTC"].Bids
	require.Len(t, levels, 2)
	require.Equal(t, 2, levels[0].OrderCount)

	want, err := domain.ParseSz("3")
	require.NoError(t, err)
	require.Equal(t, want, levels[0].TotalSize)
}

func TestProjectDepthTruncation(t *testing.T) {
	mb := book.NewMultiCoinBook()
	addOrder(t, mb, 1, "BTC", domain.Ask, "100", "1")
	addOrder(t, mb, 2, "BTC", domain.Ask, "101", "1")
	addOrder(t, mb, 3, "BTC", domain.Ask, "102", "1")

	snaps := Project(mb, 2)
	require.Len(t, snaps["BTC"].Asks, 2)
}

func TestProjectEmptyBookYieldsEmptyLevels(t *testing.T) {
	mb := book.NewMultiCoinBook()
	addOrder(t, mb, 1, "BTC", domain.Bid, "100", "1")
	mb.CancelOrder(1, "BTC")

	snaps := Project(mb, 0)
	require.Empty(t, snaps["BTC"].Bids)
}

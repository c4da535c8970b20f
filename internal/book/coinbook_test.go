package book

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hlreplicator/orderbook-server/internal/domain"
)

func mustPx(t *testing.T, s string) domain.Px {
	t.Helper()
	px, err := domain.ParsePx(s)
	require.NoError(t, err)
	return px
}

func mustSz(t *testing.T, s string) domain.Sz {
	t.Helper()
	sz, err := domain.ParseSz(s)
	require.NoError(t, err)
	return sz
}

func order(t *testing.T, oid uint64, side domain.Side, px, sz string) domain.L4Order {
	return domain.L4Order{
		Oid:     domain.Oid(oid),
		Side:    side,
		LimitPx: mustPx(t, px),
		Sz:      mustSz(t, sz),
	}
}

func TestCoinBookAddDuplicateOid(t *testing.T) {
	cb := NewCoinBook()
	require.NoError(t, cb.Add(order(t, 1, domain.Bid, "100", "1")))
	require.ErrorIs(t, cb.Add(order(t, 1, domain.Bid, "101", "2")), ErrDuplicateOid)
}

func TestCoinBookBestBidAskOrdering(t *testing.T) {
	cb := NewCoinBook()
	require.NoError(t, cb.Add(order(t, 1, domain.Bid, "100", "1")))
	require.NoError(t, cb.Add(order(t, 2, domain.Bid, "101", "1")))
	require.NoError(t, cb.Add(order(t, 3, domain.Ask, "105", "1")))
	require.NoError(t, cb.Add(order(t, 4, domain.Ask, "104", "1")))

	bestBid, bestAsk, haveBid, haveAsk := cb.BestBidAsk()
	require.True(t, haveBid)
	require.Equal(t, mustPx(t, "101"), bestBid)
	require.True(t, haveAsk)
	require.Equal(t, mustPx(t, "104"), bestAsk)
}

func TestCoinBookModifyAndCancel(t *testing.T) {
	cb := NewCoinBook()
	require.NoError(t, cb.Add(order(t, 1, domain.Bid, "100", "1")))

	require.True(t, cb.ModifySize(1, mustSz(t, "0.5")))
	got, ok := cb.Get(1)
	require.True(t, ok)
	require.Equal(t, mustSz(t, "0.5"), got.Sz)

	require.False(t, cb.ModifySize(999, mustSz(t, "1")))

	require.True(t, cb.Cancel(1))
	require.Equal(t, 0, cb.Len())
	require.False(t, cb.Cancel(1))
}

func TestCoinBookSnapshotFIFOWithinLevel(t *testing.T) {
	cb := NewCoinBook()
	require.NoError(t, cb.Add(order(t, 1, domain.Bid, "100", "1")))
	require.NoError(t, cb.Add(order(t, 2, domain.Bid, "100", "2")))
	require.NoError(t, cb.Add(order(t, 3, domain.Bid, "100", "3")))

	bids, _ := cb.Snapshot()
	require.Len(t, bids, 3)
	for i, want := range []domain.Oid{1, 2, 3} {
		require.Equal(t, want, bids[i].Oid, "bids[%d]", i)
	}
}

func TestCoinBookDropsEmptyLevel(t *testing.T) {
	cb := NewCoinBook()
	require.NoError(t, cb.Add(order(t, 1, domain.Bid, "100", "1")))
	require.NoError(t, cb.Add(order(t, 2, domain.Bid, "101", "1")))
	require.True(t, cb.Cancel(2))

	bestBid, _, haveBid, _ := cb.BestBidAsk()
	require.True(t, haveBid)
	require.Equal(t, mustPx(t, "100"), bestBid)
}

package book

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hlreplicator/orderbook-server/internal/domain"
)

func TestMultiCoinBookLazyCreatesCoin(t *testing.T) {
	mb := NewMultiCoinBook()
	o := order(t, 1, domain.Bid, "100", "1")
	o.Coin = "BTC"
	require.NoError(t, mb.AddOrder(o))

	_, ok := mb.Coin("BTC")
	require.True(t, ok)
	_, ok = mb.Coin("ETH")
	require.False(t, ok)
}

func TestMultiCoinBookCrossCoinIsolation(t *testing.T) {
	mb := NewMultiCoinBook()
	btc := order(t, 1, domain.Bid, "100", "1")
	btc.Coin = "BTC"
	eth := order(t, 1, domain.Bid, "50", "1")
	eth.Coin = "ETH"

	require.NoError(t, mb.AddOrder(btc))
	require.NoError(t, mb.AddOrder(eth), "same oid on a different coin must not collide")

	require.True(t, mb.CancelOrder(1, "BTC"))
	_, ok := mb.Get(1, "ETH")
	require.True(t, ok, "ETH order should be unaffected by BTC cancel")
}

func TestToSnapshotsParallelCoversAllCoins(t *testing.T) {
	mb := NewMultiCoinBook()
	coins := []domain.Coin{"BTC", "ETH", "SOL", "ARB"}
	var oid uint64 = 1
	for _, c := range coins {
		o := order(t, oid, domain.Bid, "100", "1")
		o.Coin = c
		require.NoError(t, mb.AddOrder(o))
		oid++
	}

	snaps := mb.ToSnapshotsParallel()
	require.Len(t, snaps, len(coins))
	for _, c := range coins {
		cs, ok := snaps[c]
		require.True(t, ok, "missing snapshot for %s", c)
		require.Len(t, cs.Bids, 1)
	}
}

func TestFromSnapshotsIgnoreTriggers(t *testing.T) {
	o1 := order(t, 1, domain.Bid, "100", "1")
	o1.Coin = "BTC"
	o2 := order(t, 2, domain.Bid, "99", "1")
	o2.Coin = "BTC"
	o2.IsTrigger = true

	snap := Snapshots{"BTC": CoinSnapshot{Bids: []domain.L4Order{o1, o2}}}
	mb := FromSnapshots(snap, true)

	cb, ok := mb.Coin("BTC")
	require.True(t, ok)
	require.Equal(t, 1, cb.Len(), "trigger order should be filtered on import")
	_, ok = cb.Get(2)
	require.False(t, ok)
}

package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hlreplicator/orderbook-server/internal/book"
	"github.com/hlreplicator/orderbook-server/internal/domain"
	"github.com/hlreplicator/orderbook-server/internal/reconcile"
)

func newStatus(oid uint64, coin domain.Coin, px string) reconcile.OrderStatusEvent {
	return reconcile.OrderStatusEvent{
		Status: "open",
		Order: reconcile.NodeL4Order{
			Oid: oid, Coin: coin, Side: domain.Bid, LimitPx: px, Sz: "1",
			OrderType: "Limit", Tif: "Gtc",
		},
	}
}

func TestEngineApplyUpdatesAdvancesHeight(t *testing.T) {
	e := FromSnapshot(book.Snapshots{}, 0, 0, false, false)

	statuses := reconcile.Batch[reconcile.OrderStatusEvent]{BlockNumber: 1, BlockTime: time.UnixMilli(1000), Events: []reconcile.OrderStatusEvent{newStatus(1, "BTC", "100")}}
	diffs := reconcile.Batch[reconcile.OrderDiffEvent]{BlockNumber: 1, BlockTime: time.UnixMilli(1000), Events: []reconcile.OrderDiffEvent{
		{Oid: 1, Side: domain.Bid, Px: "100", Coin: "BTC", RawBookDiff: reconcile.RawBookDiff{Kind: reconcile.DiffNew, Sz: "1"}},
	}}

	require.NoError(t, e.ApplyUpdates(statuses, diffs))
	require.Equal(t, uint64(1), e.Height())
}

func TestEngineApplyUpdatesRejectsGap(t *testing.T) {
	e := FromSnapshot(book.Snapshots{}, 0, 0, false, false)
	statuses := reconcile.Batch[reconcile.OrderStatusEvent]{BlockNumber: 5}
	diffs := reconcile.Batch[reconcile.OrderDiffEvent]{BlockNumber: 5}
	require.Error(t, e.ApplyUpdates(statuses, diffs))
	require.Equal(t, uint64(0), e.Height())
}

func TestEngineSnappedStateMachine(t *testing.T) {
	e := FromSnapshot(book.Snapshots{}, 0, 0, false, false)

	_, ok := e.L2Snapshots(true)
	require.True(t, ok, "first L2Snapshots call should produce a frame")
	_, ok = e.L2Snapshots(true)
	require.False(t, ok, "second L2Snapshots call at same height should be suppressed")

	statuses := reconcile.Batch[reconcile.OrderStatusEvent]{BlockNumber: 1, BlockTime: time.UnixMilli(1000)}
	diffs := reconcile.Batch[reconcile.OrderDiffEvent]{BlockNumber: 1, BlockTime: time.UnixMilli(1000)}
	require.NoError(t, e.ApplyUpdates(statuses, diffs))

	_, ok = e.L2Snapshots(false)
	require.True(t, ok, "L2Snapshots should produce a frame again after height advances")
}

func TestEngineRoundTripFromSnapshotComputeSnapshot(t *testing.T) {
	snap := book.Snapshots{
		"BTC": book.CoinSnapshot{Bids: []domain.L4Order{{Oid: 1, Coin: "BTC", Side: domain.Bid, LimitPx: 100, Sz: 1}}},
	}
	e := FromSnapshot(snap, 7, 1234, false, false)
	ts := e.ComputeSnapshot()
	require.Equal(t, uint64(7), ts.Height)
	require.Equal(t, uint64(1234), ts.Time)
	require.Len(t, ts.Snapshot["BTC"].Bids, 1)
}

func TestEngineConcurrentReadersDoNotRace(t *testing.T) {
	e := FromSnapshot(book.Snapshots{}, 0, 0, false, false)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.ComputeSnapshot()
			_ = e.Height()
			_ = e.ComputeUniverse()
		}()
	}
	wg.Wait()
}

// TestEngineConcurrentSnapshotVsApplyUpdates exercises ComputeSnapshot
// racing a writer that adds an order on every block and introduces a
// brand-new coin on each of the first 26 blocks, the
// scenario that used to panic with "concurrent map iteration and map
// write" when ComputeSnapshot released its lock before copying.
func TestEngineConcurrentSnapshotVsApplyUpdates(t *testing.T) {
	e := FromSnapshot(book.Snapshots{}, 0, 0, false, false)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = e.ComputeSnapshot()
				_, _ = e.L2Snapshots(false)
				_ = e.L2Snapshot()
			}
		}
	}()

	for i := uint64(1); i <= 200; i++ {
		coin := domain.Coin("COIN" + string(rune('A'+(i%26))))
		statuses := reconcile.Batch[reconcile.OrderStatusEvent]{
			BlockNumber: i, BlockTime: time.UnixMilli(int64(i) * 1000),
			Events: []reconcile.OrderStatusEvent{newStatus(i, coin, "100")},
		}
		diffs := reconcile.Batch[reconcile.OrderDiffEvent]{
			BlockNumber: i, BlockTime: time.UnixMilli(int64(i) * 1000),
			Events: []reconcile.OrderDiffEvent{
				{Oid: i, Side: domain.Bid, Px: "100", Coin: coin, RawBookDiff: reconcile.RawBookDiff{Kind: reconcile.DiffNew, Sz: "1"}},
			},
		}
		require.NoError(t, e.ApplyUpdates(statuses, diffs))
	}

	close(stop)
	wg.Wait()
	require.Equal(t, uint64(200), e.Height())
}

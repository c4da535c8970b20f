package reconcile

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hlreplicator/orderbook-server/internal/domain"
)

// Special addresses whose diffs never produce status records: the engine
// synthesizes book orders for them directly from diff fields.
var (
	AssistanceFund = common.BytesToAddress(repeatByte(0xFE))
	HIP2           = common.BytesToAddress(repeatByte(0xFF))
)

func repeatByte(b byte) []byte {
	out := make([]byte, common.AddressLength)
	for i := range out {
		out[i] = b
	}
	return out
}

// IsSpecialAddress reports whether addr is a recognized special address.
func IsSpecialAddress(addr common.Address) bool {
	return addr == AssistanceFund || addr == HIP2
}

// Batch is a per-block batch of events of one kind (order statuses, order
// diffs, or fills), as delivered by the node-data ingest collaborator.
type Batch[E any] struct {
	LocalTime   time.Time
	BlockTime   time.Time
	BlockNumber uint64
	Events      []E
}

// BlockTimeMillis returns the block time as Unix milliseconds, the
// canonical entry time used when lifting orders into the book.
func (b Batch[E]) BlockTimeMillis() uint64 {
	return uint64(b.BlockTime.UnixMilli())
}

// NodeL4Order is the order metadata carried on an order status event, in
// the wire shape the node emits it (string-encoded price/size) before
// being lifted into a domain.L4Order.
type NodeL4Order struct {
	Oid          uint64
	Coin         domain.Coin
	Side         domain.Side
	LimitPx      string
	Sz           string
	IsTrigger    bool
	TriggerPx    string
	ReduceOnly   bool
	OrderType    string
	Tif          string // empty string means "no tif" (e.g. trigger orders)
	Cloid        string
}

// OrderStatusEvent is one status-stream event: the upstream node's view of
// an order's lifecycle transition.
type OrderStatusEvent struct {
	Time   time.Time
	User   common.Address
	Status string
	Order  NodeL4Order
}

// IsInsertedIntoBook reports whether this status event is book-inserting:
// either the order opened as a non-trigger, non-Ioc order, or a trigger
// order just fired ("triggered").
func (s OrderStatusEvent) IsInsertedIntoBook() bool {
	if s.Status == "open" && !s.Order.IsTrigger && s.Order.Tif != "Ioc" {
		return true
	}
	if s.Order.IsTrigger && s.Status == "triggered" {
		return true
	}
	return false
}

// DiffKind discriminates the three raw book diff shapes.
type DiffKind int

const (
	// DiffNew introduces a new resting order.
	DiffNew DiffKind = iota
	// DiffUpdate changes the resting size of an existing order.
	DiffUpdate
	// DiffRemove removes an existing order.
	DiffRemove
)

// RawBookDiff is the decoded diff payload: New carries the order's full
// initial size, Update carries its new resting size, Remove carries
// nothing.
type RawBookDiff struct {
	Kind  DiffKind
	Sz    string // valid when Kind == DiffNew
	NewSz string // valid when Kind == DiffUpdate
}

// OrderDiffEvent is one raw-book-diff-stream event.
type OrderDiffEvent struct {
	User        common.Address
	Oid         uint64
	Side        domain.Side
	Px          string
	Coin        domain.Coin
	RawBookDiff RawBookDiff
}

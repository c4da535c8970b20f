package domain

import "github.com/ethereum/go-ethereum/common"

// L4Order is a single resting limit order with full book metadata. All
// attributes other than Sz and Timestamp are immutable for the lifetime of
// the order in the book.
type L4Order struct {
	User       common.Address
	Coin       Coin
	Side       Side
	LimitPx    Px
	Sz         Sz
	Oid        Oid
	Timestamp  uint64 // milliseconds
	IsTrigger  bool
	TriggerPx  Px
	ReduceOnly bool
	OrderType  string
	Tif        string
	Cloid      string
}

// DecrementSz saturates the order's size down by dec, per Sz.Decrement.
func (o *L4Order) DecrementSz(dec Sz) { o.Sz = o.Sz.Decrement(dec) }

// ModifySz overwrites the order's size. A zero size is permitted: the diff
// stream, not the book, owns removal.
func (o *L4Order) ModifySz(sz Sz) { o.Sz = sz }

// ConvertTrigger rewrites the order's entry timestamp to ts. For an order
// in the book the block time is the canonical entry time, not the original
// status timestamp; the reconciler sets that timestamp directly when it
// lifts a status-sourced order and does not call this method.
func (o *L4Order) ConvertTrigger(ts uint64) { o.Timestamp = ts }

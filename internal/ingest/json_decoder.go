package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hlreplicator/orderbook-server/internal/domain"
	"github.com/hlreplicator/orderbook-server/internal/reconcile"
)

// JSONDecoder decodes node-data batch files that have already been
// rendered to JSON matching the field names in spec §6. Real node output
// is a different wire format; this decoder exists so the ingest pipeline
// can be exercised end to end without depending on that undocumented
// format.
type JSONDecoder struct{}

type jsonBatch[E any] struct {
	LocalTime   time.Time `json:"local_time"`
	BlockTime   time.Time `json:"block_time"`
	BlockNumber uint64    `json:"block_number"`
	Events      []E       `json:"events"`
}

type jsonL4Order struct {
	Oid        uint64 `json:"oid"`
	Coin       string `json:"coin"`
	Side       string `json:"side"` // "B" or "A"
	LimitPx    string `json:"limit_px"`
	Sz         string `json:"sz"`
	IsTrigger  bool   `json:"is_trigger"`
	TriggerPx  string `json:"trigger_px"`
	ReduceOnly bool   `json:"reduce_only"`
	OrderType  string `json:"order_type"`
	Tif        string `json:"tif"`
	Cloid      string `json:"cloid"`
}

type jsonOrderStatus struct {
	Time   time.Time   `json:"time"`
	User   string      `json:"user"`
	Status string      `json:"status"`
	Order  jsonL4Order `json:"order"`
}

type jsonRawBookDiff struct {
	Kind  string `json:"kind"` // "New" | "Update" | "Remove"
	Sz    string `json:"sz,omitempty"`
	NewSz string `json:"new_sz,omitempty"`
}

type jsonOrderDiff struct {
	User        string          `json:"user"`
	Oid         uint64          `json:"oid"`
	Side        string          `json:"side"`
	Px          string          `json:"px"`
	Coin        string          `json:"coin"`
	RawBookDiff jsonRawBookDiff `json:"raw_book_diff"`
}

func parseSide(s string) domain.Side {
	if s == "B" {
		return domain.Bid
	}
	return domain.Ask
}

// DecodeStatuses implements BatchDecoder.
func (JSONDecoder) DecodeStatuses(data []byte) (reconcile.Batch[reconcile.OrderStatusEvent], error) {
	var raw jsonBatch[jsonOrderStatus]
	if err := json.Unmarshal(data, &raw); err != nil {
		return reconcile.Batch[reconcile.OrderStatusEvent]{}, fmt.Errorf("ingest: decode status batch: %w", err)
	}
	events := make([]reconcile.OrderStatusEvent, len(raw.Events))
	for i, e := range raw.Events {
		events[i] = reconcile.OrderStatusEvent{
			Time:   e.Time,
			User:   common.HexToAddress(e.User),
			Status: e.Status,
			Order: reconcile.NodeL4Order{
				Oid:        e.Order.Oid,
				Coin:       domain.Coin(e.Order.Coin),
				Side:       parseSide(e.Order.Side),
				LimitPx:    e.Order.LimitPx,
				Sz:         e.Order.Sz,
				IsTrigger:  e.Order.IsTrigger,
				TriggerPx:  e.Order.TriggerPx,
				ReduceOnly: e.Order.ReduceOnly,
				OrderType:  e.Order.OrderType,
				Tif:        e.Order.Tif,
				Cloid:      e.Order.Cloid,
			},
		}
	}
	return reconcile.Batch[reconcile.OrderStatusEvent]{
		LocalTime:   raw.LocalTime,
		BlockTime:   raw.BlockTime,
		BlockNumber: raw.BlockNumber,
		Events:      events,
	}, nil
}

// DecodeDiffs implements BatchDecoder.
func (JSONDecoder) DecodeDiffs(data []byte) (reconcile.Batch[reconcile.OrderDiffEvent], error) {
	var raw jsonBatch[jsonOrderDiff]
	if err := json.Unmarshal(data, &raw); err != nil {
		return reconcile.Batch[reconcile.OrderDiffEvent]{}, fmt.Errorf("ingest: decode diff batch: %w", err)
	}
	events := make([]reconcile.OrderDiffEvent, len(raw.Events))
	for i, e := range raw.Events {
		kind := reconcile.DiffNew
		switch e.RawBookDiff.Kind {
		case "Update":
			kind = reconcile.DiffUpdate
		case "Remove":
			kind = reconcile.DiffRemove
		}
		events[i] = reconcile.OrderDiffEvent{
			User: common.HexToAddress(e.User),
			Oid:  e.Oid,
			Side: parseSide(e.Side),
			Px:   e.Px,
			Coin: domain.Coin(e.Coin),
			RawBookDiff: reconcile.RawBookDiff{
				Kind:  kind,
				Sz:    e.RawBookDiff.Sz,
				NewSz: e.RawBookDiff.NewSz,
			},
		}
	}
	return reconcile.Batch[reconcile.OrderDiffEvent]{
		LocalTime:   raw.LocalTime,
		BlockTime:   raw.BlockTime,
		BlockNumber: raw.BlockNumber,
		Events:      events,
	}, nil
}

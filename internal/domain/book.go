package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Notional is price x quantity for the level.
func (l BookLevel) Notional() decimal.Decimal {
	return l.Price.Mul(l.Quantity)
}

// OrderBookSnapshot is one venue's depth for a symbol at a point in time.
// Bids are descending by price, asks ascending. Synthetic books assembled
// from DEX impact probes share this shape.
type OrderBookSnapshot struct {
	VenueID     string      `json:"venue_id"`
	Symbol      string      `json:"symbol"`
	Bids        []BookLevel `json:"bids"`
	Asks        []BookLevel `json:"asks"`
	VenueTime   time.Time   `json:"venue_time"`
	RequestedAt time.Time   `json:"requested_at"`
	ReceivedAt  time.Time   `json:"received_at"`
	Cached      bool        `json:"cached"`
}

// BestBid returns the top bid level, or false on an empty side.
func (b *OrderBookSnapshot) BestBid() (BookLevel, bool) {
	if len(b.Bids) == 0 {
		return BookLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the top ask level, or false on an empty side.
func (b *OrderBookSnapshot) BestAsk() (BookLevel, bool) {
	if len(b.Asks) == 0 {
		return BookLevel{}, false
	}
	return b.Asks[0], true
}

// LatencyMS is the request round-trip in milliseconds. Cached snapshots
// report zero since no request was made.
func (b *OrderBookSnapshot) LatencyMS() int64 {
	if b.Cached || b.ReceivedAt.Before(b.RequestedAt) {
		return 0
	}
	return b.ReceivedAt.Sub(b.RequestedAt).Milliseconds()
}

// Side selects a book side by name ("bids" or "asks").
func (b *OrderBookSnapshot) Side(name string) []BookLevel {
	if name == "bids" {
		return b.Bids
	}
	return b.Asks
}

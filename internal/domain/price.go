package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one venue's latest quote for a symbol.
type PriceRecord struct {
	VenueID    string          `json:"venue_id"`
	Symbol     string          `json:"symbol"`
	Kind       VenueKind       `json:"kind"`
	Bid        decimal.Decimal `json:"bid"`
	Ask        decimal.Decimal `json:"ask"`
	Last       decimal.Decimal `json:"last"`
	VenueTime  time.Time       `json:"venue_time"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Valid enforces the ingest invariants: both sides positive and bid not
// above ask. Records failing this are discarded before they reach the store.
func (r PriceRecord) Valid() bool {
	if !r.Bid.IsPositive() || !r.Ask.IsPositive() {
		return false
	}
	return r.Bid.LessThanOrEqual(r.Ask)
}

// Age is the time since local receipt.
func (r PriceRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.ReceivedAt)
}

// Fresh reports whether the record is younger than the given TTL.
func (r PriceRecord) Fresh(now time.Time, ttl time.Duration) bool {
	return r.Age(now) <= ttl
}

// BidAskSpreadPct is the venue's own spread, (ask-bid)/bid x 100.
func (r PriceRecord) BidAskSpreadPct() decimal.Decimal {
	if r.Bid.IsZero() {
		return decimal.Zero
	}
	return r.Ask.Sub(r.Bid).Div(r.Bid).Mul(decimal.NewFromInt(100))
}

// PriceMap is the per-tick union written under prices:latest, keyed
// "venue_id:SYMBOL".
type PriceMap map[string]PriceRecord

// PriceKey builds the map key for (venue, symbol).
func PriceKey(venueID, symbol string) string {
	return venueID + ":" + symbol
}

// FundingRate is one perp venue's current funding for a symbol.
type FundingRate struct {
	VenueID     string          `json:"venue_id"`
	Symbol      string          `json:"symbol"`
	Rate        decimal.Decimal `json:"rate"`
	NextFunding time.Time       `json:"next_funding"`
	PeriodHours int             `json:"period_hours"`
	ReceivedAt  time.Time       `json:"received_at"`
}

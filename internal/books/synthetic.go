package books

import (
	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/venues"
)

// syntheticHalfSpread separates the synthetic bid ladder from the ask
// ladder; pools quote a single price, so a nominal spread is imposed.
var syntheticHalfSpread = decimal.RequireFromString("0.005")

var one = decimal.NewFromInt(1)

// BuildSynthetic shapes a depth ladder from pool impact probes. Ask levels
// carry the incremental notional of each probe at its effective price; bids
// mirror the same impact below spot, shifted down by the half spread.
// Constant-product pools are symmetric enough for sizing decisions, which is
// all downstream consumers use the bid side for.
func BuildSynthetic(venueID, symbol string, spot decimal.Decimal, quotes []venues.ImpactQuote) *domain.OrderBookSnapshot {
	book := &domain.OrderBookSnapshot{VenueID: venueID, Symbol: symbol}
	if !spot.IsPositive() {
		return book
	}

	prevNotional := decimal.Zero
	for _, q := range quotes {
		if !q.EffectivePrice.IsPositive() || !q.NotionalUSD.GreaterThan(prevNotional) {
			continue
		}
		slice := q.NotionalUSD.Sub(prevNotional)
		prevNotional = q.NotionalUSD

		askQty := slice.Div(q.EffectivePrice)
		book.Asks = append(book.Asks, domain.BookLevel{
			Price:    q.EffectivePrice,
			Quantity: askQty,
		})

		// mirror: same relative impact on the sell side, below spot
		impact := q.EffectivePrice.Div(spot).Sub(one)
		bidPrice := spot.Mul(one.Sub(syntheticHalfSpread).Sub(impact))
		if !bidPrice.IsPositive() {
			continue
		}
		book.Bids = append(book.Bids, domain.BookLevel{
			Price:    bidPrice,
			Quantity: slice.Div(bidPrice),
		})
	}
	return book
}

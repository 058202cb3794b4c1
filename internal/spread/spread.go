package spread

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
)

// MaxRealisticSpreadPct discards pairs whose nominal spread is implausible;
// above it the two venues are almost certainly listing different assets
// under one symbol.
var MaxRealisticSpreadPct = decimal.NewFromInt(50)

// exitSlippageCapPct is the band used for exit-liquidity depth sums.
var exitSlippageCapPct = decimal.NewFromInt(1)

// NominalSpreadPct is (high bid - low ask) / low ask x 100. The boolean is
// false when the denominator is zero; such candidates never validate.
func NominalSpreadPct(highBid, lowAsk decimal.Decimal) (decimal.Decimal, bool) {
	if !lowAsk.IsPositive() {
		return decimal.Zero, false
	}
	return highBid.Sub(lowAsk).Div(lowAsk).Mul(hundred), true
}

// RealSpreadPct is the executable variant over depth-walked average fills.
func RealSpreadPct(execSell, execBuy decimal.Decimal) (decimal.Decimal, bool) {
	if !execBuy.IsPositive() {
		return decimal.Zero, false
	}
	return execSell.Sub(execBuy).Div(execBuy).Mul(hundred), true
}

// niceSteps is the ladder positions snap onto, descending.
var niceSteps = []int64{50000, 25000, 10000, 5000, 2500, 1000, 500, 250, 100}

// SuggestPositionUSD sizes a position at half the tighter closing side,
// capped, snapped down to a round figure.
func SuggestPositionUSD(lowBidsDepth, highAsksDepth, capUSD decimal.Decimal) decimal.Decimal {
	tighter := lowBidsDepth
	if highAsksDepth.LessThan(tighter) {
		tighter = highAsksDepth
	}
	half := tighter.Div(decimal.NewFromInt(2))
	if half.GreaterThan(capUSD) {
		half = capUSD
	}
	for _, step := range niceSteps {
		s := decimal.NewFromInt(step)
		if half.GreaterThanOrEqual(s) {
			return s
		}
	}
	return decimal.Zero
}

// Calculator assembles raw opportunities.
type Calculator struct {
	// MaxPositionUSD caps suggested sizes.
	MaxPositionUSD decimal.Decimal
}

// Build computes every quantitative field of an opportunity for an oriented
// pair. The caller supplies fresh price records and both books.
func (c Calculator) Build(pair domain.ArbPair, low, high domain.PriceRecord,
	lowBook, highBook *domain.OrderBookSnapshot) domain.Opportunity {

	opp := domain.Opportunity{
		Pair:      pair,
		LowPrice:  low,
		HighPrice: high,
		LowBook:   *lowBook,
		HighBook:  *highBook,
		CreatedAt: time.Now(),
	}

	nominal, ok := NominalSpreadPct(high.Bid, low.Ask)
	if !ok {
		opp.NonFinite = true
		return opp
	}
	opp.NominalSpreadPct = nominal

	opp.LowBidsDepthUSD = DepthWithinSlippage(lowBook.Bids, exitSlippageCapPct)
	opp.HighAsksDepthUSD = DepthWithinSlippage(highBook.Asks, exitSlippageCapPct)
	opp.PositionUSD = SuggestPositionUSD(opp.LowBidsDepthUSD, opp.HighAsksDepthUSD, c.MaxPositionUSD)

	size := opp.PositionUSD
	if !size.IsPositive() {
		size = decimal.NewFromInt(100) // probe size for the exec numbers
	}
	opp.BuyExec = WalkBook(lowBook.Asks, size)
	opp.SellExec = WalkBook(highBook.Bids, size)

	real, ok := RealSpreadPct(opp.SellExec.AvgPrice, opp.BuyExec.AvgPrice)
	if !ok {
		opp.NonFinite = true
		return opp
	}
	opp.RealSpreadPct = real
	return opp
}

// Package spread quantifies opportunities: executable prices from depth
// walks, slippage, nominal and real spreads, exit liquidity and lag
// detection. Everything here is pure decimal arithmetic; floats exist only
// at the boundaries.
package spread

import (
	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// WalkBook consumes levels from the top of one side until the cumulative
// level value reaches the target notional. The last level is partially
// consumed.
func WalkBook(levels []domain.BookLevel, notionalUSD decimal.Decimal) domain.ExecQuote {
	q := domain.ExecQuote{}
	if len(levels) == 0 || !notionalUSD.IsPositive() {
		q.UnfilledUSD = notionalUSD
		return q
	}
	q.BestPrice = levels[0].Price

	remaining := notionalUSD
	totalUSD := decimal.Zero
	totalQty := decimal.Zero

	for _, lvl := range levels {
		if !lvl.Price.IsPositive() || !lvl.Quantity.IsPositive() {
			continue
		}
		levelValue := lvl.Notional()
		q.LevelsConsumed++
		if levelValue.GreaterThanOrEqual(remaining) {
			qty := remaining.Div(lvl.Price)
			totalUSD = totalUSD.Add(remaining)
			totalQty = totalQty.Add(qty)
			remaining = decimal.Zero
			break
		}
		totalUSD = totalUSD.Add(levelValue)
		totalQty = totalQty.Add(lvl.Quantity)
		remaining = remaining.Sub(levelValue)
	}

	q.FullyFilled = remaining.IsZero()
	q.UnfilledUSD = remaining
	if totalQty.IsPositive() {
		q.AvgPrice = totalUSD.Div(totalQty)
	}
	if q.BestPrice.IsPositive() && q.AvgPrice.IsPositive() {
		q.SlippagePct = q.AvgPrice.Sub(q.BestPrice).Abs().Div(q.BestPrice).Mul(hundred)
	}
	return q
}

// DepthWithinSlippage sums the USD value of levels whose price movement
// from the top of the side stays within the slippage cap.
func DepthWithinSlippage(levels []domain.BookLevel, maxSlippagePct decimal.Decimal) decimal.Decimal {
	if len(levels) == 0 || !levels[0].Price.IsPositive() {
		return decimal.Zero
	}
	top := levels[0].Price
	total := decimal.Zero
	for _, lvl := range levels {
		if !lvl.Price.IsPositive() {
			continue
		}
		movement := lvl.Price.Sub(top).Abs().Div(top).Mul(hundred)
		if movement.GreaterThan(maxSlippagePct) {
			break
		}
		total = total.Add(lvl.Notional())
	}
	return total
}

// Package signal turns validated opportunities into dispatchable signals:
// fee accounting, net spread, action plans and per-venue links.
package signal

import (
	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
)

// Taker fee per side in percent, by venue kind. DEX swaps carry the pool
// fee; CEX figures are the common base-tier taker rates.
var feePctPerSide = map[domain.VenueKind]decimal.Decimal{
	domain.KindDexSpot:    decimal.RequireFromString("0.3"),
	domain.KindCexSpot:    decimal.RequireFromString("0.1"),
	domain.KindCexFutures: decimal.RequireFromString("0.06"),
	domain.KindPerpDex:    decimal.RequireFromString("0.1"),
}

// Fees itemises the round trip: entry opens both legs, exit closes both.
func Fees(pair domain.ArbPair) domain.FeeBreakdown {
	perLeg := feePctPerSide[pair.Low.Kind].Add(feePctPerSide[pair.High.Kind])
	return domain.FeeBreakdown{
		EntryPct: perLeg,
		ExitPct:  perLeg,
		TotalPct: perLeg.Mul(decimal.NewFromInt(2)),
	}
}

package alert

import (
	"fmt"
	"strings"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
)

// Render builds the Telegram text for a signal. Plain text, one fact per
// line; Telegram clients linkify the URLs themselves.
func Render(sig *domain.Signal) string {
	var b strings.Builder

	header := "ARBITRAGE"
	switch sig.Type {
	case domain.SignalManual:
		header = "ARBITRAGE (manual transfer)"
	case domain.SignalLagging:
		header = "LAGGING VENUE"
	}
	fmt.Fprintf(&b, "%s %s [%s]\n", header, sig.Pair.Symbol, sig.StrategyType)
	fmt.Fprintf(&b, "%s -> %s\n", sig.Pair.Low.ID, sig.Pair.High.ID)
	fmt.Fprintf(&b, "Spread: %s%% nominal / %s%% real / %s%% net of fees\n",
		sig.NominalSpreadPct.StringFixed(2), sig.RealSpreadPct.StringFixed(2),
		sig.NetSpreadPct.StringFixed(2))
	fmt.Fprintf(&b, "Size: $%s (exit depth $%s)\n",
		sig.PositionUSD.StringFixed(0), sig.ExitLiquidityUSD().StringFixed(0))

	if sig.Lagging != nil {
		fmt.Fprintf(&b, "Lagging: %s at %s, %s%% off median\n",
			sig.Lagging.VenueID, sig.Lagging.Price.String(),
			sig.Lagging.DeviationPct.StringFixed(2))
	}

	b.WriteString("\n")
	for i, a := range sig.Actions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a)
	}

	if len(sig.Validation.Warnings) > 0 {
		b.WriteString("\n")
		for _, w := range sig.Validation.Warnings {
			fmt.Fprintf(&b, "WARNING: %s\n", w)
		}
	}

	b.WriteString("\n")
	if sig.Links.Buy != "" {
		fmt.Fprintf(&b, "Buy: %s\n", sig.Links.Buy)
	}
	if sig.Links.Sell != "" {
		fmt.Fprintf(&b, "Sell: %s\n", sig.Links.Sell)
	}
	if sig.Links.Chart != "" {
		fmt.Fprintf(&b, "Chart: %s\n", sig.Links.Chart)
	}
	fmt.Fprintf(&b, "id: %s", sig.StrategyID)
	return b.String()
}

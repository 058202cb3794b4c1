package signal

import (
	"fmt"
	"strings"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
)

// tradeURL builds the venue's trade page for a symbol. The ticker supplies
// contract addresses for DEX venues.
func tradeURL(venue domain.Venue, symbol string, contracts map[string]string) string {
	switch {
	case venue.Exchange == "binance" && venue.Kind == domain.KindCexSpot:
		return fmt.Sprintf("https://www.binance.com/en/trade/%s_USDT", symbol)
	case venue.Exchange == "binance" && venue.Kind == domain.KindCexFutures:
		return fmt.Sprintf("https://www.binance.com/en/futures/%sUSDT", symbol)
	case venue.Exchange == "bybit" && venue.Kind == domain.KindCexSpot:
		return fmt.Sprintf("https://www.bybit.com/en/trade/spot/%s/USDT", symbol)
	case venue.Exchange == "bybit" && venue.Kind == domain.KindCexFutures:
		return fmt.Sprintf("https://www.bybit.com/trade/usdt/%sUSDT", symbol)
	case venue.Exchange == "kraken":
		return fmt.Sprintf("https://pro.kraken.com/app/trade/%s-usd", strings.ToLower(symbol))
	case venue.Exchange == "hyperliquid":
		return fmt.Sprintf("https://app.hyperliquid.xyz/trade/%s", symbol)
	case venue.Kind == domain.KindDexSpot:
		if contract, ok := contracts[venue.Chain]; ok {
			return fmt.Sprintf("https://dexscreener.com/%s/%s", venue.Chain, contract)
		}
	}
	return ""
}

// chartURL prefers the pool chart when either leg is a DEX, falling back to
// TradingView for pure CEX pairs.
func chartURL(pair domain.ArbPair, contracts map[string]string) string {
	for _, v := range []domain.Venue{pair.Low, pair.High} {
		if v.Kind == domain.KindDexSpot {
			if contract, ok := contracts[v.Chain]; ok {
				return fmt.Sprintf("https://dexscreener.com/%s/%s", v.Chain, contract)
			}
		}
	}
	return fmt.Sprintf("https://www.tradingview.com/chart/?symbol=%sUSDT", pair.Symbol)
}

package store

import "fmt"

// Namespace prefixes every key the scanner writes.
const Namespace = "arb"

func k(format string, args ...interface{}) string {
	return Namespace + ":" + fmt.Sprintf(format, args...)
}

// Key builders for the published schema. Keeping them in one place keeps the
// schema greppable.

func TickerKey(symbol string) string            { return k("tickers:master:%s", symbol) }
func AllSymbolsKey() string                     { return k("tickers:all_symbols") }
func ByExchangeKey(exch, market string) string  { return k("tickers:by_exchange:%s:%s", exch, market) }
func TickersLastUpdateKey() string              { return k("tickers:last_update") }
func ContractKey(chain, addr string) string     { return k("contracts:%s:%s", chain, addr) }
func PricesLatestKey() string                   { return k("prices:latest") }
func PricesLastUpdateKey() string               { return k("prices:last_update") }
func OrderbookCacheKey(venue, sym string) string { return k("orderbook:cache:%s:%s", venue, sym) }
func FundingKey(venue, sym string) string       { return k("funding:%s:%s", venue, sym) }
func CooldownKey(pairID string) string          { return k("alert:cooldown:%s", pairID) }
func BlacklistSymbolsKey() string               { return k("blacklist:symbols") }
func BlacklistPairsKey() string                 { return k("blacklist:pairs") }
func SettingKey(name string) string             { return k("config:%s", name) }
func DepthBaselineKey(pairID, venue, side string) string {
	return k("baseline:%s:%s:%s", pairID, venue, side)
}
func SpreadAgeKey(pairID string) string { return k("spreadage:%s", pairID) }
func HealthKey(component string) string { return k("health:%s", component) }
func SignalHistoryKey() string          { return k("signals:recent") }

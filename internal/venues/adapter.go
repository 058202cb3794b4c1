// Package venues defines the uniform read-only adapter contract for remote
// marketplaces and the enumerated registry of concrete adapters.
package venues

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
)

// SymbolInfo is one listed instrument, filtered to active USDT-or-equivalent
// quoted markets by the adapter.
type SymbolInfo struct {
	Symbol     string // venue-native instrument name
	BaseAsset  string
	QuoteAsset string
	Status     string
}

// TickerQuote is one instrument's top-of-book from a batch ticker call.
type TickerQuote struct {
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Last      decimal.Decimal
	Timestamp time.Time
}

// AssetDetails carries the deposit/withdraw network metadata for one asset
// on one exchange.
type AssetDetails struct {
	Coin     string
	Networks []domain.NetworkInfo
}

// Adapter is the uniform interface to one exchange. A single adapter may
// back several venues (spot and futures of the same exchange). Adapters are
// read-only, never panic across the boundary, and surface every failure as a
// *VenueError.
type Adapter interface {
	// Exchange is the owning exchange id, e.g. "binance".
	Exchange() string

	// Venues enumerates the venue records this adapter backs.
	Venues() []domain.Venue

	// FuturesSymbols lists active perpetual instruments. Adapters without
	// a futures market return an empty list and no error.
	FuturesSymbols(ctx context.Context) ([]SymbolInfo, error)

	// SpotSymbols lists active spot instruments.
	SpotSymbols(ctx context.Context) ([]SymbolInfo, error)

	// Tickers returns the full quote map for one market kind in as few
	// remote calls as the venue permits (one batch call where available).
	Tickers(ctx context.Context, kind domain.VenueKind) (map[string]TickerQuote, error)

	// OrderBook fetches depth for one native symbol.
	OrderBook(ctx context.Context, symbol string, depth int, kind domain.VenueKind) (*domain.OrderBookSnapshot, error)
}

// AssetDetailSource is implemented by CEX adapters that expose transfer
// network metadata.
type AssetDetailSource interface {
	AssetDetails(ctx context.Context, asset string) (*AssetDetails, error)
}

// FundingSource is implemented by perp venues.
type FundingSource interface {
	FundingRate(ctx context.Context, symbol string) (*domain.FundingRate, error)
}

// DexTokenPrice is one pool-backed token price from a DEX aggregator.
type DexTokenPrice struct {
	Contract     string
	Symbol       string
	PriceUSD     decimal.Decimal
	LiquidityUSD decimal.Decimal
	Volume24hUSD decimal.Decimal
}

// ImpactQuote is the effective outcome of swapping a notional USD amount.
type ImpactQuote struct {
	NotionalUSD    decimal.Decimal
	EffectivePrice decimal.Decimal
	TokensOut      decimal.Decimal
}

// DexSource is implemented by DEX aggregator adapters. They have no true
// order books; the books package turns impact curves into synthetic ladders.
type DexSource interface {
	// Chain is the chain this source serves, e.g. "solana".
	Chain() string

	// BulkPrices fetches prices for many contracts in one request.
	BulkPrices(ctx context.Context, contracts []string) (map[string]DexTokenPrice, error)

	// TokenLiquidity looks up a single contract's best pool.
	TokenLiquidity(ctx context.Context, contract string) (*DexTokenPrice, bool, error)

	// ImpactCurve probes a ladder of notional sizes against the pool.
	ImpactCurve(ctx context.Context, contract string, notionals []decimal.Decimal) ([]ImpactQuote, error)
}

// DefaultDepth is the order-book depth requested when callers pass zero.
const DefaultDepth = 20

// ImpactProbesUSD is the fixed notional ladder used to shape synthetic DEX
// books, smallest first.
var ImpactProbesUSD = []decimal.Decimal{
	decimal.NewFromInt(100),
	decimal.NewFromInt(500),
	decimal.NewFromInt(1000),
	decimal.NewFromInt(2500),
	decimal.NewFromInt(5000),
	decimal.NewFromInt(10000),
	decimal.NewFromInt(25000),
	decimal.NewFromInt(50000),
}

package signal

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dexFuturesOpportunity() *domain.Opportunity {
	low := domain.Venue{ID: "dex_solana", Exchange: "dexscreener", Kind: domain.KindDexSpot, Chain: "solana"}
	high := domain.Venue{ID: "binance_futures", Exchange: "binance", Kind: domain.KindCexFutures}
	pair := domain.NewPair("WIF", low, high, nil)
	return &domain.Opportunity{
		Pair:             pair,
		NominalSpreadPct: d("5.18"),
		RealSpreadPct:    d("5.18"),
		PositionUSD:      d("10000"),
		CreatedAt:        time.Now(),
	}
}

func wifTicker() *domain.Ticker {
	return &domain.Ticker{
		Symbol:    "WIF",
		Contracts: map[string]string{"solana": "WifContract111"},
	}
}

func validResult() domain.ValidationResult {
	return domain.ValidationResult{Valid: true}
}

func TestBuildDexFuturesSignal(t *testing.T) {
	b := NewBuilder()
	sig := b.Build(dexFuturesOpportunity(), validResult(), config.DefaultSettings(), wifTicker())

	assert.Equal(t, "DF", sig.StrategyType)
	assert.Equal(t, domain.SignalAuto, sig.Type)
	assert.Equal(t, domain.StatusValid, sig.Status)

	// dex 0.3 + futures 0.06 per leg, doubled for the round trip
	assert.Equal(t, "0.36", sig.Fees.EntryPct.String())
	assert.Equal(t, "0.72", sig.Fees.TotalPct.String())
	assert.Equal(t, "4.46", sig.NetSpreadPct.String())
}

func TestStrategyIDShape(t *testing.T) {
	b := NewBuilder()
	b.now = func() time.Time { return time.Unix(1756100000, 0) }

	sig1 := b.Build(dexFuturesOpportunity(), validResult(), config.DefaultSettings(), wifTicker())
	sig2 := b.Build(dexFuturesOpportunity(), validResult(), config.DefaultSettings(), wifTicker())

	assert.True(t, strings.HasPrefix(sig1.StrategyID, "DF-WIF-S5.18-"))
	assert.NotEqual(t, sig1.StrategyID, sig2.StrategyID, "same second must still yield unique ids")
}

func TestActionsAutoPair(t *testing.T) {
	b := NewBuilder()
	sig := b.Build(dexFuturesOpportunity(), validResult(), config.DefaultSettings(), wifTicker())

	require.Len(t, sig.Actions, 4)
	assert.Equal(t, "BUY WIF on dex_solana", sig.Actions[0])
	assert.Equal(t, "SHORT WIF on binance_futures", sig.Actions[1])
	assert.Equal(t, "Enter in parts, match sizes", sig.Actions[2])
	assert.Equal(t, "Wait for convergence", sig.Actions[3])
}

func TestActionsManualTransferPair(t *testing.T) {
	low := domain.Venue{ID: "binance_spot", Exchange: "binance", Kind: domain.KindCexSpot,
		Networks: []string{"solana"}}
	high := domain.Venue{ID: "bybit_spot", Exchange: "bybit", Kind: domain.KindCexSpot,
		Networks: []string{"solana"}}
	pair := domain.NewPair("WIF", low, high, nil)
	require.Equal(t, domain.PairManual, pair.Type)
	require.Equal(t, "solana", pair.TransferNetwork)

	opp := dexFuturesOpportunity()
	opp.Pair = pair

	b := NewBuilder()
	sig := b.Build(opp, validResult(), config.DefaultSettings(), wifTicker())

	assert.Equal(t, domain.SignalManual, sig.Type)
	assert.Equal(t, "SS", sig.StrategyType)
	require.Len(t, sig.Actions, 5)
	assert.Equal(t, "SELL WIF on bybit_spot", sig.Actions[1])
	assert.Contains(t, sig.Actions[2], "Transfer via solana")
}

func TestBuildLinks(t *testing.T) {
	b := NewBuilder()
	sig := b.Build(dexFuturesOpportunity(), validResult(), config.DefaultSettings(), wifTicker())

	assert.Equal(t, "https://dexscreener.com/solana/WifContract111", sig.Links.Buy)
	assert.Equal(t, "https://www.binance.com/en/futures/WIFUSDT", sig.Links.Sell)
	assert.Equal(t, "https://dexscreener.com/solana/WifContract111", sig.Links.Chart)
}

func TestChartFallsBackToTradingView(t *testing.T) {
	low := domain.Venue{ID: "binance_spot", Exchange: "binance", Kind: domain.KindCexSpot}
	high := domain.Venue{ID: "bybit_futures", Exchange: "bybit", Kind: domain.KindCexFutures}
	opp := dexFuturesOpportunity()
	opp.Pair = domain.NewPair("WIF", low, high, nil)

	b := NewBuilder()
	sig := b.Build(opp, validResult(), config.DefaultSettings(), nil)

	assert.Equal(t, "https://www.binance.com/en/trade/WIF_USDT", sig.Links.Buy)
	assert.Equal(t, "https://www.bybit.com/trade/usdt/WIFUSDT", sig.Links.Sell)
	assert.Equal(t, "https://www.tradingview.com/chart/?symbol=WIFUSDT", sig.Links.Chart)
}

func TestFailedValidationYieldsInvalidSignal(t *testing.T) {
	b := NewBuilder()
	res := domain.ValidationResult{Valid: false, FailedChecks: []string{"exit_liquidity"}}
	sig := b.Build(dexFuturesOpportunity(), res, config.DefaultSettings(), wifTicker())

	assert.Equal(t, domain.SignalInvalid, sig.Type)
	assert.Equal(t, domain.StatusFailed, sig.Status)
	assert.Contains(t, sig.StatusNote, "1 checks failed")
}

func TestContractConflictSuppressesAuto(t *testing.T) {
	b := NewBuilder()
	opp := dexFuturesOpportunity()
	opp.Pair.ContractConflict = true

	sig := b.Build(opp, validResult(), config.DefaultSettings(), wifTicker())
	assert.Equal(t, domain.SignalInvalid, sig.Type)
	assert.Equal(t, domain.StatusFailed, sig.Status)
}

func TestContractConflictWarnsManual(t *testing.T) {
	low := domain.Venue{ID: "binance_spot", Exchange: "binance", Kind: domain.KindCexSpot,
		Networks: []string{"solana"}}
	high := domain.Venue{ID: "bybit_spot", Exchange: "bybit", Kind: domain.KindCexSpot,
		Networks: []string{"solana"}}
	opp := dexFuturesOpportunity()
	opp.Pair = domain.NewPair("WIF", low, high, nil)
	opp.Pair.ContractConflict = true

	b := NewBuilder()
	sig := b.Build(opp, validResult(), config.DefaultSettings(), wifTicker())

	assert.Equal(t, domain.StatusValid, sig.Status)
	require.NotEmpty(t, sig.Validation.Warnings)
	assert.Contains(t, sig.Validation.Warnings[0], "contract address conflict")
}

func TestLaggingSignalType(t *testing.T) {
	opp := dexFuturesOpportunity()
	opp.Lagging = &domain.LaggingInfo{VenueID: "binance_futures", DeviationPct: d("6.2")}

	b := NewBuilder()
	sig := b.Build(opp, validResult(), config.DefaultSettings(), wifTicker())
	assert.Equal(t, domain.SignalLagging, sig.Type)

	settings := config.DefaultSettings()
	settings.EnableLaggingSignals = false
	sig = b.Build(opp, validResult(), settings, wifTicker())
	assert.Equal(t, domain.SignalAuto, sig.Type)
}

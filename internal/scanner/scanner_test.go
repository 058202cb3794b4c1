package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/alert"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/books"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/collector"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/registry"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/safety"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/venues"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// futuresAdapter scripts a single futures venue end to end.
type futuresAdapter struct {
	quotes map[string]venues.TickerQuote
	book   *domain.OrderBookSnapshot
}

func (a *futuresAdapter) Exchange() string { return "binance" }

func (a *futuresAdapter) Venues() []domain.Venue {
	return []domain.Venue{{ID: "binance_futures", Exchange: "binance", Kind: domain.KindCexFutures}}
}

func (a *futuresAdapter) FuturesSymbols(context.Context) ([]venues.SymbolInfo, error) {
	return []venues.SymbolInfo{{Symbol: "WIFUSDT", BaseAsset: "WIF", QuoteAsset: "USDT", Status: "TRADING"}}, nil
}

func (a *futuresAdapter) SpotSymbols(context.Context) ([]venues.SymbolInfo, error) { return nil, nil }

func (a *futuresAdapter) Tickers(context.Context, domain.VenueKind) (map[string]venues.TickerQuote, error) {
	return a.quotes, nil
}

func (a *futuresAdapter) OrderBook(context.Context, string, int, domain.VenueKind) (*domain.OrderBookSnapshot, error) {
	b := *a.book
	return &b, nil
}

func (a *futuresAdapter) AssetDetails(context.Context, string) (*venues.AssetDetails, error) {
	return &venues.AssetDetails{Coin: "WIF", Networks: []domain.NetworkInfo{
		{Chain: "solana", Contract: "WifContract111", DepositEnabled: true, WithdrawEnabled: true},
	}}, nil
}

// poolAdapter scripts the solana DEX aggregator.
type poolAdapter struct {
	price     decimal.Decimal
	liquidity decimal.Decimal
}

func (a *poolAdapter) Exchange() string { return "dexscreener" }

func (a *poolAdapter) Venues() []domain.Venue {
	return []domain.Venue{{ID: "dex_solana", Exchange: "dexscreener", Kind: domain.KindDexSpot, Chain: "solana"}}
}

func (a *poolAdapter) FuturesSymbols(context.Context) ([]venues.SymbolInfo, error) { return nil, nil }
func (a *poolAdapter) SpotSymbols(context.Context) ([]venues.SymbolInfo, error)    { return nil, nil }

func (a *poolAdapter) Tickers(context.Context, domain.VenueKind) (map[string]venues.TickerQuote, error) {
	return nil, nil
}

func (a *poolAdapter) OrderBook(context.Context, string, int, domain.VenueKind) (*domain.OrderBookSnapshot, error) {
	return nil, venues.NewVenueError("dex_solana", venues.ErrHTTP, "no native book")
}

func (a *poolAdapter) Chain() string { return "solana" }

func (a *poolAdapter) BulkPrices(_ context.Context, contracts []string) (map[string]venues.DexTokenPrice, error) {
	out := map[string]venues.DexTokenPrice{}
	for _, c := range contracts {
		if c == "WifContract111" {
			out[c] = venues.DexTokenPrice{
				Contract: c, Symbol: "WIF",
				PriceUSD: a.price, LiquidityUSD: a.liquidity,
			}
		}
	}
	return out, nil
}

func (a *poolAdapter) TokenLiquidity(_ context.Context, contract string) (*venues.DexTokenPrice, bool, error) {
	if contract != "WifContract111" {
		return nil, false, nil
	}
	return &venues.DexTokenPrice{
		Contract: contract, Symbol: "WIF",
		PriceUSD: a.price, LiquidityUSD: a.liquidity,
	}, true, nil
}

func (a *poolAdapter) ImpactCurve(_ context.Context, _ string, _ []decimal.Decimal) ([]venues.ImpactQuote, error) {
	return []venues.ImpactQuote{
		{NotionalUSD: d("100"), EffectivePrice: d("2.0004")},
		{NotionalUSD: d("1000"), EffectivePrice: d("2.002")},
		{NotionalUSD: d("10000"), EffectivePrice: d("2.02")},
		{NotionalUSD: d("50000"), EffectivePrice: d("2.05")},
	}, nil
}

// spotOnlyAdapter scripts an exchange that lists WIF on spot only, so a pair
// against it cannot be closed with a short.
type spotOnlyAdapter struct {
	quotes map[string]venues.TickerQuote
	book   *domain.OrderBookSnapshot
}

func (a *spotOnlyAdapter) Exchange() string { return "binance" }

func (a *spotOnlyAdapter) Venues() []domain.Venue {
	return []domain.Venue{{ID: "binance_spot", Exchange: "binance", Kind: domain.KindCexSpot}}
}

func (a *spotOnlyAdapter) FuturesSymbols(context.Context) ([]venues.SymbolInfo, error) {
	return nil, nil
}

func (a *spotOnlyAdapter) SpotSymbols(context.Context) ([]venues.SymbolInfo, error) {
	return []venues.SymbolInfo{{Symbol: "WIFUSDT", BaseAsset: "WIF", QuoteAsset: "USDT", Status: "TRADING"}}, nil
}

func (a *spotOnlyAdapter) Tickers(context.Context, domain.VenueKind) (map[string]venues.TickerQuote, error) {
	return a.quotes, nil
}

func (a *spotOnlyAdapter) OrderBook(context.Context, string, int, domain.VenueKind) (*domain.OrderBookSnapshot, error) {
	b := *a.book
	return &b, nil
}

func (a *spotOnlyAdapter) AssetDetails(context.Context, string) (*venues.AssetDetails, error) {
	return &venues.AssetDetails{Coin: "WIF", Networks: []domain.NetworkInfo{
		{Chain: "solana", Contract: "WifContract111", DepositEnabled: true, WithdrawEnabled: true},
	}}, nil
}

type memoryDispatcher struct {
	mu   sync.Mutex
	sent []string
}

func (m *memoryDispatcher) Send(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	return nil
}

func (m *memoryDispatcher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func scannerFixture(t *testing.T) (*Scanner, *collector.Collector, *memoryDispatcher, config.Settings) {
	t.Helper()
	kv := store.NewMemory()
	futures := &futuresAdapter{
		quotes: map[string]venues.TickerQuote{
			"WIFUSDT": {Bid: d("2.10"), Ask: d("2.102"), Last: d("2.10"), Timestamp: time.Now()},
		},
		book: &domain.OrderBookSnapshot{
			VenueID: "binance_futures",
			Bids:    []domain.BookLevel{{Price: d("2.10"), Quantity: d("50000")}},
			Asks:    []domain.BookLevel{{Price: d("2.102"), Quantity: d("50000")}},
		},
	}
	pool := &poolAdapter{price: d("2.00"), liquidity: decimal.NewFromInt(80000)}

	reg := registry.New(kv, []venues.Adapter{futures, pool})
	settings := config.DefaultSettings()
	require.NoError(t, reg.Discover(context.Background(), settings))

	coll := collector.New(kv, reg)
	fetcher := books.NewFetcher(kv, reg)
	validator := safety.NewValidator(kv)
	tx := &memoryDispatcher{}
	gate := alert.NewGate(kv, tx)

	return New(kv, reg, coll, fetcher, validator, gate), coll, tx, settings
}

func TestTickEmitsDexFuturesSignal(t *testing.T) {
	ctx := context.Background()
	sc, coll, tx, settings := scannerFixture(t)

	require.NoError(t, coll.Collect(ctx, settings))

	stats, err := sc.Tick(ctx, settings)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Combos)
	assert.Equal(t, 1, stats.Emitted, "the 5%% dex/futures spread must alert")
	require.Equal(t, 1, tx.count())
	assert.Contains(t, tx.sent[0], "WIF [DF]")
	assert.Contains(t, tx.sent[0], "BUY WIF on dex_solana")
	assert.Contains(t, tx.sent[0], "SHORT WIF on binance_futures")
}

func TestTickRespectsCooldown(t *testing.T) {
	ctx := context.Background()
	sc, coll, tx, settings := scannerFixture(t)
	require.NoError(t, coll.Collect(ctx, settings))

	stats, err := sc.Tick(ctx, settings)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Emitted)

	stats, err = sc.Tick(ctx, settings)
	require.NoError(t, err)
	assert.Zero(t, stats.Emitted, "second tick inside the cooldown must not alert")
	assert.Equal(t, 1, stats.Validated)
	assert.Equal(t, 1, tx.count())
}

func TestTickBelowThresholdStaysQuiet(t *testing.T) {
	ctx := context.Background()
	sc, coll, tx, settings := scannerFixture(t)
	require.NoError(t, coll.Collect(ctx, settings))

	settings.MinSpreadPct = 8.0 // above the fixture's ~5%
	stats, err := sc.Tick(ctx, settings)
	require.NoError(t, err)

	assert.Zero(t, stats.SpreadOK)
	assert.Zero(t, tx.count())
}

func TestTickAutoDisabled(t *testing.T) {
	ctx := context.Background()
	sc, coll, tx, settings := scannerFixture(t)
	require.NoError(t, coll.Collect(ctx, settings))

	settings.EnableAutoSignals = false
	stats, err := sc.Tick(ctx, settings)
	require.NoError(t, err)

	assert.Zero(t, stats.Emitted)
	assert.Zero(t, tx.count())
}

func TestTickPersistsSignalHistory(t *testing.T) {
	ctx := context.Background()
	sc, coll, _, settings := scannerFixture(t)
	require.NoError(t, coll.Collect(ctx, settings))

	_, err := sc.Tick(ctx, settings)
	require.NoError(t, err)

	sigs, err := sc.RecentSignals(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sigs)
	assert.Equal(t, "DF", sigs[0].StrategyType)
	assert.Equal(t, "WIF", sigs[0].Pair.Symbol)
}

func manualScannerFixture(t *testing.T) (*Scanner, *collector.Collector, *memoryDispatcher) {
	t.Helper()
	kv := store.NewMemory()
	spot := &spotOnlyAdapter{
		quotes: map[string]venues.TickerQuote{
			"WIFUSDT": {Bid: d("2.10"), Ask: d("2.102"), Last: d("2.10"), Timestamp: time.Now()},
		},
		book: &domain.OrderBookSnapshot{
			VenueID: "binance_spot",
			Bids:    []domain.BookLevel{{Price: d("2.10"), Quantity: d("50000")}},
			Asks:    []domain.BookLevel{{Price: d("2.102"), Quantity: d("50000")}},
		},
	}
	pool := &poolAdapter{price: d("2.00"), liquidity: decimal.NewFromInt(80000)}

	reg := registry.New(kv, []venues.Adapter{spot, pool})
	require.NoError(t, reg.Discover(context.Background(), config.DefaultSettings()))

	coll := collector.New(kv, reg)
	tx := &memoryDispatcher{}
	sc := New(kv, reg, coll, books.NewFetcher(kv, reg), safety.NewValidator(kv), alert.NewGate(kv, tx))
	return sc, coll, tx
}

func TestTickManualPairGating(t *testing.T) {
	ctx := context.Background()
	sc, coll, tx := manualScannerFixture(t)
	settings := config.DefaultSettings()
	require.NoError(t, coll.Collect(ctx, settings))

	// defaults demand a shortable high venue, so the spot-high pair is
	// validated and rejected, never dispatched
	stats, err := sc.Tick(ctx, settings)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Rejected)
	assert.Zero(t, stats.Emitted)
	assert.Zero(t, tx.count())

	// disabling manual signals suppresses the combo outright, independent
	// of the shortable requirement
	settings.EnableManualSignals = false
	stats, err = sc.Tick(ctx, settings)
	require.NoError(t, err)
	assert.Zero(t, stats.SpreadOK)
	assert.Zero(t, tx.count())

	// manual allowed and the shortable requirement lifted: it dispatches
	settings.EnableManualSignals = true
	settings.RequireShortableHighVenue = false
	stats, err = sc.Tick(ctx, settings)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Emitted)
	require.Equal(t, 1, tx.count())
	assert.Contains(t, tx.sent[0], "WIF [DS]")
	assert.Contains(t, tx.sent[0], "Transfer via solana")
}

func TestOrientPicksProfitableDirection(t *testing.T) {
	a := domain.Venue{ID: "v_a", Kind: domain.KindCexSpot}
	b := domain.Venue{ID: "v_b", Kind: domain.KindCexFutures}
	combo := registry.Combo{Symbol: "WIF", A: a, B: b}

	recA := domain.PriceRecord{VenueID: "v_a", Bid: d("100"), Ask: d("100.1")}
	recB := domain.PriceRecord{VenueID: "v_b", Bid: d("105"), Ask: d("105.1")}

	low, high, _, _, nominal, ok := orient(combo, recA, recB)
	require.True(t, ok)
	assert.Equal(t, "v_a", low.ID)
	assert.Equal(t, "v_b", high.ID)
	assert.True(t, nominal.GreaterThan(d("4.8")))

	// flip the prices, the orientation flips
	low, high, _, _, _, ok = orient(combo, recB, recA)
	require.True(t, ok)
	assert.Equal(t, "v_b", low.ID)
	assert.Equal(t, "v_a", high.ID)
}

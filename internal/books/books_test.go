package books

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/venues"
)

// bookAdapter scripts OrderBook responses and counts calls.
type bookAdapter struct {
	venue domain.Venue
	book  *domain.OrderBookSnapshot
	fail  bool
	calls int
}

func (a *bookAdapter) Exchange() string       { return a.venue.Exchange }
func (a *bookAdapter) Venues() []domain.Venue { return []domain.Venue{a.venue} }

func (a *bookAdapter) FuturesSymbols(context.Context) ([]venues.SymbolInfo, error) { return nil, nil }
func (a *bookAdapter) SpotSymbols(context.Context) ([]venues.SymbolInfo, error)    { return nil, nil }

func (a *bookAdapter) Tickers(context.Context, domain.VenueKind) (map[string]venues.TickerQuote, error) {
	return nil, nil
}

func (a *bookAdapter) OrderBook(context.Context, string, int, domain.VenueKind) (*domain.OrderBookSnapshot, error) {
	a.calls++
	if a.fail {
		return nil, venues.NewVenueError(a.venue.ID, venues.ErrTimeout, "scripted failure")
	}
	b := *a.book
	return &b, nil
}

// singleSource serves one adapter.
type singleSource struct{ a venues.Adapter }

func (s singleSource) AdapterFor(venueID string) (venues.Adapter, bool) {
	for _, v := range s.a.Venues() {
		if v.ID == venueID {
			return s.a, true
		}
	}
	return nil, false
}

func (s singleSource) VenueByID(id string) (domain.Venue, bool) {
	for _, v := range s.a.Venues() {
		if v.ID == id {
			return v, true
		}
	}
	return domain.Venue{}, false
}

func level(price, qty string) domain.BookLevel {
	return domain.BookLevel{
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
}

func fetcherFixture() (*Fetcher, *bookAdapter, *time.Time) {
	venue := domain.Venue{ID: "binance_spot", Exchange: "binance", Kind: domain.KindCexSpot}
	adapter := &bookAdapter{
		venue: venue,
		book: &domain.OrderBookSnapshot{
			VenueID: venue.ID,
			Bids:    []domain.BookLevel{level("100", "5")},
			Asks:    []domain.BookLevel{level("100.1", "5")},
		},
	}
	f := NewFetcher(store.NewMemory(), singleSource{adapter})
	clock := time.Now()
	f.now = func() time.Time { return clock }
	return f, adapter, &clock
}

func spotRequest() Request {
	return Request{
		Venue:        domain.Venue{ID: "binance_spot", Exchange: "binance", Kind: domain.KindCexSpot},
		Symbol:       "WIF",
		NativeSymbol: "WIFUSDT",
	}
}

func TestFetchMissThenFreshHit(t *testing.T) {
	ctx := context.Background()
	f, adapter, _ := fetcherFixture()

	b, err := f.Fetch(ctx, spotRequest())
	require.NoError(t, err)
	assert.False(t, b.Cached)
	assert.Equal(t, "WIF", b.Symbol)
	assert.Equal(t, 1, adapter.calls)

	b, err = f.Fetch(ctx, spotRequest())
	require.NoError(t, err)
	assert.True(t, b.Cached)
	assert.Equal(t, int64(0), b.LatencyMS())
	assert.Equal(t, 1, adapter.calls, "fresh hit must not refetch")
}

func TestFetchExpiredRefetches(t *testing.T) {
	ctx := context.Background()
	f, adapter, clock := fetcherFixture()

	_, err := f.Fetch(ctx, spotRequest())
	require.NoError(t, err)

	*clock = clock.Add(DefaultTTL + time.Second)
	b, err := f.Fetch(ctx, spotRequest())
	require.NoError(t, err)
	assert.False(t, b.Cached)
	assert.Equal(t, 2, adapter.calls)
}

func TestFetchFailureServesStaleWithinWindow(t *testing.T) {
	ctx := context.Background()
	f, adapter, clock := fetcherFixture()

	_, err := f.Fetch(ctx, spotRequest())
	require.NoError(t, err)

	adapter.fail = true
	*clock = clock.Add(DefaultTTL + 10*time.Second) // stale but inside 2xTTL
	b, err := f.Fetch(ctx, spotRequest())
	require.NoError(t, err)
	assert.True(t, b.Cached)
}

func TestFetchFailureBeyondStaleWindowErrors(t *testing.T) {
	ctx := context.Background()
	f, adapter, clock := fetcherFixture()

	_, err := f.Fetch(ctx, spotRequest())
	require.NoError(t, err)

	adapter.fail = true
	*clock = clock.Add(staleFactor*DefaultTTL + time.Minute)
	_, err = f.Fetch(ctx, spotRequest())
	require.Error(t, err)
	_, ok := venues.IsVenueError(err)
	assert.True(t, ok)
}

func TestFetchPairEitherFailureFails(t *testing.T) {
	ctx := context.Background()
	f, adapter, _ := fetcherFixture()
	adapter.fail = true

	_, _, err := f.FetchPair(ctx, spotRequest(), spotRequest())
	require.Error(t, err)
}

func TestFetchPairBothLegs(t *testing.T) {
	ctx := context.Background()
	f, _, _ := fetcherFixture()

	low, high, err := f.FetchPair(ctx, spotRequest(), spotRequest())
	require.NoError(t, err)
	require.NotNil(t, low)
	require.NotNil(t, high)
}

func TestBuildSyntheticLadder(t *testing.T) {
	spot := decimal.NewFromInt(2)
	quotes := []venues.ImpactQuote{
		{NotionalUSD: decimal.NewFromInt(100), EffectivePrice: decimal.RequireFromString("2.004")},
		{NotionalUSD: decimal.NewFromInt(500), EffectivePrice: decimal.RequireFromString("2.02")},
		{NotionalUSD: decimal.NewFromInt(1000), EffectivePrice: decimal.RequireFromString("2.04")},
	}

	b := BuildSynthetic("dex_solana", "WIF", spot, quotes)
	require.Len(t, b.Asks, 3)
	require.Len(t, b.Bids, 3)

	// asks ascend, bids descend
	for i := 1; i < len(b.Asks); i++ {
		assert.True(t, b.Asks[i].Price.GreaterThan(b.Asks[i-1].Price))
		assert.True(t, b.Bids[i].Price.LessThan(b.Bids[i-1].Price))
	}

	bestBid, _ := b.BestBid()
	bestAsk, _ := b.BestAsk()
	assert.True(t, bestBid.Price.LessThan(bestAsk.Price))
	assert.True(t, bestBid.Price.LessThan(spot))

	// incremental notionals: level 2 carries $400 at its effective price
	assert.Equal(t, "400", b.Asks[1].Notional().Round(6).String())
}

func TestBuildSyntheticSkipsNonIncreasingProbes(t *testing.T) {
	spot := decimal.NewFromInt(2)
	quotes := []venues.ImpactQuote{
		{NotionalUSD: decimal.NewFromInt(100), EffectivePrice: decimal.RequireFromString("2.004")},
		{NotionalUSD: decimal.NewFromInt(100), EffectivePrice: decimal.RequireFromString("2.004")},
	}
	b := BuildSynthetic("dex_solana", "WIF", spot, quotes)
	assert.Len(t, b.Asks, 1)
}

func TestBuildSyntheticZeroSpot(t *testing.T) {
	b := BuildSynthetic("dex_solana", "WIF", decimal.Zero, nil)
	assert.Empty(t, b.Asks)
	assert.Empty(t, b.Bids)
}

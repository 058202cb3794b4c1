package spread

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
)

func TestNominalSpreadPct(t *testing.T) {
	got, ok := NominalSpreadPct(decimal.RequireFromString("2.10"), decimal.RequireFromString("2.00"))
	require.True(t, ok)
	assert.Equal(t, "5", got.String())

	// crossed markets go negative, they are not clamped here
	got, ok = NominalSpreadPct(decimal.RequireFromString("1.90"), decimal.RequireFromString("2.00"))
	require.True(t, ok)
	assert.Equal(t, "-5", got.String())

	_, ok = NominalSpreadPct(decimal.NewFromInt(100), decimal.Zero)
	assert.False(t, ok)
}

func TestRealSpreadPctZeroBuy(t *testing.T) {
	_, ok := RealSpreadPct(decimal.NewFromInt(100), decimal.Zero)
	assert.False(t, ok)
}

func TestSuggestPositionUSDSnapsDown(t *testing.T) {
	cap := decimal.NewFromInt(50000)
	cases := []struct {
		lowDepth, highDepth int64
		want                string
	}{
		{30000, 12000, "5000"},  // half of 12000 = 6000 -> 5000
		{4000, 9000, "1000"},    // half of 4000 = 2000 -> 1000
		{120, 500000, "0"},      // half of 120 is below the smallest step
		{400000, 500000, "50000"}, // half of 400000 hits the cap
	}
	for _, tc := range cases {
		got := SuggestPositionUSD(decimal.NewFromInt(tc.lowDepth), decimal.NewFromInt(tc.highDepth), cap)
		assert.Equal(t, tc.want, got.String(), "depths %d/%d", tc.lowDepth, tc.highDepth)
	}
}

func buildFixture() (domain.ArbPair, domain.PriceRecord, domain.PriceRecord, *domain.OrderBookSnapshot, *domain.OrderBookSnapshot) {
	low := domain.Venue{ID: "dex_solana", Exchange: "dexscreener", Kind: domain.KindDexSpot, Chain: "solana"}
	high := domain.Venue{ID: "binance_futures", Exchange: "binance", Kind: domain.KindCexFutures}
	pair := domain.NewPair("WIF", low, high, nil)

	now := time.Now()
	lowPx := domain.PriceRecord{
		VenueID: low.ID, Symbol: "WIF", Kind: low.Kind,
		Bid: decimal.RequireFromString("1.99"), Ask: decimal.RequireFromString("2.00"),
		Last: decimal.RequireFromString("2.00"), ReceivedAt: now,
	}
	highPx := domain.PriceRecord{
		VenueID: high.ID, Symbol: "WIF", Kind: high.Kind,
		Bid: decimal.RequireFromString("2.10"), Ask: decimal.RequireFromString("2.11"),
		Last: decimal.RequireFromString("2.10"), ReceivedAt: now,
	}
	lowBook := &domain.OrderBookSnapshot{
		VenueID: low.ID, Symbol: "WIF",
		Bids: []domain.BookLevel{lvl("1.99", "10000"), lvl("1.98", "10000")},
		Asks: []domain.BookLevel{lvl("2.00", "10000"), lvl("2.01", "10000")},
	}
	highBook := &domain.OrderBookSnapshot{
		VenueID: high.ID, Symbol: "WIF",
		Bids: []domain.BookLevel{lvl("2.10", "10000"), lvl("2.09", "10000")},
		Asks: []domain.BookLevel{lvl("2.11", "10000"), lvl("2.12", "10000")},
	}
	return pair, lowPx, highPx, lowBook, highBook
}

func TestCalculatorBuild(t *testing.T) {
	pair, lowPx, highPx, lowBook, highBook := buildFixture()
	c := Calculator{MaxPositionUSD: decimal.NewFromInt(50000)}

	opp := c.Build(pair, lowPx, highPx, lowBook, highBook)

	require.False(t, opp.NonFinite)
	assert.Equal(t, "5", opp.NominalSpreadPct.String())
	assert.True(t, opp.PositionUSD.IsPositive())
	assert.True(t, opp.BuyExec.FullyFilled)
	assert.True(t, opp.SellExec.FullyFilled)
	// real spread can only shrink versus nominal
	assert.True(t, opp.RealSpreadPct.LessThanOrEqual(opp.NominalSpreadPct))
	assert.True(t, opp.RealSpreadPct.IsPositive())
}

func TestCalculatorBuildNonFinite(t *testing.T) {
	pair, lowPx, highPx, lowBook, highBook := buildFixture()
	lowPx.Ask = decimal.Zero

	c := Calculator{MaxPositionUSD: decimal.NewFromInt(50000)}
	opp := c.Build(pair, lowPx, highPx, lowBook, highBook)
	assert.True(t, opp.NonFinite)
}

func TestCalculatorBuildProbesEmptyDepth(t *testing.T) {
	pair, lowPx, highPx, lowBook, highBook := buildFixture()
	// thin books: below the smallest position step but still walkable
	lowBook.Bids = []domain.BookLevel{lvl("1.99", "50")}
	highBook.Asks = []domain.BookLevel{lvl("2.11", "50")}

	c := Calculator{MaxPositionUSD: decimal.NewFromInt(50000)}
	opp := c.Build(pair, lowPx, highPx, lowBook, highBook)

	assert.True(t, opp.PositionUSD.IsZero())
	// exec quotes still computed at the probe size
	assert.True(t, opp.BuyExec.AvgPrice.IsPositive())
	assert.True(t, opp.SellExec.AvgPrice.IsPositive())
}

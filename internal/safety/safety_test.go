package safety

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func deepSide(price string) []domain.BookLevel {
	return []domain.BookLevel{{Price: d(price), Quantity: d("1000")}}
}

// healthyOpportunity passes every check: auto pair on one exchange, deep
// books, fresh prices, modest position.
func healthyOpportunity(now time.Time) *domain.Opportunity {
	low := domain.Venue{ID: "binance_spot", Exchange: "binance", Kind: domain.KindCexSpot}
	high := domain.Venue{ID: "binance_futures", Exchange: "binance", Kind: domain.KindCexFutures}
	pair := domain.NewPair("WIF", low, high, nil)

	return &domain.Opportunity{
		Pair: pair,
		LowPrice: domain.PriceRecord{
			VenueID: low.ID, Symbol: "WIF", Kind: low.Kind,
			Bid: d("99.9"), Ask: d("100"), Last: d("100"), ReceivedAt: now,
		},
		HighPrice: domain.PriceRecord{
			VenueID: high.ID, Symbol: "WIF", Kind: high.Kind,
			Bid: d("102"), Ask: d("102.1"), Last: d("102"), ReceivedAt: now,
		},
		LowBook: domain.OrderBookSnapshot{
			VenueID: low.ID, Symbol: "WIF",
			Bids:        deepSide("99.9"),
			Asks:        deepSide("100"),
			RequestedAt: now.Add(-100 * time.Millisecond),
			ReceivedAt:  now,
		},
		HighBook: domain.OrderBookSnapshot{
			VenueID: high.ID, Symbol: "WIF",
			Bids:        deepSide("102"),
			Asks:        deepSide("102.1"),
			RequestedAt: now.Add(-100 * time.Millisecond),
			ReceivedAt:  now,
		},
		NominalSpreadPct: d("2"),
		RealSpreadPct:    d("1.9"),
		BuyExec:          domain.ExecQuote{AvgPrice: d("100"), BestPrice: d("100"), SlippagePct: d("0.1"), FullyFilled: true},
		SellExec:         domain.ExecQuote{AvgPrice: d("102"), BestPrice: d("102"), SlippagePct: d("0.1"), FullyFilled: true},
		LowBidsDepthUSD:  d("20000"),
		HighAsksDepthUSD: d("20000"),
		PositionUSD:      d("5000"),
		CreatedAt:        now,
	}
}

func validatorFixture() (*Validator, time.Time) {
	v := NewValidator(store.NewMemory())
	now := time.Now()
	v.now = func() time.Time { return now }
	v.baselines.now = v.now
	v.ages.now = v.now
	return v, now
}

func TestValidateHealthyOpportunity(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)

	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{})

	assert.True(t, res.Valid, "failed: %v", res.FailedChecks)
	assert.Len(t, res.Checks, 12)
	assert.Empty(t, res.FailedChecks)
}

func TestValidateRunsEveryCheckOnFailure(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	opp.LowBidsDepthUSD = d("100") // kills exit_liquidity and position_ratio

	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{})

	assert.False(t, res.Valid)
	assert.Len(t, res.Checks, 12, "a failed check must not stop the rest")
	assert.Contains(t, res.FailedChecks, "exit_liquidity")
	assert.Contains(t, res.FailedChecks, "position_ratio")
}

func TestValidateSlippageCap(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	opp.BuyExec.SlippagePct = d("3.5")

	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{})
	assert.Contains(t, res.FailedChecks, "max_slippage")
}

func TestValidateSlippageSumsBothLegs(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	// each leg alone is under the 2% cap; the 2.4% round trip is not
	opp.BuyExec.SlippagePct = d("1.2")
	opp.SellExec.SlippagePct = d("1.2")

	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{})
	assert.Contains(t, res.FailedChecks, "max_slippage")
}

func TestValidatePartialFillFailsSlippage(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	opp.SellExec.FullyFilled = false

	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{})
	assert.Contains(t, res.FailedChecks, "max_slippage")
}

func TestValidateLatency(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	opp.HighBook.RequestedAt = now.Add(-8 * time.Second)

	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{})
	assert.Contains(t, res.FailedChecks, "latency")
}

func TestValidateStalePrices(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	opp.LowPrice.ReceivedAt = now.Add(-2 * time.Minute)

	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{})
	assert.Contains(t, res.FailedChecks, "spread_freshness")
}

func TestValidateWideBidAsk(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	opp.HighPrice.Bid = d("100")
	opp.HighPrice.Ask = d("103") // 3% own spread

	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{})
	assert.Contains(t, res.FailedChecks, "bid_ask_spread")
}

func TestValidateCrossedDirection(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	opp.LowPrice.Ask = d("105") // above high bid

	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{})
	assert.Contains(t, res.FailedChecks, "direction_validity")
}

func TestValidateNonShortableHighVenue(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	opp.Pair.High = domain.Venue{ID: "dex_solana", Exchange: "dexscreener", Kind: domain.KindDexSpot, Chain: "solana"}
	opp.Pair.Type = domain.PairManual

	settings := config.DefaultSettings() // short-based closes required
	res := v.Validate(ctx, opp, settings, Input{})
	assert.Contains(t, res.FailedChecks, "direction_validity")

	// with the requirement lifted, a spot high venue is acceptable
	settings.RequireShortableHighVenue = false
	res = v.Validate(ctx, opp, settings, Input{})
	assert.NotContains(t, res.FailedChecks, "direction_validity")
}

func TestValidateInstantExitThinBooks(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	opp.LowBook.Bids = []domain.BookLevel{{Price: d("99.9"), Quantity: d("1")}}

	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{})
	assert.Contains(t, res.FailedChecks, "instant_exit")
}

func TestValidateManualPairNeedsTransferNetwork(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	opp.Pair.Type = domain.PairManual
	opp.Pair.RequiresTransfer = true
	opp.Pair.TransferNetwork = ""

	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{})
	assert.Contains(t, res.FailedChecks, "deposit_withdraw")
}

func TestValidateTransferBuffer(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	opp.Pair.Type = domain.PairManual
	opp.Pair.RequiresTransfer = true
	opp.Pair.TransferNetwork = "ethereum" // 12 minutes in flight
	opp.NominalSpreadPct = d("1.2")
	opp.RealSpreadPct = d("1.1")

	// buffer = 3 x 0.2 x sqrt(12) ~ 2.08% > 1.2% nominal
	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{VolatilityPctPerMin: d("0.2")})
	assert.Contains(t, res.FailedChecks, "transfer_buffer")

	// the fast chain shrinks the buffer below the spread: 3 x 0.2 x sqrt(2) ~ 0.85%
	opp.Pair.TransferNetwork = "solana"
	res = v.Validate(ctx, opp, config.DefaultSettings(), Input{VolatilityPctPerMin: d("0.2")})
	assert.NotContains(t, res.FailedChecks, "transfer_buffer")
}

func TestValidateTransferBufferUsesNominalSpread(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	opp.Pair.Type = domain.PairManual
	opp.Pair.RequiresTransfer = true
	opp.Pair.TransferNetwork = "ethereum"
	// nominal clears the ~2.08% buffer even though the executable spread
	// does not; the buffer guards the quote gap, not the fill quality
	opp.NominalSpreadPct = d("2.2")
	opp.RealSpreadPct = d("1.9")

	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{VolatilityPctPerMin: d("0.2")})
	assert.NotContains(t, res.FailedChecks, "transfer_buffer")
}

func TestDepthVsHistoryBypassAndBands(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)
	settings := config.DefaultSettings()

	// no history: bypassed
	res := v.Validate(ctx, opp, settings, Input{})
	assert.NotContains(t, res.FailedChecks, "depth_vs_history")
	assert.Empty(t, res.Warnings)

	// build a baseline around 40k per side
	for i := 0; i < 3; i++ {
		require.NoError(t, v.baselines.Record(ctx, opp.Pair.ID(), opp.Pair.Low.ID, "bids", d("40000")))
		require.NoError(t, v.baselines.Record(ctx, opp.Pair.ID(), opp.Pair.High.ID, "asks", d("40000")))
	}

	// 20000/40000 = 0.5: at the warning boundary, clean pass
	res = v.Validate(ctx, opp, settings, Input{})
	assert.NotContains(t, res.FailedChecks, "depth_vs_history")
	assert.Empty(t, res.Warnings)

	// 16000/40000 = 0.4: inside the warning band
	opp.LowBidsDepthUSD = d("16000")
	res = v.Validate(ctx, opp, settings, Input{})
	assert.NotContains(t, res.FailedChecks, "depth_vs_history")
	assert.NotEmpty(t, res.Warnings)

	// 8000/40000 = 0.2: below the floor
	opp.LowBidsDepthUSD = d("8000")
	res = v.Validate(ctx, opp, settings, Input{})
	assert.Contains(t, res.FailedChecks, "depth_vs_history")
}

func TestSpreadAgeStreak(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	ages := NewSpreadAges(kv)
	now := time.Now()
	ages.now = func() time.Time { return now }

	maxAge := 24 * time.Hour
	assert.Equal(t, time.Duration(0), ages.Observe(ctx, "p1", true, maxAge))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2*time.Minute, ages.Observe(ctx, "p1", true, maxAge))

	// a gap beyond the reset window starts a new streak
	now = now.Add(10 * time.Minute)
	assert.Equal(t, time.Duration(0), ages.Observe(ctx, "p1", true, maxAge))

	// dropping below threshold clears the record
	now = now.Add(time.Minute)
	assert.Equal(t, time.Duration(0), ages.Observe(ctx, "p1", false, maxAge))
	assert.Equal(t, time.Duration(0), ages.Observe(ctx, "p1", true, maxAge))
}

func TestValidateAncientSpreadFails(t *testing.T) {
	ctx := context.Background()
	v, now := validatorFixture()
	opp := healthyOpportunity(now)

	rec := spreadAgeRecord{FirstSeen: now.Add(-25 * time.Hour), LastSeen: now.Add(-time.Minute)}
	require.NoError(t, store.SetJSON(ctx, v.ages.kv, store.SpreadAgeKey(opp.Pair.ID()), rec, time.Hour))

	res := v.Validate(ctx, opp, config.DefaultSettings(), Input{})
	assert.Contains(t, res.FailedChecks, "spread_age")
}

func TestBaselineAverageWindow(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	b := NewBaselines(kv)
	now := time.Now()
	b.now = func() time.Time { return now }

	require.NoError(t, b.Record(ctx, "p1", "v1", "bids", d("100")))
	now = now.Add(30 * time.Minute)
	require.NoError(t, b.Record(ctx, "p1", "v1", "bids", d("200")))

	avg, n, err := b.Average(ctx, "p1", "v1", "bids")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "150", avg.String())

	// first sample falls out of the hour window
	now = now.Add(45 * time.Minute)
	avg, n, err = b.Average(ctx, "p1", "v1", "bids")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "200", avg.String())
}

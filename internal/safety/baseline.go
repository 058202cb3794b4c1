// Package safety validates opportunities before they become signals. Every
// check runs every time; a failed check never hides what the later checks
// would have said.
package safety

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
)

const (
	// baselineWindow is how far back depth history counts.
	baselineWindow = time.Hour

	// baselineMaxSamples bounds the ring regardless of tick rate.
	baselineMaxSamples = 120
)

// depthSample is one ring entry.
type depthSample struct {
	DepthUSD decimal.Decimal `json:"depth_usd"`
	At       time.Time       `json:"at"`
}

// Baselines maintains per-(pair, venue, side) depth history rings used by
// the depth-vs-history check.
type Baselines struct {
	kv  store.KV
	now func() time.Time
}

// NewBaselines builds a baseline tracker.
func NewBaselines(kv store.KV) *Baselines {
	return &Baselines{kv: kv, now: time.Now}
}

// Record appends the current depth of one closing side to its ring.
func (b *Baselines) Record(ctx context.Context, pairID, venueID, side string, depthUSD decimal.Decimal) error {
	s := depthSample{DepthUSD: depthUSD, At: b.now()}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	key := store.DepthBaselineKey(pairID, venueID, side)
	return b.kv.ListPush(ctx, key, raw, baselineMaxSamples, baselineWindow)
}

// RecordOpportunity captures both closing sides of an opportunity.
func (b *Baselines) RecordOpportunity(ctx context.Context, opp *domain.Opportunity) {
	pairID := opp.Pair.ID()
	if err := b.Record(ctx, pairID, opp.Pair.Low.ID, "bids", opp.LowBidsDepthUSD); err != nil {
		log.Debug().Err(err).Str("pair", pairID).Msg("baseline record failed")
	}
	if err := b.Record(ctx, pairID, opp.Pair.High.ID, "asks", opp.HighAsksDepthUSD); err != nil {
		log.Debug().Err(err).Str("pair", pairID).Msg("baseline record failed")
	}
}

// Average returns the mean depth over the window and the number of samples
// that contributed. Zero samples means no history yet.
func (b *Baselines) Average(ctx context.Context, pairID, venueID, side string) (decimal.Decimal, int, error) {
	key := store.DepthBaselineKey(pairID, venueID, side)
	rows, err := b.kv.ListRange(ctx, key)
	if err != nil {
		return decimal.Zero, 0, err
	}
	cutoff := b.now().Add(-baselineWindow)
	sum := decimal.Zero
	count := 0
	for _, raw := range rows {
		var s depthSample
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if s.At.Before(cutoff) {
			continue
		}
		sum = sum.Add(s.DepthUSD)
		count++
	}
	if count == 0 {
		return decimal.Zero, 0, nil
	}
	return sum.Div(decimal.NewFromInt(int64(count))), count, nil
}

package collector

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/venues"
)

// CollectFunding snapshots current funding rates for every perp venue that
// exposes them. Runs on its own cadence; funding moves much slower than
// prices.
func (c *Collector) CollectFunding(ctx context.Context) error {
	p, err := c.buildPlan(ctx)
	if err != nil {
		return err
	}

	for venueID, natives := range p {
		venue, ok := c.inv.VenueByID(venueID)
		if !ok || !venue.Kind.HasFundingRate() {
			continue
		}
		adapter, ok := c.inv.AdapterFor(venueID)
		if !ok {
			continue
		}
		src, ok := adapter.(venues.FundingSource)
		if !ok {
			continue
		}
		for native, sym := range natives {
			fr, err := src.FundingRate(ctx, native)
			if err != nil {
				log.Debug().Err(err).Str("venue", venueID).Str("symbol", sym).
					Msg("funding rate unavailable")
				continue
			}
			fr.VenueID = venueID
			fr.Symbol = sym
			fr.ReceivedAt = c.now()
			ttl := fundingTTL(fr)
			if err := store.SetJSON(ctx, c.kv, store.FundingKey(venueID, sym), fr, ttl); err != nil {
				return err
			}
		}
	}
	return nil
}

// fundingTTL keeps a rate around for two funding periods, never less than
// an hour.
func fundingTTL(fr *domain.FundingRate) time.Duration {
	hours := fr.PeriodHours
	if hours <= 0 {
		hours = 8
	}
	ttl := time.Duration(2*hours) * time.Hour
	if ttl < time.Hour {
		ttl = time.Hour
	}
	return ttl
}

// Funding loads the stored rate for one (venue, symbol), if present.
func (c *Collector) Funding(ctx context.Context, venueID, symbol string) (*domain.FundingRate, bool, error) {
	var fr domain.FundingRate
	found, err := store.GetJSON(ctx, c.kv, store.FundingKey(venueID, symbol), &fr)
	if err != nil || !found {
		return nil, false, err
	}
	return &fr, true, nil
}

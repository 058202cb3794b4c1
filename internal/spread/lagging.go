package spread

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
)

// LagConfig tunes the lagging-venue detector.
type LagConfig struct {
	MinExchanges         int
	MinDeviationPct      decimal.Decimal
	MaxOtherDeviationPct decimal.Decimal
}

// DetectLagging flags a venue whose last price sits far from the cross-venue
// median while every other venue agrees. Requires MinExchanges reporters;
// exactly one outlier beyond MinDeviationPct with all the rest within
// MaxOtherDeviationPct of the median.
func DetectLagging(lastByVenue map[string]decimal.Decimal, cfg LagConfig) *domain.LaggingInfo {
	if cfg.MinExchanges <= 0 {
		cfg.MinExchanges = 4
	}
	if len(lastByVenue) < cfg.MinExchanges {
		return nil
	}

	type sample struct {
		venue string
		price decimal.Decimal
	}
	samples := make([]sample, 0, len(lastByVenue))
	for v, p := range lastByVenue {
		if !p.IsPositive() {
			continue
		}
		samples = append(samples, sample{venue: v, price: p})
	}
	if len(samples) < cfg.MinExchanges {
		return nil
	}

	prices := make([]decimal.Decimal, len(samples))
	for i, s := range samples {
		prices[i] = s.price
	}
	med := median(prices)
	if !med.IsPositive() {
		return nil
	}

	var outlier *sample
	for i := range samples {
		dev := samples[i].price.Sub(med).Abs().Div(med).Mul(hundred)
		switch {
		case dev.GreaterThanOrEqual(cfg.MinDeviationPct):
			if outlier != nil {
				return nil // more than one far venue: disagreement, not lag
			}
			outlier = &samples[i]
		case dev.GreaterThan(cfg.MaxOtherDeviationPct):
			return nil // the pack itself does not agree
		}
	}
	if outlier == nil {
		return nil
	}
	dev := outlier.price.Sub(med).Abs().Div(med).Mul(hundred)
	return &domain.LaggingInfo{
		VenueID:      outlier.venue,
		Price:        outlier.price,
		Median:       med,
		DeviationPct: dev,
	}
}

func median(prices []decimal.Decimal) decimal.Decimal {
	prices = append([]decimal.Decimal(nil), prices...)
	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })
	n := len(prices)
	if n == 0 {
		return decimal.Zero
	}
	if n%2 == 1 {
		return prices[n/2]
	}
	return prices[n/2-1].Add(prices[n/2]).Div(decimal.NewFromInt(2))
}

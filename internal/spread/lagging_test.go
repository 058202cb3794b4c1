package spread

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lagCfg() LagConfig {
	return LagConfig{
		MinExchanges:         4,
		MinDeviationPct:      decimal.NewFromInt(5),
		MaxOtherDeviationPct: decimal.NewFromInt(2),
	}
}

func TestDetectLaggingSingleOutlier(t *testing.T) {
	prices := map[string]decimal.Decimal{
		"binance_spot":    decimal.RequireFromString("100.05"),
		"bybit_spot":      decimal.RequireFromString("100.02"),
		"kraken_spot":     decimal.RequireFromString("100.08"),
		"binance_futures": decimal.RequireFromString("106.30"),
	}
	info := DetectLagging(prices, lagCfg())
	require.NotNil(t, info)
	assert.Equal(t, "binance_futures", info.VenueID)
	assert.Equal(t, "106.3", info.Price.String())
	assert.True(t, info.DeviationPct.GreaterThanOrEqual(decimal.NewFromInt(5)))
}

func TestDetectLaggingTooFewVenues(t *testing.T) {
	prices := map[string]decimal.Decimal{
		"binance_spot": decimal.RequireFromString("100.05"),
		"bybit_spot":   decimal.RequireFromString("100.02"),
		"kraken_spot":  decimal.RequireFromString("106.30"),
	}
	assert.Nil(t, DetectLagging(prices, lagCfg()))
}

func TestDetectLaggingTwoOutliersIsDisagreement(t *testing.T) {
	prices := map[string]decimal.Decimal{
		"binance_spot":    decimal.RequireFromString("100.00"),
		"bybit_spot":      decimal.RequireFromString("100.02"),
		"kraken_spot":     decimal.RequireFromString("100.04"),
		"binance_futures": decimal.RequireFromString("110.00"),
		"bybit_futures":   decimal.RequireFromString("112.00"),
	}
	assert.Nil(t, DetectLagging(prices, lagCfg()))
}

func TestDetectLaggingPackMustAgree(t *testing.T) {
	// one far venue, but another sits between the bands
	prices := map[string]decimal.Decimal{
		"binance_spot":    decimal.RequireFromString("100.00"),
		"bybit_spot":      decimal.RequireFromString("100.02"),
		"kraken_spot":     decimal.RequireFromString("100.04"),
		"bybit_futures":   decimal.RequireFromString("103.00"),
		"binance_futures": decimal.RequireFromString("110.00"),
	}
	assert.Nil(t, DetectLagging(prices, lagCfg()))
}

func TestDetectLaggingAllAgree(t *testing.T) {
	prices := map[string]decimal.Decimal{
		"binance_spot":    decimal.RequireFromString("100.00"),
		"bybit_spot":      decimal.RequireFromString("100.02"),
		"kraken_spot":     decimal.RequireFromString("100.05"),
		"binance_futures": decimal.RequireFromString("99.98"),
	}
	assert.Nil(t, DetectLagging(prices, lagCfg()))
}

func TestDetectLaggingIgnoresNonPositive(t *testing.T) {
	prices := map[string]decimal.Decimal{
		"binance_spot":    decimal.RequireFromString("100.05"),
		"bybit_spot":      decimal.RequireFromString("100.02"),
		"kraken_spot":     decimal.Zero,
		"binance_futures": decimal.RequireFromString("106.30"),
	}
	// zero price drops kraken, leaving three reporters
	assert.Nil(t, DetectLagging(prices, lagCfg()))
}

func TestMedian(t *testing.T) {
	odd := []decimal.Decimal{
		decimal.NewFromInt(3), decimal.NewFromInt(1), decimal.NewFromInt(2),
	}
	assert.Equal(t, "2", median(odd).String())

	even := []decimal.Decimal{
		decimal.NewFromInt(4), decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(3),
	}
	assert.Equal(t, "2.5", median(even).String())
}

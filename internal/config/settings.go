package config

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
)

// Settings is the runtime tuning map. Every field maps to a `config:<name>`
// string in the KV store and is re-read each tick, so operators can adjust a
// running scanner without restarts.
type Settings struct {
	MinSpreadPct         float64 `setting:"min_spread_pct"`
	AlertCooldownSeconds int     `setting:"alert_cooldown_seconds"`

	MinExitLiquidityUSD    float64 `setting:"min_exit_liquidity_usd"`
	MinPositionSizeUSD     float64 `setting:"min_position_size_usd"`
	MaxPositionSizeUSD     float64 `setting:"max_position_size_usd"`
	SuggestedPositionUSD   float64 `setting:"suggested_position_usd"`
	MaxSlippagePct         float64 `setting:"max_slippage_pct"`
	MaxLatencyMS           int     `setting:"max_latency_ms"`
	MaxPositionToExitRatio float64 `setting:"max_position_to_exit_ratio"`
	MaxBidAskSpreadPct     float64 `setting:"max_bid_ask_spread_pct"`
	MaxSpreadAgeSec        int     `setting:"max_spread_age_sec"`
	MaxSpreadAgeHours      int     `setting:"max_spread_age_hours"`
	MinDepthVsHistoryRatio float64 `setting:"min_depth_vs_history_ratio"`
	WarningDepthRatio      float64 `setting:"warning_depth_ratio"`

	MinLiquidityUSD     float64 `setting:"min_liquidity_usd"`
	MinDexLiquidityUSD  float64 `setting:"min_dex_liquidity_usd"`
	MinVolume24hDex     float64 `setting:"min_volume_24h_dex"`
	MinVolume24hFutures float64 `setting:"min_volume_24h_futures"`

	EnableAutoSignals       bool `setting:"enable_auto_signals"`
	EnableManualSignals     bool `setting:"enable_manual_signals"`
	EnableLaggingSignals    bool `setting:"enable_lagging_signals"`
	EnableFundingSignals    bool `setting:"enable_funding_signals"`
	EnableZscoreSignals     bool `setting:"enable_zscore_signals"`
	EnableStablecoinSignals bool `setting:"enable_stablecoin_signals"`

	LaggingMinExchanges         int     `setting:"lagging_min_exchanges"`
	LaggingMinDeviationPct      float64 `setting:"lagging_min_deviation_pct"`
	LaggingMaxOtherDeviationPct float64 `setting:"lagging_max_other_deviation_pct"`

	PriceUpdateIntervalSec       int  `setting:"price_update_interval_sec"`
	TickerDiscoveryIntervalHours int  `setting:"ticker_discovery_interval_hours"`
	RequireShortableHighVenue    bool `setting:"require_shortable_high_venue"`
}

// DefaultSettings returns the production defaults from the design tables.
func DefaultSettings() Settings {
	return Settings{
		MinSpreadPct:         1.0,
		AlertCooldownSeconds: 300,

		MinExitLiquidityUSD:    5000,
		MinPositionSizeUSD:     500,
		MaxPositionSizeUSD:     50000,
		SuggestedPositionUSD:   10000,
		MaxSlippagePct:         2.0,
		MaxLatencyMS:           5000,
		MaxPositionToExitRatio: 0.5,
		MaxBidAskSpreadPct:     1.0,
		MaxSpreadAgeSec:        60,
		MaxSpreadAgeHours:      24,
		MinDepthVsHistoryRatio: 0.30,
		WarningDepthRatio:      0.50,

		MinLiquidityUSD:     10000,
		MinDexLiquidityUSD:  25000,
		MinVolume24hDex:     50000,
		MinVolume24hFutures: 500000,

		EnableAutoSignals:    true,
		EnableManualSignals:  true,
		EnableLaggingSignals: true,

		LaggingMinExchanges:         4,
		LaggingMinDeviationPct:      5.0,
		LaggingMaxOtherDeviationPct: 2.0,

		PriceUpdateIntervalSec:       1,
		TickerDiscoveryIntervalHours: 24,
		RequireShortableHighVenue:    true,
	}
}

// Cooldown is the per-pair dispatch cooldown as a duration.
func (s Settings) Cooldown() time.Duration {
	return time.Duration(s.AlertCooldownSeconds) * time.Second
}

// TickInterval is the price collector cadence.
func (s Settings) TickInterval() time.Duration {
	return time.Duration(s.PriceUpdateIntervalSec) * time.Second
}

// DiscoveryInterval is the registry rebuild cadence.
func (s Settings) DiscoveryInterval() time.Duration {
	return time.Duration(s.TickerDiscoveryIntervalHours) * time.Hour
}

// settingNames is the fixed roster of override keys; anything else under
// config: is ignored.
var settingNames = []string{
	"min_spread_pct", "alert_cooldown_seconds",
	"min_exit_liquidity_usd", "min_position_size_usd", "max_position_size_usd",
	"suggested_position_usd", "max_slippage_pct", "max_latency_ms",
	"max_position_to_exit_ratio", "max_bid_ask_spread_pct",
	"max_spread_age_sec", "max_spread_age_hours",
	"min_depth_vs_history_ratio", "warning_depth_ratio",
	"min_liquidity_usd", "min_dex_liquidity_usd",
	"min_volume_24h_dex", "min_volume_24h_futures",
	"enable_auto_signals", "enable_manual_signals", "enable_lagging_signals",
	"enable_funding_signals", "enable_zscore_signals", "enable_stablecoin_signals",
	"lagging_min_exchanges", "lagging_min_deviation_pct",
	"lagging_max_other_deviation_pct",
	"price_update_interval_sec", "ticker_discovery_interval_hours",
	"require_shortable_high_venue",
}

// LoadSettings reads defaults and overlays any overrides present in the KV
// store. A store failure degrades to defaults so a tick never stalls on
// configuration.
func LoadSettings(ctx context.Context, kv store.KV) Settings {
	s := DefaultSettings()

	keys := make([]string, len(settingNames))
	for i, n := range settingNames {
		keys[i] = store.SettingKey(n)
	}
	vals, err := kv.MGet(ctx, keys...)
	if err != nil {
		log.Warn().Err(err).Msg("settings read failed, using defaults")
		return s
	}
	for i, n := range settingNames {
		raw, ok := vals[keys[i]]
		if !ok {
			continue
		}
		s.apply(n, string(raw))
	}
	return s
}

func (s *Settings) apply(name, raw string) {
	fv := func(dst *float64) {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			*dst = v
		}
	}
	iv := func(dst *int) {
		if v, err := strconv.Atoi(raw); err == nil {
			*dst = v
		}
	}
	bv := func(dst *bool) {
		switch strings.ToLower(raw) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}

	switch name {
	case "min_spread_pct":
		fv(&s.MinSpreadPct)
	case "alert_cooldown_seconds":
		iv(&s.AlertCooldownSeconds)
	case "min_exit_liquidity_usd":
		fv(&s.MinExitLiquidityUSD)
	case "min_position_size_usd":
		fv(&s.MinPositionSizeUSD)
	case "max_position_size_usd":
		fv(&s.MaxPositionSizeUSD)
	case "suggested_position_usd":
		fv(&s.SuggestedPositionUSD)
	case "max_slippage_pct":
		fv(&s.MaxSlippagePct)
	case "max_latency_ms":
		iv(&s.MaxLatencyMS)
	case "max_position_to_exit_ratio":
		fv(&s.MaxPositionToExitRatio)
	case "max_bid_ask_spread_pct":
		fv(&s.MaxBidAskSpreadPct)
	case "max_spread_age_sec":
		iv(&s.MaxSpreadAgeSec)
	case "max_spread_age_hours":
		iv(&s.MaxSpreadAgeHours)
	case "min_depth_vs_history_ratio":
		fv(&s.MinDepthVsHistoryRatio)
	case "warning_depth_ratio":
		fv(&s.WarningDepthRatio)
	case "min_liquidity_usd":
		fv(&s.MinLiquidityUSD)
	case "min_dex_liquidity_usd":
		fv(&s.MinDexLiquidityUSD)
	case "min_volume_24h_dex":
		fv(&s.MinVolume24hDex)
	case "min_volume_24h_futures":
		fv(&s.MinVolume24hFutures)
	case "enable_auto_signals":
		bv(&s.EnableAutoSignals)
	case "enable_manual_signals":
		bv(&s.EnableManualSignals)
	case "enable_lagging_signals":
		bv(&s.EnableLaggingSignals)
	case "enable_funding_signals":
		bv(&s.EnableFundingSignals)
	case "enable_zscore_signals":
		bv(&s.EnableZscoreSignals)
	case "enable_stablecoin_signals":
		bv(&s.EnableStablecoinSignals)
	case "lagging_min_exchanges":
		iv(&s.LaggingMinExchanges)
	case "lagging_min_deviation_pct":
		fv(&s.LaggingMinDeviationPct)
	case "lagging_max_other_deviation_pct":
		fv(&s.LaggingMaxOtherDeviationPct)
	case "price_update_interval_sec":
		iv(&s.PriceUpdateIntervalSec)
	case "ticker_discovery_interval_hours":
		iv(&s.TickerDiscoveryIntervalHours)
	case "require_shortable_high_venue":
		bv(&s.RequireShortableHighVenue)
	}
}

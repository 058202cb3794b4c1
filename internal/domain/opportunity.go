package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecQuote is the result of walking one book side for a target notional.
type ExecQuote struct {
	AvgPrice       decimal.Decimal `json:"avg_price"`
	BestPrice      decimal.Decimal `json:"best_price"`
	SlippagePct    decimal.Decimal `json:"slippage_pct"`
	LevelsConsumed int             `json:"levels_consumed"`
	FullyFilled    bool            `json:"fully_filled"`
	UnfilledUSD    decimal.Decimal `json:"unfilled_usd"`
}

// LaggingInfo identifies a venue whose price has fallen behind the
// cross-venue median.
type LaggingInfo struct {
	VenueID      string          `json:"venue_id"`
	Price        decimal.Decimal `json:"price"`
	Median       decimal.Decimal `json:"median"`
	DeviationPct decimal.Decimal `json:"deviation_pct"`
}

// Opportunity is the raw quantified candidate produced by the spread
// calculator before validation.
type Opportunity struct {
	Pair      ArbPair           `json:"pair"`
	LowPrice  PriceRecord       `json:"low_price"`
	HighPrice PriceRecord       `json:"high_price"`
	LowBook   OrderBookSnapshot `json:"low_book"`
	HighBook  OrderBookSnapshot `json:"high_book"`

	NominalSpreadPct decimal.Decimal `json:"nominal_spread_pct"`
	RealSpreadPct    decimal.Decimal `json:"real_spread_pct"`
	NonFinite        bool            `json:"non_finite,omitempty"` // division guard tripped

	BuyExec  ExecQuote `json:"buy_exec"`
	SellExec ExecQuote `json:"sell_exec"`

	// Depth within the 1% slippage band, both closing sides, USD.
	LowBidsDepthUSD  decimal.Decimal `json:"low_bids_depth_usd"`
	HighAsksDepthUSD decimal.Decimal `json:"high_asks_depth_usd"`

	PositionUSD decimal.Decimal `json:"position_usd"`
	Lagging     *LaggingInfo    `json:"lagging,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ExitLiquidityUSD is the tighter of the two closing sides.
func (o *Opportunity) ExitLiquidityUSD() decimal.Decimal {
	if o.LowBidsDepthUSD.LessThan(o.HighAsksDepthUSD) {
		return o.LowBidsDepthUSD
	}
	return o.HighAsksDepthUSD
}

// CheckResult is the outcome of one safety check.
type CheckResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Message   string `json:"message"`
	Value     string `json:"value"`
	Threshold string `json:"threshold"`
}

// ValidationResult aggregates every check run against one opportunity.
type ValidationResult struct {
	Valid        bool          `json:"valid"`
	Checks       []CheckResult `json:"checks"`
	FailedChecks []string      `json:"failed_checks,omitempty"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// SignalType classifies how the opportunity is actionable.
type SignalType string

const (
	SignalAuto    SignalType = "auto"
	SignalManual  SignalType = "manual"
	SignalLagging SignalType = "lagging"
	SignalInvalid SignalType = "invalid"
)

// SignalStatus is the lifecycle state of a built signal.
type SignalStatus string

const (
	StatusValid            SignalStatus = "valid"
	StatusFailed           SignalStatus = "failed"
	StatusBlockedCooldown  SignalStatus = "blocked_cooldown"
	StatusBlockedBlacklist SignalStatus = "blocked_blacklist"
	StatusDispatched       SignalStatus = "dispatched"
	StatusDispatchFailed   SignalStatus = "dispatch_failed"
)

// FeeBreakdown itemises taker fees over the round trip, in percent.
type FeeBreakdown struct {
	EntryPct decimal.Decimal `json:"entry_pct"`
	ExitPct  decimal.Decimal `json:"exit_pct"`
	TotalPct decimal.Decimal `json:"total_pct"`
}

// Links are the per-venue trade and chart URLs attached to a signal.
type Links struct {
	Buy   string `json:"buy,omitempty"`
	Sell  string `json:"sell,omitempty"`
	Chart string `json:"chart,omitempty"`
}

// Signal is a validated opportunity packaged for dispatch.
type Signal struct {
	Opportunity

	StrategyID   string          `json:"strategy_id"`
	StrategyType string          `json:"strategy_type"` // SF, DF, FF, PF, DP, PP
	Type         SignalType      `json:"type"`
	Fees         FeeBreakdown    `json:"fees"`
	NetSpreadPct decimal.Decimal `json:"net_spread_pct"`
	Actions      []string        `json:"actions"`
	Links        Links           `json:"links"`

	Validation ValidationResult `json:"validation"`
	Status     SignalStatus     `json:"status"`
	StatusNote string           `json:"status_note,omitempty"`
}

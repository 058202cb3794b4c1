package safety

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/spread"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
)

// defaultVolatilityPctPerMin stands in when no volatility estimate is
// available for the transfer-buffer check.
var defaultVolatilityPctPerMin = decimal.RequireFromString("0.2")

// Input carries per-opportunity context the validator cannot derive itself.
type Input struct {
	// VolatilityPctPerMin is the recent per-minute price volatility of the
	// symbol, in percent. Zero means unknown.
	VolatilityPctPerMin decimal.Decimal
}

// Validator runs the full check battery against opportunities.
type Validator struct {
	baselines *Baselines
	ages      *SpreadAges
	now       func() time.Time
}

// NewValidator wires a validator over the shared KV store.
func NewValidator(kv store.KV) *Validator {
	return &Validator{
		baselines: NewBaselines(kv),
		ages:      NewSpreadAges(kv),
		now:       time.Now,
	}
}

// Baselines exposes the depth history tracker so the scanner can record
// samples on every tick, not only for validated candidates.
func (v *Validator) Baselines() *Baselines { return v.baselines }

// SpreadAges exposes the streak tracker.
func (v *Validator) SpreadAges() *SpreadAges { return v.ages }

// Validate runs every check against the opportunity. All checks always run;
// the result lists each verdict so an operator sees the full picture even
// when the first check already failed.
func (v *Validator) Validate(ctx context.Context, opp *domain.Opportunity, settings config.Settings, input Input) domain.ValidationResult {
	res := domain.ValidationResult{Valid: true}
	add := func(c domain.CheckResult) {
		res.Checks = append(res.Checks, c)
		if !c.Passed {
			res.Valid = false
			res.FailedChecks = append(res.FailedChecks, c.Name)
		}
	}

	add(v.checkExitLiquidity(opp, settings))
	add(v.checkPositionRatio(opp, settings))
	add(v.checkSlippage(opp, settings))
	add(v.checkLatency(opp, settings))

	depthCheck, warning := v.checkDepthVsHistory(ctx, opp, settings)
	add(depthCheck)
	if warning != "" {
		res.Warnings = append(res.Warnings, warning)
	}

	add(v.checkSpreadAge(ctx, opp, settings))
	add(v.checkSpreadFreshness(opp, settings))
	add(v.checkBidAskSpread(opp, settings))
	add(v.checkInstantExit(opp, settings))
	add(v.checkDirection(opp, settings))
	add(v.checkDepositWithdraw(opp))
	add(v.checkTransferBuffer(opp, input))

	return res
}

func pass(name, message, value, threshold string) domain.CheckResult {
	return domain.CheckResult{Name: name, Passed: true, Message: message, Value: value, Threshold: threshold}
}

func fail(name, message, value, threshold string) domain.CheckResult {
	return domain.CheckResult{Name: name, Passed: false, Message: message, Value: value, Threshold: threshold}
}

func (v *Validator) checkExitLiquidity(opp *domain.Opportunity, s config.Settings) domain.CheckResult {
	exit := opp.ExitLiquidityUSD()
	min := decimal.NewFromFloat(s.MinExitLiquidityUSD)
	if exit.LessThan(min) {
		return fail("exit_liquidity", "closing-side depth too thin", exit.String(), min.String())
	}
	return pass("exit_liquidity", "", exit.String(), min.String())
}

func (v *Validator) checkPositionRatio(opp *domain.Opportunity, s config.Settings) domain.CheckResult {
	exit := opp.ExitLiquidityUSD()
	max := decimal.NewFromFloat(s.MaxPositionToExitRatio)
	if !exit.IsPositive() {
		return fail("position_ratio", "no exit liquidity", "inf", max.String())
	}
	ratio := opp.PositionUSD.Div(exit)
	if ratio.GreaterThan(max) {
		return fail("position_ratio", "position too large for the exit", ratio.String(), max.String())
	}
	return pass("position_ratio", "", ratio.String(), max.String())
}

// checkSlippage caps the round trip: both legs' slippage summed, since both
// are paid on the same position.
func (v *Validator) checkSlippage(opp *domain.Opportunity, s config.Settings) domain.CheckResult {
	max := decimal.NewFromFloat(s.MaxSlippagePct)
	total := opp.BuyExec.SlippagePct.Add(opp.SellExec.SlippagePct)
	if !opp.BuyExec.FullyFilled || !opp.SellExec.FullyFilled {
		return fail("max_slippage", "book cannot absorb the position", total.String(), max.String())
	}
	if total.GreaterThan(max) {
		return fail("max_slippage", "round-trip slippage above cap", total.String(), max.String())
	}
	return pass("max_slippage", "", total.String(), max.String())
}

func (v *Validator) checkLatency(opp *domain.Opportunity, s config.Settings) domain.CheckResult {
	worst := opp.LowBook.LatencyMS()
	if h := opp.HighBook.LatencyMS(); h > worst {
		worst = h
	}
	limit := int64(s.MaxLatencyMS)
	value := strconv.FormatInt(worst, 10)
	threshold := strconv.FormatInt(limit, 10)
	if worst > limit {
		return fail("latency", "book fetch too slow; prices unreliable", value, threshold)
	}
	return pass("latency", "", value, threshold)
}

// checkDepthVsHistory compares current closing depth against the rolling
// baseline. No history bypasses the check; the band between the hard floor
// and the warning ratio passes with a warning.
func (v *Validator) checkDepthVsHistory(ctx context.Context, opp *domain.Opportunity, s config.Settings) (domain.CheckResult, string) {
	const name = "depth_vs_history"
	pairID := opp.Pair.ID()
	floor := decimal.NewFromFloat(s.MinDepthVsHistoryRatio)
	warnBand := decimal.NewFromFloat(s.WarningDepthRatio)

	worst := decimal.Zero
	samples := 0
	for _, side := range []struct {
		venueID string
		side    string
		depth   decimal.Decimal
	}{
		{opp.Pair.Low.ID, "bids", opp.LowBidsDepthUSD},
		{opp.Pair.High.ID, "asks", opp.HighAsksDepthUSD},
	} {
		avg, n, err := v.baselines.Average(ctx, pairID, side.venueID, side.side)
		if err != nil || n == 0 || !avg.IsPositive() {
			continue
		}
		ratio := side.depth.Div(avg)
		if samples == 0 || ratio.LessThan(worst) {
			worst = ratio
		}
		samples += n
	}

	if samples == 0 {
		return pass(name, "no depth history; check bypassed", "n/a", floor.String()), ""
	}
	if worst.LessThan(floor) {
		return fail(name, "depth collapsed versus recent history", worst.String(), floor.String()), ""
	}
	if worst.LessThan(warnBand) {
		warning := fmt.Sprintf("depth at %s of recent baseline for %s", worst.Round(2).String(), pairID)
		return pass(name, "depth below usual but above floor", worst.String(), floor.String()), warning
	}
	return pass(name, "", worst.String(), floor.String()), ""
}

func (v *Validator) checkSpreadAge(ctx context.Context, opp *domain.Opportunity, s config.Settings) domain.CheckResult {
	maxAge := time.Duration(s.MaxSpreadAgeHours) * time.Hour
	above := opp.NominalSpreadPct.GreaterThanOrEqual(decimal.NewFromFloat(s.MinSpreadPct))
	age := v.ages.Observe(ctx, opp.Pair.ID(), above, maxAge)
	value := age.Truncate(time.Second).String()
	threshold := maxAge.String()
	if age > maxAge {
		return fail("spread_age", "spread has persisted too long; likely structural", value, threshold)
	}
	return pass("spread_age", "", value, threshold)
}

func (v *Validator) checkSpreadFreshness(opp *domain.Opportunity, s config.Settings) domain.CheckResult {
	now := v.now()
	worst := opp.LowPrice.Age(now)
	if a := opp.HighPrice.Age(now); a > worst {
		worst = a
	}
	limit := time.Duration(s.MaxSpreadAgeSec) * time.Second
	value := worst.Truncate(time.Millisecond).String()
	threshold := limit.String()
	if worst > limit {
		return fail("spread_freshness", "price records too old", value, threshold)
	}
	return pass("spread_freshness", "", value, threshold)
}

func (v *Validator) checkBidAskSpread(opp *domain.Opportunity, s config.Settings) domain.CheckResult {
	max := decimal.NewFromFloat(s.MaxBidAskSpreadPct)
	worst := opp.LowPrice.BidAskSpreadPct()
	if h := opp.HighPrice.BidAskSpreadPct(); h.GreaterThan(worst) {
		worst = h
	}
	if worst.GreaterThan(max) {
		return fail("bid_ask_spread", "venue's own spread too wide", worst.String(), max.String())
	}
	return pass("bid_ask_spread", "", worst.String(), max.String())
}

// checkInstantExit verifies both closing sides could absorb the position
// right now within the slippage cap, i.e. an immediate unwind is possible.
func (v *Validator) checkInstantExit(opp *domain.Opportunity, s config.Settings) domain.CheckResult {
	const name = "instant_exit"
	max := decimal.NewFromFloat(s.MaxSlippagePct)
	size := opp.PositionUSD
	if !size.IsPositive() {
		return fail(name, "no viable position size", "0", max.String())
	}
	sellOut := spread.WalkBook(opp.LowBook.Bids, size)
	buyBack := spread.WalkBook(opp.HighBook.Asks, size)
	if !sellOut.FullyFilled || !buyBack.FullyFilled {
		return fail(name, "closing sides cannot absorb the position", "unfilled", max.String())
	}
	worst := sellOut.SlippagePct
	if buyBack.SlippagePct.GreaterThan(worst) {
		worst = buyBack.SlippagePct
	}
	if worst.GreaterThan(max) {
		return fail(name, "exit slippage above cap", worst.String(), max.String())
	}
	return pass(name, "", worst.String(), max.String())
}

// checkDirection verifies an executable direction exists and, when the
// operator demands short-based closes only, that the high venue can short.
func (v *Validator) checkDirection(opp *domain.Opportunity, s config.Settings) domain.CheckResult {
	const name = "direction_validity"
	if opp.NonFinite {
		return fail(name, "spread arithmetic degenerate", "n/a", "")
	}
	if s.RequireShortableHighVenue && !opp.Pair.High.Kind.Shortable() {
		return fail(name, "high venue cannot be shorted",
			string(opp.Pair.High.Kind), "shortable")
	}
	if !opp.LowPrice.Ask.LessThan(opp.HighPrice.Bid) {
		return fail(name, "books crossed the wrong way; no executable direction",
			opp.LowPrice.Ask.String()+" !< "+opp.HighPrice.Bid.String(), "")
	}
	if !opp.RealSpreadPct.IsPositive() {
		return fail(name, "executable spread not positive", opp.RealSpreadPct.String(), "")
	}
	return pass(name, "", opp.RealSpreadPct.String(), "")
}

// checkDepositWithdraw binds only manual pairs: tokens must actually be able
// to move between the venues.
func (v *Validator) checkDepositWithdraw(opp *domain.Opportunity) domain.CheckResult {
	const name = "deposit_withdraw"
	p := opp.Pair
	if p.Type != domain.PairManual || !p.RequiresTransfer {
		return pass(name, "no transfer needed", "n/a", "")
	}
	if p.TransferNetwork == "" {
		return fail(name, "no common transfer network with open deposits and withdrawals", "none", "")
	}
	return pass(name, "", p.TransferNetwork, "")
}

// checkTransferBuffer demands the spread exceed the price risk carried
// while tokens are in flight: three sigmas of per-minute volatility scaled
// by the square root of the transfer time.
func (v *Validator) checkTransferBuffer(opp *domain.Opportunity, input Input) domain.CheckResult {
	const name = "transfer_buffer"
	p := opp.Pair
	if p.Type != domain.PairManual || !p.RequiresTransfer {
		return pass(name, "no transfer needed", "n/a", "")
	}
	sigma := input.VolatilityPctPerMin
	if !sigma.IsPositive() {
		sigma = defaultVolatilityPctPerMin
	}
	minutes := domain.TransferTimeMinutes(p.TransferNetwork)
	buffer := sigma.Mul(decimal.NewFromInt(3)).
		Mul(decimal.NewFromFloat(math.Sqrt(minutes)))
	if opp.NominalSpreadPct.LessThanOrEqual(buffer) {
		return fail(name, "spread smaller than transfer-time price risk",
			opp.NominalSpreadPct.String(), buffer.String())
	}
	return pass(name, "", opp.NominalSpreadPct.String(), buffer.String())
}

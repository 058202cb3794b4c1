package signal

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
)

// strategyCounter disambiguates signals built within one timestamp bucket.
var strategyCounter atomic.Uint64

// Builder packages opportunities into signals.
type Builder struct {
	now func() time.Time
}

// NewBuilder constructs a builder.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// Build assembles the signal for a validated (or failed) opportunity. The
// ticker contributes contract addresses for link building; nil is fine for
// pure CEX pairs.
func (b *Builder) Build(opp *domain.Opportunity, validation domain.ValidationResult,
	settings config.Settings, ticker *domain.Ticker) domain.Signal {

	pair := opp.Pair
	fees := Fees(pair)

	sig := domain.Signal{
		Opportunity:  *opp,
		StrategyType: pair.StrategyType(),
		Fees:         fees,
		NetSpreadPct: opp.RealSpreadPct.Sub(fees.TotalPct),
		Validation:   validation,
	}

	var contracts map[string]string
	if ticker != nil {
		contracts = ticker.Contracts
	}
	sig.Links = domain.Links{
		Buy:   tradeURL(pair.Low, pair.Symbol, contracts),
		Sell:  tradeURL(pair.High, pair.Symbol, contracts),
		Chart: chartURL(pair, contracts),
	}

	sig.Type = b.classify(opp, settings)
	sig.StrategyID = b.strategyID(sig.StrategyType, pair.Symbol, opp.RealSpreadPct)
	sig.Actions = actions(pair)

	switch {
	case !validation.Valid:
		sig.Type = domain.SignalInvalid
		sig.Status = domain.StatusFailed
		sig.StatusNote = fmt.Sprintf("%d checks failed", len(validation.FailedChecks))
	case pair.ContractConflict && sig.Type == domain.SignalAuto:
		// a disputed contract may mean two different assets; too dangerous
		// for an automated recommendation
		sig.Type = domain.SignalInvalid
		sig.Status = domain.StatusFailed
		sig.StatusNote = "contract address conflict between exchanges"
	default:
		if pair.ContractConflict {
			sig.Validation.Warnings = append(sig.Validation.Warnings,
				"contract address conflict between exchanges; verify the asset manually")
		}
		sig.Status = domain.StatusValid
	}
	return sig
}

func (b *Builder) classify(opp *domain.Opportunity, settings config.Settings) domain.SignalType {
	if opp.Lagging != nil && settings.EnableLaggingSignals {
		return domain.SignalLagging
	}
	if opp.Pair.Type == domain.PairAuto {
		return domain.SignalAuto
	}
	return domain.SignalManual
}

// strategyID is {TYPE}-{SYMBOL}-S{spread}-{ts}{counter}: readable, sortable
// and unique within a process even when two signals share a second.
func (b *Builder) strategyID(strategyType, symbol string, spreadPct decimal.Decimal) string {
	ts := b.now().Unix()
	n := strategyCounter.Add(1)
	return fmt.Sprintf("%s-%s-S%s-%d-%s",
		strategyType, symbol, spreadPct.StringFixed(2), ts%10000,
		strconv.FormatUint(n, 36))
}

// actions is the ordered instruction list shown to the operator.
func actions(pair domain.ArbPair) []string {
	out := []string{
		fmt.Sprintf("BUY %s on %s", pair.Symbol, pair.Low.ID),
	}
	if pair.High.Kind.Shortable() {
		out = append(out, fmt.Sprintf("SHORT %s on %s", pair.Symbol, pair.High.ID))
	} else {
		out = append(out, fmt.Sprintf("SELL %s on %s", pair.Symbol, pair.High.ID))
	}
	if pair.RequiresTransfer && pair.Type == domain.PairManual && pair.TransferNetwork != "" {
		out = append(out, fmt.Sprintf("Transfer via %s (~%.0f min)",
			pair.TransferNetwork, domain.TransferTimeMinutes(pair.TransferNetwork)))
	}
	out = append(out, "Enter in parts, match sizes", "Wait for convergence")
	return out
}

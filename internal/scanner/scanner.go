// Package scanner drives the per-tick pipeline: orient combos against live
// prices, measure executable spreads, validate, build signals and hand them
// to the alert gate.
package scanner

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/alert"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/books"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/collector"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/registry"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/safety"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/signal"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/spread"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
)

// scanWorkers bounds concurrent combo evaluations within one tick.
const scanWorkers = 8

// Stage names where a combo ended up in the pipeline.
type Stage string

const (
	StageCandidate    Stage = "candidate"     // below threshold or missing data
	StageSpreadOK     Stage = "spread_ok"     // nominal spread cleared the bar
	StageExecMeasured Stage = "exec_measured" // books walked, real spread known
	StageValidated    Stage = "validated"     // checks passed, gate blocked it
	StageEmitted      Stage = "emitted"       // alert dispatched
	StageRejected     Stage = "rejected"      // checks or sanity failed
)

// Outcome is one combo's journey through a tick.
type Outcome struct {
	PairID string
	Stage  Stage
	Reason string
	Signal *domain.Signal
}

// TickStats aggregates a tick for logging and metrics.
type TickStats struct {
	Combos    int
	SpreadOK  int
	Validated int
	Emitted   int
	Rejected  int
}

// Scanner wires the pipeline stages together.
type Scanner struct {
	kv        store.KV
	reg       *registry.Registry
	coll      *collector.Collector
	fetcher   *books.Fetcher
	validator *safety.Validator
	builder   *signal.Builder
	gate      *alert.Gate
}

// New assembles a scanner over the shared components.
func New(kv store.KV, reg *registry.Registry, coll *collector.Collector,
	fetcher *books.Fetcher, validator *safety.Validator, gate *alert.Gate) *Scanner {
	return &Scanner{
		kv:        kv,
		reg:       reg,
		coll:      coll,
		fetcher:   fetcher,
		validator: validator,
		builder:   signal.NewBuilder(),
		gate:      gate,
	}
}

// Tick evaluates every combo in the inventory against the latest price
// union. Combos run on a bounded worker pool; one slow pair cannot starve
// the rest.
func (s *Scanner) Tick(ctx context.Context, settings config.Settings) (TickStats, error) {
	prices, err := s.coll.Latest(ctx)
	if err != nil {
		return TickStats{}, err
	}
	symbols, err := s.reg.Symbols(ctx)
	if err != nil {
		return TickStats{}, err
	}

	type job struct {
		combo  registry.Combo
		ticker *domain.Ticker
	}
	var jobs []job
	for _, sym := range symbols {
		t, found, err := s.reg.Ticker(ctx, sym)
		if err != nil || !found {
			continue
		}
		for _, c := range s.reg.Combos(t) {
			jobs = append(jobs, job{combo: c, ticker: t})
		}
	}

	var stats TickStats
	stats.Combos = len(jobs)

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, scanWorkers)

	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			out := s.evaluate(ctx, j.combo, j.ticker, prices, settings)

			mu.Lock()
			defer mu.Unlock()
			switch out.Stage {
			case StageSpreadOK, StageExecMeasured:
				stats.SpreadOK++
			case StageValidated:
				stats.SpreadOK++
				stats.Validated++
			case StageEmitted:
				stats.SpreadOK++
				stats.Validated++
				stats.Emitted++
			case StageRejected:
				stats.Rejected++
			}
		}(j)
	}
	wg.Wait()
	return stats, nil
}

// evaluate runs one combo through the pipeline.
func (s *Scanner) evaluate(ctx context.Context, c registry.Combo, t *domain.Ticker,
	prices domain.PriceMap, settings config.Settings) Outcome {

	recA, okA := prices[domain.PriceKey(c.A.ID, c.Symbol)]
	recB, okB := prices[domain.PriceKey(c.B.ID, c.Symbol)]
	if !okA || !okB {
		return Outcome{Stage: StageCandidate, Reason: "missing price records"}
	}

	low, high, lowRec, highRec, nominal, ok := orient(c, recA, recB)
	if !ok {
		return Outcome{Stage: StageCandidate, Reason: "degenerate prices"}
	}

	pair := registry.Orient(t, low, high)
	pairID := pair.ID()

	minSpread := decimal.NewFromFloat(settings.MinSpreadPct)
	if nominal.LessThan(minSpread) {
		s.validator.SpreadAges().Observe(ctx, pairID, false, 0)
		return Outcome{PairID: pairID, Stage: StageCandidate, Reason: "below threshold"}
	}
	if nominal.GreaterThan(spread.MaxRealisticSpreadPct) {
		return Outcome{PairID: pairID, Stage: StageRejected, Reason: "implausible spread; listings likely differ"}
	}
	if pair.Type == domain.PairAuto && !settings.EnableAutoSignals {
		return Outcome{PairID: pairID, Stage: StageCandidate, Reason: "auto signals disabled"}
	}
	if pair.Type == domain.PairManual && !settings.EnableManualSignals {
		return Outcome{PairID: pairID, Stage: StageCandidate, Reason: "manual signals disabled"}
	}

	lowReq, okL := s.bookRequest(t, pair.Low)
	highReq, okH := s.bookRequest(t, pair.High)
	if !okL || !okH {
		return Outcome{PairID: pairID, Stage: StageCandidate, Reason: "listing metadata incomplete"}
	}
	lowBook, highBook, err := s.fetcher.FetchPair(ctx, lowReq, highReq)
	if err != nil {
		log.Debug().Err(err).Str("pair", pairID).Msg("book fetch failed")
		return Outcome{PairID: pairID, Stage: StageSpreadOK, Reason: "books unavailable"}
	}

	calc := spread.Calculator{MaxPositionUSD: decimal.NewFromFloat(settings.MaxPositionSizeUSD)}
	opp := calc.Build(pair, lowRec, highRec, lowBook, highBook)
	s.validator.Baselines().RecordOpportunity(ctx, &opp)

	opp.Lagging = s.detectLagging(c.Symbol, prices, settings)

	validation := s.validator.Validate(ctx, &opp, settings, safety.Input{})
	sig := s.builder.Build(&opp, validation, settings, t)
	s.persistSignal(ctx, &sig)

	if sig.Status != domain.StatusValid {
		return Outcome{PairID: pairID, Stage: StageRejected, Reason: sig.StatusNote, Signal: &sig}
	}

	status, err := s.gate.Dispatch(ctx, &sig, settings)
	sig.Status = status
	if err != nil {
		log.Warn().Err(err).Str("pair", pairID).Msg("signal dispatch failed")
	}
	if status == domain.StatusDispatched {
		return Outcome{PairID: pairID, Stage: StageEmitted, Signal: &sig}
	}
	return Outcome{PairID: pairID, Stage: StageValidated, Reason: string(status), Signal: &sig}
}

// orient picks the profitable direction for a combo, if any. The venue with
// the cheaper ask buys; the spread is measured against the other side's bid.
func orient(c registry.Combo, recA, recB domain.PriceRecord) (domain.Venue, domain.Venue, domain.PriceRecord, domain.PriceRecord, decimal.Decimal, bool) {
	nomAB, okAB := spread.NominalSpreadPct(recB.Bid, recA.Ask) // buy A, sell B
	nomBA, okBA := spread.NominalSpreadPct(recA.Bid, recB.Ask) // buy B, sell A
	switch {
	case !okAB && !okBA:
		return domain.Venue{}, domain.Venue{}, domain.PriceRecord{}, domain.PriceRecord{}, decimal.Zero, false
	case okAB && (!okBA || nomAB.GreaterThanOrEqual(nomBA)):
		return c.A, c.B, recA, recB, nomAB, true
	default:
		return c.B, c.A, recB, recA, nomBA, true
	}
}

func (s *Scanner) bookRequest(t *domain.Ticker, v domain.Venue) (books.Request, bool) {
	l, ok := t.ListingOn(v.ID)
	if !ok {
		return books.Request{}, false
	}
	return books.Request{Venue: v, Symbol: t.Symbol, NativeSymbol: l.NativeSymbol}, true
}

func (s *Scanner) detectLagging(symbol string, prices domain.PriceMap, settings config.Settings) *domain.LaggingInfo {
	if !settings.EnableLaggingSignals {
		return nil
	}
	lastByVenue := map[string]decimal.Decimal{}
	for _, r := range prices {
		if r.Symbol == symbol {
			lastByVenue[r.VenueID] = r.Last
		}
	}
	return spread.DetectLagging(lastByVenue, spread.LagConfig{
		MinExchanges:         settings.LaggingMinExchanges,
		MinDeviationPct:      decimal.NewFromFloat(settings.LaggingMinDeviationPct),
		MaxOtherDeviationPct: decimal.NewFromFloat(settings.LaggingMaxOtherDeviationPct),
	})
}

// signalHistoryLen bounds the rolling signal ring.
const signalHistoryLen = 200

// persistSignal appends the signal to the rolling history ring the CLI and
// the summary read.
func (s *Scanner) persistSignal(ctx context.Context, sig *domain.Signal) {
	raw, err := json.Marshal(sig)
	if err != nil {
		return
	}
	if err := s.kv.ListPush(ctx, store.SignalHistoryKey(), raw, signalHistoryLen, 24*time.Hour); err != nil {
		log.Debug().Err(err).Msg("signal history write failed")
	}
}

// RecentSignals loads the signal history ring, newest last.
func (s *Scanner) RecentSignals(ctx context.Context) ([]domain.Signal, error) {
	rows, err := s.kv.ListRange(ctx, store.SignalHistoryKey())
	if err != nil {
		return nil, err
	}
	out := make([]domain.Signal, 0, len(rows))
	for _, raw := range rows {
		var sig domain.Signal
		if err := json.Unmarshal(raw, &sig); err != nil {
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}

package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/collector"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/registry"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/telemetry"
)

const (
	// restartDelay is how long a crashed loop waits before respawning.
	restartDelay = 5 * time.Second

	heartbeatInterval = 30 * time.Second
	heartbeatTTL      = 90 * time.Second

	fundingInterval = time.Hour
	summaryInterval = time.Hour
)

// Orchestrator owns the long-running loops: discovery, price ticks, funding
// capture, heartbeats and the hourly summary. Each loop is supervised; a
// panic restarts the loop, not the process.
type Orchestrator struct {
	kv      store.KV
	reg     *registry.Registry
	coll    *collector.Collector
	scanner *Scanner
	metrics *telemetry.Metrics

	mu      sync.Mutex
	summary TickStats
	ticks   int
}

// NewOrchestrator wires the loops over shared components. metrics may be
// nil when running one-shot CLI commands.
func NewOrchestrator(kv store.KV, reg *registry.Registry, coll *collector.Collector,
	sc *Scanner, metrics *telemetry.Metrics) *Orchestrator {
	return &Orchestrator{kv: kv, reg: reg, coll: coll, scanner: sc, metrics: metrics}
}

// Run blocks until the context is cancelled. Discovery happens immediately
// when the inventory is empty, so a cold start becomes productive without
// waiting a full discovery interval.
func (o *Orchestrator) Run(ctx context.Context) error {
	settings := config.LoadSettings(ctx, o.kv)

	symbols, err := o.reg.Symbols(ctx)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		log.Info().Msg("inventory empty; running initial discovery")
		if err := o.reg.Discover(ctx, settings); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	run := func(name string, loop func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.supervise(ctx, name, loop)
		}()
	}

	run("scan", o.scanLoop)
	run("discovery", o.discoveryLoop)
	run("funding", o.fundingLoop)
	run("heartbeat", o.heartbeatLoop)
	run("summary", o.summaryLoop)

	<-ctx.Done()
	wg.Wait()
	log.Info().Msg("orchestrator stopped")
	return nil
}

// supervise restarts a loop after panics until the context ends.
func (o *Orchestrator) supervise(ctx context.Context, name string, loop func(context.Context)) {
	for ctx.Err() == nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("loop", name).
						Msg("loop crashed; restarting")
				}
			}()
			loop(ctx)
		}()
		if ctx.Err() != nil {
			return
		}
		select {
		case <-time.After(restartDelay):
		case <-ctx.Done():
			return
		}
	}
}

// scanLoop runs collect-then-scan on the tick cadence, re-reading settings
// each round so KV overrides apply without restarts.
func (o *Orchestrator) scanLoop(ctx context.Context) {
	for {
		settings := config.LoadSettings(ctx, o.kv)
		started := time.Now()

		if err := o.coll.Collect(ctx, settings); err != nil {
			log.Warn().Err(err).Msg("price collection failed")
		} else {
			stats, err := o.scanner.Tick(ctx, settings)
			if err != nil {
				log.Warn().Err(err).Msg("scan tick failed")
			} else {
				o.accumulate(stats)
				o.observe(ctx, stats, time.Since(started))
			}
		}

		elapsed := time.Since(started)
		wait := settings.TickInterval() - elapsed
		if wait < 0 {
			wait = 0
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

func (o *Orchestrator) discoveryLoop(ctx context.Context) {
	for {
		settings := config.LoadSettings(ctx, o.kv)
		select {
		case <-time.After(settings.DiscoveryInterval()):
		case <-ctx.Done():
			return
		}
		if err := o.reg.Discover(ctx, config.LoadSettings(ctx, o.kv)); err != nil {
			log.Error().Err(err).Msg("discovery cycle failed")
		}
	}
}

func (o *Orchestrator) fundingLoop(ctx context.Context) {
	// capture once at start, then hourly
	if err := o.coll.CollectFunding(ctx); err != nil {
		log.Warn().Err(err).Msg("funding capture failed")
	}
	ticker := time.NewTicker(fundingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := o.coll.CollectFunding(ctx); err != nil {
				log.Warn().Err(err).Msg("funding capture failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (o *Orchestrator) heartbeatLoop(ctx context.Context) {
	beat := func() {
		ts := []byte(time.Now().UTC().Format(time.RFC3339))
		if err := o.kv.Set(ctx, store.HealthKey("scanner"), ts, heartbeatTTL); err != nil {
			log.Debug().Err(err).Msg("heartbeat write failed")
		}
	}
	beat()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			beat()
		case <-ctx.Done():
			return
		}
	}
}

func (o *Orchestrator) summaryLoop(ctx context.Context) {
	ticker := time.NewTicker(summaryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			o.logSummary()
		case <-ctx.Done():
			o.logSummary()
			return
		}
	}
}

func (o *Orchestrator) observe(ctx context.Context, stats TickStats, took time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.TickDuration.Observe(took.Seconds())
	o.metrics.TicksTotal.Inc()
	o.metrics.CombosScanned.Add(float64(stats.Combos))
	o.metrics.SpreadOK.Add(float64(stats.SpreadOK))
	o.metrics.SignalsEmitted.Add(float64(stats.Emitted))
	o.metrics.SignalsBlocked.Add(float64(stats.Validated - stats.Emitted))
	if prices, err := o.coll.Latest(ctx); err == nil {
		o.metrics.PriceRecords.Set(float64(len(prices)))
	}
}

func (o *Orchestrator) accumulate(stats TickStats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ticks++
	o.summary.Combos += stats.Combos
	o.summary.SpreadOK += stats.SpreadOK
	o.summary.Validated += stats.Validated
	o.summary.Emitted += stats.Emitted
	o.summary.Rejected += stats.Rejected
}

func (o *Orchestrator) logSummary() {
	o.mu.Lock()
	s, ticks := o.summary, o.ticks
	o.summary, o.ticks = TickStats{}, 0
	o.mu.Unlock()

	log.Info().
		Int("ticks", ticks).
		Int("combos", s.Combos).
		Int("spread_ok", s.SpreadOK).
		Int("validated", s.Validated).
		Int("emitted", s.Emitted).
		Int("rejected", s.Rejected).
		Msg("hourly scan summary")
}

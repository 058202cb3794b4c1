package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/alert"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/books"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/collector"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/netx"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/registry"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/safety"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/scanner"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/venues"
)

// hostRPS caps outbound requests per venue host; burst absorbs the fan-out
// at tick start.
const (
	hostRPS   = 10
	hostBurst = 20
)

// app bundles the wired components shared by every command.
type app struct {
	cfg   *config.Config
	kv    store.KV
	reg   *registry.Registry
	coll  *collector.Collector
	books *books.Fetcher
	gate  *alert.Gate
	tx    alert.Dispatcher
	scan  *scanner.Scanner
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagLogLevel == "" && cfg.LogLevel != "" {
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	}
	return cfg, nil
}

// newStore connects to Redis; when it is unreachable the scanner degrades to
// the in-memory store so one-shot commands still work offline.
func newStore(ctx context.Context, cfg *config.Config) store.KV {
	r := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).
			Msg("redis unreachable, falling back to in-memory store")
		return store.NewMemory()
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
	return r
}

// defaultVenues is the roster used when the config file lists none.
func defaultVenues() []config.VenueConfig {
	return []config.VenueConfig{
		{ID: "binance_spot", Exchange: "binance", Kind: "cex_spot", Enabled: true},
		{ID: "binance_futures", Exchange: "binance", Kind: "cex_futures", Enabled: true},
		{ID: "bybit_spot", Exchange: "bybit", Kind: "cex_spot", Enabled: true},
		{ID: "bybit_futures", Exchange: "bybit", Kind: "cex_futures", Enabled: true},
		{ID: "kraken_spot", Exchange: "kraken", Kind: "cex_spot", Enabled: true},
		{ID: "hyperliquid", Exchange: "hyperliquid", Kind: "perp_dex", Enabled: true},
		{ID: "dex_solana", Exchange: "dexscreener", Kind: "dex_spot", Chain: "solana", Enabled: true},
		{ID: "dex_ethereum", Exchange: "dexscreener", Kind: "dex_spot", Chain: "ethereum", Enabled: true},
		{ID: "dex_base", Exchange: "dexscreener", Kind: "dex_spot", Chain: "base", Enabled: true},
	}
}

// buildAdapters instantiates one adapter per enabled exchange (per chain for
// the DEX aggregator), all sharing a host limiter and breaker set.
func buildAdapters(cfg *config.Config) ([]venues.Adapter, error) {
	roster := cfg.Venues
	if len(roster) == 0 {
		roster = defaultVenues()
	}

	limiter := netx.NewHostLimiter(hostRPS, hostBurst)
	breakers := netx.NewBreakerSet()

	seen := map[string]bool{}
	var out []venues.Adapter
	for _, vc := range roster {
		if !vc.Enabled {
			continue
		}
		key := vc.Exchange + "/" + vc.Chain
		if seen[key] {
			continue
		}
		seen[key] = true

		a, err := venues.New(vc.Exchange, venues.AdapterConfig{
			BaseURL:        vc.BaseURL,
			Chain:          vc.Chain,
			RequestTimeout: cfg.HTTP.RequestTimeout,
			MaxRetries:     cfg.HTTP.MaxRetries,
			MaxConcurrency: cfg.HTTP.MaxConcurrency,
			InsecureHosts:  cfg.HTTP.InsecureHosts,
			Limiter:        limiter,
			Breakers:       breakers,
		})
		if err != nil {
			return nil, fmt.Errorf("venue %s: %w", vc.ID, err)
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no venues enabled")
	}
	return out, nil
}

// logDispatcher stands in for Telegram when no bot token is configured.
type logDispatcher struct{}

func (logDispatcher) Send(_ context.Context, text string) error {
	log.Info().Msg("ALERT (telegram disabled):\n" + text)
	return nil
}

func newDispatcher(cfg *config.Config) alert.Dispatcher {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		log.Warn().Msg("telegram not configured, alerts go to the log only")
		return logDispatcher{}
	}
	return alert.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	kv := newStore(ctx, cfg)

	adapters, err := buildAdapters(cfg)
	if err != nil {
		return nil, err
	}
	reg := registry.New(kv, adapters)
	coll := collector.New(kv, reg)
	fetcher := books.NewFetcher(kv, reg)
	validator := safety.NewValidator(kv)
	tx := newDispatcher(cfg)
	gate := alert.NewGate(kv, tx)
	sc := scanner.New(kv, reg, coll, fetcher, validator, gate)

	return &app{
		cfg:   cfg,
		kv:    kv,
		reg:   reg,
		coll:  coll,
		books: fetcher,
		gate:  gate,
		tx:    tx,
		scan:  sc,
	}, nil
}

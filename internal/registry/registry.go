// Package registry maintains the unified symbol inventory: which venues list
// each base asset, the chain to contract mapping, and the transfer network
// metadata pairs are later derived from.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/venues"
)

// assetDetailConcurrency bounds parallel asset-detail calls per discovery
// cycle.
const assetDetailConcurrency = 8

// contractIndexTTL expires the contract reverse index between rebuilds.
const contractIndexTTL = 24 * time.Hour

// Registry runs the discovery protocol and persists the inventory.
type Registry struct {
	kv       store.KV
	adapters []venues.Adapter
	dexes    []venues.DexSource
}

// New builds a registry over the configured adapters. DEX sources are
// discovered among the adapters by capability.
func New(kv store.KV, adapters []venues.Adapter) *Registry {
	r := &Registry{kv: kv, adapters: adapters}
	for _, a := range adapters {
		if d, ok := a.(venues.DexSource); ok {
			r.dexes = append(r.dexes, d)
		}
	}
	return r
}

// listing is one adapter's contribution during discovery.
type listing struct {
	venue  domain.Venue
	symbol venues.SymbolInfo
}

// Discover executes one full discovery cycle. A failing adapter loses only
// its own contribution; existing tickers are never overwritten with empty
// results.
func (r *Registry) Discover(ctx context.Context, settings config.Settings) error {
	started := time.Now()
	listings := r.collectListings(ctx)
	if len(listings) == 0 {
		log.Warn().Msg("discovery found no listings; keeping existing inventory")
		return nil
	}

	tickers := r.groupListings(listings)
	r.mergeAssetDetails(ctx, tickers)
	r.probeDexListings(ctx, tickers, settings)

	if err := r.persist(ctx, tickers); err != nil {
		return err
	}
	log.Info().
		Int("tickers", len(tickers)).
		Dur("took", time.Since(started)).
		Msg("discovery cycle complete")
	return nil
}

// collectListings fans out symbol listing across all adapters in parallel.
func (r *Registry) collectListings(ctx context.Context) []listing {
	var mu sync.Mutex
	var out []listing
	var wg sync.WaitGroup

	add := func(v domain.Venue, syms []venues.SymbolInfo) {
		mu.Lock()
		defer mu.Unlock()
		for _, s := range syms {
			out = append(out, listing{venue: v, symbol: s})
		}
	}

	for _, a := range r.adapters {
		for _, v := range a.Venues() {
			wg.Add(1)
			go func(a venues.Adapter, v domain.Venue) {
				defer wg.Done()
				var syms []venues.SymbolInfo
				var err error
				switch v.Kind {
				case domain.KindCexFutures, domain.KindPerpDex:
					syms, err = a.FuturesSymbols(ctx)
				case domain.KindCexSpot:
					syms, err = a.SpotSymbols(ctx)
				default:
					return // dex listings come from contract probes
				}
				if err != nil {
					log.Warn().Err(err).Str("venue", v.ID).Msg("symbol listing failed; skipping venue this cycle")
					return
				}
				add(v, syms)
			}(a, v)
		}
	}
	wg.Wait()
	return out
}

// groupListings folds raw listings into tickers keyed by normalized base
// asset.
func (r *Registry) groupListings(listings []listing) map[string]*domain.Ticker {
	tickers := make(map[string]*domain.Ticker)
	for _, l := range listings {
		sym := domain.NormalizeSymbol(l.symbol.BaseAsset)
		if sym == "" {
			continue
		}
		t, ok := tickers[sym]
		if !ok {
			t = &domain.Ticker{Symbol: sym}
			tickers[sym] = t
		}
		t.AddListing(domain.VenueListing{
			VenueID:      l.venue.ID,
			Kind:         l.venue.Kind,
			NativeSymbol: l.symbol.Symbol,
		})
	}
	return tickers
}

// mergeAssetDetails fetches per-exchange network metadata under a bounded
// semaphore and merges contracts, flagging conflicts.
func (r *Registry) mergeAssetDetails(ctx context.Context, tickers map[string]*domain.Ticker) {
	details := make(map[string]venues.AssetDetailSource)
	for _, a := range r.adapters {
		if src, ok := a.(venues.AssetDetailSource); ok {
			details[a.Exchange()] = src
		}
	}
	if len(details) == 0 {
		return
	}

	sem := make(chan struct{}, assetDetailConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, t := range tickers {
		exchanges := r.exchangesListing(t)
		for exch := range exchanges {
			src, ok := details[exch]
			if !ok {
				continue
			}
			wg.Add(1)
			go func(t *domain.Ticker, exch string, src venues.AssetDetailSource) {
				defer wg.Done()
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					return
				}

				d, err := src.AssetDetails(ctx, t.Symbol)
				if err != nil {
					log.Debug().Err(err).Str("exchange", exch).Str("symbol", t.Symbol).
						Msg("asset details unavailable")
					return
				}
				mu.Lock()
				defer mu.Unlock()
				for _, n := range d.Networks {
					if n.Chain == "" {
						continue
					}
					t.SetNetwork(exch, n)
					if !t.MergeContract(n.Chain, n.Contract) {
						log.Warn().Str("symbol", t.Symbol).Str("chain", n.Chain).
							Str("exchange", exch).
							Msg("contract address conflict between exchanges")
					}
				}
			}(t, exch, src)
		}
	}
	wg.Wait()
}

func (r *Registry) exchangesListing(t *domain.Ticker) map[string]struct{} {
	byVenue := make(map[string]string)
	for _, a := range r.adapters {
		for _, v := range a.Venues() {
			byVenue[v.ID] = v.Exchange
		}
	}
	out := make(map[string]struct{})
	for _, l := range t.Listings {
		if l.Kind != domain.KindCexSpot && l.Kind != domain.KindCexFutures {
			continue
		}
		if exch, ok := byVenue[l.VenueID]; ok {
			out[exch] = struct{}{}
		}
	}
	return out
}

// probeDexListings asks each chain-matching DEX source whether the contract
// trades with enough liquidity, contributing dex_spot listings.
func (r *Registry) probeDexListings(ctx context.Context, tickers map[string]*domain.Ticker, settings config.Settings) {
	minLiquidity := settings.MinDexLiquidityUSD
	for _, t := range tickers {
		for chain, contract := range t.Contracts {
			for _, dex := range r.dexes {
				if dex.Chain() != chain {
					continue
				}
				tok, found, err := dex.TokenLiquidity(ctx, contract)
				if err != nil {
					log.Debug().Err(err).Str("symbol", t.Symbol).Str("chain", chain).
						Msg("dex probe failed")
					continue
				}
				if !found || tok.LiquidityUSD.InexactFloat64() < minLiquidity {
					continue
				}
				t.AddListing(domain.VenueListing{
					VenueID:      "dex_" + chain,
					Kind:         domain.KindDexSpot,
					NativeSymbol: contract,
				})
			}
		}
	}
}

// persist writes tickers and indexes. Tickers that lost every listing this
// cycle are skipped so a flaky cycle cannot erase inventory.
func (r *Registry) persist(ctx context.Context, tickers map[string]*domain.Ticker) error {
	now := time.Now()
	exchangeByVenue := make(map[string]string)
	kindByVenue := make(map[string]domain.VenueKind)
	for _, a := range r.adapters {
		for _, v := range a.Venues() {
			exchangeByVenue[v.ID] = v.Exchange
			kindByVenue[v.ID] = v.Kind
		}
	}

	for sym, t := range tickers {
		if len(t.Listings) == 0 {
			continue
		}
		t.UpdatedAt = now
		if err := store.SetJSON(ctx, r.kv, store.TickerKey(sym), t, 0); err != nil {
			return err
		}
		if err := r.kv.SAdd(ctx, store.AllSymbolsKey(), sym); err != nil {
			return err
		}
		for _, l := range t.Listings {
			exch := exchangeByVenue[l.VenueID]
			market := "spot"
			if kindByVenue[l.VenueID] == domain.KindCexFutures || kindByVenue[l.VenueID] == domain.KindPerpDex {
				market = "futures"
			}
			if exch != "" {
				if err := r.kv.SAdd(ctx, store.ByExchangeKey(exch, market), sym); err != nil {
					return err
				}
			}
		}
		for chain, contract := range t.Contracts {
			if err := r.kv.Set(ctx, store.ContractKey(chain, contract), []byte(sym), contractIndexTTL); err != nil {
				return err
			}
		}
	}
	return r.kv.Set(ctx, store.TickersLastUpdateKey(),
		[]byte(now.UTC().Format(time.RFC3339)), 0)
}

// Ticker loads one ticker from the inventory.
func (r *Registry) Ticker(ctx context.Context, symbol string) (*domain.Ticker, bool, error) {
	var t domain.Ticker
	found, err := store.GetJSON(ctx, r.kv, store.TickerKey(symbol), &t)
	if err != nil || !found {
		return nil, false, err
	}
	return &t, true, nil
}

// Symbols lists every tracked symbol.
func (r *Registry) Symbols(ctx context.Context) ([]string, error) {
	return r.kv.SMembers(ctx, store.AllSymbolsKey())
}

// VenueByID resolves a venue record from the adapter roster.
func (r *Registry) VenueByID(id string) (domain.Venue, bool) {
	for _, a := range r.adapters {
		for _, v := range a.Venues() {
			if v.ID == id {
				return v, true
			}
		}
	}
	return domain.Venue{}, false
}

// AdapterFor resolves the adapter backing a venue id.
func (r *Registry) AdapterFor(venueID string) (venues.Adapter, bool) {
	for _, a := range r.adapters {
		for _, v := range a.Venues() {
			if v.ID == venueID {
				return a, true
			}
		}
	}
	return nil, false
}

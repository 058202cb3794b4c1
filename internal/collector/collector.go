// Package collector runs the price tick: batch ticker pulls from every CEX
// venue, bulk contract prices from the DEX aggregators, and the merged
// prices:latest union the scanner reads.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/venues"
)

// workerBudget bounds one venue's batch call inside a tick. A slow venue
// loses its slot, not the whole tick.
const workerBudget = 15 * time.Second

// recordTTL is how long a price record stays usable. Older records are
// dropped from the union; a venue dark for longer than this contributes no
// candidates.
const recordTTL = 60 * time.Second

// dexDeviationFactor drops DEX prices that sit more than this factor away
// from the CEX median for the same symbol; such pools track a different
// asset under a recycled symbol.
var dexDeviationFactor = decimal.NewFromInt(10)

// Inventory is the registry surface the collector needs.
type Inventory interface {
	Symbols(ctx context.Context) ([]string, error)
	Ticker(ctx context.Context, symbol string) (*domain.Ticker, bool, error)
	AdapterFor(venueID string) (venues.Adapter, bool)
	VenueByID(id string) (domain.Venue, bool)
}

// Collector executes price ticks against the inventory.
type Collector struct {
	kv  store.KV
	inv Inventory
	now func() time.Time
}

// New builds a collector.
func New(kv store.KV, inv Inventory) *Collector {
	return &Collector{kv: kv, inv: inv, now: time.Now}
}

// plan maps venue id -> native symbol -> canonical symbol.
type plan map[string]map[string]string

func (c *Collector) buildPlan(ctx context.Context) (plan, error) {
	symbols, err := c.inv.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	p := make(plan)
	for _, sym := range symbols {
		t, found, err := c.inv.Ticker(ctx, sym)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		for _, l := range t.Listings {
			m, ok := p[l.VenueID]
			if !ok {
				m = make(map[string]string)
				p[l.VenueID] = m
			}
			m[l.NativeSymbol] = sym
		}
	}
	return p, nil
}

// Collect runs one price tick: fan out per venue, validate, cross-check DEX
// prices against the CEX consensus, and merge the union into prices:latest.
// A failing venue keeps its previous records in the union until they age out.
func (c *Collector) Collect(ctx context.Context, settings config.Settings) error {
	p, err := c.buildPlan(ctx)
	if err != nil {
		return err
	}

	fetched := c.fetchCex(ctx, p)
	dexRecords := c.fetchDex(ctx, p, settings)
	c.crossValidateDex(fetched, dexRecords)
	for k, r := range dexRecords {
		fetched[k] = r
	}

	merged := domain.PriceMap{}
	if _, err := store.GetJSON(ctx, c.kv, store.PricesLatestKey(), &merged); err != nil {
		log.Debug().Err(err).Msg("previous price union unreadable; starting empty")
		merged = domain.PriceMap{}
	}
	c.pruneExpired(merged)
	for k, r := range fetched {
		merged[k] = r
	}

	ttl := 2 * settings.TickInterval()
	if err := store.SetJSON(ctx, c.kv, store.PricesLatestKey(), merged, ttl); err != nil {
		return err
	}
	if err := c.kv.Set(ctx, store.PricesLastUpdateKey(),
		[]byte(c.now().UTC().Format(time.RFC3339)), 0); err != nil {
		return err
	}

	log.Debug().Int("fetched", len(fetched)).Int("union", len(merged)).
		Msg("price tick complete")
	return nil
}

// fetchCex pulls batch tickers from every non-DEX venue in parallel.
func (c *Collector) fetchCex(ctx context.Context, p plan) domain.PriceMap {
	var mu sync.Mutex
	var wg sync.WaitGroup
	out := domain.PriceMap{}

	for venueID, natives := range p {
		venue, ok := c.inv.VenueByID(venueID)
		if !ok || venue.Kind == domain.KindDexSpot {
			continue
		}
		adapter, ok := c.inv.AdapterFor(venueID)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(venue domain.Venue, adapter venues.Adapter, natives map[string]string) {
			defer wg.Done()
			wctx, cancel := context.WithTimeout(ctx, workerBudget)
			defer cancel()

			quotes, err := adapter.Tickers(wctx, venue.Kind)
			if err != nil {
				log.Warn().Err(err).Str("venue", venue.ID).
					Msg("ticker batch failed; venue skipped this tick")
				return
			}
			now := c.now()
			mu.Lock()
			defer mu.Unlock()
			for native, q := range quotes {
				sym, tracked := natives[native]
				if !tracked {
					continue
				}
				rec := domain.PriceRecord{
					VenueID:    venue.ID,
					Symbol:     sym,
					Kind:       venue.Kind,
					Bid:        q.Bid,
					Ask:        q.Ask,
					Last:       q.Last,
					VenueTime:  q.Timestamp,
					ReceivedAt: now,
				}
				if !rec.Valid() {
					continue
				}
				out[domain.PriceKey(venue.ID, sym)] = rec
			}
		}(venue, adapter, natives)
	}
	wg.Wait()
	return out
}

// fetchDex bulk-prices tracked contracts per chain. Pools below the
// liquidity floor are dropped even if discovery admitted them earlier.
func (c *Collector) fetchDex(ctx context.Context, p plan, settings config.Settings) domain.PriceMap {
	out := domain.PriceMap{}
	for venueID, natives := range p {
		venue, ok := c.inv.VenueByID(venueID)
		if !ok || venue.Kind != domain.KindDexSpot {
			continue
		}
		adapter, ok := c.inv.AdapterFor(venueID)
		if !ok {
			continue
		}
		dex, ok := adapter.(venues.DexSource)
		if !ok {
			continue
		}

		contracts := make([]string, 0, len(natives))
		for contract := range natives {
			contracts = append(contracts, contract)
		}
		wctx, cancel := context.WithTimeout(ctx, workerBudget)
		prices, err := dex.BulkPrices(wctx, contracts)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("venue", venueID).Msg("dex bulk prices failed")
			continue
		}

		now := c.now()
		for contract, tok := range prices {
			sym, tracked := natives[contract]
			if !tracked {
				continue
			}
			if tok.LiquidityUSD.InexactFloat64() < settings.MinDexLiquidityUSD {
				continue
			}
			if !tok.PriceUSD.IsPositive() {
				continue
			}
			out[domain.PriceKey(venueID, sym)] = domain.PriceRecord{
				VenueID:    venueID,
				Symbol:     sym,
				Kind:       domain.KindDexSpot,
				Bid:        tok.PriceUSD,
				Ask:        tok.PriceUSD,
				Last:       tok.PriceUSD,
				VenueTime:  now,
				ReceivedAt: now,
			}
		}
	}
	return out
}

// crossValidateDex removes DEX records whose price is an order of magnitude
// away from the CEX median for the symbol.
func (c *Collector) crossValidateDex(cex, dex domain.PriceMap) {
	lastBySymbol := map[string][]decimal.Decimal{}
	for _, r := range cex {
		if r.Last.IsPositive() {
			lastBySymbol[r.Symbol] = append(lastBySymbol[r.Symbol], r.Last)
		}
	}
	for key, r := range dex {
		refs, ok := lastBySymbol[r.Symbol]
		if !ok || len(refs) == 0 {
			continue // no CEX consensus to check against
		}
		ref := medianOf(refs)
		if !ref.IsPositive() {
			continue
		}
		ratio := r.Last.Div(ref)
		if ratio.GreaterThan(dexDeviationFactor) ||
			ratio.LessThan(decimal.NewFromInt(1).Div(dexDeviationFactor)) {
			log.Warn().Str("symbol", r.Symbol).Str("venue", r.VenueID).
				Str("dex_price", r.Last.String()).Str("cex_median", ref.String()).
				Msg("dex price fails cross-validation; dropped")
			delete(dex, key)
		}
	}
}

func medianOf(vals []decimal.Decimal) decimal.Decimal {
	sorted := append([]decimal.Decimal(nil), vals...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].LessThan(sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
}

// Latest loads the current price union. Expired records are absent: readers
// never see a quote from a venue that went dark more than a TTL ago.
func (c *Collector) Latest(ctx context.Context) (domain.PriceMap, error) {
	m := domain.PriceMap{}
	if _, err := store.GetJSON(ctx, c.kv, store.PricesLatestKey(), &m); err != nil {
		return nil, err
	}
	c.pruneExpired(m)
	return m, nil
}

// pruneExpired drops records older than the record TTL.
func (c *Collector) pruneExpired(m domain.PriceMap) {
	now := c.now()
	for k, r := range m {
		if !r.Fresh(now, recordTTL) {
			delete(m, k)
		}
	}
}

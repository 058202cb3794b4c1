// Package books serves order-book snapshots with a short KV cache in front
// of the venue adapters. DEX venues have no native depth; their books are
// synthesized from pool impact curves.
package books

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/venues"
)

// Source resolves venues to their adapters. *registry.Registry satisfies it.
type Source interface {
	AdapterFor(venueID string) (venues.Adapter, bool)
	VenueByID(id string) (domain.Venue, bool)
}

const (
	// DefaultTTL is how long a snapshot counts as fresh.
	DefaultTTL = 60 * time.Second

	// staleFactor extends the cache window for failure fallback: a fetch
	// error may be answered from cache up to staleFactor x TTL.
	staleFactor = 2

	// fetchBudget bounds one parallel fetch round.
	fetchBudget = 15 * time.Second
)

// cachedBook is the KV envelope; StoredAt drives freshness decisions.
type cachedBook struct {
	Book     domain.OrderBookSnapshot `json:"book"`
	StoredAt time.Time                `json:"stored_at"`
}

// Fetcher loads books cache-first and synthesizes DEX ladders.
type Fetcher struct {
	kv  store.KV
	src Source
	ttl time.Duration
	now func() time.Time
}

// NewFetcher builds a fetcher with the default freshness window.
func NewFetcher(kv store.KV, src Source) *Fetcher {
	return &Fetcher{kv: kv, src: src, ttl: DefaultTTL, now: time.Now}
}

// Request names one book to fetch. NativeSymbol is the venue-native
// instrument (a contract address for DEX venues).
type Request struct {
	Venue        domain.Venue
	Symbol       string
	NativeSymbol string
	Depth        int
}

// Fetch returns the book for one request: fresh cache hit, live fetch, or
// stale cache fallback, in that order. Stale fallback covers fetch failures
// only and is bounded at twice the freshness window.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*domain.OrderBookSnapshot, error) {
	key := store.OrderbookCacheKey(req.Venue.ID, req.Symbol)

	var env cachedBook
	found, err := store.GetJSON(ctx, f.kv, key, &env)
	if err != nil {
		log.Debug().Err(err).Str("venue", req.Venue.ID).Msg("book cache read failed")
		found = false
	}
	if found && f.now().Sub(env.StoredAt) <= f.ttl {
		b := env.Book
		b.Cached = true
		return &b, nil
	}

	book, fetchErr := f.fetchLive(ctx, req)
	if fetchErr == nil {
		env = cachedBook{Book: *book, StoredAt: f.now()}
		if err := store.SetJSON(ctx, f.kv, key, env, staleFactor*f.ttl); err != nil {
			log.Debug().Err(err).Str("venue", req.Venue.ID).Msg("book cache write failed")
		}
		return book, nil
	}

	if found && f.now().Sub(env.StoredAt) <= staleFactor*f.ttl {
		log.Warn().Err(fetchErr).Str("venue", req.Venue.ID).Str("symbol", req.Symbol).
			Msg("book fetch failed; serving stale cache")
		b := env.Book
		b.Cached = true
		return &b, nil
	}
	return nil, fetchErr
}

func (f *Fetcher) fetchLive(ctx context.Context, req Request) (*domain.OrderBookSnapshot, error) {
	adapter, ok := f.src.AdapterFor(req.Venue.ID)
	if !ok {
		return nil, fmt.Errorf("books: no adapter for venue %s", req.Venue.ID)
	}
	depth := req.Depth
	if depth <= 0 {
		depth = venues.DefaultDepth
	}

	if req.Venue.Kind == domain.KindDexSpot {
		dex, ok := adapter.(venues.DexSource)
		if !ok {
			return nil, fmt.Errorf("books: venue %s is dex_spot but adapter has no pool access", req.Venue.ID)
		}
		return f.fetchSynthetic(ctx, dex, req)
	}

	book, err := adapter.OrderBook(ctx, req.NativeSymbol, depth, req.Venue.Kind)
	if err != nil {
		return nil, err
	}
	book.Symbol = req.Symbol
	return book, nil
}

func (f *Fetcher) fetchSynthetic(ctx context.Context, dex venues.DexSource, req Request) (*domain.OrderBookSnapshot, error) {
	requested := f.now()
	tok, found, err := dex.TokenLiquidity(ctx, req.NativeSymbol)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("books: contract %s not found on %s", req.NativeSymbol, req.Venue.ID)
	}
	quotes, err := dex.ImpactCurve(ctx, req.NativeSymbol, venues.ImpactProbesUSD)
	if err != nil {
		return nil, err
	}
	book := BuildSynthetic(req.Venue.ID, req.Symbol, tok.PriceUSD, quotes)
	book.RequestedAt = requested
	book.ReceivedAt = f.now()
	book.VenueTime = book.ReceivedAt
	return book, nil
}

// pairBook tags a parallel fetch result with its slot.
type pairBook struct {
	book *domain.OrderBookSnapshot
	err  error
	low  bool
}

// FetchPair loads both legs of an oriented pair concurrently under one time
// budget. Either failing fails the call.
func (f *Fetcher) FetchPair(ctx context.Context, low, high Request) (*domain.OrderBookSnapshot, *domain.OrderBookSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchBudget)
	defer cancel()

	results := make(chan pairBook, 2)
	for _, r := range []struct {
		req Request
		low bool
	}{{low, true}, {high, false}} {
		go func(req Request, isLow bool) {
			b, err := f.Fetch(ctx, req)
			results <- pairBook{book: b, err: err, low: isLow}
		}(r.req, r.low)
	}

	var lowBook, highBook *domain.OrderBookSnapshot
	for i := 0; i < 2; i++ {
		res := <-results
		if res.err != nil {
			return nil, nil, res.err
		}
		if res.low {
			lowBook = res.book
		} else {
			highBook = res.book
		}
	}
	return lowBook, highBook, nil
}

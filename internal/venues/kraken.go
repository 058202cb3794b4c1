package venues

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/netx"
)

const krakenBaseURL = "https://api.kraken.com"

// Kraken backs kraken_spot. Kraken has no USDT-margined perps in our roster,
// so FuturesSymbols is empty.
type Kraken struct {
	baseURL  string
	pool     *netx.Pool
	breakers *netx.BreakerSet

	// pairAltnames caches wsname -> altname from the last AssetPairs call;
	// the Ticker endpoint keys results by altname.
	pairAltnames map[string]string
}

func NewKraken(cfg AdapterConfig) *Kraken {
	k := &Kraken{baseURL: krakenBaseURL, pool: cfg.pool(), breakers: cfg.Breakers}
	if cfg.BaseURL != "" {
		k.baseURL = cfg.BaseURL
	}
	return k
}

func (k *Kraken) Exchange() string { return "kraken" }

func (k *Kraken) Venues() []domain.Venue {
	return []domain.Venue{
		{ID: "kraken_spot", Exchange: "kraken", Kind: domain.KindCexSpot},
	}
}

const krakenVenueID = "kraken_spot"

type krakenResponse struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

func (k *Kraken) call(ctx context.Context, path string, out interface{}) error {
	var env krakenResponse
	if err := k.guarded(func() error {
		return getJSON(ctx, k.pool, krakenVenueID, k.baseURL+path, nil, &env)
	}); err != nil {
		return err
	}
	if len(env.Error) > 0 {
		return NewVenueError(krakenVenueID, ErrHTTP, strings.Join(env.Error, "; "))
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return ParseError(krakenVenueID, err)
	}
	return nil
}

func (k *Kraken) FuturesSymbols(context.Context) ([]SymbolInfo, error) {
	return nil, nil
}

type krakenPair struct {
	Altname string `json:"altname"`
	WSName  string `json:"wsname"`
	Base    string `json:"base"`
	Quote   string `json:"quote"`
	Status  string `json:"status"`
}

func (k *Kraken) SpotSymbols(ctx context.Context) ([]SymbolInfo, error) {
	var pairs map[string]krakenPair
	if err := k.call(ctx, "/0/public/AssetPairs", &pairs); err != nil {
		return nil, err
	}
	k.pairAltnames = make(map[string]string, len(pairs))
	var out []SymbolInfo
	for _, p := range pairs {
		if p.Status != "online" {
			continue
		}
		// USD and USDT quoted markets both qualify
		if p.Quote != "ZUSD" && p.Quote != "USDT" {
			continue
		}
		base := strings.TrimPrefix(p.Base, "X")
		base = strings.TrimPrefix(base, "Z")
		out = append(out, SymbolInfo{
			Symbol:     p.Altname,
			BaseAsset:  base,
			QuoteAsset: p.Quote,
			Status:     p.Status,
		})
		k.pairAltnames[p.WSName] = p.Altname
	}
	return out, nil
}

// krakenTicker carries the touch: c = last trade, b = bid, a = ask.
type krakenTicker struct {
	A []string `json:"a"`
	B []string `json:"b"`
	C []string `json:"c"`
}

func (k *Kraken) Tickers(ctx context.Context, kind domain.VenueKind) (map[string]TickerQuote, error) {
	if kind != domain.KindCexSpot {
		return map[string]TickerQuote{}, nil
	}
	// without a pair filter Kraken returns every tradable pair in one call
	var res map[string]krakenTicker
	if err := k.call(ctx, "/0/public/Ticker", &res); err != nil {
		return nil, err
	}
	now := time.Now()
	out := make(map[string]TickerQuote, len(res))
	for pair, t := range res {
		if len(t.A) == 0 || len(t.B) == 0 {
			continue
		}
		ask, err1 := decimal.NewFromString(t.A[0])
		bid, err2 := decimal.NewFromString(t.B[0])
		if err1 != nil || err2 != nil {
			continue
		}
		var last decimal.Decimal
		if len(t.C) > 0 {
			last, _ = decimal.NewFromString(t.C[0])
		}
		out[pair] = TickerQuote{Bid: bid, Ask: ask, Last: last, Timestamp: now}
	}
	return out, nil
}

type krakenDepthSide [][]interface{}

type krakenDepth struct {
	Bids krakenDepthSide `json:"bids"`
	Asks krakenDepthSide `json:"asks"`
}

func (k *Kraken) OrderBook(ctx context.Context, symbol string, depth int, kind domain.VenueKind) (*domain.OrderBookSnapshot, error) {
	if depth <= 0 {
		depth = DefaultDepth
	}
	requested := time.Now()
	var res map[string]krakenDepth
	path := fmt.Sprintf("/0/public/Depth?pair=%s&count=%d", url.QueryEscape(symbol), depth)
	if err := k.call(ctx, path, &res); err != nil {
		return nil, err
	}

	snap := &domain.OrderBookSnapshot{
		VenueID:     krakenVenueID,
		Symbol:      symbol,
		VenueTime:   time.Now(),
		RequestedAt: requested,
		ReceivedAt:  time.Now(),
	}
	for _, book := range res {
		var err error
		if snap.Bids, err = parseMixedLevels(book.Bids); err != nil {
			return nil, ParseError(krakenVenueID, err)
		}
		if snap.Asks, err = parseMixedLevels(book.Asks); err != nil {
			return nil, ParseError(krakenVenueID, err)
		}
		break // response holds exactly one pair
	}
	return snap, nil
}

// AssetDetails: Kraken's funding methods endpoint is private; transfer
// metadata for kraken pairs comes from the other CEXes listing the asset.
func (k *Kraken) AssetDetails(ctx context.Context, asset string) (*AssetDetails, error) {
	return nil, NewVenueError(krakenVenueID, ErrHTTP, "asset details not exposed publicly")
}

func (k *Kraken) guarded(fn func() error) error {
	if k.breakers == nil {
		return fn()
	}
	_, err := k.breakers.Execute(krakenVenueID, func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// parseMixedLevels handles Kraken's [price, volume, timestamp] rows where
// price and volume arrive as JSON strings but timestamps as numbers.
func parseMixedLevels(rows krakenDepthSide) ([]domain.BookLevel, error) {
	out := make([]domain.BookLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("short level row: %v", row)
		}
		ps, ok1 := row[0].(string)
		qs, ok2 := row[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("unexpected level types: %v", row)
		}
		price, err := decimal.NewFromString(ps)
		if err != nil {
			return nil, err
		}
		qty, err := decimal.NewFromString(qs)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.BookLevel{Price: price, Quantity: qty})
	}
	return out, nil
}

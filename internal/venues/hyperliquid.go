package venues

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/netx"
)

const hyperliquidBaseURL = "https://api.hyperliquid.xyz"

// Hyperliquid backs the hyperliquid perp-DEX venue. Everything goes through
// the single POST /info endpoint with a type discriminator.
type Hyperliquid struct {
	baseURL  string
	pool     *netx.Pool
	breakers *netx.BreakerSet
}

func NewHyperliquid(cfg AdapterConfig) *Hyperliquid {
	h := &Hyperliquid{baseURL: hyperliquidBaseURL, pool: cfg.pool(), breakers: cfg.Breakers}
	if cfg.BaseURL != "" {
		h.baseURL = cfg.BaseURL
	}
	return h
}

const hyperliquidVenueID = "hyperliquid"

func (h *Hyperliquid) Exchange() string { return "hyperliquid" }

func (h *Hyperliquid) Venues() []domain.Venue {
	return []domain.Venue{
		{ID: hyperliquidVenueID, Exchange: "hyperliquid", Kind: domain.KindPerpDex, Chain: "arbitrum"},
	}
}

func (h *Hyperliquid) info(ctx context.Context, body, out interface{}) error {
	return h.guarded(func() error {
		return postJSON(ctx, h.pool, hyperliquidVenueID, h.baseURL+"/info", body, out)
	})
}

type hlMeta struct {
	Universe []struct {
		Name       string `json:"name"`
		SzDecimals int    `json:"szDecimals"`
		IsDelisted bool   `json:"isDelisted"`
	} `json:"universe"`
}

// FuturesSymbols lists the perp universe. Every Hyperliquid market is a
// USDC-margined perp, which counts as USD-equivalent quoting.
func (h *Hyperliquid) FuturesSymbols(ctx context.Context) ([]SymbolInfo, error) {
	var meta hlMeta
	if err := h.info(ctx, map[string]string{"type": "meta"}, &meta); err != nil {
		return nil, err
	}
	var out []SymbolInfo
	for _, u := range meta.Universe {
		if u.IsDelisted {
			continue
		}
		out = append(out, SymbolInfo{
			Symbol:     u.Name,
			BaseAsset:  u.Name,
			QuoteAsset: "USDC",
			Status:     "TRADING",
		})
	}
	return out, nil
}

func (h *Hyperliquid) SpotSymbols(context.Context) ([]SymbolInfo, error) {
	return nil, nil
}

// metaAndAssetCtxs returns [meta, []assetCtx] positionally.
type hlAssetCtx struct {
	MidPx     string   `json:"midPx"`
	MarkPx    string   `json:"markPx"`
	Funding   string   `json:"funding"`
	ImpactPxs []string `json:"impactPxs"`
}

func (h *Hyperliquid) assetCtxs(ctx context.Context) (hlMeta, []hlAssetCtx, error) {
	var raw []json.RawMessage
	if err := h.info(ctx, map[string]string{"type": "metaAndAssetCtxs"}, &raw); err != nil {
		return hlMeta{}, nil, err
	}
	if len(raw) < 2 {
		return hlMeta{}, nil, NewVenueError(hyperliquidVenueID, ErrParse, "short metaAndAssetCtxs")
	}
	var meta hlMeta
	if err := json.Unmarshal(raw[0], &meta); err != nil {
		return hlMeta{}, nil, ParseError(hyperliquidVenueID, err)
	}
	var ctxs []hlAssetCtx
	if err := json.Unmarshal(raw[1], &ctxs); err != nil {
		return hlMeta{}, nil, ParseError(hyperliquidVenueID, err)
	}
	return meta, ctxs, nil
}

// Tickers derives bid/ask from the impact prices and last from the mid, one
// batch call for the whole universe.
func (h *Hyperliquid) Tickers(ctx context.Context, kind domain.VenueKind) (map[string]TickerQuote, error) {
	if kind != domain.KindPerpDex {
		return map[string]TickerQuote{}, nil
	}
	meta, ctxs, err := h.assetCtxs(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make(map[string]TickerQuote, len(ctxs))
	for i, c := range ctxs {
		if i >= len(meta.Universe) {
			break
		}
		name := meta.Universe[i].Name
		if len(c.ImpactPxs) < 2 {
			continue
		}
		bid, err1 := decimal.NewFromString(c.ImpactPxs[0])
		ask, err2 := decimal.NewFromString(c.ImpactPxs[1])
		if err1 != nil || err2 != nil {
			continue
		}
		last, _ := decimal.NewFromString(c.MidPx)
		out[name] = TickerQuote{Bid: bid, Ask: ask, Last: last, Timestamp: now}
	}
	return out, nil
}

type hlBookLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
}

type hlBook struct {
	Levels [][]hlBookLevel `json:"levels"` // [bids, asks]
	Time   int64           `json:"time"`
}

func (h *Hyperliquid) OrderBook(ctx context.Context, symbol string, depth int, kind domain.VenueKind) (*domain.OrderBookSnapshot, error) {
	if depth <= 0 {
		depth = DefaultDepth
	}
	requested := time.Now()
	var raw hlBook
	if err := h.info(ctx, map[string]string{"type": "l2Book", "coin": symbol}, &raw); err != nil {
		return nil, err
	}
	if len(raw.Levels) < 2 {
		return nil, NewVenueError(hyperliquidVenueID, ErrParse, "l2Book missing sides")
	}

	snap := &domain.OrderBookSnapshot{
		VenueID:     hyperliquidVenueID,
		Symbol:      symbol,
		VenueTime:   time.UnixMilli(raw.Time),
		RequestedAt: requested,
		ReceivedAt:  time.Now(),
	}
	var err error
	if snap.Bids, err = parseHLLevels(raw.Levels[0], depth); err != nil {
		return nil, ParseError(hyperliquidVenueID, err)
	}
	if snap.Asks, err = parseHLLevels(raw.Levels[1], depth); err != nil {
		return nil, ParseError(hyperliquidVenueID, err)
	}
	return snap, nil
}

func (h *Hyperliquid) FundingRate(ctx context.Context, symbol string) (*domain.FundingRate, error) {
	meta, ctxs, err := h.assetCtxs(ctx)
	if err != nil {
		return nil, err
	}
	for i, c := range ctxs {
		if i >= len(meta.Universe) || meta.Universe[i].Name != symbol {
			continue
		}
		rate, err := decimal.NewFromString(c.Funding)
		if err != nil {
			return nil, ParseError(hyperliquidVenueID, err)
		}
		return &domain.FundingRate{
			VenueID:     hyperliquidVenueID,
			Symbol:      symbol,
			Rate:        rate,
			NextFunding: time.Now().Truncate(time.Hour).Add(time.Hour),
			PeriodHours: 1, // hourly funding
			ReceivedAt:  time.Now(),
		}, nil
	}
	return nil, NewVenueError(hyperliquidVenueID, ErrParse, "unknown coin: "+symbol)
}

func (h *Hyperliquid) guarded(fn func() error) error {
	if h.breakers == nil {
		return fn()
	}
	_, err := h.breakers.Execute(hyperliquidVenueID, func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

func parseHLLevels(rows []hlBookLevel, depth int) ([]domain.BookLevel, error) {
	if len(rows) > depth {
		rows = rows[:depth]
	}
	out := make([]domain.BookLevel, 0, len(rows))
	for _, r := range rows {
		price, err := decimal.NewFromString(r.Px)
		if err != nil {
			return nil, fmt.Errorf("bad px %q: %w", r.Px, err)
		}
		qty, err := decimal.NewFromString(r.Sz)
		if err != nil {
			return nil, fmt.Errorf("bad sz %q: %w", r.Sz, err)
		}
		out = append(out, domain.BookLevel{Price: price, Quantity: qty})
	}
	return out, nil
}

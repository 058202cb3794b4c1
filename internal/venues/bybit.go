package venues

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/netx"
)

const bybitBaseURL = "https://api.bybit.com"

// Bybit backs bybit_spot and bybit_futures through the v5 unified API.
type Bybit struct {
	baseURL  string
	apiKey   string
	pool     *netx.Pool
	breakers *netx.BreakerSet
}

func NewBybit(cfg AdapterConfig) *Bybit {
	b := &Bybit{
		baseURL:  bybitBaseURL,
		apiKey:   cfg.APIKey,
		pool:     cfg.pool(),
		breakers: cfg.Breakers,
	}
	if cfg.BaseURL != "" {
		b.baseURL = cfg.BaseURL
	}
	return b
}

func (b *Bybit) Exchange() string { return "bybit" }

func (b *Bybit) Venues() []domain.Venue {
	return []domain.Venue{
		{ID: "bybit_spot", Exchange: "bybit", Kind: domain.KindCexSpot},
		{ID: "bybit_futures", Exchange: "bybit", Kind: domain.KindCexFutures},
	}
}

func (b *Bybit) venueID(kind domain.VenueKind) string {
	if kind == domain.KindCexFutures {
		return "bybit_futures"
	}
	return "bybit_spot"
}

func bybitCategory(kind domain.VenueKind) string {
	if kind == domain.KindCexFutures {
		return "linear"
	}
	return "spot"
}

// bybitEnvelope is the common v5 response wrapper.
type bybitEnvelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

func (b *Bybit) call(ctx context.Context, venueID, path string, out interface{}) error {
	var env bybitEnvelope
	if err := b.guarded(venueID, func() error {
		return getJSON(ctx, b.pool, venueID, b.baseURL+path, nil, &env)
	}); err != nil {
		return err
	}
	if env.RetCode != 0 {
		return NewVenueError(venueID, ErrHTTP, fmt.Sprintf("retCode %d: %s", env.RetCode, env.RetMsg))
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return ParseError(venueID, err)
	}
	return nil
}

type bybitInstruments struct {
	List []struct {
		Symbol       string `json:"symbol"`
		BaseCoin     string `json:"baseCoin"`
		QuoteCoin    string `json:"quoteCoin"`
		Status       string `json:"status"`
		ContractType string `json:"contractType"`
	} `json:"list"`
}

func (b *Bybit) symbols(ctx context.Context, kind domain.VenueKind) ([]SymbolInfo, error) {
	venueID := b.venueID(kind)
	path := fmt.Sprintf("/v5/market/instruments-info?category=%s&limit=1000", bybitCategory(kind))
	var res bybitInstruments
	if err := b.call(ctx, venueID, path, &res); err != nil {
		return nil, err
	}
	var out []SymbolInfo
	for _, s := range res.List {
		if s.Status != "Trading" || s.QuoteCoin != "USDT" {
			continue
		}
		if kind == domain.KindCexFutures && s.ContractType != "LinearPerpetual" {
			continue
		}
		out = append(out, SymbolInfo{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseCoin,
			QuoteAsset: s.QuoteCoin,
			Status:     s.Status,
		})
	}
	return out, nil
}

func (b *Bybit) FuturesSymbols(ctx context.Context) ([]SymbolInfo, error) {
	return b.symbols(ctx, domain.KindCexFutures)
}

func (b *Bybit) SpotSymbols(ctx context.Context) ([]SymbolInfo, error) {
	return b.symbols(ctx, domain.KindCexSpot)
}

type bybitTickers struct {
	List []struct {
		Symbol    string `json:"symbol"`
		Bid1Price string `json:"bid1Price"`
		Ask1Price string `json:"ask1Price"`
		LastPrice string `json:"lastPrice"`
	} `json:"list"`
}

func (b *Bybit) Tickers(ctx context.Context, kind domain.VenueKind) (map[string]TickerQuote, error) {
	venueID := b.venueID(kind)
	path := fmt.Sprintf("/v5/market/tickers?category=%s", bybitCategory(kind))
	var res bybitTickers
	if err := b.call(ctx, venueID, path, &res); err != nil {
		return nil, err
	}
	now := time.Now()
	out := make(map[string]TickerQuote, len(res.List))
	for _, t := range res.List {
		bid, err1 := decimal.NewFromString(t.Bid1Price)
		ask, err2 := decimal.NewFromString(t.Ask1Price)
		if err1 != nil || err2 != nil {
			continue
		}
		last, _ := decimal.NewFromString(t.LastPrice)
		out[t.Symbol] = TickerQuote{Bid: bid, Ask: ask, Last: last, Timestamp: now}
	}
	return out, nil
}

type bybitOrderbook struct {
	Symbol string     `json:"s"`
	Bids   [][]string `json:"b"`
	Asks   [][]string `json:"a"`
	TS     int64      `json:"ts"`
}

func (b *Bybit) OrderBook(ctx context.Context, symbol string, depth int, kind domain.VenueKind) (*domain.OrderBookSnapshot, error) {
	if depth <= 0 {
		depth = DefaultDepth
	}
	venueID := b.venueID(kind)
	requested := time.Now()
	path := fmt.Sprintf("/v5/market/orderbook?category=%s&symbol=%s&limit=%d",
		bybitCategory(kind), url.QueryEscape(symbol), depth)

	var res bybitOrderbook
	if err := b.call(ctx, venueID, path, &res); err != nil {
		return nil, err
	}

	snap := &domain.OrderBookSnapshot{
		VenueID:     venueID,
		Symbol:      symbol,
		VenueTime:   time.UnixMilli(res.TS),
		RequestedAt: requested,
		ReceivedAt:  time.Now(),
	}
	var err error
	if snap.Bids, err = parseStringLevels(res.Bids); err != nil {
		return nil, ParseError(venueID, err)
	}
	if snap.Asks, err = parseStringLevels(res.Asks); err != nil {
		return nil, ParseError(venueID, err)
	}
	return snap, nil
}

type bybitFunding struct {
	List []struct {
		Symbol               string `json:"symbol"`
		FundingRate          string `json:"fundingRate"`
		FundingRateTimestamp string `json:"fundingRateTimestamp"`
	} `json:"list"`
}

func (b *Bybit) FundingRate(ctx context.Context, symbol string) (*domain.FundingRate, error) {
	venueID := b.venueID(domain.KindCexFutures)
	path := fmt.Sprintf("/v5/market/funding/history?category=linear&symbol=%s&limit=1",
		url.QueryEscape(symbol))
	var res bybitFunding
	if err := b.call(ctx, venueID, path, &res); err != nil {
		return nil, err
	}
	if len(res.List) == 0 {
		return nil, NewVenueError(venueID, ErrParse, "no funding history: "+symbol)
	}
	rate, err := decimal.NewFromString(res.List[0].FundingRate)
	if err != nil {
		return nil, ParseError(venueID, err)
	}
	ms, _ := strconv.ParseInt(res.List[0].FundingRateTimestamp, 10, 64)
	return &domain.FundingRate{
		VenueID:     venueID,
		Symbol:      symbol,
		Rate:        rate,
		NextFunding: time.UnixMilli(ms).Add(8 * time.Hour),
		PeriodHours: 8,
		ReceivedAt:  time.Now(),
	}, nil
}

type bybitCoinInfo struct {
	Rows []struct {
		Coin   string `json:"coin"`
		Chains []struct {
			Chain         string `json:"chain"`
			ChainDeposit  string `json:"chainDeposit"`
			ChainWithdraw string `json:"chainWithdraw"`
		} `json:"chains"`
	} `json:"rows"`
}

// AssetDetails reads coin network metadata. Bybit's public coin-info variant
// omits contract addresses, so only deposit/withdraw switches merge in.
func (b *Bybit) AssetDetails(ctx context.Context, asset string) (*AssetDetails, error) {
	venueID := b.venueID(domain.KindCexSpot)
	path := fmt.Sprintf("/v5/asset/coin/query-info?coin=%s", url.QueryEscape(asset))
	var res bybitCoinInfo
	if err := b.call(ctx, venueID, path, &res); err != nil {
		return nil, err
	}
	for _, row := range res.Rows {
		if row.Coin != asset {
			continue
		}
		details := &AssetDetails{Coin: row.Coin}
		for _, c := range row.Chains {
			chain := normalizeChain(c.Chain)
			if chain == "" {
				continue
			}
			details.Networks = append(details.Networks, domain.NetworkInfo{
				Chain:           chain,
				DepositEnabled:  c.ChainDeposit == "1",
				WithdrawEnabled: c.ChainWithdraw == "1",
			})
		}
		return details, nil
	}
	return nil, NewVenueError(venueID, ErrParse, "asset not found: "+asset)
}

func (b *Bybit) guarded(venueID string, fn func() error) error {
	if b.breakers == nil {
		return fn()
	}
	_, err := b.breakers.Execute(venueID, func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

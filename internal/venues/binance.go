package venues

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/netx"
)

const (
	binanceSpotURL    = "https://api.binance.com"
	binanceFuturesURL = "https://fapi.binance.com"
)

// Binance backs the binance_spot and binance_futures venues.
type Binance struct {
	spotURL    string
	futuresURL string
	apiKey     string
	apiSecret  string
	pool       *netx.Pool
	breakers   *netx.BreakerSet
}

// NewBinance builds the adapter. BaseURL overrides the spot URL (tests).
func NewBinance(cfg AdapterConfig) *Binance {
	b := &Binance{
		spotURL:    binanceSpotURL,
		futuresURL: binanceFuturesURL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		pool:       cfg.pool(),
		breakers:   cfg.Breakers,
	}
	if cfg.BaseURL != "" {
		b.spotURL = cfg.BaseURL
		b.futuresURL = cfg.BaseURL
	}
	return b
}

func (b *Binance) Exchange() string { return "binance" }

func (b *Binance) Venues() []domain.Venue {
	return []domain.Venue{
		{ID: "binance_spot", Exchange: "binance", Kind: domain.KindCexSpot},
		{ID: "binance_futures", Exchange: "binance", Kind: domain.KindCexFutures},
	}
}

func (b *Binance) venueID(kind domain.VenueKind) string {
	if kind == domain.KindCexFutures {
		return "binance_futures"
	}
	return "binance_spot"
}

type binanceExchangeInfo struct {
	Symbols []struct {
		Symbol       string `json:"symbol"`
		BaseAsset    string `json:"baseAsset"`
		QuoteAsset   string `json:"quoteAsset"`
		Status       string `json:"status"`
		ContractType string `json:"contractType"`
	} `json:"symbols"`
}

func (b *Binance) FuturesSymbols(ctx context.Context) ([]SymbolInfo, error) {
	venueID := b.venueID(domain.KindCexFutures)
	var info binanceExchangeInfo
	if err := b.guarded(venueID, func() error {
		return getJSON(ctx, b.pool, venueID, b.futuresURL+"/fapi/v1/exchangeInfo", nil, &info)
	}); err != nil {
		return nil, err
	}
	var out []SymbolInfo
	for _, s := range info.Symbols {
		if s.Status != "TRADING" || s.QuoteAsset != "USDT" {
			continue
		}
		if s.ContractType != "" && s.ContractType != "PERPETUAL" {
			continue
		}
		out = append(out, SymbolInfo{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
			Status:     s.Status,
		})
	}
	log.Debug().Int("count", len(out)).Str("venue", venueID).Msg("futures symbols listed")
	return out, nil
}

func (b *Binance) SpotSymbols(ctx context.Context) ([]SymbolInfo, error) {
	venueID := b.venueID(domain.KindCexSpot)
	var info binanceExchangeInfo
	if err := b.guarded(venueID, func() error {
		return getJSON(ctx, b.pool, venueID, b.spotURL+"/api/v3/exchangeInfo", nil, &info)
	}); err != nil {
		return nil, err
	}
	var out []SymbolInfo
	for _, s := range info.Symbols {
		if s.Status != "TRADING" || s.QuoteAsset != "USDT" {
			continue
		}
		out = append(out, SymbolInfo{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
			Status:     s.Status,
		})
	}
	return out, nil
}

type binanceBookTicker struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

type binanceLastPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Tickers uses the two batch endpoints (bookTicker for the touch, price for
// the last trade) and merges them; one venue tick costs two requests total.
func (b *Binance) Tickers(ctx context.Context, kind domain.VenueKind) (map[string]TickerQuote, error) {
	venueID := b.venueID(kind)
	base, bookPath, pricePath := b.spotURL, "/api/v3/ticker/bookTicker", "/api/v3/ticker/price"
	if kind == domain.KindCexFutures {
		base, bookPath, pricePath = b.futuresURL, "/fapi/v1/ticker/bookTicker", "/fapi/v1/ticker/price"
	}

	var books []binanceBookTicker
	if err := b.guarded(venueID, func() error {
		return getJSON(ctx, b.pool, venueID, base+bookPath, nil, &books)
	}); err != nil {
		return nil, err
	}
	var lasts []binanceLastPrice
	if err := b.guarded(venueID, func() error {
		return getJSON(ctx, b.pool, venueID, base+pricePath, nil, &lasts)
	}); err != nil {
		return nil, err
	}

	lastBySymbol := make(map[string]decimal.Decimal, len(lasts))
	for _, l := range lasts {
		if d, err := decimal.NewFromString(l.Price); err == nil {
			lastBySymbol[l.Symbol] = d
		}
	}

	now := time.Now()
	out := make(map[string]TickerQuote, len(books))
	for _, t := range books {
		bid, err1 := decimal.NewFromString(t.BidPrice)
		ask, err2 := decimal.NewFromString(t.AskPrice)
		if err1 != nil || err2 != nil {
			continue
		}
		out[t.Symbol] = TickerQuote{
			Bid:       bid,
			Ask:       ask,
			Last:      lastBySymbol[t.Symbol],
			Timestamp: now,
		}
	}
	return out, nil
}

type binanceDepth struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

func (b *Binance) OrderBook(ctx context.Context, symbol string, depth int, kind domain.VenueKind) (*domain.OrderBookSnapshot, error) {
	if depth <= 0 {
		depth = DefaultDepth
	}
	venueID := b.venueID(kind)
	base, path := b.spotURL, "/api/v3/depth"
	if kind == domain.KindCexFutures {
		base, path = b.futuresURL, "/fapi/v1/depth"
	}
	requested := time.Now()

	var raw binanceDepth
	u := fmt.Sprintf("%s%s?symbol=%s&limit=%d", base, path, url.QueryEscape(symbol), depth)
	if err := b.guarded(venueID, func() error {
		return getJSON(ctx, b.pool, venueID, u, nil, &raw)
	}); err != nil {
		return nil, err
	}

	snap := &domain.OrderBookSnapshot{
		VenueID:     venueID,
		Symbol:      symbol,
		VenueTime:   time.Now(),
		RequestedAt: requested,
		ReceivedAt:  time.Now(),
	}
	var perr error
	snap.Bids, perr = parseStringLevels(raw.Bids)
	if perr != nil {
		return nil, ParseError(venueID, perr)
	}
	snap.Asks, perr = parseStringLevels(raw.Asks)
	if perr != nil {
		return nil, ParseError(venueID, perr)
	}
	return snap, nil
}

type binanceFunding struct {
	Symbol          string `json:"symbol"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

func (b *Binance) FundingRate(ctx context.Context, symbol string) (*domain.FundingRate, error) {
	venueID := b.venueID(domain.KindCexFutures)
	var raw binanceFunding
	u := fmt.Sprintf("%s/fapi/v1/premiumIndex?symbol=%s", b.futuresURL, url.QueryEscape(symbol))
	if err := b.guarded(venueID, func() error {
		return getJSON(ctx, b.pool, venueID, u, nil, &raw)
	}); err != nil {
		return nil, err
	}
	rate, err := decimal.NewFromString(raw.LastFundingRate)
	if err != nil {
		return nil, ParseError(venueID, err)
	}
	return &domain.FundingRate{
		VenueID:     venueID,
		Symbol:      symbol,
		Rate:        rate,
		NextFunding: time.UnixMilli(raw.NextFundingTime),
		PeriodHours: 8,
		ReceivedAt:  time.Now(),
	}, nil
}

type binanceCoinInfo struct {
	Coin        string `json:"coin"`
	NetworkList []struct {
		Network         string `json:"network"`
		ContractAddress string `json:"contractAddress"`
		DepositEnable   bool   `json:"depositEnable"`
		WithdrawEnable  bool   `json:"withdrawEnable"`
	} `json:"networkList"`
}

// AssetDetails reads the signed capital/config endpoint and filters to the
// requested coin. Without credentials the call degrades to an http_error and
// discovery proceeds on the other exchanges.
func (b *Binance) AssetDetails(ctx context.Context, asset string) (*AssetDetails, error) {
	venueID := b.venueID(domain.KindCexSpot)
	query := fmt.Sprintf("timestamp=%d&recvWindow=5000", time.Now().UnixMilli())
	u := fmt.Sprintf("%s/sapi/v1/capital/config/getall?%s&signature=%s",
		b.spotURL, query, b.sign(query))

	var coins []binanceCoinInfo
	headers := map[string]string{"X-MBX-APIKEY": b.apiKey}
	if err := b.guarded(venueID, func() error {
		return getJSON(ctx, b.pool, venueID, u, headers, &coins)
	}); err != nil {
		return nil, err
	}

	for _, c := range coins {
		if c.Coin != asset {
			continue
		}
		details := &AssetDetails{Coin: c.Coin}
		for _, n := range c.NetworkList {
			details.Networks = append(details.Networks, domain.NetworkInfo{
				Chain:           normalizeChain(n.Network),
				Contract:        n.ContractAddress,
				DepositEnabled:  n.DepositEnable,
				WithdrawEnabled: n.WithdrawEnable,
			})
		}
		return details, nil
	}
	return nil, NewVenueError(venueID, ErrParse, "asset not found: "+asset)
}

func (b *Binance) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(b.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// guarded routes a call through the venue's circuit breaker when one is
// configured.
func (b *Binance) guarded(venueID string, fn func() error) error {
	if b.breakers == nil {
		return fn()
	}
	_, err := b.breakers.Execute(venueID, func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// parseStringLevels converts [["price","qty"],...] rows to book levels.
func parseStringLevels(rows [][]string) ([]domain.BookLevel, error) {
	out := make([]domain.BookLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("short level row: %v", row)
		}
		price, err := decimal.NewFromString(row[0])
		if err != nil {
			return nil, fmt.Errorf("bad price %q: %w", row[0], err)
		}
		qty, err := decimal.NewFromString(row[1])
		if err != nil {
			return nil, fmt.Errorf("bad qty %q: %w", row[1], err)
		}
		out = append(out, domain.BookLevel{Price: price, Quantity: qty})
	}
	return out, nil
}

// normalizeChain maps exchange-native network codes to canonical chain ids.
func normalizeChain(network string) string {
	switch network {
	case "SOL", "SOLANA":
		return "solana"
	case "ARBITRUM", "ARB", "ARBONE":
		return "arbitrum"
	case "BSC", "BEP20", "BEP20(BSC)":
		return "bsc"
	case "AVAX", "AVAXC", "AVALANCHE":
		return "avalanche"
	case "ETH", "ERC20", "ETHEREUM":
		return "ethereum"
	default:
		return ""
	}
}

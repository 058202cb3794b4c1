package venues

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/netx"
)

const dexscreenerBaseURL = "https://api.dexscreener.com"

// dexscreenerBatchLimit caps contracts per bulk request.
const dexscreenerBatchLimit = 30

// Dexscreener serves dex_spot prices for one chain through the DEX
// aggregator. There is no native order book; the books package turns the
// impact curve into a synthetic ladder.
type Dexscreener struct {
	baseURL  string
	chain    string
	pool     *netx.Pool
	breakers *netx.BreakerSet
}

func NewDexscreener(cfg AdapterConfig) *Dexscreener {
	d := &Dexscreener{
		baseURL:  dexscreenerBaseURL,
		chain:    cfg.Chain,
		pool:     cfg.pool(),
		breakers: cfg.Breakers,
	}
	if cfg.BaseURL != "" {
		d.baseURL = cfg.BaseURL
	}
	if d.chain == "" {
		d.chain = "solana"
	}
	return d
}

func (d *Dexscreener) Exchange() string { return "dexscreener" }

func (d *Dexscreener) venueID() string { return "dex_" + d.chain }

func (d *Dexscreener) Venues() []domain.Venue {
	return []domain.Venue{
		{ID: d.venueID(), Exchange: "dexscreener", Kind: domain.KindDexSpot, Chain: d.chain},
	}
}

func (d *Dexscreener) Chain() string { return d.chain }

// Symbol listing and batch tickers do not apply: DEX tokens enter the
// registry by contract lookup and prices flow through BulkPrices.
func (d *Dexscreener) FuturesSymbols(context.Context) ([]SymbolInfo, error) { return nil, nil }
func (d *Dexscreener) SpotSymbols(context.Context) ([]SymbolInfo, error)   { return nil, nil }

func (d *Dexscreener) Tickers(context.Context, domain.VenueKind) (map[string]TickerQuote, error) {
	return map[string]TickerQuote{}, nil
}

func (d *Dexscreener) OrderBook(ctx context.Context, symbol string, depth int, kind domain.VenueKind) (*domain.OrderBookSnapshot, error) {
	return nil, NewVenueError(d.venueID(), ErrHTTP, "dex venues have no native order book")
}

type dexscreenerPair struct {
	ChainID   string `json:"chainId"`
	BaseToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD  string `json:"priceUsd"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
}

type dexscreenerTokens struct {
	Pairs []dexscreenerPair `json:"pairs"`
}

// BulkPrices fetches prices for many contracts, batching the aggregator's
// comma-separated token endpoint. For each contract the deepest pool wins.
func (d *Dexscreener) BulkPrices(ctx context.Context, contracts []string) (map[string]DexTokenPrice, error) {
	out := make(map[string]DexTokenPrice, len(contracts))
	for start := 0; start < len(contracts); start += dexscreenerBatchLimit {
		end := start + dexscreenerBatchLimit
		if end > len(contracts) {
			end = len(contracts)
		}
		batch := contracts[start:end]

		var res dexscreenerTokens
		u := d.baseURL + "/latest/dex/tokens/" + strings.Join(batch, ",")
		if err := d.guarded(func() error {
			return getJSON(ctx, d.pool, d.venueID(), u, nil, &res)
		}); err != nil {
			return nil, err
		}
		d.mergePairs(res.Pairs, out)
	}
	return out, nil
}

func (d *Dexscreener) mergePairs(pairs []dexscreenerPair, out map[string]DexTokenPrice) {
	for _, p := range pairs {
		if p.ChainID != d.chain {
			continue
		}
		price, err := decimal.NewFromString(p.PriceUSD)
		if err != nil || !price.IsPositive() {
			continue
		}
		contract := domain.CanonicalContract(d.chain, p.BaseToken.Address)
		candidate := DexTokenPrice{
			Contract:     contract,
			Symbol:       domain.NormalizeSymbol(p.BaseToken.Symbol),
			PriceUSD:     price,
			LiquidityUSD: decimal.NewFromFloat(p.Liquidity.USD),
			Volume24hUSD: decimal.NewFromFloat(p.Volume.H24),
		}
		if have, ok := out[contract]; ok && have.LiquidityUSD.GreaterThanOrEqual(candidate.LiquidityUSD) {
			continue
		}
		out[contract] = candidate
	}
}

// TokenLiquidity looks up one contract's deepest pool.
func (d *Dexscreener) TokenLiquidity(ctx context.Context, contract string) (*DexTokenPrice, bool, error) {
	prices, err := d.BulkPrices(ctx, []string{contract})
	if err != nil {
		return nil, false, err
	}
	p, ok := prices[domain.CanonicalContract(d.chain, contract)]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

// ImpactCurve models the pool as constant-product with reserves split evenly
// at the reported liquidity. For a buy of notional N against a USD reserve R,
// the effective price is spot x (1 + N/R); probes beyond the pool's capacity
// are truncated.
func (d *Dexscreener) ImpactCurve(ctx context.Context, contract string, notionals []decimal.Decimal) ([]ImpactQuote, error) {
	tok, found, err := d.TokenLiquidity(ctx, contract)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, NewVenueError(d.venueID(), ErrParse, "token not found: "+contract)
	}

	usdReserve := tok.LiquidityUSD.Div(decimal.NewFromInt(2))
	if !usdReserve.IsPositive() {
		return nil, NewVenueError(d.venueID(), ErrParse, "empty pool: "+contract)
	}

	quotes := make([]ImpactQuote, 0, len(notionals))
	for _, n := range notionals {
		if n.GreaterThan(usdReserve) {
			break
		}
		impact := n.Div(usdReserve)
		effective := tok.PriceUSD.Mul(decimal.NewFromInt(1).Add(impact))
		quotes = append(quotes, ImpactQuote{
			NotionalUSD:    n,
			EffectivePrice: effective,
			TokensOut:      n.Div(effective),
		})
	}
	return quotes, nil
}

func (d *Dexscreener) guarded(fn func() error) error {
	if d.breakers == nil {
		return fn()
	}
	_, err := d.breakers.Execute(d.venueID(), func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

package venues

import (
	"fmt"
	"time"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/netx"
)

// AdapterConfig collects what every concrete adapter needs.
type AdapterConfig struct {
	BaseURL        string
	APIKey         string
	APISecret      string
	Chain          string // dex adapters only
	RequestTimeout time.Duration
	MaxRetries     int
	MaxConcurrency int
	InsecureHosts  []string
	Limiter        *netx.HostLimiter
	Breakers       *netx.BreakerSet
}

func (c AdapterConfig) pool() *netx.Pool {
	return netx.NewPool(netx.PoolConfig{
		MaxConcurrency: c.MaxConcurrency,
		RequestTimeout: c.RequestTimeout,
		MaxRetries:     c.MaxRetries,
		UserAgent:      "arbscan/1.0",
		InsecureHosts:  c.InsecureHosts,
	}, c.Limiter)
}

// New returns the adapter matching an exchange id. The roster is the
// enumerated registry of supported exchanges; unknown ids are a boot error.
func New(exchange string, cfg AdapterConfig) (Adapter, error) {
	switch exchange {
	case "binance":
		return NewBinance(cfg), nil
	case "bybit":
		return NewBybit(cfg), nil
	case "kraken":
		return NewKraken(cfg), nil
	case "hyperliquid":
		return NewHyperliquid(cfg), nil
	case "dexscreener":
		return NewDexscreener(cfg), nil
	default:
		return nil, fmt.Errorf("venues: unknown exchange %q", exchange)
	}
}

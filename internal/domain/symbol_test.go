package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbolIdempotent(t *testing.T) {
	raw := []string{
		"BTCUSDT", "btc-usdt", "ETH/USD", "SOL-PERP", "sol_perp",
		"XBT", "DOGEFDUSD", "PEPEUSDTPERP", "WIF", "1000SHIBUSDT",
	}
	for _, s := range raw {
		once := NormalizeSymbol(s)
		assert.Equal(t, once, NormalizeSymbol(once), "not idempotent for %q", s)
	}
}

func TestNormalizeSymbolCrossVenue(t *testing.T) {
	cases := map[string]string{
		"BTCUSDT":  "BTC",
		"BTC-USD":  "BTC",
		"XBT":      "BTC",
		"SOL-PERP": "SOL",
		"SOLUSDT":  "SOL",
		"sol/usdc": "SOL",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeSymbol(raw), "raw=%q", raw)
	}
}

func TestNormalizeSymbolDoesNotEraseStablecoins(t *testing.T) {
	assert.Equal(t, "USDT", NormalizeSymbol("USDT"))
	assert.Equal(t, "USDC", NormalizeSymbol("USDC"))
}

func TestCanonicalContract(t *testing.T) {
	assert.Equal(t,
		"0xdac17f958d2ee523a2206206994597c13d831ec7",
		CanonicalContract("ethereum", "0xDAC17F958D2ee523a2206206994597C13D831ec7"))
	// Solana base58 is case-significant.
	assert.Equal(t,
		"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		CanonicalContract("solana", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"))
}

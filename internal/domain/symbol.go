package domain

import "strings"

// quoteSuffixes are stripped from venue-native instrument names to recover
// the base asset. Longest first so "BTCUSDT" does not lose only "USD".
var quoteSuffixes = []string{"FDUSD", "BUSD", "TUSD", "USDT", "USDC", "PERP", "USD"}

// NormalizeSymbol reduces a venue-native instrument name to the canonical
// uppercase base-asset symbol used as the registry key. The operation is
// idempotent: NormalizeSymbol(NormalizeSymbol(s)) == NormalizeSymbol(s).
func NormalizeSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", "", "_", "", "/", "").Replace(s)
	for stripped := true; stripped; {
		stripped = false
		for _, suffix := range quoteSuffixes {
			if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
				s = strings.TrimSuffix(s, suffix)
				stripped = true
				break
			}
		}
	}
	// Kraken-style XBT alias.
	if s == "XBT" {
		s = "BTC"
	}
	return s
}

// CanonicalContract lowercases hex contract addresses; base58 addresses
// (Solana) are case-significant and pass through untouched.
func CanonicalContract(chain, address string) string {
	addr := strings.TrimSpace(address)
	if addr == "" {
		return ""
	}
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		return strings.ToLower(addr)
	}
	if chain == "solana" {
		return addr
	}
	return strings.ToLower(addr)
}

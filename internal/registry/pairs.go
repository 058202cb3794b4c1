package registry

import (
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
)

// Combo is an unordered venue pairing for one symbol. Orientation into
// (low, high) happens per tick, once prices say which side is cheap; the
// oriented ArbPair itself is immutable.
type Combo struct {
	Symbol string
	A      domain.Venue
	B      domain.Venue
}

// Combos enumerates every unique venue-id combination of a ticker with at
// least two distinct venues.
func (r *Registry) Combos(t *domain.Ticker) []Combo {
	ids := t.VenueIDs()
	if len(ids) < 2 {
		return nil
	}
	var out []Combo
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, okA := r.VenueByID(ids[i])
			b, okB := r.VenueByID(ids[j])
			if !okA || !okB {
				continue
			}
			out = append(out, Combo{Symbol: t.Symbol, A: a, B: b})
		}
	}
	return out
}

// Orient builds the ordered pair for a combo given which venue turned out to
// be the cheap side. Per-asset transfer chains come from the ticker's
// network metadata rather than the static venue records.
func Orient(t *domain.Ticker, low, high domain.Venue) domain.ArbPair {
	low.Networks = assetChains(t, low, needWithdraw)
	high.Networks = assetChains(t, high, needDeposit)

	var tickerChains []string
	for chain := range t.Contracts {
		tickerChains = append(tickerChains, chain)
	}

	p := domain.NewPair(t.Symbol, low, high, tickerChains)
	p.ContractConflict = t.ContractConflict
	return p
}

// capability selects which side of a transfer a venue must support: the low
// venue withdraws, the high venue deposits.
type capability int

const (
	needWithdraw capability = iota
	needDeposit
)

// assetChains lists the chains an exchange supports for this specific asset,
// restricted to those where the required transfer direction is open. A DEX
// venue is on-chain already, so its own chain is always reachable.
func assetChains(t *domain.Ticker, v domain.Venue, need capability) []string {
	if v.Kind == domain.KindDexSpot && v.Chain != "" {
		return []string{v.Chain}
	}
	byChain, ok := t.Networks[v.Exchange]
	if !ok {
		return v.Networks
	}
	out := make([]string, 0, len(byChain))
	for chain, info := range byChain {
		if need == needWithdraw && !info.WithdrawEnabled {
			continue
		}
		if need == needDeposit && !info.DepositEnabled {
			continue
		}
		out = append(out, chain)
	}
	return out
}

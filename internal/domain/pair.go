package domain

import (
	"fmt"
	"sort"
)

// PairType distinguishes pairs closeable by shorting from those needing a
// physical token transfer.
type PairType string

const (
	PairAuto   PairType = "auto"   // high venue is shortable
	PairManual PairType = "manual" // high venue is spot; tokens must move
)

// ArbPair is an oriented (low, high) pairing of a symbol across two venues.
// Pairs are derived from tickers and never mutated.
type ArbPair struct {
	Symbol string   `json:"symbol"`
	Low    Venue    `json:"low"`
	High   Venue    `json:"high"`
	Type   PairType `json:"type"`

	RequiresTransfer bool   `json:"requires_transfer"`
	TransferNetwork  string `json:"transfer_network,omitempty"`

	ContractConflict bool `json:"contract_conflict,omitempty"`
}

// ID is the stable identity used for cooldown and dedup keys.
func (p ArbPair) ID() string {
	return fmt.Sprintf("%s:%s:%s", p.Symbol, p.Low.ID, p.High.ID)
}

// StrategyType is the two-letter (low kind, high kind) code, e.g. "DF" for
// dex-spot low against cex-futures high.
func (p ArbPair) StrategyType() string {
	return p.Low.Kind.Letter() + p.High.Kind.Letter()
}

// NewPair orients two venues for one symbol. The caller decides which venue
// is low (buy side) and which is high (sell side); this constructor derives
// the type, transfer requirement and transfer network.
func NewPair(symbol string, low, high Venue, networks []string) ArbPair {
	p := ArbPair{Symbol: symbol, Low: low, High: high}
	if high.Kind.Shortable() {
		p.Type = PairAuto
	} else {
		p.Type = PairManual
	}
	p.RequiresTransfer = !low.SameExchange(high)
	if p.RequiresTransfer && p.Type == PairManual {
		p.TransferNetwork = ElectTransferNetwork(low.Networks, high.Networks, networks)
	}
	return p
}

// ElectTransferNetwork intersects the supported chains of both venues
// (restricted to the ticker's known chains when given) and picks the highest
// priority survivor. Empty result means no common transfer path exists.
func ElectTransferNetwork(lowChains, highChains, tickerChains []string) string {
	inLow := make(map[string]bool, len(lowChains))
	for _, c := range lowChains {
		inLow[c] = true
	}
	limit := map[string]bool{}
	for _, c := range tickerChains {
		limit[c] = true
	}
	var common []string
	for _, c := range highChains {
		if !inLow[c] {
			continue
		}
		if len(limit) > 0 && !limit[c] {
			continue
		}
		common = append(common, c)
	}
	if len(common) == 0 {
		return ""
	}
	sort.Slice(common, func(i, j int) bool {
		return chainPriority(common[i]) < chainPriority(common[j])
	})
	return common[0]
}

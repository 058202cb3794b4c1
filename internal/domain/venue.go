package domain

// VenueKind classifies a remote marketplace by its market structure.
type VenueKind string

const (
	KindCexSpot    VenueKind = "cex_spot"
	KindCexFutures VenueKind = "cex_futures"
	KindDexSpot    VenueKind = "dex_spot"
	KindPerpDex    VenueKind = "perp_dex"
)

// Shortable reports whether a synthetic short is possible on this kind of
// venue. Only derivatives venues qualify.
func (k VenueKind) Shortable() bool {
	return k == KindCexFutures || k == KindPerpDex
}

// HasFundingRate reports whether the venue kind publishes funding rates.
func (k VenueKind) HasFundingRate() bool {
	return k == KindCexFutures || k == KindPerpDex
}

// Letter returns the single-letter code used in strategy type identifiers.
func (k VenueKind) Letter() string {
	switch k {
	case KindCexSpot:
		return "S"
	case KindCexFutures:
		return "F"
	case KindDexSpot:
		return "D"
	case KindPerpDex:
		return "P"
	}
	return "?"
}

// Venue describes one remote marketplace reachable through an adapter.
// Venues are built from configuration at process start and never mutated.
type Venue struct {
	ID       string    `json:"id"`       // stable identifier, e.g. "binance_futures"
	Exchange string    `json:"exchange"` // owning exchange, e.g. "binance"
	Kind     VenueKind `json:"kind"`
	Chain    string    `json:"chain,omitempty"` // dex venues only

	// Networks lists transfer chains supported for deposits/withdrawals.
	// CEX venues only; populated during discovery.
	Networks []string `json:"networks,omitempty"`
}

// OrderbookSupported is true for every venue kind we track.
func (v Venue) OrderbookSupported() bool { return true }

// SameExchange reports whether two venues belong to one exchange, in which
// case moving funds between them needs no on-chain transfer.
func (v Venue) SameExchange(other Venue) bool {
	return v.Exchange != "" && v.Exchange == other.Exchange
}

// TransferChainPriority is the fixed tie-break order for choosing a transfer
// network between two CEX venues. Cheapest and fastest chains first.
var TransferChainPriority = []string{"solana", "arbitrum", "bsc", "avalanche", "ethereum"}

// chainPriority returns the rank of a chain in the preference order, or a
// large value for chains outside the table.
func chainPriority(chain string) int {
	for i, c := range TransferChainPriority {
		if c == chain {
			return i
		}
	}
	return len(TransferChainPriority) + 1
}

// TransferTimeMinutes gives the expected confirmation-plus-credit time for a
// transfer over the given chain. Used by the transfer-buffer safety check.
func TransferTimeMinutes(chain string) float64 {
	switch chain {
	case "solana":
		return 2
	case "arbitrum":
		return 5
	case "bsc":
		return 5
	case "avalanche":
		return 5
	case "ethereum":
		return 12
	default:
		return 15
	}
}

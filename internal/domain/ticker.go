package domain

import "time"

// NetworkInfo describes one transfer network reported by a CEX for an asset.
type NetworkInfo struct {
	Chain           string `json:"chain"`
	Contract        string `json:"contract,omitempty"`
	DepositEnabled  bool   `json:"deposit_enabled"`
	WithdrawEnabled bool   `json:"withdraw_enabled"`
}

// VenueListing records that one venue lists the ticker, with the
// venue-native instrument name needed for subsequent API calls.
type VenueListing struct {
	VenueID      string    `json:"venue_id"`
	Kind         VenueKind `json:"kind"`
	NativeSymbol string    `json:"native_symbol"`
}

// Ticker is the unified inventory record for one base asset across all
// venues. Created and updated only by the registry discovery job.
type Ticker struct {
	Symbol   string         `json:"symbol"`
	Listings []VenueListing `json:"listings"`

	// Contracts maps chain to the canonical contract address.
	Contracts map[string]string `json:"contracts,omitempty"`

	// Networks is the per-exchange merge of deposit/withdraw metadata,
	// keyed by exchange then chain.
	Networks map[string]map[string]NetworkInfo `json:"networks,omitempty"`

	// ContractConflict marks that two CEXes reported differing contract
	// addresses for the same chain. Auto signals are suppressed for such
	// tickers; manual ones carry a warning.
	ContractConflict bool      `json:"contract_conflict,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// VenueIDs returns the distinct venue ids listing this ticker.
func (t *Ticker) VenueIDs() []string {
	seen := make(map[string]struct{}, len(t.Listings))
	out := make([]string, 0, len(t.Listings))
	for _, l := range t.Listings {
		if _, ok := seen[l.VenueID]; ok {
			continue
		}
		seen[l.VenueID] = struct{}{}
		out = append(out, l.VenueID)
	}
	return out
}

// ListingOn returns the listing for a venue id, if any.
func (t *Ticker) ListingOn(venueID string) (VenueListing, bool) {
	for _, l := range t.Listings {
		if l.VenueID == venueID {
			return l, true
		}
	}
	return VenueListing{}, false
}

// AddListing appends a listing unless the (venue, native symbol) pair is
// already present.
func (t *Ticker) AddListing(l VenueListing) {
	for _, have := range t.Listings {
		if have.VenueID == l.VenueID && have.NativeSymbol == l.NativeSymbol {
			return
		}
	}
	t.Listings = append(t.Listings, l)
}

// MergeContract records a contract address for a chain, canonicalizing it
// first. Returns false when the chain already holds a different address; the
// first canonical address seen is retained in that case.
func (t *Ticker) MergeContract(chain, address string) bool {
	addr := CanonicalContract(chain, address)
	if addr == "" {
		return true
	}
	if t.Contracts == nil {
		t.Contracts = make(map[string]string)
	}
	if have, ok := t.Contracts[chain]; ok {
		if have != addr {
			t.ContractConflict = true
			return false
		}
		return true
	}
	t.Contracts[chain] = addr
	return true
}

// NetworkFor returns the merged deposit/withdraw metadata for an exchange on
// one chain.
func (t *Ticker) NetworkFor(exchange, chain string) (NetworkInfo, bool) {
	byChain, ok := t.Networks[exchange]
	if !ok {
		return NetworkInfo{}, false
	}
	info, ok := byChain[chain]
	return info, ok
}

// SetNetwork stores deposit/withdraw metadata for (exchange, chain).
func (t *Ticker) SetNetwork(exchange string, info NetworkInfo) {
	if t.Networks == nil {
		t.Networks = make(map[string]map[string]NetworkInfo)
	}
	if t.Networks[exchange] == nil {
		t.Networks[exchange] = make(map[string]NetworkInfo)
	}
	t.Networks[exchange][info.Chain] = info
}

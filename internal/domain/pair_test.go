package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPairOrientation(t *testing.T) {
	dex := Venue{ID: "raydium", Exchange: "raydium", Kind: KindDexSpot, Chain: "solana"}
	fut := Venue{ID: "binance_futures", Exchange: "binance", Kind: KindCexFutures,
		Networks: []string{"solana", "ethereum"}}

	p := NewPair("WIF", dex, fut, nil)
	assert.Equal(t, PairAuto, p.Type)
	assert.Equal(t, "DF", p.StrategyType())
	assert.True(t, p.RequiresTransfer)
	// auto pairs close by shorting; no transfer network is elected
	assert.Empty(t, p.TransferNetwork)
}

func TestNewPairManualElectsNetwork(t *testing.T) {
	low := Venue{ID: "binance_spot", Exchange: "binance", Kind: KindCexSpot,
		Networks: []string{"ethereum", "bsc", "solana"}}
	high := Venue{ID: "kraken_spot", Exchange: "kraken", Kind: KindCexSpot,
		Networks: []string{"ethereum", "solana"}}

	p := NewPair("SOL", low, high, nil)
	assert.Equal(t, PairManual, p.Type)
	assert.True(t, p.RequiresTransfer)
	assert.Equal(t, "solana", p.TransferNetwork, "solana outranks ethereum")
}

func TestNewPairSameExchangeNeedsNoTransfer(t *testing.T) {
	spot := Venue{ID: "binance_spot", Exchange: "binance", Kind: KindCexSpot}
	fut := Venue{ID: "binance_futures", Exchange: "binance", Kind: KindCexFutures}

	p := NewPair("BTC", spot, fut, nil)
	assert.False(t, p.RequiresTransfer)
	assert.Equal(t, "SF", p.StrategyType())
}

func TestElectTransferNetworkPriority(t *testing.T) {
	got := ElectTransferNetwork(
		[]string{"ethereum", "arbitrum", "bsc"},
		[]string{"bsc", "ethereum"},
		nil)
	assert.Equal(t, "bsc", got)

	assert.Empty(t, ElectTransferNetwork([]string{"solana"}, []string{"ethereum"}, nil))
}

func TestPairID(t *testing.T) {
	p := ArbPair{Symbol: "BTC",
		Low:  Venue{ID: "binance_spot"},
		High: Venue{ID: "bybit_futures"}}
	assert.Equal(t, "BTC:binance_spot:bybit_futures", p.ID())
}

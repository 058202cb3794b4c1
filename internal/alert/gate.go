// Package alert decides which signals reach the operator and delivers them.
// The gate enforces blacklists, per-pair cooldowns and in-flight dedup; the
// transport talks to Telegram.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/domain"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
)

// Dispatcher delivers one rendered alert.
type Dispatcher interface {
	Send(ctx context.Context, text string) error
}

// Gate guards the dispatch path. The cooldown claim is a SetNX: exactly one
// worker wins the key, so a pair alerts at most once per cooldown window
// even under concurrent scans.
type Gate struct {
	kv store.KV
	tx Dispatcher

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewGate wires a gate over the store and a transport.
func NewGate(kv store.KV, tx Dispatcher) *Gate {
	return &Gate{kv: kv, tx: tx, inFlight: make(map[string]struct{})}
}

// Dispatch runs the full gate for one signal and returns its final status.
// Failed-validation signals never reach here; callers filter on StatusValid.
func (g *Gate) Dispatch(ctx context.Context, sig *domain.Signal, settings config.Settings) (domain.SignalStatus, error) {
	pairID := sig.Pair.ID()

	blocked, err := g.blacklisted(ctx, sig.Pair.Symbol, pairID)
	if err != nil {
		return domain.StatusDispatchFailed, err
	}
	if blocked {
		return domain.StatusBlockedBlacklist, nil
	}

	if !g.claimInFlight(pairID) {
		// another worker is already dispatching this pair
		return domain.StatusBlockedCooldown, nil
	}
	defer g.releaseInFlight(pairID)

	won, err := g.kv.SetNX(ctx, store.CooldownKey(pairID),
		[]byte(sig.StrategyID), settings.Cooldown())
	if err != nil {
		return domain.StatusDispatchFailed, err
	}
	if !won {
		return domain.StatusBlockedCooldown, nil
	}

	if err := g.tx.Send(ctx, Render(sig)); err != nil {
		// release the claim so the next tick can retry the alert
		if delErr := g.kv.Del(ctx, store.CooldownKey(pairID)); delErr != nil {
			log.Warn().Err(delErr).Str("pair", pairID).
				Msg("cooldown release failed after dispatch error")
		}
		return domain.StatusDispatchFailed, err
	}

	log.Info().Str("pair", pairID).Str("strategy", sig.StrategyID).
		Str("type", string(sig.Type)).Str("net_spread_pct", sig.NetSpreadPct.String()).
		Msg("alert dispatched")
	return domain.StatusDispatched, nil
}

func (g *Gate) blacklisted(ctx context.Context, symbol, pairID string) (bool, error) {
	if hit, err := g.kv.SIsMember(ctx, store.BlacklistSymbolsKey(), symbol); err != nil || hit {
		return hit, err
	}
	return g.kv.SIsMember(ctx, store.BlacklistPairsKey(), pairID)
}

func (g *Gate) claimInFlight(pairID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[pairID]; busy {
		return false
	}
	g.inFlight[pairID] = struct{}{}
	return true
}

func (g *Gate) releaseInFlight(pairID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, pairID)
}

// CooldownRemaining reports how long a pair stays muted, for the CLI and
// health surfaces. Zero means not cooling down.
func (g *Gate) CooldownRemaining(ctx context.Context, pairID string, settings config.Settings) time.Duration {
	if _, err := g.kv.Get(ctx, store.CooldownKey(pairID)); err != nil {
		return 0
	}
	return settings.Cooldown()
}

// Blacklist adds a symbol to the symbol blacklist.
func (g *Gate) Blacklist(ctx context.Context, symbol string) error {
	return g.kv.SAdd(ctx, store.BlacklistSymbolsKey(), symbol)
}

// Unblacklist removes a symbol.
func (g *Gate) Unblacklist(ctx context.Context, symbol string) error {
	return g.kv.SRem(ctx, store.BlacklistSymbolsKey(), symbol)
}

// BlacklistPair mutes one specific pair.
func (g *Gate) BlacklistPair(ctx context.Context, pairID string) error {
	return g.kv.SAdd(ctx, store.BlacklistPairsKey(), pairID)
}

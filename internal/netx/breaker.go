package netx

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerSet holds one circuit breaker per venue id. A venue that keeps
// failing is cut off for a cool-down window instead of burning its rate
// budget on a dead endpoint.
type BreakerSet struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakerSet returns an empty set; breakers are created on first use.
func NewBreakerSet() *BreakerSet {
	return &BreakerSet{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

func (bs *BreakerSet) get(venue string) *gobreaker.CircuitBreaker {
	bs.mu.RLock()
	cb, ok := bs.breakers[venue]
	bs.mu.RUnlock()
	if ok {
		return cb
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()
	if cb, ok := bs.breakers[venue]; ok {
		return cb
	}
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        venue,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("venue", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("venue breaker state change")
		},
	})
	bs.breakers[venue] = cb
	return cb
}

// Execute runs fn under the venue's breaker.
func (bs *BreakerSet) Execute(venue string, fn func() (interface{}, error)) (interface{}, error) {
	return bs.get(venue).Execute(fn)
}

// Open reports whether the venue's breaker currently rejects calls.
func (bs *BreakerSet) Open(venue string) bool {
	return bs.get(venue).State() == gobreaker.StateOpen
}

// States snapshots breaker states for health telemetry.
func (bs *BreakerSet) States() map[string]string {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	out := make(map[string]string, len(bs.breakers))
	for name, cb := range bs.breakers {
		out[name] = cb.State().String()
	}
	return out
}

// ErrBreakerOpen normalizes gobreaker's open-state errors for callers that
// map them onto the venue error taxonomy.
func ErrBreakerOpen(venue string) error {
	return fmt.Errorf("venue %s: circuit open", venue)
}

package safety

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
)

// ageResetGap breaks a continuous-spread streak: if the pair was last seen
// above threshold longer ago than this, the streak starts over.
const ageResetGap = 5 * time.Minute

// spreadAgeRecord tracks how long a pair's spread has stayed above the
// alert threshold without interruption.
type spreadAgeRecord struct {
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// SpreadAges maintains the per-pair streak records behind the spread-age
// check. A spread that has persisted for many hours is structural, not an
// opportunity.
type SpreadAges struct {
	kv  store.KV
	now func() time.Time
}

// NewSpreadAges builds a tracker.
func NewSpreadAges(kv store.KV) *SpreadAges {
	return &SpreadAges{kv: kv, now: time.Now}
}

// Observe updates the streak for one pair and returns the current age.
// aboveThreshold false clears the streak and returns zero.
func (s *SpreadAges) Observe(ctx context.Context, pairID string, aboveThreshold bool, maxAge time.Duration) time.Duration {
	key := store.SpreadAgeKey(pairID)
	now := s.now()

	if !aboveThreshold {
		if err := s.kv.Del(ctx, key); err != nil {
			log.Debug().Err(err).Str("pair", pairID).Msg("spread age clear failed")
		}
		return 0
	}

	var rec spreadAgeRecord
	found, err := store.GetJSON(ctx, s.kv, key, &rec)
	if err != nil {
		log.Debug().Err(err).Str("pair", pairID).Msg("spread age read failed")
		found = false
	}
	if !found || now.Sub(rec.LastSeen) > ageResetGap {
		rec = spreadAgeRecord{FirstSeen: now}
	}
	rec.LastSeen = now

	ttl := maxAge + time.Hour
	if err := store.SetJSON(ctx, s.kv, key, rec, ttl); err != nil {
		log.Debug().Err(err).Str("pair", pairID).Msg("spread age write failed")
	}
	return now.Sub(rec.FirstSeen)
}

// Package store is the shared keyed state layer. Every component reads and
// writes through the KV interface; Redis is the production backend and an
// in-process map backs tests and single-binary runs without Redis.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound marks an absent or expired key.
var ErrNotFound = errors.New("store: key not found")

// KV is the minimal keyed-storage contract the scanner needs. Keys are
// independently lockable; no operation spans more than one key except MGet.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// SetNX writes only when the key is absent and reports whether the
	// write happened. The alert gate's at-most-once dispatch depends on it.
	SetNX(ctx context.Context, key string, val []byte, ttl time.Duration) (bool, error)

	Del(ctx context.Context, keys ...string) error
	MGet(ctx context.Context, keys ...string) (map[string][]byte, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SIsMember(ctx context.Context, key string, member string) (bool, error)

	// ListPush appends to a ring: push right, trim to the newest maxLen
	// entries, refresh the key TTL.
	ListPush(ctx context.Context, key string, val []byte, maxLen int64, ttl time.Duration) error
	ListRange(ctx context.Context, key string) ([][]byte, error)

	Ping(ctx context.Context) error
}

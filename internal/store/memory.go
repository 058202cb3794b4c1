package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process KV with Redis semantics, used in tests and when
// REDIS_ADDR is unset.
type Memory struct {
	mu    sync.Mutex
	kv    map[string]memEntry
	sets  map[string]map[string]struct{}
	lists map[string]memList
}

type memEntry struct {
	b   []byte
	exp time.Time
}

type memList struct {
	vals [][]byte
	exp  time.Time
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		kv:    make(map[string]memEntry),
		sets:  make(map[string]map[string]struct{}),
		lists: make(map[string]memList),
	}
}

func (m *Memory) expired(e memEntry) bool {
	return !e.exp.IsZero() && time.Now().After(e.exp)
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.kv[key]
	if !ok || m.expired(e) {
		delete(m.kv, key)
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.b...), nil
}

func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = m.entry(val, ttl)
	return nil
}

func (m *Memory) entry(val []byte, ttl time.Duration) memEntry {
	e := memEntry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	return e
}

func (m *Memory) SetNX(_ context.Context, key string, val []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.kv[key]; ok && !m.expired(e) {
		return false, nil
	}
	m.kv[key] = m.entry(val, ttl)
	return true, nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.kv, k)
		delete(m.sets, k)
		delete(m.lists, k)
	}
	return nil
}

func (m *Memory) MGet(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if b, err := m.Get(ctx, k); err == nil {
			out[k] = b
		}
	}
	return out, nil
}

func (m *Memory) SAdd(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[key]
	if !ok {
		s = make(map[string]struct{})
		m.sets[key] = s
	}
	for _, mem := range members {
		s[mem] = struct{}{}
	}
	return nil
}

func (m *Memory) SRem(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sets[key]
	for _, mem := range members {
		delete(s, mem)
	}
	return nil
}

func (m *Memory) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets[key]))
	for mem := range m.sets[key] {
		out = append(out, mem)
	}
	return out, nil
}

func (m *Memory) SIsMember(_ context.Context, key string, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sets[key][member]
	return ok, nil
}

func (m *Memory) ListPush(_ context.Context, key string, val []byte, maxLen int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.lists[key]
	l.vals = append(l.vals, append([]byte(nil), val...))
	if maxLen > 0 && int64(len(l.vals)) > maxLen {
		l.vals = l.vals[int64(len(l.vals))-maxLen:]
	}
	if ttl > 0 {
		l.exp = time.Now().Add(ttl)
	}
	m.lists[key] = l
	return nil
}

func (m *Memory) ListRange(_ context.Context, key string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[key]
	if !ok || (!l.exp.IsZero() && time.Now().After(l.exp)) {
		delete(m.lists, key)
		return nil, nil
	}
	out := make([][]byte, len(l.vals))
	for i, v := range l.vals {
		out[i] = append([]byte(nil), v...)
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

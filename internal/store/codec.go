package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SetJSON marshals v and stores it under key.
func SetJSON(ctx context.Context, kv KV, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", key, err)
	}
	return kv.Set(ctx, key, b, ttl)
}

// GetJSON loads key into v. The boolean is false when the key is absent.
func GetJSON(ctx context.Context, kv KV, key string, v interface{}) (bool, error) {
	b, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("store: unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Package cache stores JSON snapshots of remote entities in Redis or memory.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Backend is a byte-oriented key/value store with per-key expiry.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// JSON wraps a Backend with JSON encoding and a default TTL.
type JSON struct {
	backend Backend
	ttl     time.Duration
}

// NewJSON constructs a JSON cache helper. A nil backend disables caching.
func NewJSON(backend Backend, ttl time.Duration) *JSON {
	return &JSON{backend: backend, ttl: ttl}
}

// Get unmarshals a cached payload into dst. It reports whether the key existed.
func (c *JSON) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.backend == nil || key == "" {
		return false, nil
	}
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set serialises v and stores it with ttl, or the default TTL when ttl is zero.
func (c *JSON) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c == nil || c.backend == nil || key == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, key, data, ttl)
}

// Delete drops keys.
func (c *JSON) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.backend == nil || len(keys) == 0 {
		return nil
	}
	return c.backend.Delete(ctx, keys...)
}

// Ping checks the backend is reachable.
func (c *JSON) Ping(ctx context.Context) error {
	if c == nil || c.backend == nil {
		return errors.New("cache: not configured")
	}
	return c.backend.Ping(ctx)
}

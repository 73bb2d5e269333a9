// Package cache provides a small TTL key/value store used to cache
// responses from slow upstream services.
package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented cache with per-entry expiration
type Store interface {
	// Get returns the cached value and whether it was present
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value for ttl; a zero ttl keeps the value until evicted
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key; missing keys are not an error
	Delete(ctx context.Context, key string) error
}

// NopStore never stores anything
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NopStore) Delete(context.Context, string) error { return nil }

var _ Store = NopStore{}

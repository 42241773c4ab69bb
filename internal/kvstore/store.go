// Package kvstore provides the key-value capability used by the rate limiter and
// the brute-force guard. The in-memory store serves a single instance; the Redis
// store lets several instances share counters.
package kvstore

import "context"

// Store is a typed key-value store with bulk expiry.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V) error
	Delete(ctx context.Context, key string) error
	// Sweep deletes every entry for which expired returns true and reports the count.
	Sweep(ctx context.Context, expired func(V) bool) (int, error)
}

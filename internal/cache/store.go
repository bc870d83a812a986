package cache

import (
	"context"
	"time"
)

// View keys for the cached read models. Every mutation invalidates the
// views it can affect before the mutating call returns, which is what
// gives a client read-after-write consistency on the next fetch.
const (
	KeySupplies = "view:supplies"
	KeyLowStock = "view:lowstock"
	KeyStats    = "view:stats"
	KeyRequests = "view:requests"
)

const (
	// ViewTTL bounds staleness for readers that bypass this process
	// (e.g. a second instance on the shared Redis).
	ViewTTL = 5 * time.Minute

	idempotencyPrefix = "idem:"
	idempotencyTTL    = 24 * time.Hour
)

// Store is the consistency-layer port. Backed by Redis in production and
// by an in-process map when no Redis is configured (and in tests).
type Store interface {
	// Get returns the cached bytes for key, with ok=false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for at most ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate drops the given keys.
	Invalidate(ctx context.Context, keys ...string) error

	// SetNX claims key if unclaimed, returning false if it already exists.
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// SupplyViews: views affected by any supply or usage mutation.
func SupplyViews() []string {
	return []string{KeySupplies, KeyLowStock, KeyStats}
}

// RequestViews: views affected by a request mutation. Completion also
// changes the supply's quantity, so those views go too.
func RequestViews(completed bool) []string {
	keys := []string{KeyRequests, KeyStats}
	if completed {
		keys = append(keys, KeySupplies, KeyLowStock)
	}
	return keys
}

// ClaimIdempotency claims a client-supplied idempotency key. Returns
// false when the key was already used.
func ClaimIdempotency(ctx context.Context, s Store, key string) (bool, error) {
	return s.SetNX(ctx, idempotencyPrefix+key, idempotencyTTL)
}

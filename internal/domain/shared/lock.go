package shared

import (
	"context"
	"time"
)

// Locker hands out exclusive, expiring leases on a key.
// Acquire fails with a ConcurrencyError when another holder has the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock
type Lease interface {
	Release(ctx context.Context) error
}

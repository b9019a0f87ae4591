package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stockroom/backend/internal/domain/shared"
)

var errKeyHeld = errors.New("key is held by another receipt")

// LocalLocker implements shared.Locker inside one process.
// Leases expire after their TTL like the Redis ones.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]*localLease
	now  func() time.Time
}

// NewLocalLocker creates an empty LocalLocker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]*localLease), now: time.Now}
}

// Acquire takes the key if it is free or its previous lease has expired
func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (shared.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expiresAt) {
		return nil, shared.NewConcurrencyError("order lock", key, errKeyHeld)
	}
	lease := &localLease{owner: l, key: key, expiresAt: now.Add(ttl)}
	l.held[key] = lease
	return lease, nil
}

type localLease struct {
	owner     *LocalLocker
	key       string
	expiresAt time.Time
}

func (r *localLease) Release(context.Context) error {
	r.owner.mu.Lock()
	defer r.owner.mu.Unlock()
	// a lease that expired and was re-taken belongs to someone else now
	if r.owner.held[r.key] == r {
		delete(r.owner.held, r.key)
	}
	return nil
}

var _ shared.Locker = (*LocalLocker)(nil)

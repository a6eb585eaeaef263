package submit

import (
	"context"
	"sync"
	"time"

	"github.com/rifat-sarwar/IntelliTrust/internal/domain"
)

// nonceValidity bounds how long a cached nonce is trusted before it is
// re-fetched from the medium.
const nonceValidity = 5 * time.Minute

// nonceCache hands out the next usable nonce per submitting identity.
// Allocation is serialized per identity: acquire holds the identity's lock
// until release, so two concurrent submissions can never claim the same
// nonce. A conflict or failure invalidates the cache entry, forcing a
// refresh on the next acquire.
type nonceCache struct {
	medium domain.Medium
	ttl    time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	entries map[string]*nonceEntry
}

type nonceEntry struct {
	mu        sync.Mutex
	next      uint64
	fetchedAt time.Time
	known     bool
}

func newNonceCache(medium domain.Medium, ttl time.Duration, clock func() time.Time) *nonceCache {
	if ttl <= 0 {
		ttl = nonceValidity
	}
	if clock == nil {
		clock = time.Now
	}
	return &nonceCache{
		medium:  medium,
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]*nonceEntry),
	}
}

// acquire returns the next nonce for identity and a release func. The caller
// must invoke release exactly once: committed=true advances the cached nonce,
// committed=false discards it so the next acquire refreshes from the medium.
func (c *nonceCache) acquire(ctx context.Context, identity string) (uint64, func(committed bool), error) {
	c.mu.Lock()
	entry, ok := c.entries[identity]
	if !ok {
		entry = &nonceEntry{}
		c.entries[identity] = entry
	}
	c.mu.Unlock()

	entry.mu.Lock()
	now := c.clock()
	if !entry.known || now.Sub(entry.fetchedAt) > c.ttl {
		nonce, err := c.medium.NonceAt(ctx, identity)
		if err != nil {
			entry.mu.Unlock()
			return 0, nil, err
		}
		entry.next = nonce
		entry.fetchedAt = now
		entry.known = true
	}
	nonce := entry.next
	release := func(committed bool) {
		if committed {
			entry.next = nonce + 1
			entry.fetchedAt = c.clock()
		} else {
			entry.known = false
		}
		entry.mu.Unlock()
	}
	return nonce, release, nil
}

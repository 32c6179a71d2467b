package prefill

import (
	"context"
	"sync"
	"time"
)

// Identity is the external identity fetched from the provider and parked in
// the caller's session between the registration form's render and submit.
type Identity struct {
	ORCID string `json:"orcid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Cache stores one pre-fill Identity per session id, time-bounded. Entries
// are cleared on successful registration or explicit removal.
type Cache interface {
	Put(ctx context.Context, sessionID string, identity Identity) error
	Get(ctx context.Context, sessionID string) (Identity, bool, error)
	Clear(ctx context.Context, sessionID string) error
}

// MemoryCache is an in-memory Cache suitable for tests and single-node development.
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	identity  Identity
	expiresAt time.Time
}

// NewMemoryCache constructs a MemoryCache with the given entry TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryCache) Put(_ context.Context, sessionID string, identity Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[sessionID] = memoryEntry{
		identity:  identity,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryCache) Get(_ context.Context, sessionID string) (Identity, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[sessionID]
	c.mu.RUnlock()

	if !ok {
		return Identity{}, false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, sessionID)
		c.mu.Unlock()
		return Identity{}, false, nil
	}
	return entry.identity, true, nil
}

func (c *MemoryCache) Clear(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, sessionID)
	return nil
}

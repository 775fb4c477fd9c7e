package rates

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/goalpost/internal/service"
	"github.com/shopspring/decimal"
)

type cacheEntry struct {
	expiry time.Time
	rate   decimal.Decimal
}

// CachedProvider remembers rates per pair for a fixed TTL.
type CachedProvider struct {
	inner   service.RateProvider
	entries map[string]cacheEntry
	stopCh  chan struct{}
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
}

// NewCachedProvider wraps inner with a TTL cache and starts the cleanup
// goroutine. Call Close to stop it.
func NewCachedProvider(inner service.RateProvider, ttl time.Duration) *CachedProvider {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	c := &CachedProvider{
		inner:   inner,
		entries: make(map[string]cacheEntry),
		stopCh:  make(chan struct{}),
		now:     time.Now,
		ttl:     ttl,
	}

	go c.cleanup()

	return c
}

// Rate implements service.RateProvider.
func (c *CachedProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	key := PairKey(from, to)
	if rate, ok := c.get(key); ok {
		return rate, nil
	}

	rate, err := c.inner.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	c.set(key, rate)
	return rate, nil
}

func (c *CachedProvider) get(key string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || c.now().After(entry.expiry) {
		return decimal.Zero, false
	}
	return entry.rate, true
}

func (c *CachedProvider) set(key string, rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		rate:   rate,
		expiry: c.now().Add(c.ttl),
	}
}

func (c *CachedProvider) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Size returns the number of cached pairs, expired ones included.
func (c *CachedProvider) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *CachedProvider) Close() {
	close(c.stopCh)
}

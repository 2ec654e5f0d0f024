package insight

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/swaptoon/swap-engine/internal/clock"
	"github.com/swaptoon/swap-engine/internal/metrics"
)

// upstreamTimeout bounds a shared lookup, which no caller can cancel.
const upstreamTimeout = 15 * time.Second

type cacheEntry struct {
	text    string
	expires time.Time
}

// CachedProvider memoizes insights per pair for ttl. Concurrent misses for
// the same pair share one upstream call. FallbackError is never cached so
// the next lookup retries.
type CachedProvider struct {
	next  Provider
	ttl   time.Duration
	clock clock.Scheduler

	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

// NewCached wraps next with a TTL cache. The scheduler supplies the time.
func NewCached(next Provider, ttl time.Duration, sched clock.Scheduler) *CachedProvider {
	return &CachedProvider{
		next:    next,
		ttl:     ttl,
		clock:   sched,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedProvider) Insight(ctx context.Context, from, to string) string {
	key := strings.ToUpper(from) + "/" + strings.ToUpper(to)
	if text, ok := c.lookup(key); ok {
		metrics.InsightRequests.WithLabelValues("cached").Inc()
		return text
	}

	// The shared call outlives any one caller: a cancelled caller gets
	// FallbackError while the others keep waiting for the upstream reply.
	ch := c.group.DoChan(key, func() (any, error) {
		if text, ok := c.lookup(key); ok {
			return text, nil
		}
		upstream, cancel := context.WithTimeout(context.WithoutCancel(ctx), upstreamTimeout)
		defer cancel()

		text := c.next.Insight(upstream, from, to)
		if text != FallbackError {
			c.mu.Lock()
			c.entries[key] = cacheEntry{text: text, expires: c.clock.Now().Add(c.ttl)}
			c.mu.Unlock()
		}
		return text, nil
	})

	select {
	case res := <-ch:
		return res.Val.(string)
	case <-ctx.Done():
		return FallbackError
	}
}

func (c *CachedProvider) lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)
		return "", false
	}
	return e.text, true
}

package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// cleanupThreshold is the minimum map size before a cleanup pass runs.
	cleanupThreshold = 500
	// maxIdleAge is the duration after which an idle client entry is eligible for cleanup.
	maxIdleAge = 10 * time.Minute
)

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client key and prunes idle keys inline.
type ClientLimiter struct {
	clients map[string]*clientEntry
	mu      sync.Mutex
	r       rate.Limit
	b       int
	now     func() time.Time
}

// NewClientLimiter allows perMinute requests per client, bursting up to perMinute.
func NewClientLimiter(perMinute int) *ClientLimiter {
	return &ClientLimiter{
		clients: make(map[string]*clientEntry),
		r:       rate.Limit(float64(perMinute) / 60),
		b:       perMinute,
		now:     time.Now,
	}
}

// Allow reports whether the client identified by key may make a request now.
func (c *ClientLimiter) Allow(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.clients) > cleanupThreshold {
		cutoff := now.Add(-maxIdleAge)
		for k, e := range c.clients {
			if e.lastSeen.Before(cutoff) {
				delete(c.clients, k)
			}
		}
	}

	e, exists := c.clients[key]
	if !exists {
		e = &clientEntry{limiter: rate.NewLimiter(c.r, c.b)}
		c.clients[key] = e
	}
	e.lastSeen = now

	return e.limiter.AllowN(now, 1)
}

// tracked returns the number of clients holding a bucket
func (c *ClientLimiter) tracked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

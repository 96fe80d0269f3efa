package http

import (
	"sync"
	"time"
)

// rateLimiter caps actions per key per minute. Buckets reset lazily on the
// next check after their window passes, so no background timer is needed.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	buckets map[string]*rateBucket
}

type rateBucket struct {
	count int
	start time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		buckets: make(map[string]*rateBucket),
	}
}

func (r *rateLimiter) allow(key string) bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	if !ok || now.Sub(b.start) >= time.Minute {
		if len(r.buckets) > 4096 {
			r.prune(now)
		}
		r.buckets[key] = &rateBucket{count: 1, start: now}
		return true
	}
	b.count++
	return b.count <= r.limit
}

// prune drops expired buckets; called under the lock.
func (r *rateLimiter) prune(now time.Time) {
	for key, b := range r.buckets {
		if now.Sub(b.start) >= time.Minute {
			delete(r.buckets, key)
		}
	}
}

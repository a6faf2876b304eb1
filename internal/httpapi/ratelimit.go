package httpapi

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// keyLimiter tracks a rate.Limiter per chat key, grounded on the teacher's
// IPRateLimiter (internal/middleware.go) but keyed by chat_key instead of
// client IP, since submit-code requests are attributable to a session
// regardless of which platform process forwards them.
type keyLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	r        rate.Limit
	burst    int
}

func newKeyLimiter(perSecond rate.Limit, burst int) *keyLimiter {
	kl := &keyLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		r:        perSecond,
		burst:    burst,
	}
	go kl.evictLoop()
	return kl
}

func (kl *keyLimiter) get(chatKey string) *rate.Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	l, ok := kl.limiters[chatKey]
	if !ok {
		l = rate.NewLimiter(kl.r, kl.burst)
		kl.limiters[chatKey] = l
	}
	kl.lastSeen[chatKey] = time.Now()
	return l
}

func (kl *keyLimiter) evictLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		kl.mu.Lock()
		cutoff := time.Now().Add(-time.Hour)
		for key, seen := range kl.lastSeen {
			if seen.Before(cutoff) {
				delete(kl.limiters, key)
				delete(kl.lastSeen, key)
			}
		}
		kl.mu.Unlock()
	}
}

// allow reports whether chatKey may submit another execution right now,
// keeping one noisy session from starving admission for the rest of the
// platform.
func (kl *keyLimiter) allow(chatKey string) bool {
	return kl.get(chatKey).Allow()
}

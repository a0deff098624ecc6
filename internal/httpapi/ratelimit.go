package httpapi

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter keeps one token bucket per client address.
type clientLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	entryTTL time.Duration
	entries  map[string]*limiterEntry
	lastGC   time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newClientLimiter allows burst attempts at once, refilled evenly over window.
func newClientLimiter(burst int, window time.Duration) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &clientLimiter{
		limit:    rate.Every(window / time.Duration(burst)),
		burst:    burst,
		entryTTL: 2 * window,
		entries:  make(map[string]*limiterEntry),
		lastGC:   time.Now(),
	}
}

func (l *clientLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > l.entryTTL {
		for k, entry := range l.entries {
			if now.Sub(entry.lastSeen) > l.entryTTL {
				delete(l.entries, k)
			}
		}
		l.lastGC = now
	}

	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// clientKey identifies the caller. RemoteAddr has already been rewritten by
// the RealIP middleware when a proxy header is present.
func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

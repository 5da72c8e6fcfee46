package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// RateLimitMiddleware limits requests per client IP over a sliding window.
type RateLimitMiddleware struct {
	requests  map[string][]int64 // IP -> timestamps
	lastSweep int64
	mu        sync.Mutex
	now       func() time.Time

	// trustProxy keys clients by X-Forwarded-For / X-Real-IP. Only enable it
	// behind a proxy that overwrites those headers; otherwise any client can
	// pick its own key.
	trustProxy bool
}

// NewRateLimitMiddleware creates a new rate limiting middleware. With
// trustProxy false the client is always identified by the connection address.
func NewRateLimitMiddleware(trustProxy bool) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests:   make(map[string][]int64),
		now:        time.Now,
		trustProxy: trustProxy,
	}
}

// RateLimit rejects a client with 429 once it has made maxRequests within the
// last windowSeconds.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, windowSeconds int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r, m.trustProxy)
			if !m.allow(ip, maxRequests, windowSeconds) {
				log.WithFields(log.Fields{"ip": ip, "path": r.URL.Path}).Warn("Rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(windowSeconds))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *RateLimitMiddleware) allow(clientIP string, maxRequests, windowSeconds int) bool {
	now := m.now().Unix()
	windowStart := now - int64(windowSeconds)

	m.mu.Lock()
	defer m.mu.Unlock()

	if now-m.lastSweep >= int64(windowSeconds) {
		m.sweep(windowStart)
		m.lastSweep = now
	}

	valid := m.requests[clientIP][:0]
	for _, ts := range m.requests[clientIP] {
		if ts > windowStart {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= maxRequests {
		m.requests[clientIP] = valid
		return false
	}
	m.requests[clientIP] = append(valid, now)
	return true
}

// sweep drops clients with no request inside the window. Caller holds mu.
func (m *RateLimitMiddleware) sweep(windowStart int64) {
	for ip, stamps := range m.requests {
		if len(stamps) == 0 || stamps[len(stamps)-1] <= windowStart {
			delete(m.requests, ip)
		}
	}
}

func (m *RateLimitMiddleware) clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
			return strings.TrimSpace(strings.Split(ip, ",")[0])
		}
		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			return ip
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

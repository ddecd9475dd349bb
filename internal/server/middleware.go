package server

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pruneThreshold is the number of tracked clients above which idle
// limiters are swept on the next lookup.
const pruneThreshold = 1024

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements a simple token bucket rate limiter per IP address
type RateLimiter struct {
	limiters  map[string]*limiterEntry
	mu        sync.Mutex
	rateLimit rate.Limit // Requests per second
	burstSize int        // Maximum burst size
	idle      time.Duration
	now       func() time.Time
}

// NewRateLimiter creates a new rate limiter
// rateLimit: requests per second
// burstSize: maximum number of requests allowed in a burst
func NewRateLimiter(rateLimit rate.Limit, burstSize int) *RateLimiter {
	// A limiter untouched for this long has refilled its bucket and is
	// indistinguishable from a fresh one.
	idle := time.Minute
	if rateLimit > 0 {
		idle = time.Duration(float64(burstSize) / float64(rateLimit) * float64(time.Second))
	}

	return &RateLimiter{
		limiters:  make(map[string]*limiterEntry),
		rateLimit: rateLimit,
		burstSize: burstSize,
		idle:      idle,
		now:       time.Now,
	}
}

// GetLimiter returns the rate limiter for a given IP address
// Creates a new limiter for the IP if one doesn't exist
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.limiters[ip]
	if !exists {
		if len(rl.limiters) >= pruneThreshold {
			rl.prune(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rateLimit, rl.burstSize)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = now

	return entry.limiter
}

// Tracked returns the number of clients currently holding a limiter.
func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// prune drops limiters idle for longer than a full refill. Caller holds mu.
func (rl *RateLimiter) prune(now time.Time) {
	for ip, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > rl.idle {
			delete(rl.limiters, ip)
		}
	}
}

// NewRateLimitMiddleware creates per-IP rate limiting middleware
// limit: requests per minute
func NewRateLimitMiddleware(limit int, logger *slog.Logger) func(http.Handler) http.Handler {
	rps := rate.Limit(float64(limit) / 60.0)
	limiter := NewRateLimiter(rps, limit)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr

			if !limiter.GetLimiter(ip).Allow() {
				logger.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path)
				respondError(w, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimit caps every request body at limit bytes before routing, so the
// cap holds on routes that never read their body. Bodies declaring a larger
// Content-Length are refused outright. Bodies of unknown length are read up
// to limit+1 bytes and refused on overflow, otherwise handed on buffered.
func BodyLimit(limit int64, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tooLarge := func(length int64) {
				logger.Warn("Request body too large",
					"path", r.URL.Path,
					"content_length", length,
					"limit", limit)
				respondError(w, http.StatusRequestEntityTooLarge)
			}

			if r.ContentLength > limit {
				tooLarge(r.ContentLength)
				return
			}

			if r.ContentLength < 0 {
				buf, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
				r.Body.Close()
				if err != nil {
					logger.Warn("Failed to read request body", "path", r.URL.Path, "error", err)
					respondError(w, http.StatusBadRequest)
					return
				}
				if int64(len(buf)) > limit {
					tooLarge(-1)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(buf))
				r.ContentLength = int64(len(buf))
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"league-console/pkg/apierror"
)

const (
	// Requests under authPrefix draw from the sign-in budget.
	authPrefix = "/auth/"

	defaultAuthRPM = 10

	// Idle callers are forgotten once a set grows past sweepThreshold.
	sweepThreshold = 1000
	idleAfter      = 10 * time.Minute
)

// RateLimitMiddleware budgets requests per client IP. Console and public
// traffic share one budget; sign-in and sign-out calls have their own,
// smaller one so credential guessing is throttled independently.
type RateLimitMiddleware struct {
	console *limiterSet
	auth    *limiterSet
}

// NewRateLimitMiddleware takes requests-per-minute budgets. A non-positive
// generalRPM leaves console traffic unlimited; a non-positive authRPM falls
// back to defaultAuthRPM.
func NewRateLimitMiddleware(generalRPM int, authRPM int) *RateLimitMiddleware {
	if authRPM <= 0 {
		authRPM = defaultAuthRPM
	}

	return &RateLimitMiddleware{
		console: newLimiterSet(generalRPM),
		auth:    newLimiterSet(authRPM),
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		set := m.console
		if strings.HasPrefix(strings.ToLower(r.URL.Path), authPrefix) {
			set = m.auth
		}

		if ok, wait := set.allow(extractClientIP(r), time.Now()); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeJSONError(w, http.StatusTooManyRequests, apierror.CodeRateLimited, "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

func newLimiterSet(rpm int) *limiterSet {
	set := &limiterSet{limit: rate.Inf, entries: map[string]*limiterEntry{}}
	if rpm > 0 {
		set.limit = rate.Every(time.Minute / time.Duration(rpm))
		set.burst = rpm
	}
	return set
}

// allow takes one token for key. When none is left it reports how long the
// caller should wait for the next one.
func (s *limiterSet) allow(key string, now time.Time) (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		if len(s.entries) >= sweepThreshold {
			s.sweepLocked(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = entry
	}
	entry.lastSeen = now

	reservation := entry.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Minute
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (s *limiterSet) sweepLocked(now time.Time) {
	cutoff := now.Add(-idleAfter)
	for key, entry := range s.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(s.entries, key)
		}
	}
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// extractClientIP prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the connection's remote address.
func extractClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	if remote == "" {
		return "unknown"
	}
	return remote
}

package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/opencustody/strongroom/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines a token-bucket rate limit.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed per Window.
	RequestsPerWindow int
	// Window is the accounting window.
	Window time.Duration
	// Burst is the number of requests available immediately.
	Burst int
}

// Profiles for the different endpoint classes.
var (
	// StrictLimit for credential endpoints (brute force prevention).
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit for authenticated mutating operations.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit for authenticated reads and health checks.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}
)

// KeyExtractor derives the bucket key for a request (IP, user id, ...).
type KeyExtractor func(*http.Request) string

// IPKeyExtractor returns the client IP, honouring X-Forwarded-For and
// X-Real-IP for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// SubjectKeyExtractor returns the authenticated subject, or "" when the
// request carries none.
func SubjectKeyExtractor(r *http.Request) string {
	return SubjectFromContext(r.Context())
}

// maxKeyPeekBytes bounds how much of a request body the JSON extractor
// reads to derive a bucket key.
const maxKeyPeekBytes = 1 << 20

// JSONFieldKeyExtractor keys the bucket on a string field of a JSON request
// body, e.g. the login email, so one account cannot be brute forced from
// many IPs. The body is re-readable afterwards so handlers can still decode
// it.
func JSONFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxKeyPeekBytes))
		r.Body = peekedBody{io.MultiReader(bytes.NewReader(raw), r.Body), r.Body}
		if err != nil {
			return ""
		}

		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			return ""
		}
		value, _ := body[field].(string)

		// Normalized the way the session service normalizes emails, so
		// case games don't split the bucket.
		return strings.ToLower(strings.TrimSpace(value))
	}
}

// peekedBody stitches the consumed prefix back in front of the rest of the
// original body.
type peekedBody struct {
	io.Reader
	io.Closer
}

// CompositeKeyExtractor joins the non-empty keys of several extractors.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// limiterSet tracks one rate.Limiter per key, evicting idle buckets so
// ephemeral keys don't accumulate forever.
type limiterSet struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func (s *limiterSet) get(key string) *rate.Limiter {
	if l, ok := s.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	actual, _ := s.limiters.LoadOrStore(key, rate.NewLimiter(s.rate, s.burst))
	s.maybeCleanup()
	return actual.(*rate.Limiter)
}

func (s *limiterSet) maybeCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastCleanup) < 5*time.Minute {
		return
	}
	s.lastCleanup = time.Now()

	// A limiter with a full bucket has been idle for at least a window.
	s.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(s.burst) {
			s.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitMiddleware limits requests grouped by the extractor's key.
func RateLimitMiddleware(cfg RateLimitConfig, extract KeyExtractor) Middleware {
	set := &limiterSet{
		rate:        rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := extract(r)
			if key == "" {
				// No key means no bucket; let the request through but note it.
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			limiter := set.get(key)
			if !limiter.Allow() {
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", cfg.Window.String())

				log.Warn("rate limit exceeded", "key", key, "endpoint", r.URL.Path)
				WriteError(w, http.StatusTooManyRequests,
					"rate_limit_exceeded", "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by client IP only.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitBySubject limits by authenticated subject, falling back to IP.
func RateLimitBySubject(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", SubjectKeyExtractor, IPKeyExtractor))
}

// RateLimitByIPAndJSONField limits by IP plus a JSON body field, e.g. the
// login email.
func RateLimitByIPAndJSONField(cfg RateLimitConfig, field string) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", IPKeyExtractor, JSONFieldKeyExtractor(field)))
}

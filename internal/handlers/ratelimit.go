package handlers

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimiter is the minimal interface required to guard expensive endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

type retryAfterLimiter interface {
	RetryAfter(key string) time.Duration
}

// allowRequest reports whether the request may proceed. When it may not and the
// limiter can estimate a wait, a Retry-After header is set.
func allowRequest(limiter RateLimiter, w http.ResponseWriter, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	key := rateLimitKey(r, scope)
	if limiter.Allow(key) {
		return true
	}
	if ra, ok := limiter.(retryAfterLimiter); ok {
		if wait := ra.RetryAfter(key); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
		}
	}
	return false
}

func rateLimitKey(r *http.Request, scope string) string {
	ip := clientIP(r)
	if scope == "" {
		return ip
	}
	return fmt.Sprintf("%s:%s", scope, ip)
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/unipublish/backend/internal/logging"
)

func TestRequestLoggerAttachesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/abc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == "" {
		t.Fatal("expected request id on context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Fatalf("expected response header %q got %q", seen, got)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["status"] != float64(http.StatusTeapot) || entry["request_id"] != seen {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestRequestLoggerReusesValidRequestID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	const incoming = "0b8e4e53-1c3f-4a7e-8f55-1d2c3b4a0001"

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get(RequestIDHeader) != incoming {
		t.Fatalf("expected incoming id to be reused")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not a uuid\nforged")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); strings.Contains(got, "forged") {
		t.Fatalf("expected invalid id to be replaced got %q", got)
	}
}

func TestRequestLoggerRecoversPanics(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Minute, 2, time.Minute).(*ipRateLimiter)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.WithNowFunc(func() time.Time { return now })

	if !limiter.Allow("generate:1.2.3.4") || !limiter.Allow("generate:1.2.3.4") {
		t.Fatal("expected burst to be allowed")
	}
	if limiter.Allow("generate:1.2.3.4") {
		t.Fatal("expected third request to be limited")
	}
	if !limiter.Allow("generate:5.6.7.8") {
		t.Fatal("expected other clients to be unaffected")
	}
	if wait := limiter.RetryAfter("generate:1.2.3.4"); wait != time.Minute {
		t.Fatalf("expected one minute retry-after got %s", wait)
	}
	if wait := limiter.RetryAfter("unseen"); wait != 0 {
		t.Fatalf("expected no wait for unseen key got %s", wait)
	}

	now = now.Add(2 * time.Minute)
	limiter.Allow("generate:5.6.7.8")
	limiter.mu.Lock()
	_, tracked := limiter.visitors["generate:1.2.3.4"]
	limiter.mu.Unlock()
	if tracked {
		t.Fatal("expected idle visitor to be evicted")
	}
}

package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds reading a request body and writing a response.
// Video uploads make it considerably longer than a typical JSON API needs.
const DefaultRequestTimeout = 2 * time.Minute

// Server wraps the http.Server with sensible defaults.
type Server struct {
	inner *http.Server
}

// New constructs a server listening on the provided port. A non-positive
// timeout selects DefaultRequestTimeout.
func New(port int, handler http.Handler, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       timeout,
			WriteTimeout:      timeout,
			IdleTimeout:       2 * timeout,
		},
	}
}

// Addr reports the configured listen address.
func (s *Server) Addr() string {
	return s.inner.Addr
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully terminates the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}

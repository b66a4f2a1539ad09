// Package testutil provides in-memory stand-ins for the Pocket and Pinboard
// APIs, a recording test server and a fake clock.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"pocketpin/internal/clock"
)

// Hit is one request observed by a Server.
type Hit struct {
	Method string
	Path   string
	Query  url.Values
	Status int
	At     time.Time
}

// Server is an httptest.Server that records every request and can be told
// to fail the next few of them.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	hits     []Hit
	failures []int
	clock    clock.Clock
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithClock stamps hits with c instead of the wall clock.
func WithClock(c clock.Clock) ServerOption {
	return func(s *Server) {
		s.clock = c
	}
}

// NewServer starts h behind the recording middleware and closes it when the
// test ends.
func NewServer(t testing.TB, h http.Handler, opts ...ServerOption) *Server {
	t.Helper()
	s := &Server{clock: clock.Real}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(s.middleware(h))
	t.Cleanup(s.Close)
	return s
}

// FailNext makes the next n requests answer with status before reaching the
// wrapped handler.
func (s *Server) FailNext(status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for range n {
		s.failures = append(s.failures, status)
	}
}

// Hits returns all recorded requests in arrival order.
func (s *Server) Hits() []Hit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Hit, len(s.hits))
	copy(out, s.hits)
	return out
}

// HitsFor returns the recorded requests whose path ends with suffix.
func (s *Server) HitsFor(suffix string) []Hit {
	var out []Hit
	for _, h := range s.Hits() {
		if strings.HasSuffix(h.Path, suffix) {
			out = append(out, h)
		}
	}
	return out
}

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := s.record(Hit{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			At:     s.clock.Now(),
		})
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.hits[idx].Status = rw.statusCode
		}()

		if status, ok := s.popFailure(); ok {
			rw.Header().Set("Content-Type", "application/json")
			rw.WriteHeader(status)
			_, _ = fmt.Fprintf(rw, `{"error": "injected failure %d"}`, status)
			return
		}
		next.ServeHTTP(rw, r)
	})
}

func (s *Server) record(h Hit) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = append(s.hits, h)
	return len(s.hits) - 1
}

func (s *Server) popFailure() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.failures) == 0 {
		return 0, false
	}
	status := s.failures[0]
	s.failures = s.failures[1:]
	return status, true
}

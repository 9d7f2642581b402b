package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voxmeet/voxmeet/internal/health"
)

func newTestServer(checkers ...health.Checker) *Server {
	return New(Config{
		ListenAddr: "127.0.0.1:0",
		Router:     newRouterFixture().router(RouterConfig{}),
		Checkers:   checkers,
	})
}

func TestServerServesHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/readyz status = %d, want 200", rec.Code)
	}
}

func TestServerReportsFailedReadiness(t *testing.T) {
	t.Parallel()

	srv := newTestServer(health.Checker{
		Name:  "directory",
		Check: func(context.Context) error { return errors.New("unreachable") },
	})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz status = %d, want 503", rec.Code)
	}
}

func TestServerServesMetrics(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text") {
		t.Errorf("/metrics Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestServerRoutesAPIThroughMiddleware(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/api/meeting/join", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("join without meetingId status = %d, want 400", rec.Code)
	}
}

package testutil

import (
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/console"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/deployapi"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/httpserver"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/httpserver/middleware"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/metrics"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/session"
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*serverSetup)

type serverSetup struct {
	cfg      httpserver.Config
	service  deployapi.Service
	fallback bool
	site     console.Site
}

// WithAuthenticator overrides the authenticator used by the console server.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(s *serverSetup) {
		s.cfg.Authenticator = auth
	}
}

// WithBasePath sets a custom base path for the console routes.
func WithBasePath(path string) ServerOption {
	return func(s *serverSetup) {
		s.cfg.BasePath = path
	}
}

// WithDeployService wires the deployment API every workspace talks to.
func WithDeployService(service deployapi.Service) ServerOption {
	return func(s *serverSetup) {
		s.service = service
	}
}

// WithOfflineFallback toggles local fallback for new workspaces.
func WithOfflineFallback(enabled bool) ServerOption {
	return func(s *serverSetup) {
		s.fallback = enabled
	}
}

// WithSite sets the staging and production URLs.
func WithSite(site console.Site) ServerOption {
	return func(s *serverSetup) {
		s.site = site
	}
}

// WithMetrics serves /metrics from m.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *serverSetup) {
		s.cfg.Metrics = m
	}
}

// NewServer constructs an httptest server running the console HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	sessions, err := session.NewManager(session.Config{
		CookieName: "publisher_session",
		HashKey:    []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"),
		BlockKey:   []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	setup := &serverSetup{
		cfg: httpserver.Config{
			Address:       ":0",
			BasePath:      "/",
			Environment:   "Development",
			Authenticator: middleware.DefaultAuthenticator(),
			Sessions:      sessions,
			Logger:        zap.NewNop(),
			CSRF: middleware.CSRFConfig{
				CookieName: "publisher_csrf",
				HeaderName: "X-CSRF-Token",
			},
		},
		service:  deployapi.NewStaticService(nil),
		fallback: true,
	}
	for _, opt := range opts {
		opt(setup)
	}

	setup.cfg.Workspaces = console.NewRegistry(16, time.Hour, func() *console.Workspace {
		return console.New(setup.service,
			console.WithOfflineFallback(setup.fallback),
			console.WithSite(setup.site),
		)
	})

	srv := httpserver.New(setup.cfg)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

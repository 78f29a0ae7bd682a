package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	custommw "github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/httpserver/middleware"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/httpserver/ui"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/metrics"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/observability"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/rbac"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/public"
)

const defaultRequestTimeout = 60 * time.Second

// WorkspaceStore hands out per-session workspaces and forgets them on logout.
type WorkspaceStore interface {
	custommw.WorkspaceSource
	Drop(sessionID string)
}

// Config holds runtime options for the console HTTP server.
type Config struct {
	Address        string
	BasePath       string
	LoginPath      string
	Environment    string
	TraceProjectID string

	Authenticator custommw.Authenticator
	Sessions      custommw.SessionStore
	Workspaces    WorkspaceStore
	CSRF          custommw.CSRFConfig

	Logger  *zap.Logger
	Metrics *metrics.Metrics

	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      NewHandler(cfg),
		ReadTimeout:  durationOr(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 60*time.Second),
	}
}

// NewHandler builds the router. It panics when sessions or workspaces are missing.
func NewHandler(cfg Config) http.Handler {
	if cfg.Sessions == nil {
		panic("httpserver: session store is required")
	}
	if cfg.Workspaces == nil {
		panic("httpserver: workspace store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var recorder observability.HTTPRecorder
	if cfg.Metrics != nil {
		recorder = cfg.Metrics
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLogger(logger))
	router.Use(observability.TraceMiddleware(cfg.TraceProjectID))
	router.Use(observability.RequestLogger(observability.RequestLoggerOptions{
		Recorder: recorder,
		UserID:   custommw.UserIDFromContext,
	}))
	router.Use(observability.Recovery(logger))
	router.Use(chimw.Timeout(durationOr(cfg.RequestTimeout, defaultRequestTimeout)))

	router.Get("/healthz", healthz)
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics.Handler())
	}

	basePath := custommw.NormaliseBase(cfg.BasePath)
	loginPath := resolveLoginPath(basePath, cfg.LoginPath)

	authenticator := cfg.Authenticator
	if authenticator == nil {
		authenticator = custommw.DefaultAuthenticator()
	}

	csrfCfg := cfg.CSRF
	csrfCfg.CookiePath = firstNonEmpty(csrfCfg.CookiePath, basePath)

	opts := routeOptions{
		Authenticator: authenticator,
		LoginPath:     loginPath,
		Environment:   cfg.Environment,
		CSRF:          csrfCfg,
		Sessions:      cfg.Sessions,
		Workspaces:    cfg.Workspaces,
	}
	if basePath == "/" {
		mountConsoleRoutes(router, basePath, opts)
	} else {
		router.Route(basePath, func(r chi.Router) {
			mountConsoleRoutes(r, basePath, opts)
		})
	}
	return router
}

type routeOptions struct {
	Authenticator custommw.Authenticator
	LoginPath     string
	Environment   string
	CSRF          custommw.CSRFConfig
	Sessions      custommw.SessionStore
	Workspaces    WorkspaceStore
}

func mountConsoleRoutes(r chi.Router, base string, opts routeOptions) {
	r.Handle("/public/static/*", public.Handler(joinBase(base, "/public/static/")))

	handlers := ui.NewHandlers()
	auth := newAuthHandlers(opts.Authenticator, base, opts.LoginPath, opts.Workspaces)

	r.Group(func(r chi.Router) {
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.ConsoleContext(base, opts.Environment))
		r.Use(custommw.Session(opts.Sessions))
		r.Use(custommw.CSRF(opts.CSRF))

		r.Get("/login", auth.LoginForm)
		r.Post("/login", auth.LoginSubmit)
		r.Post("/logout", auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(custommw.Auth(opts.Authenticator, opts.LoginPath))
			r.Use(custommw.RequireCapability(rbac.CapVersionsView))
			r.Use(custommw.Workspace(opts.Workspaces))

			r.Get("/", handlers.ConsolePage)
			RegisterFragment(r, "/versions", handlers.VersionsFragment)
			r.Post("/versions/refresh", handlers.RefreshVersions)
			r.Post("/modals/{kind}/close", handlers.CloseModal)

			r.Group(func(r chi.Router) {
				r.Use(custommw.RequireCapability(rbac.CapVersionsPublish))
				r.Get("/publish", handlers.PublishModal)
				RegisterFragment(r, "/publish/preview", handlers.PublishPreview)
				r.Post("/publish", handlers.PublishSubmit)
			})

			r.Group(func(r chi.Router) {
				r.Use(custommw.RequireCapability(rbac.CapVersionsRevert))
				r.Get("/versions/{versionID}/revert", handlers.RevertModal)
				r.Post("/versions/{versionID}/revert", handlers.RevertSubmit)
			})
		})
	})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte("ok"))
}

func resolveLoginPath(base string, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return joinBase(base, "/login")
}

func joinBase(base, suffix string) string {
	if base == "/" {
		return suffix
	}
	return strings.TrimRight(base, "/") + suffix
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}

// RegisterFragment registers a GET handler intended for htmx fragment rendering.
func RegisterFragment(r chi.Router, pattern string, handler http.HandlerFunc) {
	r.With(custommw.RequireHTMX()).Get(pattern, handler)
}

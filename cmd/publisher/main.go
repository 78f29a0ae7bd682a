package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/config"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/console"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/deployapi"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/httpserver"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/httpserver/middleware"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/metrics"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/observability"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/secrets"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/session"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx := context.Background()

	level, _, _ := config.Lookup("PUBLISHER_LOG_LEVEL")
	format, _, _ := config.Lookup("PUBLISHER_LOG_FORMAT")
	baseLogger, err := observability.NewLogger(level,
		observability.WithFormat(format),
		observability.WithService("publisher", version),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("publisher")

	var loadOpts []config.Option
	if projectID, ok, _ := config.Lookup("PUBLISHER_SECRETS_PROJECT_ID"); ok && strings.TrimSpace(projectID) != "" {
		resolver, err := secrets.NewResolver(ctx,
			secrets.WithProject(projectID),
			secrets.WithLogger(logger.Named("secrets")),
		)
		if err != nil {
			logger.Fatal("failed to initialise secret resolver", zap.Error(err))
		}
		defer func() {
			if err := resolver.Close(); err != nil {
				logger.Warn("secret resolver close error", zap.Error(err))
			}
		}()
		loadOpts = append(loadOpts, config.WithSecretResolver(resolver))
	}

	cfg, err := config.Load(ctx, loadOpts...)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			logger.Fatal("invalid configuration", zap.Strings("fields", verr.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if cfg.Session.Ephemeral {
		logger.Warn("PUBLISHER_SESSION_HASH_KEY not set; sessions will not survive a restart")
	}

	m := metrics.New()

	sessions, err := session.NewManager(session.Config{
		CookieName:   cfg.Session.CookieName,
		HashKey:      cfg.Session.HashKey,
		BlockKey:     cfg.Session.BlockKey,
		CookiePath:   cookiePath(cfg.Server.BasePath),
		CookieSecure: cfg.Session.CookieSecure,
		Environment:  cfg.Server.Environment,
		IdleTimeout:  cfg.Session.IdleTimeout,
		Lifetime:     cfg.Session.Lifetime,
	})
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}

	service, err := buildDeployService(cfg.API, m, logger)
	if err != nil {
		logger.Fatal("failed to initialise deployment API client", zap.Error(err))
	}

	workspaceLogger := logger.Named("console")
	workspaces := console.NewRegistry(cfg.Workspace.CacheSize, cfg.Workspace.TTL, func() *console.Workspace {
		return console.New(service,
			console.WithOfflineFallback(cfg.Features.OfflineFallback),
			console.WithSite(console.Site{
				StagingURL:    cfg.Site.StagingURL,
				ProductionURL: cfg.Site.ProductionURL,
			}),
			console.WithRecorder(m),
			console.WithLogger(workspaceLogger),
		)
	}, console.WithSizeObserver(m.SetWorkspaces))

	srv := httpserver.New(httpserver.Config{
		Address:        cfg.Server.Address,
		BasePath:       cfg.Server.BasePath,
		Environment:    cfg.Server.Environment,
		TraceProjectID: cfg.Firebase.ProjectID,
		Authenticator:  buildAuthenticator(ctx, cfg.Firebase, logger),
		Sessions:       sessions,
		Workspaces:     workspaces,
		CSRF: middleware.CSRFConfig{
			CookieName: cfg.Session.CSRFCookieName,
			CookiePath: cookiePath(cfg.Server.BasePath),
			Secure:     cfg.Session.CookieSecure,
		},
		Logger:       logger.Named("http"),
		Metrics:      m,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("publisher console listening",
		zap.String("addr", cfg.Server.Address),
		zap.String("base_path", cfg.Server.BasePath),
		zap.String("environment", cfg.Server.Environment),
		zap.Bool("offline_fallback", cfg.Features.OfflineFallback),
	)

	<-sigCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
	logger.Info("publisher console stopped")
}

func buildDeployService(cfg config.APIConfig, m *metrics.Metrics, logger *zap.Logger) (deployapi.Service, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		logger.Warn("PUBLISHER_API_BASE_URL not set; serving the in-memory version history")
		return deployapi.NewStaticService(nil), nil
	}
	svc, err := deployapi.NewHTTPService(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout},
		deployapi.WithToken(cfg.Token),
		deployapi.WithPaths(deployapi.Paths{
			Versions: cfg.VersionsPath,
			Publish:  cfg.PublishPath,
			Revert:   cfg.RevertPath,
		}),
		deployapi.WithRecorder(m),
	)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func buildAuthenticator(ctx context.Context, cfg config.FirebaseConfig, logger *zap.Logger) middleware.Authenticator {
	if cfg.ProjectID == "" {
		logger.Warn("PUBLISHER_FIREBASE_PROJECT_ID not set; using passthrough authenticator")
		return middleware.DefaultAuthenticator()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		logger.Fatal("failed to initialise Firebase app", zap.Error(err))
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := app.Auth(initCtx)
	if err != nil {
		logger.Fatal("failed to initialise Firebase auth client", zap.Error(err))
	}

	logger.Info("Firebase authenticator enabled",
		zap.String("project_id", cfg.ProjectID),
		zap.Duration("verify_cache_ttl", cfg.VerifyCacheTTL),
	)
	return middleware.NewCachedAuthenticator(middleware.NewFirebaseAuthenticator(client), 512, cfg.VerifyCacheTTL)
}

func cookiePath(basePath string) string {
	return middleware.NormaliseBase(basePath)
}

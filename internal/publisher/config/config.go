package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultEnvFile          = ".env"
	defaultAddress          = ":8080"
	defaultBasePath         = "/"
	defaultEnvironment      = "Development"
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultAPITimeout       = 15 * time.Second
	defaultVersionsPath     = "/versions"
	defaultPublishPath      = "/versions"
	defaultRevertPath       = "/versions/{id}/revert"
	defaultStagingURL       = "https://demo.transitionmarketingai.com"
	defaultProductionURL    = "https://transitionmarketingai.com"
	defaultSessionIdle      = 30 * time.Minute
	defaultSessionLifetime  = 12 * time.Hour
	defaultWorkspaceSize    = 1024
	defaultWorkspaceTTL     = 30 * time.Minute
	defaultVerifyCacheTTL   = time.Minute
	defaultSessionCookie    = "publisher_session"
	defaultCSRFCookie       = "publisher_csrf"
	minSessionHashKeyLength = 32
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	API       APIConfig
	Site      SiteConfig
	Features  FeatureFlags
	Session   SessionConfig
	Workspace WorkspaceConfig
	Firebase  FirebaseConfig
	Secrets   SecretsConfig
}

// ServerConfig configures the console HTTP server.
type ServerConfig struct {
	Address         string
	BasePath        string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// APIConfig points at the remote deployment API.
type APIConfig struct {
	// BaseURL is empty when the console runs against the in-memory history.
	BaseURL      string
	Token        string
	Timeout      time.Duration
	VersionsPath string
	PublishPath  string
	RevertPath   string
}

// SiteConfig names the environments a publish promotes between.
type SiteConfig struct {
	StagingURL    string
	ProductionURL string
}

// FeatureFlags toggle optional behaviour without redeploying.
type FeatureFlags struct {
	OfflineFallback bool
}

// SessionConfig controls the operator session cookie.
type SessionConfig struct {
	CookieName     string
	CSRFCookieName string
	HashKey        []byte
	BlockKey       []byte
	CookieSecure   bool
	IdleTimeout    time.Duration
	Lifetime       time.Duration
	// Ephemeral is set when no hash key was configured and a random one was generated.
	Ephemeral bool
}

// WorkspaceConfig bounds the in-memory per-session workspaces.
type WorkspaceConfig struct {
	CacheSize int
	TTL       time.Duration
}

// FirebaseConfig enables Firebase ID token verification when ProjectID is set.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	// VerifyCacheTTL keeps verified ID tokens in memory; zero verifies every request.
	VerifyCacheTTL time.Duration
}

// SecretsConfig configures Secret Manager lookups for sm:// references.
type SecretsConfig struct {
	ProjectID string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom secret resolver used for sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Lookup returns a single raw value using the same precedence rules as Load. It lets main
// read bootstrap settings, such as the secrets project, before the resolver exists.
func Lookup(key string, opts ...Option) (string, bool, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	lookup, err := options.lookupFunc()
	if err != nil {
		return "", false, err
	}
	value, ok := lookup(key)
	return value, ok, nil
}

func defaultOptions() loaderOptions {
	return loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", errSecretResolverNotConfigured
		}),
	}
}

func (o loaderOptions) lookupFunc() (func(string) (string, bool), error) {
	dotEnvValues, err := loadDotEnv(o.envFile)
	if err != nil {
		return nil, err
	}
	return func(key string) (string, bool) {
		if o.envMap != nil {
			if value, ok := o.envMap[key]; ok {
				return value, true
			}
		}
		if o.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}, nil
}

// Load assembles the console configuration by combining defaults, .env overrides,
// environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	lookup, err := options.lookupFunc()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Address:         stringWithDefault(lookup, "PUBLISHER_HTTP_ADDR", defaultAddress),
			BasePath:        stringWithDefault(lookup, "PUBLISHER_BASE_PATH", defaultBasePath),
			Environment:     stringWithDefault(lookup, "PUBLISHER_ENVIRONMENT", defaultEnvironment),
			ReadTimeout:     durationWithDefault(lookup, "PUBLISHER_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "PUBLISHER_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "PUBLISHER_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "PUBLISHER_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		API: APIConfig{
			BaseURL:      stringWithDefault(lookup, "PUBLISHER_API_BASE_URL", ""),
			Token:        stringWithDefault(lookup, "PUBLISHER_API_TOKEN", ""),
			Timeout:      durationWithDefault(lookup, "PUBLISHER_API_TIMEOUT", defaultAPITimeout),
			VersionsPath: stringWithDefault(lookup, "PUBLISHER_API_VERSIONS_PATH", defaultVersionsPath),
			PublishPath:  stringWithDefault(lookup, "PUBLISHER_API_PUBLISH_PATH", defaultPublishPath),
			RevertPath:   stringWithDefault(lookup, "PUBLISHER_API_REVERT_PATH", defaultRevertPath),
		},
		Site: SiteConfig{
			StagingURL:    stringWithDefault(lookup, "PUBLISHER_STAGING_URL", defaultStagingURL),
			ProductionURL: stringWithDefault(lookup, "PUBLISHER_PRODUCTION_URL", defaultProductionURL),
		},
		Features: FeatureFlags{
			OfflineFallback: boolWithDefault(lookup, "PUBLISHER_OFFLINE_FALLBACK", true),
		},
		Session: SessionConfig{
			CookieName:     stringWithDefault(lookup, "PUBLISHER_SESSION_COOKIE", defaultSessionCookie),
			CSRFCookieName: stringWithDefault(lookup, "PUBLISHER_CSRF_COOKIE", defaultCSRFCookie),
			CookieSecure:   boolWithDefault(lookup, "PUBLISHER_SESSION_COOKIE_SECURE", false),
			IdleTimeout:    durationWithDefault(lookup, "PUBLISHER_SESSION_IDLE_TIMEOUT", defaultSessionIdle),
			Lifetime:       durationWithDefault(lookup, "PUBLISHER_SESSION_LIFETIME", defaultSessionLifetime),
		},
		Workspace: WorkspaceConfig{
			CacheSize: intWithDefault(lookup, "PUBLISHER_WORKSPACE_CACHE_SIZE", defaultWorkspaceSize),
			TTL:       durationWithDefault(lookup, "PUBLISHER_WORKSPACE_TTL", defaultWorkspaceTTL),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "PUBLISHER_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "PUBLISHER_FIREBASE_CREDENTIALS_FILE", ""),
			VerifyCacheTTL:  durationWithDefault(lookup, "PUBLISHER_FIREBASE_VERIFY_CACHE_TTL", defaultVerifyCacheTTL),
		},
		Secrets: SecretsConfig{
			ProjectID: stringWithDefault(lookup, "PUBLISHER_SECRETS_PROJECT_ID", ""),
		},
	}

	// Resolve secrets when values reference Secret Manager.
	hashKey := stringWithDefault(lookup, "PUBLISHER_SESSION_HASH_KEY", "")
	blockKey := stringWithDefault(lookup, "PUBLISHER_SESSION_BLOCK_KEY", "")
	secretFields := []*string{&cfg.API.Token, &hashKey, &blockKey}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if hashKey == "" {
		cfg.Session.HashKey = securecookie.GenerateRandomKey(64)
		cfg.Session.BlockKey = securecookie.GenerateRandomKey(32)
		cfg.Session.Ephemeral = true
	} else {
		cfg.Session.HashKey = []byte(hashKey)
		if blockKey != "" {
			cfg.Session.BlockKey = []byte(blockKey)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Production reports whether the environment label names a production deployment.
func (c Config) Production() bool {
	env := strings.ToLower(strings.TrimSpace(c.Server.Environment))
	return env == "production" || env == "prod"
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" {
		return value, nil
	}
	if !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return strings.TrimSpace(secret), nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.Address) == "" {
		missing = append(missing, "Server.Address")
	}
	if raw := strings.TrimSpace(cfg.API.BaseURL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			missing = append(missing, "API.BaseURL")
		}
	}
	if !strings.Contains(cfg.API.RevertPath, "{id}") {
		missing = append(missing, "API.RevertPath")
	}
	if cfg.API.Timeout <= 0 {
		missing = append(missing, "API.Timeout")
	}
	if cfg.Workspace.CacheSize <= 0 {
		missing = append(missing, "Workspace.CacheSize")
	}
	if cfg.Workspace.TTL < 0 {
		missing = append(missing, "Workspace.TTL")
	}
	if len(cfg.Session.HashKey) < minSessionHashKeyLength {
		missing = append(missing, "Session.HashKey")
	}
	if n := len(cfg.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		missing = append(missing, "Session.BlockKey")
	}
	if cfg.Production() && cfg.Session.Ephemeral {
		missing = append(missing, "Session.HashKey")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(parts[1]), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

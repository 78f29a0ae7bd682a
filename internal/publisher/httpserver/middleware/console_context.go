package middleware

import (
	"context"
	"net/http"
	"strings"
)

type consoleInfoKey struct{}

// ConsoleInfo describes where the console is mounted and which deployment it publishes to.
type ConsoleInfo struct {
	BasePath    string
	Environment string
	// Production is set when publish and revert change the live site.
	Production bool
}

var defaultConsoleInfo = ConsoleInfo{BasePath: "/", Environment: "Development"}

// ConsoleContext stores the mount base path and the canonical environment label on
// every console request.
func ConsoleContext(basePath, environment string) func(http.Handler) http.Handler {
	info := ConsoleInfo{BasePath: NormaliseBase(basePath)}
	info.Environment, info.Production = canonicalEnvironment(environment)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), consoleInfoKey{}, info)))
		})
	}
}

// ConsoleInfoFromContext returns the values stored by ConsoleContext, or development
// defaults mounted at "/".
func ConsoleInfoFromContext(ctx context.Context) ConsoleInfo {
	if info, ok := ctx.Value(consoleInfoKey{}).(ConsoleInfo); ok {
		return info
	}
	return defaultConsoleInfo
}

// BasePathFromContext returns the console mount point.
func BasePathFromContext(ctx context.Context) string {
	return ConsoleInfoFromContext(ctx).BasePath
}

// EnvironmentFromContext returns the canonical environment label.
func EnvironmentFromContext(ctx context.Context) string {
	return ConsoleInfoFromContext(ctx).Environment
}

// NormaliseBase returns base with a leading slash and no trailing slash, or "/".
func NormaliseBase(base string) string {
	base = strings.Trim(strings.TrimSpace(base), "/")
	if base == "" {
		return "/"
	}
	return "/" + base
}

// canonicalEnvironment folds the short aliases used in deploy configs onto display labels.
func canonicalEnvironment(raw string) (string, bool) {
	label := strings.TrimSpace(raw)
	switch strings.ToLower(label) {
	case "production", "prod", "live":
		return "Production", true
	case "staging", "stg", "preview":
		return "Staging", false
	case "", "development", "dev", "local":
		return "Development", false
	default:
		return label, false
	}
}

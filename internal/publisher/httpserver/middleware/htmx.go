package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

type htmxKey struct{}

// HTMXRequest is the subset of htmx request headers the console reacts to.
type HTMXRequest struct {
	Active         bool
	Boosted        bool
	HistoryRestore bool
	// Target is the id of the element being swapped, without the leading "#".
	Target     string
	CurrentURL string
}

// ReturnTo is the local path and query of the page that issued the request. Login
// redirects use it so the operator lands on the console rather than on a fragment URL.
func (h HTMXRequest) ReturnTo() string {
	if h.CurrentURL == "" {
		return ""
	}
	u, err := url.Parse(h.CurrentURL)
	if err != nil || u.Path == "" {
		return ""
	}
	if u.RawQuery == "" {
		return u.Path
	}
	return u.Path + "?" + u.RawQuery
}

// HTMX parses htmx request headers onto the context.
func HTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := HTMXRequest{
				Active:         headerTrue(r, "HX-Request"),
				Boosted:        headerTrue(r, "HX-Boosted"),
				HistoryRestore: headerTrue(r, "HX-History-Restore-Request"),
				Target:         strings.TrimPrefix(r.Header.Get("HX-Target"), "#"),
				CurrentURL:     r.Header.Get("HX-Current-URL"),
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), htmxKey{}, info)))
		})
	}
}

func headerTrue(r *http.Request, name string) bool {
	return strings.EqualFold(r.Header.Get(name), "true")
}

// HTMXFromContext returns the parsed headers, or the zero value outside HTMX.
func HTMXFromContext(ctx context.Context) HTMXRequest {
	info, _ := ctx.Value(htmxKey{}).(HTMXRequest)
	return info
}

// IsHTMXRequest reports whether htmx issued the request. History restores reload the
// full page and do not count.
func IsHTMXRequest(ctx context.Context) bool {
	info := HTMXFromContext(ctx)
	return info.Active && !info.HistoryRestore
}

// Redirect sends htmx requests to target with HX-Redirect and everything else with a
// regular redirect using status.
func Redirect(w http.ResponseWriter, r *http.Request, target string, status int) {
	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, status)
}

// ToastTrigger is an HX-Trigger value raising one console toast.
func ToastTrigger(message, tone string) string {
	data, _ := json.Marshal(map[string]map[string]string{
		"toast": {"message": message, "tone": tone},
	})
	return string(data)
}

// RequireHTMX answers 404 to direct navigation so fragment routes are never rendered
// as standalone pages.
func RequireHTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsHTMXRequest(r.Context()) {
				http.NotFound(w, r)
				return
			}
			w.Header().Add("Vary", "HX-Request")
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore marks responses as uncacheable. Console pages reflect live deployment state.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}

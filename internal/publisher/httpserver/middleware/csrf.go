package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/observability"
)

type csrfContextKey struct{}

const csrfRejectedMessage = "Your form expired. Reload the page and try again."

// CSRFConfig controls the double-submit cookie.
type CSRFConfig struct {
	CookieName string
	CookiePath string
	HeaderName string
	// FormField is accepted when the header is absent, for plain form posts such as login.
	FormField string
	MaxAge    time.Duration
	Secure    bool
}

func (c CSRFConfig) withDefaults() CSRFConfig {
	if c.CookieName == "" {
		c.CookieName = "publisher_csrf"
	}
	if c.HeaderName == "" {
		c.HeaderName = "X-CSRF-Token"
	}
	if c.FormField == "" {
		c.FormField = "csrf_token"
	}
	if c.CookiePath == "" {
		c.CookiePath = "/"
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 24 * time.Hour
	}
	return c
}

// CSRF issues a token cookie on every request and requires state changing requests
// to echo it in the header (htmx) or the form field (plain posts).
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := cfg.issue(w, r)
			if err != nil {
				observability.FromContext(r.Context()).Error("csrf token generation failed", zap.Error(err))
				http.Error(w, "csrf token error", http.StatusInternalServerError)
				return
			}

			if mutates(r.Method) && !cfg.matches(r, token) {
				observability.FromContext(r.Context()).Warn("csrf token mismatch",
					zap.String("method", observability.SanitizeMethod(r.Method)),
					zap.Bool("htmx", IsHTMXRequest(r.Context())),
				)
				if IsHTMXRequest(r.Context()) {
					w.Header().Set("HX-Trigger", ToastTrigger(csrfRejectedMessage, "error"))
					w.Header().Set("HX-Reswap", "none")
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfContextKey{}, token)))
		})
	}
}

// CSRFTokenFromContext returns the token for the current request, for the meta tag and
// hidden form fields.
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfContextKey{}).(string)
	return token
}

func (c CSRFConfig) issue(w http.ResponseWriter, r *http.Request) (string, error) {
	if existing, err := r.Cookie(c.CookieName); err == nil && existing.Value != "" {
		return existing.Value, nil
	}
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return "", errors.New("csrf: random source exhausted")
	}
	token := base64.RawURLEncoding.EncodeToString(key)
	http.SetCookie(w, &http.Cookie{
		Name:     c.CookieName,
		Value:    token,
		Path:     c.CookiePath,
		HttpOnly: true,
		Secure:   c.Secure || r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(c.MaxAge.Seconds()),
	})
	return token, nil
}

func (c CSRFConfig) matches(r *http.Request, token string) bool {
	submitted := r.Header.Get(c.HeaderName)
	if submitted == "" {
		submitted = r.PostFormValue(c.FormField)
	}
	return submitted != "" && subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) == 1
}

func mutates(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}

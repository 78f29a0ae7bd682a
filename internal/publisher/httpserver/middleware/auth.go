package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/observability"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/rbac"
	appsession "github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/session"
)

type userKey struct{}

// TokenCookieName is the cookie the login handler stores the operator token in.
const TokenCookieName = "Authorization"

// User is the authenticated operator.
type User struct {
	UID   string
	Email string
	Name  string
	Roles []string
	// Token is forwarded to the deployment API when no service token is configured.
	Token string
}

// Authenticator resolves a bearer token into a User.
type Authenticator interface {
	Authenticate(r *http.Request, token string) (*User, error)
}

// ErrUnauthorized is the fallback cause for failed authentication.
var ErrUnauthorized = errors.New("unauthorized")

// Reason codes carried by AuthError. The login page maps them onto notices.
const (
	ReasonMissingToken = "missing_token"
	ReasonTokenInvalid = "token_invalid"
	ReasonTokenExpired = "token_expired"
)

// AuthError is a failed authentication with its reason code.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError wraps err with reason.
func NewAuthError(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

func reasonOf(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Reason != "" {
		return authErr.Reason
	}
	return ReasonTokenInvalid
}

// Auth admits requests whose token authenticates and mirrors the operator into the
// session. Others are sent to loginPath: browsers by redirect with a next parameter,
// htmx with HX-Redirect, or HX-Refresh when the token merely expired.
func Auth(authenticator Authenticator, loginPath string) func(http.Handler) http.Handler {
	if authenticator == nil {
		authenticator = DefaultAuthenticator()
	}
	if loginPath == "" {
		loginPath = "/login"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := observability.FromContext(ctx)

			token := RequestToken(r)
			if token == "" {
				logger.Info("auth failure", zap.String("reason", ReasonMissingToken))
				rejectAnonymous(w, r, loginPath, ReasonMissingToken)
				return
			}
			user, err := authenticator.Authenticate(r, token)
			if err != nil || user == nil {
				if err == nil {
					err = ErrUnauthorized
				}
				reason := reasonOf(err)
				logger.Warn("auth failure", zap.String("reason", reason), zap.Error(err))
				if sess, ok := SessionFromContext(ctx); ok {
					sess.SetUser(nil)
				}
				rejectAnonymous(w, r, loginPath, reason)
				return
			}

			if user.Token == "" {
				user.Token = token
			}
			observability.AnnotateUser(ctx, user.UID)
			if sess, ok := SessionFromContext(ctx); ok {
				sess.SetUser(&appsession.User{
					UID:   user.UID,
					Email: user.Email,
					Name:  user.Name,
					Roles: slices.Clone(user.Roles),
				})
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(ctx, user)))
		})
	}
}

func rejectAnonymous(w http.ResponseWriter, r *http.Request, loginPath, reason string) {
	if IsHTMXRequest(r.Context()) {
		if reason == ReasonTokenExpired {
			w.Header().Set("HX-Refresh", "true")
		} else {
			w.Header().Set("HX-Redirect", loginURL(loginPath, "", HTMXFromContext(r.Context()).ReturnTo()))
		}
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	next := ""
	if r.Method == http.MethodGet {
		next = r.URL.RequestURI()
	}
	hint := ""
	if reason == ReasonTokenExpired {
		hint = "expired"
	}
	http.Redirect(w, r, loginURL(loginPath, hint, next), http.StatusFound)
}

// loginURL appends the optional reason and next parameters to loginPath.
func loginURL(loginPath, reason, next string) string {
	u, err := url.Parse(loginPath)
	if err != nil {
		return loginPath
	}
	q := u.Query()
	if reason != "" {
		q.Set("reason", reason)
	}
	if next != "" {
		q.Set("next", next)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ContextWithUser attaches user to ctx.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated operator.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userKey{}).(*User)
	return user, ok && user != nil
}

// UserIDFromContext returns the operator UID or "".
func UserIDFromContext(ctx context.Context) string {
	if user, ok := UserFromContext(ctx); ok {
		return user.UID
	}
	return ""
}

// RequestToken reads the operator token from the Authorization header, then from the
// cookies Firebase Hosting and the login page set.
func RequestToken(r *http.Request) string {
	if token, ok := bearer(r.Header.Get("Authorization")); ok {
		return token
	}
	for _, name := range []string{TokenCookieName, "__session", "idToken"} {
		c, err := r.Cookie(name)
		if err != nil {
			continue
		}
		value := strings.TrimSpace(c.Value)
		if token, ok := bearer(value); ok {
			return token
		}
		if value != "" {
			return value
		}
	}
	return ""
}

func bearer(value string) (string, bool) {
	const prefix = "bearer "
	if len(value) < len(prefix) || !strings.EqualFold(value[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(value[len(prefix):])
	return token, token != ""
}

// DefaultAuthenticator trusts any non-empty token and is meant for local development.
// A "role:name" token signs in as name with that role; anything else is an admin.
func DefaultAuthenticator() Authenticator {
	return devAuthenticator{}
}

type devAuthenticator struct{}

func (devAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}
	user := &User{UID: token, Name: token, Roles: []string{string(rbac.RoleAdmin)}, Token: token}
	if prefix, name, ok := strings.Cut(token, ":"); ok && name != "" {
		switch role, _ := rbac.ParseRole(prefix); role {
		case rbac.RoleAdmin, rbac.RolePublisher, rbac.RoleViewer:
			user.UID, user.Name, user.Roles = name, name, []string{string(role)}
		}
	}
	return user, nil
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/rbac"
)

// ErrTokenExpired is returned by verifiers that detect expiry themselves.
var ErrTokenExpired = errors.New("firebase token expired")

// FirebaseTokenVerifier is the part of *firebaseauth.Client the console uses.
type FirebaseTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseAuthenticator turns Firebase ID tokens into console operators.
type FirebaseAuthenticator struct {
	verifier FirebaseTokenVerifier
}

// NewFirebaseAuthenticator panics when verifier is nil.
func NewFirebaseAuthenticator(verifier FirebaseTokenVerifier) *FirebaseAuthenticator {
	if verifier == nil {
		panic("firebase token verifier is required")
	}
	return &FirebaseAuthenticator{verifier: verifier}
}

// Authenticate verifies token and reads the operator profile from its claims. Roles come
// from the "role" and "roles" custom claims, and a boolean "admin" claim grants the
// admin role.
func (f *FirebaseAuthenticator) Authenticate(r *http.Request, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}

	verified, err := f.verifier.VerifyIDToken(r.Context(), token)
	switch {
	case err == nil:
	case firebaseauth.IsIDTokenExpired(err), errors.Is(err, ErrTokenExpired):
		return nil, NewAuthError(ReasonTokenExpired, err)
	default:
		return nil, NewAuthError(ReasonTokenInvalid, err)
	}

	claims := tokenClaims(verified.Claims)
	user := &User{
		UID:   verified.UID,
		Email: claims.text("email"),
		Name:  claims.text("name"),
		Roles: claims.roles(),
		Token: token,
	}
	if user.Name == "" {
		user.Name = user.Email
	}
	return user, nil
}

type tokenClaims map[string]any

func (c tokenClaims) text(key string) string {
	v, _ := c[key].(string)
	return strings.TrimSpace(v)
}

// roles collects role names in claim order without duplicates. Map claims such as
// {"publisher": true} contribute their true keys.
func (c tokenClaims) roles() []string {
	var out []string
	add := func(raw string) {
		if role, ok := rbac.ParseRole(raw); ok && !slices.Contains(out, string(role)) {
			out = append(out, string(role))
		}
	}
	for _, key := range []string{"role", "roles"} {
		switch v := c[key].(type) {
		case string:
			add(v)
		case []string:
			for _, item := range v {
				add(item)
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		case map[string]any:
			keys := make([]string, 0, len(v))
			for name, granted := range v {
				if b, ok := granted.(bool); ok && b {
					keys = append(keys, name)
				}
			}
			slices.Sort(keys)
			for _, name := range keys {
				add(name)
			}
		}
	}
	if admin, _ := c["admin"].(bool); admin {
		add(string(rbac.RoleAdmin))
	}
	return out
}

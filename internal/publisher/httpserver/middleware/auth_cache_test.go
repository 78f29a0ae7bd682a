package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingAuthenticator struct {
	calls int
	err   error
}

func (c *countingAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &User{UID: "op-" + token, Roles: []string{"publisher"}, Token: token}, nil
}

func TestCachedAuthenticatorReusesVerification(t *testing.T) {
	inner := &countingAuthenticator{}
	auth := NewCachedAuthenticator(inner, 8, time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	first, err := auth.Authenticate(req, "abc")
	require.NoError(t, err)
	first.Roles[0] = "admin"

	second, err := auth.Authenticate(req, "abc")
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)
	require.Equal(t, "op-abc", second.UID)
	require.Equal(t, []string{"publisher"}, second.Roles, "callers must not mutate the cached entry")

	auth.(*CachedAuthenticator).Forget("abc")
	_, err = auth.Authenticate(req, "abc")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestCachedAuthenticatorDoesNotCacheFailures(t *testing.T) {
	inner := &countingAuthenticator{err: NewAuthError(ReasonTokenInvalid, errors.New("bad signature"))}
	auth := NewCachedAuthenticator(inner, 8, time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	for range 2 {
		_, err := auth.Authenticate(req, "forged")
		require.Error(t, err)
	}
	require.Equal(t, 2, inner.calls)
}

func TestCachedAuthenticatorDisabled(t *testing.T) {
	inner := &countingAuthenticator{}
	require.Same(t, inner, NewCachedAuthenticator(inner, 0, time.Minute))
}

func TestDefaultAuthenticatorRolePrefix(t *testing.T) {
	auth := DefaultAuthenticator()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	user, err := auth.Authenticate(req, "viewer:alex")
	require.NoError(t, err)
	require.Equal(t, "alex", user.UID)
	require.Equal(t, []string{"viewer"}, user.Roles)

	user, err = auth.Authenticate(req, "editor:sam")
	require.NoError(t, err)
	require.Equal(t, "editor:sam", user.UID)
	require.Equal(t, []string{"admin"}, user.Roles)

	_, err = auth.Authenticate(req, " ")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, ReasonMissingToken, authErr.Reason)
}

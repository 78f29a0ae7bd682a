package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedAuthenticator remembers successful verifications for a short TTL. Failures are
// never cached. Keys are token digests, so raw tokens are not retained.
type CachedAuthenticator struct {
	next  Authenticator
	cache *expirable.LRU[string, User]
}

// NewCachedAuthenticator wraps next. A non-positive size or ttl disables caching.
func NewCachedAuthenticator(next Authenticator, size int, ttl time.Duration) Authenticator {
	if size <= 0 || ttl <= 0 {
		return next
	}
	return &CachedAuthenticator{
		next:  next,
		cache: expirable.NewLRU[string, User](size, nil, ttl),
	}
}

// Authenticate serves a cached operator when token was verified recently.
func (c *CachedAuthenticator) Authenticate(r *http.Request, token string) (*User, error) {
	key := tokenDigest(token)
	if cached, ok := c.cache.Get(key); ok {
		return cloneUser(cached), nil
	}
	user, err := c.next.Authenticate(r, token)
	if err != nil || user == nil {
		return user, err
	}
	c.cache.Add(key, *cloneUser(*user))
	return user, nil
}

// Forget drops token from the cache, used on logout.
func (c *CachedAuthenticator) Forget(token string) {
	c.cache.Remove(tokenDigest(token))
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func cloneUser(u User) *User {
	u.Roles = slices.Clone(u.Roles)
	return &u
}

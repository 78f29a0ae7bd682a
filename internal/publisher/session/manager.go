package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"
)

const (
	defaultCookieName  = "publisher_session"
	defaultLifetime    = 12 * time.Hour
	defaultIdleTimeout = 30 * time.Minute
)

var (
	// ErrExpired is returned by Load when the idle or absolute limit has passed.
	ErrExpired = errors.New("session expired")
	// ErrInvalidConfig is returned by NewManager for missing or malformed keys.
	ErrInvalidConfig = errors.New("session: invalid config")
)

// User is the signed-in operator as stored in the cookie.
type User struct {
	UID   string   `json:"uid"`
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// payload is the cookie body. The ULID id carries the creation time.
type payload struct {
	ID          string    `json:"id"`
	Environment string    `json:"env,omitempty"`
	LastActive  time.Time `json:"seen"`
	ExpiresAt   time.Time `json:"exp"`
	SignedInAt  time.Time `json:"auth,omitempty"`
	User        *User     `json:"user,omitempty"`
}

// Session is one operator's cookie state for the duration of a request.
type Session struct {
	data      payload
	dirty     bool
	destroyed bool
	now       func() time.Time
}

// Config controls the cookie codec and lifecycle limits.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite
	// Environment binds sessions to one console deployment. A cookie minted for another
	// environment on the same domain is ignored.
	Environment string

	IdleTimeout time.Duration
	Lifetime    time.Duration
	Now         func() time.Time
}

// Manager stores sessions in signed, optionally encrypted, cookies.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
}

// NewManager validates keys and fills defaults.
func NewManager(cfg Config) (*Manager, error) {
	switch n := len(cfg.BlockKey); {
	case len(cfg.HashKey) == 0:
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	case n != 0 && n != 16 && n != 24 && n != 32:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Lifetime / time.Second))
	return &Manager{cfg: cfg, codec: codec}, nil
}

// Load decodes the request cookie. Missing, tampered or foreign cookies yield a new
// session; an expired one yields ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.New(), nil
	}
	var stored payload
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &stored); err != nil {
		return m.New(), nil
	}
	if _, err := ulid.ParseStrict(stored.ID); err != nil || stored.Environment != m.cfg.Environment {
		return m.New(), nil
	}

	now := m.cfg.Now().UTC()
	if now.After(stored.ExpiresAt) || now.Sub(stored.LastActive) > m.cfg.IdleTimeout {
		return nil, ErrExpired
	}
	return &Session{data: stored, now: m.cfg.Now}, nil
}

// New starts an anonymous session.
func (m *Manager) New() *Session {
	now := m.cfg.Now().UTC()
	return &Session{
		data: payload{
			ID:          ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
			Environment: m.cfg.Environment,
			LastActive:  now,
			ExpiresAt:   now.Add(m.cfg.Lifetime),
		},
		dirty: true,
		now:   m.cfg.Now,
	}
}

// Save refreshes the idle clock and writes the cookie, or clears it for destroyed sessions.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	if sess.destroyed {
		m.Destroy(w)
		return nil
	}

	now := m.cfg.Now().UTC()
	sess.data.LastActive = now
	encoded, err := m.codec.Encode(m.cfg.CookieName, sess.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	cookie := m.cookie(encoded)
	cookie.Expires = sess.data.ExpiresAt
	cookie.MaxAge = max(int(sess.data.ExpiresAt.Sub(now).Round(time.Second).Seconds()), -1)
	if cookie.MaxAge == 0 {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
	sess.dirty = false
	return nil
}

// Destroy clears the session cookie.
func (m *Manager) Destroy(w http.ResponseWriter) {
	cookie := m.cookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

func (m *Manager) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     m.cfg.CookiePath,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	}
}

// ID is the ULID the per-operator workspace is keyed by.
func (s *Session) ID() string {
	return s.data.ID
}

// CreatedAt is the timestamp embedded in the session id.
func (s *Session) CreatedAt() time.Time {
	id, err := ulid.ParseStrict(s.data.ID)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(id.Time()).UTC()
}

// ExpiresAt is the absolute expiry; the token cookie set at login shares it.
func (s *Session) ExpiresAt() time.Time {
	return s.data.ExpiresAt
}

// SignedInAt is when the current operator was first stored, zero when anonymous.
func (s *Session) SignedInAt() time.Time {
	return s.data.SignedInAt
}

// User returns the stored operator, or nil.
func (s *Session) User() *User {
	return s.data.User
}

// SetUser stores a copy of user. Switching to a different UID restarts SignedInAt.
func (s *Session) SetUser(user *User) {
	current := s.data.User
	if sameUser(current, user) {
		return
	}
	s.dirty = true
	if user == nil {
		s.data.User = nil
		s.data.SignedInAt = time.Time{}
		return
	}
	if current == nil || current.UID != user.UID {
		s.data.SignedInAt = s.now().UTC()
	}
	copied := *user
	copied.Roles = slices.Clone(user.Roles)
	s.data.User = &copied
}

// Destroy clears the cookie when the response is written.
func (s *Session) Destroy() {
	s.destroyed = true
	s.dirty = true
}

// Destroyed reports whether Destroy was called.
func (s *Session) Destroyed() bool {
	return s.destroyed
}

// Dirty reports unsaved changes.
func (s *Session) Dirty() bool {
	return s.dirty
}

func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UID == b.UID && a.Email == b.Email && a.Name == b.Name && slices.Equal(a.Roles, b.Roles)
}

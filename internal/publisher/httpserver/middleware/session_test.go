package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appsession "github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/session"
)

type sessionTestClock struct {
	now time.Time
}

func (c *sessionTestClock) Now() time.Time {
	return c.now
}

func newSessionStoreForTest(t *testing.T, clock *sessionTestClock) *appsession.Manager {
	t.Helper()
	store, err := appsession.NewManager(appsession.Config{
		CookieName:  "test_session",
		HashKey:     []byte("12345678901234567890123456789012"),
		BlockKey:    []byte("abcdefghijklmnopqrstuvwxyzABCDEF"),
		IdleTimeout: 5 * time.Minute,
		Lifetime:    time.Hour,
		Now:         clock.Now,
	})
	if err != nil {
		t.Fatalf("session manager init: %v", err)
	}
	return store
}

func TestSessionMiddlewareLifecycle(t *testing.T) {
	clock := &sessionTestClock{now: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)}
	store := newSessionStoreForTest(t, clock)

	var ids []string
	var operators []string
	handler := Session(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			t.Fatalf("session missing in context")
		}
		ids = append(ids, sess.ID())
		if user := sess.User(); user != nil {
			operators = append(operators, user.UID)
		} else {
			operators = append(operators, "")
		}
		if len(ids) == 1 {
			sess.SetUser(&appsession.User{UID: "op-1", Roles: []string{"publisher"}})
		}
		_, _ = w.Write([]byte("ok"))
	}))

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := findCookie(rec1.Result().Cookies(), "test_session")
	if cookie == nil {
		t.Fatalf("expected session cookie on first response, got headers %v", rec1.Header().Values("Set-Cookie"))
	}

	clock.now = clock.now.Add(2 * time.Minute)
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if ids[1] != ids[0] {
		t.Fatalf("expected same session id between active requests")
	}
	if operators[1] != "op-1" {
		t.Fatalf("expected operator stored before the body write to persist, got %q", operators[1])
	}

	clock.now = clock.now.Add(15 * time.Minute)
	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.AddCookie(cookie)
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, req3)
	if ids[2] == ids[1] || operators[2] != "" {
		t.Fatalf("expected new anonymous session after idle timeout")
	}
	if findCookie(rec3.Result().Cookies(), "test_session") == nil {
		t.Fatalf("expected refreshed session cookie after timeout")
	}
}

func TestSessionMiddlewareSavesWithoutBody(t *testing.T) {
	clock := &sessionTestClock{now: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)}
	store := newSessionStoreForTest(t, clock)

	handler := Session(store)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if findCookie(rec.Result().Cookies(), "test_session") == nil {
		t.Fatalf("expected session cookie when handler writes nothing")
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

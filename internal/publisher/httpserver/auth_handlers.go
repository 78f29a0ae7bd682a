package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	custommw "github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/httpserver/middleware"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/observability"
	appsession "github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/session"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/templates/auth"
)

var (
	noticeSignedOut = auth.Notice{Text: "You have been signed out.", Tone: auth.ToneSuccess}
	noticeExpired   = auth.Notice{Text: "Your session has expired. Please sign in again.", Tone: auth.ToneWarning}
	noticeSignIn    = auth.Notice{Text: "Please sign in to continue.", Tone: auth.ToneWarning}
	noticeRevoked   = auth.Notice{Text: "Your sign in is no longer valid. Please try again.", Tone: auth.ToneWarning}
)

// queryNotices maps the status and reason parameters set by Logout and the Auth
// middleware onto login banners.
var queryNotices = map[string]auth.Notice{
	"status=logged_out":                     noticeSignedOut,
	"reason=expired":                        noticeExpired,
	"reason=" + custommw.ReasonTokenExpired: noticeExpired,
	"reason=" + custommw.ReasonMissingToken: noticeSignIn,
	"reason=" + custommw.ReasonTokenInvalid: noticeRevoked,
}

// consoleScope is the URL space the console is mounted on.
type consoleScope struct {
	base  string
	login string
}

func newConsoleScope(base, login string) consoleScope {
	base = custommw.NormaliseBase(base)
	if strings.TrimSpace(login) == "" {
		login = joinBase(base, "/login")
	}
	return consoleScope{base: base, login: login}
}

// landing returns raw when it points inside the console and is not the login page,
// and the console root otherwise.
func (s consoleScope) landing(raw string) string {
	if target := s.localTarget(raw); target != "" {
		return target
	}
	return s.base
}

// localTarget cleans raw into a path+query inside the console, or returns "".
func (s consoleScope) localTarget(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return ""
	}
	decoded, err := url.PathUnescape(parsed.Path)
	if err != nil || strings.Contains(decoded, "\\") {
		return ""
	}
	cleaned := path.Clean("/" + decoded)
	if strings.HasPrefix(cleaned, "//") || !s.contains(cleaned) {
		return ""
	}
	if cleaned == path.Clean(s.login) {
		return ""
	}
	if parsed.RawQuery != "" {
		cleaned += "?" + parsed.RawQuery
	}
	if parsed.Fragment != "" {
		cleaned += "#" + parsed.Fragment
	}
	return cleaned
}

func (s consoleScope) contains(p string) bool {
	if s.base == "/" {
		return true
	}
	return p == s.base || strings.HasPrefix(p, s.base+"/")
}

func (s consoleScope) signedOutURL() string {
	u, err := url.Parse(s.login)
	if err != nil {
		return s.login
	}
	q := u.Query()
	q.Set("status", "logged_out")
	u.RawQuery = q.Encode()
	return u.String()
}

type authHandlers struct {
	authenticator custommw.Authenticator
	workspaces    WorkspaceStore
	scope         consoleScope
}

func newAuthHandlers(authenticator custommw.Authenticator, basePath, loginPath string, workspaces WorkspaceStore) *authHandlers {
	if authenticator == nil {
		panic("auth: authenticator is required")
	}
	return &authHandlers{
		authenticator: authenticator,
		workspaces:    workspaces,
		scope:         newConsoleScope(basePath, loginPath),
	}
}

// LoginForm renders the sign in page, or skips it for operators who already hold a
// valid session unless ?force is set.
func (h *authHandlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if h.signedIn(r) && !truthy(q.Get("force")) {
		http.Redirect(w, r, h.scope.landing(q.Get("next")), http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, auth.LoginPageData{
		Notice: noticeForQuery(q),
		Next:   h.scope.localTarget(q.Get("next")),
	})
}

// LoginSubmit verifies the pasted ID token, stores the operator on the session and
// sets the token cookie the Auth middleware reads.
func (h *authHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, auth.LoginPageData{
			Notice: auth.Notice{Text: "The form could not be submitted. Please try again.", Tone: auth.ToneError},
		})
		return
	}

	next := h.scope.localTarget(r.PostFormValue("next"))
	token := strings.TrimSpace(r.PostFormValue("id_token"))
	if token == "" {
		h.render(w, r, http.StatusBadRequest, auth.LoginPageData{
			Notice: auth.Notice{Text: "Enter the ID token issued to your account.", Tone: auth.ToneError},
			Next:   next,
		})
		return
	}

	user, err := h.authenticator.Authenticate(r, token)
	if err != nil || user == nil {
		logger.Warn("login failed", zap.Error(err))
		h.render(w, r, http.StatusUnauthorized, auth.LoginPageData{
			Notice: auth.Notice{Text: loginFailure(err), Tone: auth.ToneError},
			Next:   next,
		})
		return
	}

	sess, hasSession := custommw.SessionFromContext(r.Context())
	if hasSession {
		sess.SetUser(&appsession.User{
			UID:   user.UID,
			Email: user.Email,
			Name:  user.Name,
			Roles: slices.Clone(user.Roles),
		})
	}
	logger.Info("login succeeded", zap.String("user_id", observability.SanitizeUserID(user.UID)))

	if user.Token != "" {
		token = user.Token
	}
	cookie := h.tokenCookie("Bearer "+token, r.TLS != nil)
	if hasSession {
		if expiry := sess.ExpiresAt().UTC(); !expiry.IsZero() {
			cookie.Expires = expiry
			if remaining := time.Until(expiry); remaining > 0 {
				cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
			}
		}
	}
	http.SetCookie(w, cookie)

	custommw.Redirect(w, r, h.scope.landing(next), http.StatusSeeOther)
}

// Logout ends the session, forgets the operator's workspace and clears the token cookie.
func (h *authHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.authenticator.(*custommw.CachedAuthenticator); ok {
		cached.Forget(custommw.RequestToken(r))
	}
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		if h.workspaces != nil {
			h.workspaces.Drop(sess.ID())
		}
		sess.Destroy()
	}
	cookie := h.tokenCookie("", false)
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)

	custommw.Redirect(w, r, h.scope.signedOutURL(), http.StatusSeeOther)
}

func (h *authHandlers) render(w http.ResponseWriter, r *http.Request, status int, data auth.LoginPageData) {
	data.Action = h.scope.login
	templ.Handler(auth.Login(data), templ.WithStatus(status)).ServeHTTP(w, r)
}

func (h *authHandlers) tokenCookie(value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     custommw.TokenCookieName,
		Value:    value,
		Path:     h.scope.base,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *authHandlers) signedIn(r *http.Request) bool {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		return false
	}
	user := sess.User()
	return user != nil && strings.TrimSpace(user.UID) != "" && custommw.RequestToken(r) != ""
}

func noticeForQuery(q url.Values) auth.Notice {
	for _, key := range []string{"status", "reason"} {
		if notice, ok := queryNotices[key+"="+q.Get(key)]; ok {
			return notice
		}
	}
	return auth.Notice{}
}

func loginFailure(err error) string {
	var authErr *custommw.AuthError
	switch {
	case err == nil:
		return "An unknown error occurred."
	case errors.As(err, &authErr) && authErr.Reason == custommw.ReasonTokenExpired:
		return "That token has expired. Request a fresh one and try again."
	case errors.As(err, &authErr) && authErr.Reason == custommw.ReasonMissingToken:
		return "Credentials are missing. Please check and try again."
	case errors.As(err, &authErr), errors.Is(err, custommw.ErrUnauthorized):
		return "Authentication failed. Please check the token and try again."
	default:
		return "Sign in failed. Please try again later."
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "force":
		return true
	}
	return false
}

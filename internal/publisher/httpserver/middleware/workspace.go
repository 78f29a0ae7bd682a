package middleware

import (
	"context"
	"net/http"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/console"
)

type workspaceContextKey struct{}

// WorkspaceSource hands out the workspace owned by a session.
type WorkspaceSource interface {
	Get(sessionID string) *console.Workspace
}

// Workspace binds the operator's workspace to the request. It must run after Session.
func Workspace(source WorkspaceSource) func(http.Handler) http.Handler {
	if source == nil {
		panic("workspace source is required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			ctx := context.WithValue(r.Context(), workspaceContextKey{}, source.Get(sess.ID()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WorkspaceFromContext returns the workspace bound by Workspace.
func WorkspaceFromContext(ctx context.Context) (*console.Workspace, bool) {
	ws, ok := ctx.Value(workspaceContextKey{}).(*console.Workspace)
	return ws, ok && ws != nil
}

package ui

import (
	"net/http"

	"go.uber.org/zap"

	appconsole "github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/console"
	custommw "github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/httpserver/middleware"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/observability"
)

// Handlers exposes HTTP handlers for console pages and fragments. All per-operator state
// lives in the workspace bound to the request.
type Handlers struct{}

// NewHandlers wires the UI handler set.
func NewHandlers() *Handlers {
	return &Handlers{}
}

// operator resolves the workspace and user bound by the middleware stack.
func (h *Handlers) operator(w http.ResponseWriter, r *http.Request) (*appconsole.Workspace, *custommw.User, bool) {
	user, ok := custommw.UserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, nil, false
	}
	ws, ok := custommw.WorkspaceFromContext(r.Context())
	if !ok {
		h.log(r).Error("workspace missing from request context")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, nil, false
	}
	return ws, user, true
}

func (h *Handlers) log(r *http.Request) *zap.Logger {
	return observability.FromContext(r.Context())
}

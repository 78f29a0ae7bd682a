package helpers

import (
	"context"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/httpserver/middleware"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/rbac"
)

// Capabilities lists what the request user may do, keyed by capability name, for templates.
func Capabilities(ctx context.Context) map[string]bool {
	out := make(map[string]bool)
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		return out
	}
	for capability := range rbac.Resolve(user.Roles) {
		out[string(capability)] = true
	}
	return out
}

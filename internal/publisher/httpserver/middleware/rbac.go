package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/observability"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/rbac"
)

// RequireCapability answers 403 when the authenticated user lacks capability. htmx
// callers get the reason as an error toast and no swap.
func RequireCapability(capability rbac.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Can(r, capability) {
				next.ServeHTTP(w, r)
				return
			}
			observability.FromContext(r.Context()).Info("capability denied",
				zap.String("capability", string(capability)),
				zap.String("user_id", observability.SanitizeUserID(UserIDFromContext(r.Context()))),
			)
			if IsHTMXRequest(r.Context()) {
				w.Header().Set("HX-Trigger", ToastTrigger(rbac.Denial(capability), "error"))
				w.Header().Set("HX-Reswap", "none")
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// Can reports whether the request user holds capability.
func Can(r *http.Request, capability rbac.Capability) bool {
	user, ok := UserFromContext(r.Context())
	return ok && rbac.HasCapability(user.Roles, capability)
}

package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/transport"
)

// RBACAuthorization gates routes on the caller's role. It must run after the session middleware.
type RBACAuthorization struct {
	*transport.BaseHandler
	checker PermissionChecker
}

func NewRBACAuthorization(checker PermissionChecker, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		checker:     checker,
	}
}

func (ra *RBACAuthorization) Check(next http.HandlerFunc, capability Capability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := internal.IdentityFromContext(r.Context())
		if !ok {
			ra.Logger.WarnContext(r.Context(), "authorization check failed: no identity in context")
			ra.WriteAppError(w, internal.ErrNoSession)
			return
		}

		if !ra.checker.Can(id.Role, capability) {
			ra.Logger.WarnContext(r.Context(), "access denied: insufficient permissions",
				"user_id", id.UserID,
				"role", id.Role,
				"required_capability", capability)
			ra.WriteAppError(w, internal.ErrForbidden)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func (ra *RBACAuthorization) Middleware(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, capability)
	}
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := internal.IdentityFromContext(r.Context())
			if err := RequireAdmin(id); err != nil {
				ra.Logger.WarnContext(r.Context(), "access denied: admin required")
				ra.HandleServiceError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

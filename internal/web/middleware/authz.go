package middleware

import (
	"net/http"
	"slices"

	"github.com/resumate-app/resumate/internal/web/auth"
	"github.com/resumate-app/resumate/internal/web/response"
)

// RequirePermission rejects users whose roles lack permission. It must run
// after Auth.
func RequirePermission(permission auth.RBACPermission) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles := GetUserRoles(r.Context())
			if len(roles) == 0 {
				response.RenderUnauthorized(w, "")
				return
			}
			if !auth.UserHasPermission(roles, permission) {
				response.RenderForbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects users without roleName
func RequireRole(roleName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(GetUserRoles(r.Context()), roleName) {
				response.RenderForbidden(w, "Role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/resumate-app/resumate/internal/web/auth"
	webcontext "github.com/resumate-app/resumate/internal/web/context"
	"github.com/resumate-app/resumate/internal/web/response"
)

// TokenQueryParam is accepted in place of the Authorization header on
// WebSocket upgrades, which browsers cannot send headers with
const TokenQueryParam = "access_token"

type userHolderKey struct{}

type userHolder struct {
	userID string
}

func withUserHolder(ctx context.Context, h *userHolder) context.Context {
	return context.WithValue(ctx, userHolderKey{}, h)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		if isWebSocketUpgrade(r) {
			return r.URL.Query().Get(TokenQueryParam)
		}
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// Auth requires a valid access token and stores its claims in the request
// context
func Auth(tokens *auth.TokenService) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				response.RenderUnauthorized(w, "Authorization required")
				return
			}

			claims, err := tokens.ValidateToken(raw)
			if err != nil {
				response.RenderUnauthorized(w, "Invalid or expired token")
				return
			}

			if h, ok := r.Context().Value(userHolderKey{}).(*userHolder); ok {
				h.userID = claims.UserID
			}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// GetUserID extracts the user ID from the request context
func GetUserID(ctx context.Context) string {
	p, _ := webcontext.GetPrincipal(ctx)
	return p.UserID
}

// GetUserRoles extracts the user roles from the request context
func GetUserRoles(ctx context.Context) []string {
	p, _ := webcontext.GetPrincipal(ctx)
	return p.Roles
}

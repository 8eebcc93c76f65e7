package auth

import (
	"context"

	webcontext "github.com/resumate-app/resumate/internal/web/context"
)

// GetCurrentUser returns the authenticated user ID, or "" when the request
// carries no valid token
func GetCurrentUser(ctx context.Context) string {
	p, _ := webcontext.GetPrincipal(ctx)
	return p.UserID
}

// WithClaims makes the token subject the request principal
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return webcontext.WithPrincipal(ctx, webcontext.Principal{
		UserID: c.UserID,
		Email:  c.Email,
		Roles:  c.Roles,
	})
}

// Package context holds the request-scoped values shared by middleware and
// handlers.
package context

import "context"

type key int

const (
	requestIDKey key = iota
	principalKey
)

// Principal is the authenticated caller of a request
type Principal struct {
	UserID string
	Email  string
	Roles  []string
}

// GetRequestID returns the request ID, or "" outside a request
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// SetRequestID stores the request ID
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithPrincipal stores the authenticated caller
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the authenticated caller. ok is false on anonymous
// requests.
func GetPrincipal(ctx context.Context) (p Principal, ok bool) {
	p, ok = ctx.Value(principalKey).(Principal)
	return p, ok
}

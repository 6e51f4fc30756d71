package userservice

import (
	"context"

	"github.com/goliatone/go-router"
)

type contextKey struct {
	name string
}

var principalContextKey = &contextKey{"principal"}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	if principal == nil {
		return ctx
	}
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext retrieves the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	principal, ok := ctx.Value(principalContextKey).(*Principal)
	return principal, ok && principal != nil
}

// PrincipalFromRouterContext retrieves the principal the authentication
// middleware stored under key in the request locals.
func PrincipalFromRouterContext(ctx router.Context, key string) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	principal, ok := ctx.Locals(key).(*Principal)
	return principal, ok && principal != nil
}

// Package requestctx carries request-scoped identity through contexts.
package requestctx

import "context"

// principalContextKey is the context key for the acting principal address.
type principalContextKey struct{}

// WithPrincipal stores the acting principal's address in context.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext returns the acting principal's address, or "" when
// none was set.
func PrincipalFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(principalContextKey{}).(string)
	return value
}

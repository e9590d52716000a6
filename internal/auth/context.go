package auth

import "context"

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a context carrying a verified identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the verified identity placed by the session middleware, if any.
func IdentityFromContext(ctx context.Context) (string, bool) {
	identity, ok := ctx.Value(identityKey).(string)
	return identity, ok && identity != ""
}

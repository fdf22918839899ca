package auth

import "context"

type contextKey struct{}

var usernameKey = contextKey{}

// WithUsername attaches the authenticated identity to the request
// context. Downstream handlers read it back with UsernameFrom; there
// is no mutable global.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// UsernameFrom returns the authenticated username, or "" for an
// unauthenticated request.
func UsernameFrom(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

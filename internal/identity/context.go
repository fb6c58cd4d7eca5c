// Package identity carries the signed-in user through request contexts and
// issues the bearer tokens that establish it.
package identity

import "context"

type ctxKey struct{}

// WithUserID returns a child context scoped to userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the user in scope, or "" in single-user mode.
func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

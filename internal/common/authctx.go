package common

import "context"

type ctxKey int

const userIDKey ctxKey = iota

// WithUserID returns a child context carrying the authenticated subject.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID reports the authenticated subject stored by the auth middleware.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

package internal

import "context"

type userIDKey struct{}

// ContextWithUserID stamps the authenticated user's id onto the context.
// The auth middleware sets it; anything downstream of the router may read
// it back with UserIDFromContext.
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the authenticated user id, or 0 when the
// request never passed the auth middleware.
func UserIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if userID, ok := ctx.Value(userIDKey{}).(int64); ok {
		return userID
	}
	return 0
}

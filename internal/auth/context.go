package auth

import (
	"context"

	"github.com/expensio/expense-service/internal/user"
)

type ctxKey string

const contextUserKey ctxKey = "authUser"

// ContextWithUser stores the authenticated user on the request context.
func ContextWithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, contextUserKey, u)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(contextUserKey).(*user.User)
	return u, ok
}

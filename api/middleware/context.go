package middleware

import (
	"context"

	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
)

// Caller is the authenticated principal Auth attaches to the request.
type Caller struct {
	UserID  string
	Role    enums.Role
	TokenID string
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext reports false on routes that did not pass through Auth.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

func caller(ctx context.Context) Caller {
	c, _ := CallerFromContext(ctx)
	return c
}

func UserIDFromContext(ctx context.Context) string { return caller(ctx).UserID }

func RoleFromContext(ctx context.Context) string { return string(caller(ctx).Role) }

// TokenIDFromContext returns the jti of the access token on the request.
func TokenIDFromContext(ctx context.Context) string { return caller(ctx).TokenID }

// The single-field setters below merge into whatever caller ctx carries.

func WithUserID(ctx context.Context, userID string) context.Context {
	c := caller(ctx)
	c.UserID = userID
	return WithCaller(ctx, c)
}

func WithRole(ctx context.Context, role string) context.Context {
	c := caller(ctx)
	c.Role = enums.Role(role)
	return WithCaller(ctx, c)
}

func WithTokenID(ctx context.Context, tokenID string) context.Context {
	c := caller(ctx)
	c.TokenID = tokenID
	return WithCaller(ctx, c)
}

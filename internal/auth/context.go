package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxRole
	ctxEmail
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, id.UserID)
	ctx = context.WithValue(ctx, ctxRole, id.Role)
	ctx = context.WithValue(ctx, ctxEmail, id.Email)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxUserID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("user_id not in context")
}

func Role(ctx context.Context) (string, error) {
	v := ctx.Value(ctxRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}

// FromContext returns the identity injected by RequireAccessToken.
func FromContext(ctx context.Context) (Identity, bool) {
	uid, err := UserID(ctx)
	if err != nil {
		return Identity{}, false
	}
	role, err := Role(ctx)
	if err != nil {
		return Identity{}, false
	}
	email, _ := ctx.Value(ctxEmail).(string)
	return Identity{UserID: uid, Role: role, Email: email}, true
}

package middleware

import (
	"context"
	"slices"

	"github.com/naijamall/naijamall-backend/pkg/enums"
)

type (
	userIDKey struct{}
	roleKey   struct{}
)

// UserIDFromContext returns the authenticated subject, or "" before Auth has run.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// ActorRoleFromContext returns the caller's role. Anything Auth did not validate comes back empty.
func ActorRoleFromContext(ctx context.Context) enums.Role {
	role, _ := ctx.Value(roleKey{}).(enums.Role)
	if !role.IsValid() {
		return ""
	}
	return role
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func WithRole(ctx context.Context, role enums.Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// hasAnyRole is false for an anonymous caller even when roles is empty.
func hasAnyRole(ctx context.Context, roles []enums.Role) bool {
	actor := ActorRoleFromContext(ctx)
	return actor != "" && slices.Contains(roles, actor)
}

// Package roles holds the authorization rules built on the enums.Role hierarchy: who may manage
// whom, who may grant what, and which order statuses each role may set.
package roles

import (
	"github.com/google/uuid"

	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
)

var statusPermissions = map[enums.Role][]enums.OrderStatus{
	enums.RoleSeller: {
		enums.OrderStatusConfirmed,
		enums.OrderStatusShopping,
		enums.OrderStatusReadyForDelivery,
	},
	enums.RoleAgent: {
		enums.OrderStatusShopping,
		enums.OrderStatusReadyForDelivery,
	},
	enums.RoleRider: {
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusDelivered,
	},
}

// CanManage reports whether actor may act on a user holding target.
func CanManage(actor, target enums.Role) bool {
	if actor == enums.RoleSuperAdmin {
		return true
	}
	return enums.CompareRoles(actor, target) > 0
}

// CanGrant reports whether actor may hand out newRole.
func CanGrant(actor, newRole enums.Role) bool {
	if !newRole.IsValid() {
		return false
	}
	if newRole.IsAdmin() {
		return actor == enums.RoleSuperAdmin
	}
	if actor == enums.RoleSuperAdmin {
		return true
	}
	return enums.CompareRoles(newRole, actor) < 0
}

// RoleChange describes a request to move target to NewRole.
type RoleChange struct {
	ActorID    uuid.UUID
	ActorRole  enums.Role
	TargetID   uuid.UUID
	TargetRole enums.Role
	NewRole    enums.Role
}

// AuthorizeRoleChange applies the self-change, hierarchy and grant rules in that order.
func AuthorizeRoleChange(change RoleChange) error {
	if !change.NewRole.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid role").WithDetails(map[string]any{"role": change.NewRole})
	}
	if change.ActorID == change.TargetID && change.ActorRole != enums.RoleSuperAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot change your own role")
	}
	if !CanManage(change.ActorRole, change.TargetRole) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient privilege over target user")
	}
	if !CanGrant(change.ActorRole, change.NewRole) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient privilege to grant role")
	}
	return nil
}

// AuthorizeManage guards actions like deletion that act on a user without granting a role.
func AuthorizeManage(actorID uuid.UUID, actorRole enums.Role, targetID uuid.UUID, targetRole enums.Role) error {
	if actorID == targetID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot act on your own account")
	}
	if !CanManage(actorRole, targetRole) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient privilege over target user")
	}
	return nil
}

// VisibleRoles lists the roles actor may see and assign from.
func VisibleRoles(actor enums.Role) []enums.Role {
	all := enums.Roles()
	if actor == enums.RoleSuperAdmin {
		return all
	}
	visible := make([]enums.Role, 0, len(all))
	for _, role := range all {
		if enums.CompareRoles(role, actor) < 0 {
			visible = append(visible, role)
		}
	}
	return visible
}

// PermittedStatuses returns the statuses actor may set. Admins may set any.
func PermittedStatuses(actor enums.Role) []enums.OrderStatus {
	if actor.IsAdmin() {
		return enums.OrderStatuses()
	}
	allowed := statusPermissions[actor]
	out := make([]enums.OrderStatus, len(allowed))
	copy(out, allowed)
	return out
}

// AuthorizeStatus is the single check deciding whether actor may set target.
func AuthorizeStatus(actor enums.Role, target enums.OrderStatus) error {
	if actor.IsAdmin() {
		return nil
	}
	for _, allowed := range statusPermissions[actor] {
		if allowed == target {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role may not set this status").WithDetails(map[string]any{
		"role":   actor,
		"status": target,
	})
}

// RequireAssignee fails with INVALID_ASSIGNEE unless user is an active holder of role.
func RequireAssignee(user *models.User, role enums.Role) error {
	if user == nil {
		return pkgerrors.New(pkgerrors.CodeInvalidAssignee, "assignee not found")
	}
	if user.Role != role {
		return pkgerrors.New(pkgerrors.CodeInvalidAssignee, "assignee does not hold the required role").WithDetails(map[string]any{
			"user_id":       user.ID,
			"required_role": role,
			"actual_role":   user.Role,
		})
	}
	if !user.IsActive {
		return pkgerrors.New(pkgerrors.CodeInvalidAssignee, "assignee is inactive").WithDetails(map[string]any{"user_id": user.ID})
	}
	return nil
}

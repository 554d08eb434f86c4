package enums

import "fmt"

// Role is the platform role of a user. Roles form a total order by Level.
type Role string

const (
	RoleBuyer           Role = "buyer"
	RoleRider           Role = "rider"
	RoleSeller          Role = "seller"
	RoleAgent           Role = "agent"
	RoleCustomerService Role = "customer_service"
	RoleAdmin           Role = "admin"
	RoleSuperAdmin      Role = "super_admin"
)

// orderedRoles lists roles in ascending privilege; Level is index+1.
var orderedRoles = []Role{
	RoleBuyer,
	RoleRider,
	RoleSeller,
	RoleAgent,
	RoleCustomerService,
	RoleAdmin,
	RoleSuperAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	return r.Level() > 0
}

// Level returns the hierarchy level of the role (buyer=1 .. super_admin=7), or 0 when unknown.
func (r Role) Level() int {
	for i, candidate := range orderedRoles {
		if candidate == r {
			return i + 1
		}
	}
	return 0
}

// AtLeast reports whether r is at or above min in the hierarchy.
func (r Role) AtLeast(min Role) bool {
	return r.IsValid() && r.Level() >= min.Level()
}

// IsStaff reports whether the role belongs to back-office operations.
func (r Role) IsStaff() bool {
	return r.AtLeast(RoleCustomerService)
}

// IsAdmin reports whether the role is admin or super_admin.
func (r Role) IsAdmin() bool {
	return r.AtLeast(RoleAdmin)
}

// CompareRoles returns -1, 0 or 1 as a ranks below, equal to or above b.
func CompareRoles(a, b Role) int {
	la, lb := a.Level(), b.Level()
	switch {
	case la < lb:
		return -1
	case la > lb:
		return 1
	default:
		return 0
	}
}

// Roles returns every role in ascending privilege.
func Roles() []Role {
	out := make([]Role, len(orderedRoles))
	copy(out, orderedRoles)
	return out
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range orderedRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

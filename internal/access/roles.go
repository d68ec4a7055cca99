package access

import (
	"slices"

	"github.com/marrakech-reviews/service-community/pkg/auth"
)

// RoleSet is the set of stored roles a gate admits.
type RoleSet []auth.Role

// Canonical gates. A higher role always appears in every set a lower role does.
var (
	AdminOnly        = RoleSet{auth.RoleAdmin}
	ModeratorOrAdmin = RoleSet{auth.RoleAdmin, auth.RoleModerator}
	AnyUser          = RoleSet{auth.RoleAdmin, auth.RoleModerator, auth.RoleUser}
)

// Allows reports whether role is a member of the set.
func (s RoleSet) Allows(role auth.Role) bool {
	return slices.Contains(s, role)
}

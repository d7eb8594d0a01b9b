package auth

import (
	"sort"

	"github.com/frahmantamala/teamspace/internal"
)

type Capability string

const (
	CapProfileUpdate   Capability = "profile.update"
	CapUsersView       Capability = "users.view"
	CapDepartmentsView Capability = "departments.view"
	CapGroupsView      Capability = "groups.view"
	CapThreadsView     Capability = "threads.view"
	CapMessagesSend    Capability = "messages.send"

	CapGroupsCreate             Capability = "groups.create"
	CapGroupsUpdate             Capability = "groups.update"
	CapGroupsManageMembers      Capability = "groups.manage_members"
	CapDepartmentsManageMembers Capability = "departments.manage_members"
	CapThreadsCreate            Capability = "threads.create"
	CapUsersInvite              Capability = "users.invite"

	CapDepartmentsCreate Capability = "departments.create"
	CapDepartmentsUpdate Capability = "departments.update"
	CapDepartmentsDelete Capability = "departments.delete"
	CapGroupsDelete      Capability = "groups.delete"
	CapUsersUpdateRole   Capability = "users.update_role"
	CapUsersDelete       Capability = "users.delete"
)

var (
	memberCapabilities = []Capability{
		CapProfileUpdate, CapUsersView, CapDepartmentsView, CapGroupsView, CapThreadsView, CapMessagesSend,
	}
	managerCapabilities = []Capability{
		CapGroupsCreate, CapGroupsUpdate, CapGroupsManageMembers, CapDepartmentsManageMembers, CapThreadsCreate, CapUsersInvite,
	}
	adminCapabilities = []Capability{
		CapDepartmentsCreate, CapDepartmentsUpdate, CapDepartmentsDelete, CapGroupsDelete, CapUsersUpdateRole, CapUsersDelete,
	}
)

// roleTable is built once: each role inherits every capability of the role below it.
var roleTable = buildRoleTable()

func buildRoleTable() map[internal.Role]map[Capability]struct{} {
	grant := func(sets ...[]Capability) map[Capability]struct{} {
		out := make(map[Capability]struct{})
		for _, set := range sets {
			for _, c := range set {
				out[c] = struct{}{}
			}
		}
		return out
	}
	return map[internal.Role]map[Capability]struct{}{
		internal.RoleMember:  grant(memberCapabilities),
		internal.RoleManager: grant(memberCapabilities, managerCapabilities),
		internal.RoleAdmin:   grant(memberCapabilities, managerCapabilities, adminCapabilities),
	}
}

// Can reports whether role holds capability. Unknown roles hold nothing.
func Can(role internal.Role, capability Capability) bool {
	_, ok := roleTable[role][capability]
	return ok
}

// Capabilities lists a role's capability keys in sorted order.
func Capabilities(role internal.Role) []string {
	out := make([]string, 0, len(roleTable[role]))
	for c := range roleTable[role] {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// RequireAdmin reports unauthorized before forbidden.
func RequireAdmin(id *internal.Identity) error {
	if id == nil {
		return internal.ErrNoSession
	}
	if id.Role != internal.RoleAdmin {
		return internal.ErrForbidden
	}
	return nil
}

func RequireCapability(id *internal.Identity, capability Capability) error {
	if id == nil {
		return internal.ErrNoSession
	}
	if !Can(id.Role, capability) {
		return internal.ErrForbidden
	}
	return nil
}

// PermissionChecker is the injectable form of the role table.
type PermissionChecker interface {
	Can(role internal.Role, capability Capability) bool
}

type StaticPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return StaticPermissionChecker{}
}

func (StaticPermissionChecker) Can(role internal.Role, capability Capability) bool {
	return Can(role, capability)
}

package domain

// Role identifies one of the fixed administrative roles. The set is closed:
// roles are not created at runtime and no role inherits another's privileges.
type Role string

const (
	RoleAdministrator Role = "Administrator"
	RoleAdminStore    Role = "AdminStore"
	RoleAdminEmployee Role = "AdminEmployee"
)

// roles is the catalogue, in presentation order.
var roles = []Role{
	RoleAdministrator,
	RoleAdminStore,
	RoleAdminEmployee,
}

// ListRoles returns the full role catalogue.
func ListRoles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// FindRole looks up a role by its exact name. Matching is case-sensitive;
// absent roles yield ok=false rather than an error.
func FindRole(name string) (Role, bool) {
	for _, r := range roles {
		if string(r) == name {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r is a member of the catalogue.
func (r Role) Valid() bool {
	_, ok := FindRole(string(r))
	return ok
}

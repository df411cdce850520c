package auth

import "github.com/tibor-mirnic/nemt-server-boilerplate/internal/model"

// HasPermission reports whether the user may execute the named
// permission. System and admin accounts are always authorized; everyone
// else is checked against their role's permission list, first occurrence
// winning on duplicate types.
func HasPermission(user *model.User, permission string) bool {
	if user == nil {
		return false
	}
	if user.IsSystem || user.IsAdmin {
		return true
	}
	_, ok := permissionIndex(user)[permission]
	return ok
}

// HasAnyPermission reports whether the user holds at least one of the
// named permissions, short-circuiting on the first match.
func HasAnyPermission(user *model.User, permissions ...string) bool {
	if user == nil {
		return false
	}
	if user.IsSystem || user.IsAdmin {
		return true
	}
	index := permissionIndex(user)
	for _, permission := range permissions {
		if _, ok := index[permission]; ok {
			return true
		}
	}
	return false
}

func permissionIndex(user *model.User) map[string]model.Permission {
	index := make(map[string]model.Permission)
	if user.Role == nil {
		return index
	}
	for _, permission := range user.Role.Permissions {
		if _, ok := index[permission.Type]; !ok {
			index[permission.Type] = permission
		}
	}
	return index
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole is the name of a role row in users.role.
type UserRole string

const (
	// Unrestricted system access, including account administration
	RoleAdmin UserRole = "Admin"

	// Default role assigned on registration
	RoleUser UserRole = "User"
)

// DefaultRole is assigned to every newly registered account.
const DefaultRole = RoleUser

// HasRole reports whether role appears in roles.
func HasRole(roles []string, role UserRole) bool {
	for _, candidate := range roles {
		if candidate == string(role) {
			return true
		}
	}
	return false
}

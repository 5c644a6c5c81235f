// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
//
// The set is closed: anything outside it is rejected at registration and
// when decoding a token.
type UserRole string

const (
	// Platform administration, the privileged tier
	RoleAdmin UserRole = "Admin"

	// School or organisation management
	RoleManager UserRole = "Manager"

	// Teaching staff
	RoleTeacher UserRole = "Teacher"

	// Teaching assistants
	RoleAssistant UserRole = "Assistant"

	// Default learner account
	RoleStudent UserRole = "Student"
)

// AllRoles lists every accepted role.
var AllRoles = []UserRole{RoleAdmin, RoleManager, RoleStudent, RoleTeacher, RoleAssistant}

// ParseRole returns the role named by value, matching case-sensitively.
func ParseRole(value string) (UserRole, bool) {
	for _, role := range AllRoles {
		if string(role) == value {
			return role, true
		}
	}
	return "", false
}

// IsValidRole reports whether value is one of [AllRoles].
func IsValidRole(value string) bool {
	_, ok := ParseRole(value)
	return ok
}

// IsPrivileged reports whether creating an account with this role requires
// an authenticated caller of the same role.
func (r UserRole) IsPrivileged() bool {
	return r == RoleAdmin
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

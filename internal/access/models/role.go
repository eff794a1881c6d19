package models

import dErrors "namemint/pkg/domain-errors"

// Role is the persisted permission level of a principal.
//
// Invariants:
//   - guest is never persisted; it is computed for anonymous callers
//   - at most one principal ever becomes admin through the bootstrap path
//     (subsequent admins are created only via AssignRole)
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// ParseRole constructs a Role from external input. Guest is rejected because
// it is computed, never assigned.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleUser:
		return Role(s), nil
	case RoleGuest:
		return "", dErrors.New(dErrors.CodeInvalidInput, "guest role cannot be assigned")
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
}

// Satisfies reports whether a caller holding this role meets the required
// level. Admin short-circuits every requirement; required=user is satisfied
// only by user; required=guest is satisfied by any role.
func (r Role) Satisfies(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	switch required {
	case RoleAdmin:
		return false
	case RoleUser:
		return r == RoleUser
	case RoleGuest:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

package domain

import "fmt"

// Role is the closed set of user roles. Authorization never compares raw
// strings; everything goes through this type.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleRegular Role = "regular"
	RoleGuest   Role = "guest"
)

// ParseRole validates a role string coming from storage or an API request.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleRegular, RoleGuest:
		return Role(s), nil
	default:
		return "", fmt.Errorf("domain: unknown role %q", s)
	}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

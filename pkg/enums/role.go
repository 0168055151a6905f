package enums

import (
	"fmt"
	"strings"
)

// Role is the storefront account type returned by the auth endpoints.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
)

var validRoles = []Role{
	RoleCustomer,
	RoleSeller,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role. Matching is case-insensitive.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

// RoleOrDefault parses value and falls back to RoleCustomer when absent or unknown.
func RoleOrDefault(value string) Role {
	role, err := ParseRole(value)
	if err != nil {
		return RoleCustomer
	}
	return role
}

package models

import (
	"fmt"
	"strings"
)

// Role determines what a user may see and change.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleManager    Role = "CRM Manager"
	RoleTeamMember Role = "Team Member"
)

// DefaultRole is assigned when registration does not name one.
const DefaultRole = RoleTeamMember

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleManager, RoleTeamMember}

// ParseRole accepts the exact role names. An empty value yields DefaultRole.
func ParseRole(value string) (Role, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return DefaultRole, nil
	}
	for _, r := range Roles {
		if string(r) == trimmed {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid role: %s", trimmed)
}

func (r Role) Valid() bool {
	for _, candidate := range Roles {
		if r == candidate {
			return true
		}
	}
	return false
}

// Package authz decides what an authenticated identity may do with customer
// and user records. Every route and service operation asks Can or Authorize
// instead of comparing role strings itself.
package authz

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"crm/internal/apperr"
	"crm/internal/models"
)

// Identity is the caller as proven by a verified session token.
type Identity struct {
	UserID primitive.ObjectID
	Role   models.Role
}

type Action string

const (
	ActionProfileRead    Action = "profile/read"
	ActionTeamRoster     Action = "users/roster"
	ActionUserList       Action = "users/list"
	ActionUserRead       Action = "users/read"
	ActionUserUpdate     Action = "users/update"
	ActionUserDelete     Action = "users/delete"
	ActionCustomerCreate Action = "customers/create"
	ActionCustomerList   Action = "customers/list"
	ActionCustomerRead   Action = "customers/read"
	ActionCustomerUpdate Action = "customers/update"
	ActionCustomerDelete Action = "customers/delete"
	ActionCustomerStats  Action = "customers/stats"
)

// anyRole marks actions open to every authenticated caller.
var anyRole = models.Roles

var managers = []models.Role{models.RoleAdmin, models.RoleManager}

var adminOnly = []models.Role{models.RoleAdmin}

// capabilities is the single source of truth for role checks. Reads and
// updates of single customers are deliberately open to every role.
var capabilities = map[Action][]models.Role{
	ActionProfileRead:    anyRole,
	ActionTeamRoster:     anyRole,
	ActionUserList:       managers,
	ActionUserRead:       managers,
	ActionUserUpdate:     adminOnly,
	ActionUserDelete:     adminOnly,
	ActionCustomerCreate: anyRole,
	ActionCustomerList:   anyRole,
	ActionCustomerRead:   anyRole,
	ActionCustomerUpdate: anyRole,
	ActionCustomerDelete: managers,
	ActionCustomerStats:  anyRole,
}

// Can reports whether role may perform action. Unknown actions and roles are
// denied.
func Can(role models.Role, action Action) bool {
	for _, allowed := range capabilities[action] {
		if allowed == role {
			return true
		}
	}
	return false
}

// Authorize returns apperr.ErrForbidden when id may not perform action.
func Authorize(id Identity, action Action) error {
	if !Can(id.Role, action) {
		return apperr.ErrForbidden
	}
	return nil
}

// RestrictedToAssignments reports whether role only sees customers assigned
// to it.
func RestrictedToAssignments(role models.Role) bool {
	return role == models.RoleTeamMember
}

// CustomerScope turns a caller's validated request into the store filter it
// is allowed to run. For restricted roles the assignee is always the caller,
// whatever assignee was requested.
func CustomerScope(id Identity, status models.Status, assignedTo *primitive.ObjectID) models.CustomerFilter {
	filter := models.CustomerFilter{Status: status}
	if RestrictedToAssignments(id.Role) {
		self := id.UserID
		filter.AssignedTo = &self
		return filter
	}
	if assignedTo != nil {
		requested := *assignedTo
		filter.AssignedTo = &requested
	}
	return filter
}

// Visible reports whether c falls inside id's list scope.
func Visible(id Identity, c *models.Customer) bool {
	if !RestrictedToAssignments(id.Role) {
		return true
	}
	return c.IsAssignedTo(id.UserID)
}

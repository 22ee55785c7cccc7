package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"crm/internal/apperr"
	"crm/internal/models"
)

func TestCanMatrix(t *testing.T) {
	tests := []struct {
		action  Action
		allowed []models.Role
	}{
		{ActionProfileRead, models.Roles},
		{ActionTeamRoster, models.Roles},
		{ActionUserList, []models.Role{models.RoleAdmin, models.RoleManager}},
		{ActionUserRead, []models.Role{models.RoleAdmin, models.RoleManager}},
		{ActionUserUpdate, []models.Role{models.RoleAdmin}},
		{ActionUserDelete, []models.Role{models.RoleAdmin}},
		{ActionCustomerCreate, models.Roles},
		{ActionCustomerList, models.Roles},
		{ActionCustomerRead, models.Roles},
		{ActionCustomerUpdate, models.Roles},
		{ActionCustomerDelete, []models.Role{models.RoleAdmin, models.RoleManager}},
		{ActionCustomerStats, models.Roles},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			for _, role := range models.Roles {
				want := false
				for _, r := range tt.allowed {
					if r == role {
						want = true
					}
				}
				require.Equal(t, want, Can(role, tt.action), "role %q", role)
			}
		})
	}
}

func TestCanDeniesUnknownRoleAndAction(t *testing.T) {
	require.False(t, Can(models.Role("root"), ActionCustomerList))
	require.False(t, Can(models.RoleAdmin, Action("customers/export")))
}

func TestAuthorizeReturnsForbidden(t *testing.T) {
	member := Identity{UserID: primitive.NewObjectID(), Role: models.RoleTeamMember}
	err := Authorize(member, ActionCustomerDelete)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	manager := Identity{UserID: primitive.NewObjectID(), Role: models.RoleManager}
	require.NoError(t, Authorize(manager, ActionCustomerDelete))
}

func TestCustomerScopeTeamMemberIgnoresRequestedAssignee(t *testing.T) {
	member := Identity{UserID: primitive.NewObjectID(), Role: models.RoleTeamMember}
	other := primitive.NewObjectID()

	filter := CustomerScope(member, models.StatusContacted, &other)

	require.NotNil(t, filter.AssignedTo)
	require.Equal(t, member.UserID, *filter.AssignedTo)
	require.Equal(t, models.StatusContacted, filter.Status)

	filter = CustomerScope(member, "", nil)
	require.NotNil(t, filter.AssignedTo)
	require.Equal(t, member.UserID, *filter.AssignedTo)
}

func TestCustomerScopeManagersApplyFiltersVerbatim(t *testing.T) {
	for _, role := range []models.Role{models.RoleAdmin, models.RoleManager} {
		caller := Identity{UserID: primitive.NewObjectID(), Role: role}

		unfiltered := CustomerScope(caller, "", nil)
		require.Nil(t, unfiltered.AssignedTo)
		require.Empty(t, unfiltered.Status)

		other := primitive.NewObjectID()
		filtered := CustomerScope(caller, models.StatusClosed, &other)
		require.Equal(t, other, *filtered.AssignedTo)
		require.Equal(t, models.StatusClosed, filtered.Status)
	}
}

func TestVisible(t *testing.T) {
	member := Identity{UserID: primitive.NewObjectID(), Role: models.RoleTeamMember}
	assigned := &models.Customer{AssignedTo: []primitive.ObjectID{primitive.NewObjectID(), member.UserID}}
	unassigned := &models.Customer{}

	require.True(t, Visible(member, assigned))
	require.False(t, Visible(member, unassigned))
	require.True(t, Visible(Identity{Role: models.RoleAdmin}, unassigned))
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"crm/internal/apperr"
	"crm/internal/authz"
	cachemocks "crm/internal/cache/mocks"
	"crm/internal/metrics"
	"crm/internal/models"
	"crm/internal/store/memory"
)

func TestMe(t *testing.T) {
	f := newFixture(t)
	member := f.addUser(t, "member", models.RoleTeamMember)

	me, err := f.user.Me(context.Background(), member)
	require.NoError(t, err)
	require.Equal(t, models.PublicUser{ID: member.UserID.Hex(), Name: "member", Email: "member@example.com", Role: models.RoleTeamMember}, *me)

	ghost := authz.Identity{UserID: primitive.NewObjectID(), Role: models.RoleAdmin}
	_, err = f.user.Me(context.Background(), ghost)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestTeamMembersIncludesEveryRoleSortedByName(t *testing.T) {
	f := newFixture(t)
	member := f.addUser(t, "zed", models.RoleTeamMember)
	f.addUser(t, "amy", models.RoleAdmin)
	f.addUser(t, "Max", models.RoleManager)

	roster, err := f.user.TeamMembers(context.Background(), member)
	require.NoError(t, err)

	var got []string
	for _, u := range roster {
		got = append(got, u.Name)
	}
	require.Equal(t, []string{"amy", "Max", "zed"}, got)
}

func TestTeamMembersUsesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	roster := cachemocks.NewMockRosterCache(ctrl)
	users := memory.NewUserStore()
	m := metrics.NewNop()
	svc := NewUserService(users, roster, m, zap.NewNop())

	caller := authz.Identity{UserID: primitive.NewObjectID(), Role: models.RoleTeamMember}
	require.NoError(t, users.Create(context.Background(), &models.User{Name: "ann", Email: "ann@example.com", Role: models.RoleAdmin}))

	gomock.InOrder(
		roster.EXPECT().Get(gomock.Any()).Return(nil, false, nil),
		roster.EXPECT().Set(gomock.Any(), gomock.Len(1)).Return(nil),
		roster.EXPECT().Get(gomock.Any()).Return([]models.PublicUser{{ID: "cached", Name: "cached"}}, true, nil),
	)

	first, err := svc.TeamMembers(context.Background(), caller)
	require.NoError(t, err)
	require.Equal(t, "ann", first[0].Name)

	second, err := svc.TeamMembers(context.Background(), caller)
	require.NoError(t, err)
	require.Equal(t, "cached", second[0].Name)

	require.Equal(t, 1.0, testutil.ToFloat64(m.RosterCacheHits))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RosterCacheMisses))
}

func TestTeamMembersSurvivesCacheFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	roster := cachemocks.NewMockRosterCache(ctrl)
	users := memory.NewUserStore()
	svc := NewUserService(users, roster, metrics.NewNop(), zap.NewNop())

	roster.EXPECT().Get(gomock.Any()).Return(nil, false, errors.New("redis down"))
	roster.EXPECT().Set(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	caller := authz.Identity{UserID: primitive.NewObjectID(), Role: models.RoleTeamMember}
	got, err := svc.TeamMembers(context.Background(), caller)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestUserWritesInvalidateRoster(t *testing.T) {
	ctrl := gomock.NewController(t)
	roster := cachemocks.NewMockRosterCache(ctrl)
	users := memory.NewUserStore()
	svc := NewUserService(users, roster, metrics.NewNop(), zap.NewNop())

	target := &models.User{Name: "ann", Email: "ann@example.com", Role: models.RoleTeamMember}
	require.NoError(t, users.Create(context.Background(), target))
	admin := authz.Identity{UserID: primitive.NewObjectID(), Role: models.RoleAdmin}

	roster.EXPECT().Invalidate(gomock.Any()).Return(nil).Times(2)

	name := "Ann B"
	_, err := svc.Update(context.Background(), admin, target.ID.Hex(), UpdateUserInput{Name: &name})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), admin, target.ID.Hex()))
}

func TestUserAdministrationIsRoleGated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.addUser(t, "admin", models.RoleAdmin)
	manager := f.addUser(t, "manager", models.RoleManager)
	member := f.addUser(t, "member", models.RoleTeamMember)

	_, err := f.user.List(ctx, member)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.user.Get(ctx, member, admin.UserID.Hex())
	require.ErrorIs(t, err, apperr.ErrForbidden)

	all, err := f.user.List(ctx, manager)
	require.NoError(t, err)
	require.Len(t, all, 3)

	got, err := f.user.Get(ctx, manager, member.UserID.Hex())
	require.NoError(t, err)
	require.Equal(t, "member", got.Name)

	role := "Admin"
	_, err = f.user.Update(ctx, manager, member.UserID.Hex(), UpdateUserInput{Role: &role})
	require.ErrorIs(t, err, apperr.ErrForbidden)
	require.ErrorIs(t, f.user.Delete(ctx, manager, member.UserID.Hex()), apperr.ErrForbidden)

	promoted, err := f.user.Update(ctx, admin, member.UserID.Hex(), UpdateUserInput{Role: &role})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, promoted.Role)
}

func TestUserUpdateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.addUser(t, "admin", models.RoleAdmin)
	member := f.addUser(t, "member", models.RoleTeamMember)

	taken := "ADMIN@example.com"
	_, err := f.user.Update(ctx, admin, member.UserID.Hex(), UpdateUserInput{Email: &taken})
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	own := "member@example.com"
	_, err = f.user.Update(ctx, admin, member.UserID.Hex(), UpdateUserInput{Email: &own})
	require.NoError(t, err)

	bad := "Owner"
	_, err = f.user.Update(ctx, admin, member.UserID.Hex(), UpdateUserInput{Role: &bad})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.user.Update(ctx, admin, primitive.NewObjectID().Hex(), UpdateUserInput{})
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = f.user.Delete(ctx, admin, "zzz")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

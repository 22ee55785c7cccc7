package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"crm/internal/apperr"
	"crm/internal/authz"
	"crm/internal/metrics"
	"crm/internal/models"
	"crm/internal/store/mocks"
)

func names(views []models.CustomerView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Name)
	}
	return out
}

func TestListScopesTeamMembersToTheirAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.addUser(t, "admin", models.RoleAdmin)
	alice := f.addUser(t, "alice", models.RoleTeamMember)
	bob := f.addUser(t, "bob", models.RoleTeamMember)

	f.addCustomer(t, admin, "a1", models.StatusNew, alice)
	f.addCustomer(t, admin, "b1", models.StatusNew, bob)
	f.addCustomer(t, admin, "shared", models.StatusContacted, alice, bob)
	f.addCustomer(t, admin, "nobody", models.StatusNew)

	got, err := f.customer.List(ctx, alice, models.CustomerQuery{})
	require.NoError(t, err)
	require.Equal(t, []string{"shared", "a1"}, names(got))

	// A foreign assignee filter never widens a Team Member's scope.
	got, err = f.customer.List(ctx, alice, models.CustomerQuery{AssignedTo: bob.UserID.Hex()})
	require.NoError(t, err)
	require.Equal(t, []string{"shared", "a1"}, names(got))
	for _, v := range got {
		var ids []string
		for _, ref := range v.AssignedTo {
			ids = append(ids, ref.ID)
		}
		require.Contains(t, ids, alice.UserID.Hex())
	}
}

func TestListForManagersAppliesFiltersVerbatim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	manager := f.addUser(t, "manager", models.RoleManager)
	alice := f.addUser(t, "alice", models.RoleTeamMember)
	bob := f.addUser(t, "bob", models.RoleTeamMember)

	f.addCustomer(t, manager, "a1", models.StatusNew, alice)
	f.addCustomer(t, manager, "b1", models.StatusContacted, bob)
	f.addCustomer(t, manager, "b2", models.StatusNew, bob)

	all, err := f.customer.List(ctx, manager, models.CustomerQuery{})
	require.NoError(t, err)
	require.Equal(t, []string{"b2", "b1", "a1"}, names(all))

	byBob, err := f.customer.List(ctx, manager, models.CustomerQuery{AssignedTo: bob.UserID.Hex()})
	require.NoError(t, err)
	require.Equal(t, []string{"b2", "b1"}, names(byBob))

	newOnes, err := f.customer.List(ctx, manager, models.CustomerQuery{Status: "New"})
	require.NoError(t, err)
	require.Equal(t, []string{"b2", "a1"}, names(newOnes))

	page, err := f.customer.List(ctx, manager, models.CustomerQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"a1"}, names(page))
}

func TestListStatusFilterAppliesToTeamMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.addUser(t, "admin", models.RoleAdmin)
	alice := f.addUser(t, "alice", models.RoleTeamMember)

	f.addCustomer(t, admin, "new", models.StatusNew, alice)
	f.addCustomer(t, admin, "closed", models.StatusClosed, alice)

	got, err := f.customer.List(ctx, alice, models.CustomerQuery{Status: "Closed"})
	require.NoError(t, err)
	require.Equal(t, []string{"closed"}, names(got))
}

func TestListRejectsBadFilters(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, "admin", models.RoleAdmin)

	_, err := f.customer.List(context.Background(), admin, models.CustomerQuery{Status: "Lost"})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.customer.List(context.Background(), admin, models.CustomerQuery{AssignedTo: "xyz"})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateForcesCreatorAndDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	member := f.addUser(t, "member", models.RoleTeamMember)

	created, err := f.customer.Create(ctx, member, CreateCustomerInput{
		Name:    "Acme",
		Email:   "hello@acme.test",
		Phone:   "555-0100",
		Company: "Acme Inc",
		Notes:   "met at fair",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusNew, created.Status)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)
	require.NotNil(t, created.CreatedBy)
	require.Equal(t, member.UserID.Hex(), created.CreatedBy.ID)
	require.Equal(t, "member", created.CreatedBy.Name)
	require.Empty(t, created.CreatedBy.Email)
	require.Empty(t, created.AssignedTo)

	fetched, err := f.customer.Get(ctx, member, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, fetched)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CustomerMutations.WithLabelValues("create")))
}

func TestCreateAndUpdateKeepFieldsVerbatim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := f.addUser(t, "member", models.RoleTeamMember)

	in := CreateCustomerInput{
		Name:    " Acme ",
		Email:   "ops@acme.test ",
		Phone:   " 555-0100",
		Company: "Acme Inc\t",
	}
	created, err := f.customer.Create(ctx, member, in)
	require.NoError(t, err)

	fetched, err := f.customer.Get(ctx, member, created.ID)
	require.NoError(t, err)
	require.Equal(t, in.Name, fetched.Name)
	require.Equal(t, in.Email, fetched.Email)
	require.Equal(t, in.Phone, fetched.Phone)
	require.Equal(t, in.Company, fetched.Company)

	company := "  Globex"
	updated, err := f.customer.Update(ctx, member, created.ID, UpdateCustomerInput{Company: &company})
	require.NoError(t, err)
	require.Equal(t, company, updated.Company)
	require.Equal(t, in.Name, updated.Name)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := f.addUser(t, "member", models.RoleTeamMember)

	_, err := f.customer.Create(ctx, member, CreateCustomerInput{})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	require.Equal(t, []string{"name is required", "email is required"}, apperr.From(err).Details)

	_, err = f.customer.Create(ctx, member, CreateCustomerInput{Name: "x", Email: "x@y.z", Status: "Won"})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.customer.Create(ctx, member, CreateCustomerInput{Name: "x", Email: "x@y.z", AssignedTo: []string{"bad"}})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateRequiresExistingCaller(t *testing.T) {
	f := newFixture(t)
	ghost := authz.Identity{UserID: primitive.NewObjectID(), Role: models.RoleAdmin}

	_, err := f.customer.Create(context.Background(), ghost, CreateCustomerInput{Name: "x", Email: "x@y.z"})
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestGetErrors(t *testing.T) {
	f := newFixture(t)
	member := f.addUser(t, "member", models.RoleTeamMember)

	_, err := f.customer.Get(context.Background(), member, "not-hex")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.customer.Get(context.Background(), member, primitive.NewObjectID().Hex())
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUpdateIsIdempotentExceptUpdatedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.addUser(t, "admin", models.RoleAdmin)
	alice := f.addUser(t, "alice", models.RoleTeamMember)
	created := f.addCustomer(t, admin, "Acme", models.StatusNew)

	status := "Contacted"
	assigned := []string{alice.UserID.Hex()}
	in := UpdateCustomerInput{Status: &status, AssignedTo: &assigned}

	first, err := f.customer.Update(ctx, admin, created.ID, in)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	second, err := f.customer.Update(ctx, admin, created.ID, in)
	require.NoError(t, err)

	require.True(t, second.UpdatedAt.After(first.UpdatedAt))
	first.UpdatedAt, second.UpdatedAt = time.Time{}, time.Time{}
	require.Equal(t, first, second)

	require.Equal(t, models.StatusContacted, second.Status)
	require.Equal(t, "Acme", second.Name)
	require.Equal(t, created.CreatedAt, second.CreatedAt)
	require.Equal(t, created.CreatedBy, second.CreatedBy)
	require.Len(t, second.AssignedTo, 1)
	require.Equal(t, "alice@example.com", second.AssignedTo[0].Email)
}

func TestUpdateByAnyRoleAndErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.addUser(t, "admin", models.RoleAdmin)
	member := f.addUser(t, "member", models.RoleTeamMember)
	created := f.addCustomer(t, admin, "Acme", models.StatusNew)

	notes := "called"
	updated, err := f.customer.Update(ctx, member, created.ID, UpdateCustomerInput{Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, "called", updated.Notes)

	bad := "Won"
	_, err = f.customer.Update(ctx, admin, created.ID, UpdateCustomerInput{Status: &bad})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	empty := " "
	_, err = f.customer.Update(ctx, admin, created.ID, UpdateCustomerInput{Name: &empty})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.customer.Update(ctx, admin, primitive.NewObjectID().Hex(), UpdateCustomerInput{Notes: &notes})
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteByManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	manager := f.addUser(t, "manager", models.RoleManager)
	created := f.addCustomer(t, manager, "Acme", models.StatusNew)

	require.NoError(t, f.customer.Delete(ctx, manager, created.ID))

	_, err := f.customer.Get(ctx, manager, created.ID)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = f.customer.Delete(ctx, manager, created.ID)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteByTeamMemberNeverTouchesStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	customers := mocks.NewMockCustomerStore(ctrl)
	users := mocks.NewMockUserStore(ctrl)
	// No EXPECT calls: any store access fails the test.

	svc := NewCustomerService(customers, users, metrics.NewNop(), zap.NewNop())
	member := authz.Identity{UserID: primitive.NewObjectID(), Role: models.RoleTeamMember}

	err := svc.Delete(context.Background(), member, primitive.NewObjectID().Hex())
	require.ErrorIs(t, err, apperr.ErrForbidden)

	// Even a malformed id is reported as forbidden, not as a bad request.
	err = svc.Delete(context.Background(), member, "garbage")
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestDeleteByTeamMemberLeavesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.addUser(t, "admin", models.RoleAdmin)
	member := f.addUser(t, "member", models.RoleTeamMember)
	created := f.addCustomer(t, admin, "Acme", models.StatusNew, member)

	err := f.customer.Delete(ctx, member, created.ID)
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	still, err := f.customer.Get(ctx, admin, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, still)
}

func TestStatsCountsPerStatusInCanonicalOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.addUser(t, "admin", models.RoleAdmin)
	f.addCustomer(t, admin, "c", models.StatusContacted)
	f.addCustomer(t, admin, "n1", models.StatusNew)
	f.addCustomer(t, admin, "n2", models.StatusNew)

	stats, err := f.customer.Stats(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, &models.DashboardStats{
		TotalCustomers: 3,
		StatusDistribution: []models.StatusCount{
			{Status: models.StatusNew, Count: 2},
			{Status: models.StatusContacted, Count: 1},
		},
	}, stats)
}

func TestStatsScopedForTeamMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.addUser(t, "admin", models.RoleAdmin)
	alice := f.addUser(t, "alice", models.RoleTeamMember)
	f.addCustomer(t, admin, "mine", models.StatusClosed, alice)
	f.addCustomer(t, admin, "other", models.StatusNew)

	stats, err := f.customer.Stats(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.TotalCustomers)
	require.Equal(t, []models.StatusCount{{Status: models.StatusClosed, Count: 1}}, stats.StatusDistribution)
}

func TestPopulateDropsDeletedAssignees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.addUser(t, "admin", models.RoleAdmin)
	alice := f.addUser(t, "alice", models.RoleTeamMember)
	bob := f.addUser(t, "bob", models.RoleTeamMember)
	created := f.addCustomer(t, admin, "Acme", models.StatusNew, alice, bob)

	require.NoError(t, f.user.Delete(ctx, admin, bob.UserID.Hex()))

	got, err := f.customer.Get(ctx, admin, created.ID)
	require.NoError(t, err)
	require.Equal(t, []models.UserRef{{ID: alice.UserID.Hex(), Name: "alice", Email: "alice@example.com"}}, got.AssignedTo)
}

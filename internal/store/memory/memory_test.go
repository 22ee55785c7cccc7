package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"crm/internal/models"
	"crm/internal/store"
)

func TestUserStoreEmailIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	first := &models.User{Name: "Ada", Email: "ada@example.com", Role: models.RoleAdmin}
	require.NoError(t, s.Create(ctx, first))
	require.False(t, first.ID.IsZero())

	err := s.Create(ctx, &models.User{Name: "Other", Email: "ADA@example.com"})
	require.ErrorIs(t, err, store.ErrDuplicate)

	second := &models.User{Name: "Bob", Email: "bob@example.com"}
	require.NoError(t, s.Create(ctx, second))

	taken := "ada@example.com"
	_, err = s.Update(ctx, second.ID, models.UserUpdate{Email: &taken}, time.Now())
	require.ErrorIs(t, err, store.ErrDuplicate)

	found, err := s.FindByEmail(ctx, "BOB@example.com")
	require.NoError(t, err)
	require.Equal(t, second.ID, found.ID)
}

func TestUserStoreFindByIDsSkipsMissing(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	u := &models.User{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, s.Create(ctx, u))

	users, err := s.FindByIDs(ctx, []primitive.ObjectID{u.ID, primitive.NewObjectID(), u.ID})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, u.ID, users[0].ID)
}

func TestUserStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	u := &models.User{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, s.Create(ctx, u))

	require.NoError(t, s.Delete(ctx, u.ID))
	require.ErrorIs(t, s.Delete(ctx, u.ID), store.ErrNotFound)
	_, err := s.FindByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCustomerStoreFilterAndCounts(t *testing.T) {
	ctx := context.Background()
	s := NewCustomerStore()
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	seed := []models.Customer{
		{Name: "a", Status: models.StatusNew, AssignedTo: []primitive.ObjectID{alice}, CreatedAt: base},
		{Name: "b", Status: models.StatusNew, AssignedTo: []primitive.ObjectID{alice, bob}, CreatedAt: base.Add(time.Hour)},
		{Name: "c", Status: models.StatusContacted, AssignedTo: []primitive.ObjectID{bob}, CreatedAt: base.Add(2 * time.Hour)},
		{Name: "d", Status: models.StatusClosed, CreatedAt: base.Add(3 * time.Hour)},
	}
	for i := range seed {
		require.NoError(t, s.Create(ctx, &seed[i]))
	}

	all, err := s.Find(ctx, models.CustomerFilter{})
	require.NoError(t, err)
	require.Equal(t, []string{"d", "c", "b", "a"}, names(all))

	forAlice, err := s.Find(ctx, models.CustomerFilter{AssignedTo: &alice})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, names(forAlice))

	newForBob, err := s.Find(ctx, models.CustomerFilter{AssignedTo: &bob, Status: models.StatusNew})
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, names(newForBob))

	page, err := s.Find(ctx, models.CustomerFilter{Skip: 1, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b"}, names(page))

	beyond, err := s.Find(ctx, models.CustomerFilter{Skip: 10})
	require.NoError(t, err)
	require.Empty(t, beyond)

	total, err := s.Count(ctx, models.CustomerFilter{AssignedTo: &alice})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)

	groups, err := s.CountByStatus(ctx, models.CustomerFilter{})
	require.NoError(t, err)
	require.Equal(t, []models.StatusCount{
		{Status: models.StatusNew, Count: 2},
		{Status: models.StatusContacted, Count: 1},
		{Status: models.StatusClosed, Count: 1},
	}, groups)
}

func TestCustomerStoreUpdateAppliesSuppliedFieldsOnly(t *testing.T) {
	ctx := context.Background()
	s := NewCustomerStore()
	creator := primitive.NewObjectID()
	c := &models.Customer{Name: "Acme", Email: "hi@acme.test", Phone: "555", Status: models.StatusNew, CreatedBy: creator}
	require.NoError(t, s.Create(ctx, c))

	status := models.StatusInProgress
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	updated, err := s.Update(ctx, c.ID, models.CustomerUpdate{Status: &status}, at)
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, updated.Status)
	require.Equal(t, "555", updated.Phone)
	require.Equal(t, creator, updated.CreatedBy)
	require.Equal(t, at, updated.UpdatedAt)

	_, err = s.Update(ctx, primitive.NewObjectID(), models.CustomerUpdate{}, at)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCustomerStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewCustomerStore()
	alice := primitive.NewObjectID()
	c := &models.Customer{Name: "Acme", AssignedTo: []primitive.ObjectID{alice}}
	require.NoError(t, s.Create(ctx, c))

	got, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	got.AssignedTo[0] = primitive.NewObjectID()

	again, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, alice, again.AssignedTo[0])
}

func names(customers []models.Customer) []string {
	out := make([]string, 0, len(customers))
	for _, c := range customers {
		out = append(out, c.Name)
	}
	return out
}

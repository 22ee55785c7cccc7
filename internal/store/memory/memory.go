// Package memory is an in-process store used for tests and local runs
// without MongoDB.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"crm/internal/models"
	"crm/internal/store"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

var _ store.UserStore = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[primitive.ObjectID]models.User)}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTakenLocked(user.Email, primitive.NilObjectID) {
		return store.ErrDuplicate
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *UserStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if user, ok := s.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *UserStore) Update(ctx context.Context, id primitive.ObjectID, update models.UserUpdate, updatedAt time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if update.Email != nil && s.emailTakenLocked(*update.Email, id) {
		return nil, store.ErrDuplicate
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	user.UpdatedAt = updatedAt
	s.users[id] = user
	return &user, nil
}

func (s *UserStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *UserStore) Ping(ctx context.Context) error { return nil }

func (s *UserStore) emailTakenLocked(email string, except primitive.ObjectID) bool {
	for id, user := range s.users {
		if id != except && strings.EqualFold(user.Email, email) {
			return true
		}
	}
	return false
}

type CustomerStore struct {
	mu        sync.RWMutex
	customers map[primitive.ObjectID]models.Customer
}

var _ store.CustomerStore = (*CustomerStore)(nil)

func NewCustomerStore() *CustomerStore {
	return &CustomerStore{customers: make(map[primitive.ObjectID]models.Customer)}
}

func (s *CustomerStore) Create(ctx context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID.IsZero() {
		customer.ID = primitive.NewObjectID()
	}
	if _, exists := s.customers[customer.ID]; exists {
		return store.ErrDuplicate
	}
	s.customers[customer.ID] = cloneCustomer(*customer)
	return nil
}

func (s *CustomerStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := cloneCustomer(customer)
	return &c, nil
}

func (s *CustomerStore) Find(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, error) {
	s.mu.RLock()
	matched := s.matchLocked(filter)
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.Hex() > matched[j].ID.Hex()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Skip > 0 {
		if filter.Skip >= int64(len(matched)) {
			return []models.Customer{}, nil
		}
		matched = matched[filter.Skip:]
	}
	if filter.Limit > 0 && filter.Limit < int64(len(matched)) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *CustomerStore) Update(ctx context.Context, id primitive.ObjectID, update models.CustomerUpdate, updatedAt time.Time) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	update.Apply(&customer)
	customer.UpdatedAt = updatedAt
	s.customers[id] = customer

	c := cloneCustomer(customer)
	return &c, nil
}

func (s *CustomerStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.customers, id)
	return nil
}

func (s *CustomerStore) Count(ctx context.Context, filter models.CustomerFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.matchLocked(filter))), nil
}

func (s *CustomerStore) CountByStatus(ctx context.Context, filter models.CustomerFilter) ([]models.StatusCount, error) {
	s.mu.RLock()
	matched := s.matchLocked(filter)
	s.mu.RUnlock()

	counts := make(map[models.Status]int64)
	for _, c := range matched {
		counts[c.Status]++
	}

	out := make([]models.StatusCount, 0, len(counts))
	for status, count := range counts {
		out = append(out, models.StatusCount{Status: status, Count: count})
	}
	models.SortStatusCounts(out)
	return out, nil
}

func (s *CustomerStore) matchLocked(filter models.CustomerFilter) []models.Customer {
	out := make([]models.Customer, 0)
	for _, c := range s.customers {
		if filter.Matches(&c) {
			out = append(out, cloneCustomer(c))
		}
	}
	return out
}

func cloneCustomer(c models.Customer) models.Customer {
	if c.AssignedTo != nil {
		c.AssignedTo = append([]primitive.ObjectID{}, c.AssignedTo...)
	}
	return c
}

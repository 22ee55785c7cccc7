// Package store defines persistence for users and customers.
package store

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"crm/internal/models"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

// UserStore persists user accounts. Email is unique.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, update models.UserUpdate, updatedAt time.Time) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// CustomerStore persists customer records.
type CustomerStore interface {
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	// Find returns matching customers, newest first.
	Find(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, error)
	Update(ctx context.Context, id primitive.ObjectID, update models.CustomerUpdate, updatedAt time.Time) (*models.Customer, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context, filter models.CustomerFilter) (int64, error)
	// CountByStatus groups matching customers by status. Empty groups are absent.
	CountByStatus(ctx context.Context, filter models.CustomerFilter) ([]models.StatusCount, error)
}

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

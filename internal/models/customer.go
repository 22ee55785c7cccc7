package models

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Customer defines the persisted customer document. AssignedTo and CreatedBy
// hold user ids only; the user documents are never embedded.
type Customer struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name       string               `bson:"name" json:"name"`
	Email      string               `bson:"email" json:"email"`
	Phone      string               `bson:"phone,omitempty" json:"phone,omitempty"`
	Company    string               `bson:"company,omitempty" json:"company,omitempty"`
	Status     Status               `bson:"status" json:"status"`
	AssignedTo []primitive.ObjectID `bson:"assignedTo" json:"assignedTo"`
	Notes      string               `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedBy  primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	CreatedAt  time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// IsAssignedTo reports whether userID is one of the customer's assignees.
func (c *Customer) IsAssignedTo(userID primitive.ObjectID) bool {
	for _, id := range c.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

// CustomerUpdate carries the supplied fields of an update. Nil fields are
// left untouched.
type CustomerUpdate struct {
	Name       *string
	Email      *string
	Phone      *string
	Company    *string
	Status     *Status
	AssignedTo *[]primitive.ObjectID
	Notes      *string
}

// Apply copies the supplied fields onto c.
func (u CustomerUpdate) Apply(c *Customer) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.Company != nil {
		c.Company = *u.Company
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
	if u.AssignedTo != nil {
		c.AssignedTo = append([]primitive.ObjectID{}, (*u.AssignedTo)...)
	}
	if u.Notes != nil {
		c.Notes = *u.Notes
	}
}

// CustomerQuery is what a caller asks for when listing customers.
type CustomerQuery struct {
	Status     string
	AssignedTo string
	Page       int64
	Limit      int64
}

// CustomerFilter is the store-level query after role scoping.
type CustomerFilter struct {
	Status     Status
	AssignedTo *primitive.ObjectID
	Skip       int64
	Limit      int64
}

// Matches reports whether c satisfies the status and assignee parts of f.
func (f CustomerFilter) Matches(c *Customer) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.AssignedTo != nil && !c.IsAssignedTo(*f.AssignedTo) {
		return false
	}
	return true
}

// UserRef is the minimal projection of a referenced user.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// CustomerView is a customer with its user references resolved for display.
type CustomerView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Company    string    `json:"company,omitempty"`
	Status     Status    `json:"status"`
	AssignedTo []UserRef `json:"assignedTo"`
	Notes      string    `json:"notes,omitempty"`
	CreatedBy  *UserRef  `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// StatusCount is one group of the dashboard distribution. The wire key for
// the status stays "_id" so existing dashboards keep working.
type StatusCount struct {
	Status Status `bson:"_id" json:"_id"`
	Count  int64  `bson:"count" json:"count"`
}

type DashboardStats struct {
	TotalCustomers     int64         `json:"totalCustomers"`
	StatusDistribution []StatusCount `json:"statusDistribution"`
}

// SortStatusCounts orders groups by the canonical status order.
func SortStatusCounts(counts []StatusCount) {
	sort.SliceStable(counts, func(i, j int) bool {
		return statusRank(counts[i].Status) < statusRank(counts[j].Status)
	})
}

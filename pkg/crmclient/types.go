package crmclient

import (
	"time"

	"crm/internal/models"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Customer struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Company    string    `json:"company,omitempty"`
	Status     string    `json:"status"`
	AssignedTo []UserRef `json:"assignedTo"`
	Notes      string    `json:"notes,omitempty"`
	CreatedBy  *UserRef  `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type StatusCount struct {
	Status string `json:"_id"`
	Count  int64  `json:"count"`
}

type Stats struct {
	TotalCustomers     int64         `json:"totalCustomers"`
	StatusDistribution []StatusCount `json:"statusDistribution"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

type CustomerInput struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone,omitempty"`
	Company    string   `json:"company,omitempty"`
	Status     string   `json:"status,omitempty"`
	AssignedTo []string `json:"assignedTo,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// CustomerUpdate sends only the non-nil fields.
type CustomerUpdate struct {
	Name       *string   `json:"name,omitempty"`
	Email      *string   `json:"email,omitempty"`
	Phone      *string   `json:"phone,omitempty"`
	Company    *string   `json:"company,omitempty"`
	Status     *string   `json:"status,omitempty"`
	AssignedTo *[]string `json:"assignedTo,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
}

// CustomerFilter narrows Customers. Page and Limit are sent when positive;
// the server defaults whichever is missing.
type CustomerFilter struct {
	Status     string
	AssignedTo string
	Page       int
	Limit      int
}

// StatusOptions lists the customer statuses in display order.
func StatusOptions() []string {
	out := make([]string, 0, len(models.Statuses))
	for _, s := range models.Statuses {
		out = append(out, string(s))
	}
	return out
}

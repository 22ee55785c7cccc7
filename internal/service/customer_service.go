package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"crm/internal/apperr"
	"crm/internal/authz"
	"crm/internal/metrics"
	"crm/internal/models"
	"crm/internal/store"
)

const customerNotFound = "Customer not found"

// CreateCustomerInput is a new customer as submitted by a caller.
type CreateCustomerInput struct {
	Name       string
	Email      string
	Phone      string
	Company    string
	Status     string
	AssignedTo []string
	Notes      string
}

// UpdateCustomerInput holds the fields a caller supplied. Nil means untouched.
type UpdateCustomerInput struct {
	Name       *string
	Email      *string
	Phone      *string
	Company    *string
	Status     *string
	AssignedTo *[]string
	Notes      *string
}

// CustomerService runs role-scoped customer operations.
type CustomerService struct {
	customers store.CustomerStore
	users     store.UserStore
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewCustomerService(customers store.CustomerStore, users store.UserStore, m *metrics.Metrics, logger *zap.Logger) *CustomerService {
	return &CustomerService{
		customers: customers,
		users:     users,
		metrics:   m,
		logger:    logger.With(zap.String("component", "customers")),
		now:       time.Now,
	}
}

// List returns the customers visible to caller, newest first. Team Members
// only ever see customers assigned to them, whatever assignee they ask for.
func (s *CustomerService) List(ctx context.Context, caller authz.Identity, q models.CustomerQuery) (_ []models.CustomerView, err error) {
	ctx, span := startSpan(ctx, "CustomerService.List")
	defer func() { endSpan(span, err) }()

	if err := authz.Authorize(caller, authz.ActionCustomerList); err != nil {
		return nil, err
	}

	var status models.Status
	if strings.TrimSpace(q.Status) != "" {
		status, err = models.ParseStatus(q.Status)
		if err != nil {
			return nil, apperr.Validation("invalid status", err.Error())
		}
	}

	var assignedTo *primitive.ObjectID
	if strings.TrimSpace(q.AssignedTo) != "" {
		id, err := parseObjectID(q.AssignedTo, "assignedTo")
		if err != nil {
			return nil, err
		}
		assignedTo = &id
	}

	filter := authz.CustomerScope(caller, status, assignedTo)
	if q.Page > 0 && q.Limit > 0 {
		filter.Skip = (q.Page - 1) * q.Limit
		filter.Limit = q.Limit
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	found, err := s.customers.Find(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("Error fetching customers", err)
	}

	visible := found[:0]
	for i := range found {
		if authz.Visible(caller, &found[i]) {
			visible = append(visible, found[i])
		}
	}

	return s.populate(ctx, visible)
}

// Get returns one customer. Any authenticated role may read any record.
func (s *CustomerService) Get(ctx context.Context, caller authz.Identity, rawID string) (_ *models.CustomerView, err error) {
	ctx, span := startSpan(ctx, "CustomerService.Get")
	defer func() { endSpan(span, err) }()

	if err := authz.Authorize(caller, authz.ActionCustomerRead); err != nil {
		return nil, err
	}
	id, err := parseObjectID(rawID, "id")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, customerNotFound)
	}
	return s.populateOne(ctx, customer)
}

// Create stores a new customer owned by caller. createdBy is never taken
// from the input.
func (s *CustomerService) Create(ctx context.Context, caller authz.Identity, in CreateCustomerInput) (_ *models.CustomerView, err error) {
	ctx, span := startSpan(ctx, "CustomerService.Create")
	defer func() { endSpan(span, err) }()

	if err := authz.Authorize(caller, authz.ActionCustomerCreate); err != nil {
		return nil, err
	}

	var details []string
	if strings.TrimSpace(in.Name) == "" {
		details = append(details, "name is required")
	}
	if strings.TrimSpace(in.Email) == "" {
		details = append(details, "email is required")
	}
	if len(details) > 0 {
		return nil, apperr.Validation("invalid request body", details...)
	}

	status, err := models.ParseStatus(in.Status)
	if err != nil {
		return nil, apperr.Validation("invalid status", err.Error())
	}
	assigned, err := parseObjectIDs(in.AssignedTo, "assignedTo")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if _, err := s.users.FindByID(ctx, caller.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthorized("account no longer exists", err)
		}
		return nil, apperr.Internal("database error", err)
	}

	now := s.now().UTC()
	customer := &models.Customer{
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Company:    in.Company,
		Status:     status,
		AssignedTo: assigned,
		Notes:      in.Notes,
		CreatedBy:  caller.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, apperr.Internal("Error creating customer", err)
	}

	s.metrics.CustomerMutations.WithLabelValues("create").Inc()
	s.logger.Info("customer created",
		zap.String("customer_id", customer.ID.Hex()),
		zap.String("created_by", caller.UserID.Hex()),
	)
	return s.populateOne(ctx, customer)
}

// Update writes only the supplied fields and refreshes updatedAt.
func (s *CustomerService) Update(ctx context.Context, caller authz.Identity, rawID string, in UpdateCustomerInput) (_ *models.CustomerView, err error) {
	ctx, span := startSpan(ctx, "CustomerService.Update")
	defer func() { endSpan(span, err) }()

	if err := authz.Authorize(caller, authz.ActionCustomerUpdate); err != nil {
		return nil, err
	}
	id, err := parseObjectID(rawID, "id")
	if err != nil {
		return nil, err
	}
	update, err := buildCustomerUpdate(in)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	updated, err := s.customers.Update(ctx, id, update, s.now().UTC())
	if err != nil {
		return nil, storeError(err, customerNotFound)
	}

	s.metrics.CustomerMutations.WithLabelValues("update").Inc()
	s.logger.Info("customer updated",
		zap.String("customer_id", id.Hex()),
		zap.String("updated_by", caller.UserID.Hex()),
	)
	return s.populateOne(ctx, updated)
}

// Delete removes a customer. The role check runs before anything else, so a
// forbidden caller never reaches the store.
func (s *CustomerService) Delete(ctx context.Context, caller authz.Identity, rawID string) (err error) {
	ctx, span := startSpan(ctx, "CustomerService.Delete")
	defer func() { endSpan(span, err) }()

	if err := authz.Authorize(caller, authz.ActionCustomerDelete); err != nil {
		s.logger.Warn("customer delete denied",
			zap.String("user_id", caller.UserID.Hex()),
			zap.String("role", string(caller.Role)),
		)
		return err
	}
	id, err := parseObjectID(rawID, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.customers.Delete(ctx, id); err != nil {
		return storeError(err, customerNotFound)
	}

	s.metrics.CustomerMutations.WithLabelValues("delete").Inc()
	s.logger.Info("customer deleted",
		zap.String("customer_id", id.Hex()),
		zap.String("deleted_by", caller.UserID.Hex()),
	)
	return nil
}

// Stats counts the customers in caller's scope, in total and per status.
func (s *CustomerService) Stats(ctx context.Context, caller authz.Identity) (_ *models.DashboardStats, err error) {
	ctx, span := startSpan(ctx, "CustomerService.Stats")
	defer func() { endSpan(span, err) }()

	if err := authz.Authorize(caller, authz.ActionCustomerStats); err != nil {
		return nil, err
	}
	filter := authz.CustomerScope(caller, "", nil)

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	total, err := s.customers.Count(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("Error fetching stats", err)
	}
	groups, err := s.customers.CountByStatus(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("Error fetching stats", err)
	}

	distribution := make([]models.StatusCount, 0, len(groups))
	for _, g := range groups {
		if g.Count > 0 {
			distribution = append(distribution, g)
		}
	}
	models.SortStatusCounts(distribution)

	return &models.DashboardStats{
		TotalCustomers:     total,
		StatusDistribution: distribution,
	}, nil
}

func buildCustomerUpdate(in UpdateCustomerInput) (models.CustomerUpdate, error) {
	var update models.CustomerUpdate

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return update, apperr.Validation("invalid request body", "name must not be empty")
		}
		name := *in.Name
		update.Name = &name
	}
	if in.Email != nil {
		if strings.TrimSpace(*in.Email) == "" {
			return update, apperr.Validation("invalid request body", "email must not be empty")
		}
		email := *in.Email
		update.Email = &email
	}
	if in.Phone != nil {
		phone := *in.Phone
		update.Phone = &phone
	}
	if in.Company != nil {
		company := *in.Company
		update.Company = &company
	}
	if in.Status != nil {
		status, err := models.ParseStatus(*in.Status)
		if err != nil || strings.TrimSpace(*in.Status) == "" {
			return update, apperr.Validation("invalid status", "status must be one of New, Contacted, In Progress, Closed")
		}
		update.Status = &status
	}
	if in.AssignedTo != nil {
		ids, err := parseObjectIDs(*in.AssignedTo, "assignedTo")
		if err != nil {
			return update, err
		}
		update.AssignedTo = &ids
	}
	if in.Notes != nil {
		notes := *in.Notes
		update.Notes = &notes
	}
	return update, nil
}

func (s *CustomerService) populateOne(ctx context.Context, c *models.Customer) (*models.CustomerView, error) {
	views, err := s.populate(ctx, []models.Customer{*c})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// populate resolves assignee and creator ids with one user lookup.
// Assignees that no longer exist are dropped; a missing creator keeps its id.
func (s *CustomerService) populate(ctx context.Context, customers []models.Customer) ([]models.CustomerView, error) {
	views := make([]models.CustomerView, 0, len(customers))
	if len(customers) == 0 {
		return views, nil
	}

	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	collect := func(id primitive.ObjectID) {
		if id.IsZero() {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for i := range customers {
		for _, id := range customers[i].AssignedTo {
			collect(id)
		}
		collect(customers[i].CreatedBy)
	}

	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("database error", err)
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	for i := range customers {
		c := &customers[i]
		view := models.CustomerView{
			ID:         c.ID.Hex(),
			Name:       c.Name,
			Email:      c.Email,
			Phone:      c.Phone,
			Company:    c.Company,
			Status:     c.Status,
			AssignedTo: make([]models.UserRef, 0, len(c.AssignedTo)),
			Notes:      c.Notes,
			CreatedAt:  c.CreatedAt,
			UpdatedAt:  c.UpdatedAt,
		}
		for _, id := range c.AssignedTo {
			if u, ok := byID[id]; ok {
				view.AssignedTo = append(view.AssignedTo, models.UserRef{ID: u.ID.Hex(), Name: u.Name, Email: u.Email})
			}
		}
		if u, ok := byID[c.CreatedBy]; ok {
			view.CreatedBy = &models.UserRef{ID: u.ID.Hex(), Name: u.Name}
		} else if !c.CreatedBy.IsZero() {
			view.CreatedBy = &models.UserRef{ID: c.CreatedBy.Hex()}
		}
		views = append(views, view)
	}
	return views, nil
}

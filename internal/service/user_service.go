package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"crm/internal/apperr"
	"crm/internal/authz"
	"crm/internal/cache"
	"crm/internal/metrics"
	"crm/internal/models"
	"crm/internal/store"
)

const userNotFound = "User not found"

// UpdateUserInput holds the account fields an admin supplied.
type UpdateUserInput struct {
	Name  *string
	Email *string
	Role  *string
}

// UserService serves profiles, the team roster and account administration.
type UserService struct {
	users   store.UserStore
	roster  cache.RosterCache
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewUserService(users store.UserStore, roster cache.RosterCache, m *metrics.Metrics, logger *zap.Logger) *UserService {
	return &UserService{
		users:   users,
		roster:  roster,
		metrics: m,
		logger:  logger.With(zap.String("component", "users")),
		now:     time.Now,
	}
}

// Me returns the caller's own profile.
func (s *UserService) Me(ctx context.Context, caller authz.Identity) (_ *models.PublicUser, err error) {
	ctx, span := startSpan(ctx, "UserService.Me")
	defer func() { endSpan(span, err) }()

	if err := authz.Authorize(caller, authz.ActionProfileRead); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := s.users.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, storeError(err, userNotFound)
	}
	public := user.Public()
	return &public, nil
}

// TeamMembers lists every account, any role, for assignment pickers.
func (s *UserService) TeamMembers(ctx context.Context, caller authz.Identity) (_ []models.PublicUser, err error) {
	ctx, span := startSpan(ctx, "UserService.TeamMembers")
	defer func() { endSpan(span, err) }()

	if err := authz.Authorize(caller, authz.ActionTeamRoster); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	cached, ok, err := s.roster.Get(ctx)
	if err != nil {
		s.logger.Warn("roster cache read failed", zap.Error(err))
	}
	if ok {
		s.metrics.RosterCacheHits.Inc()
		return cached, nil
	}
	s.metrics.RosterCacheMisses.Inc()

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Internal("database error", err)
	}
	roster := models.PublicUsers(users)
	sortByName(roster)

	if err := s.roster.Set(ctx, roster); err != nil {
		s.logger.Warn("roster cache write failed", zap.Error(err))
	}
	return roster, nil
}

// List returns every account for managers.
func (s *UserService) List(ctx context.Context, caller authz.Identity) (_ []models.PublicUser, err error) {
	ctx, span := startSpan(ctx, "UserService.List")
	defer func() { endSpan(span, err) }()

	if err := authz.Authorize(caller, authz.ActionUserList); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Internal("database error", err)
	}
	out := models.PublicUsers(users)
	sortByName(out)
	return out, nil
}

func (s *UserService) Get(ctx context.Context, caller authz.Identity, rawID string) (_ *models.PublicUser, err error) {
	ctx, span := startSpan(ctx, "UserService.Get")
	defer func() { endSpan(span, err) }()

	if err := authz.Authorize(caller, authz.ActionUserRead); err != nil {
		return nil, err
	}
	id, err := parseObjectID(rawID, "id")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, userNotFound)
	}
	public := user.Public()
	return &public, nil
}

// Update changes name, email or role of an account. Only admins reach it.
func (s *UserService) Update(ctx context.Context, caller authz.Identity, rawID string, in UpdateUserInput) (_ *models.PublicUser, err error) {
	ctx, span := startSpan(ctx, "UserService.Update")
	defer func() { endSpan(span, err) }()

	if err := authz.Authorize(caller, authz.ActionUserUpdate); err != nil {
		return nil, err
	}
	id, err := parseObjectID(rawID, "id")
	if err != nil {
		return nil, err
	}

	var update models.UserUpdate
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("invalid request body", "name must not be empty")
		}
		update.Name = &name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return nil, apperr.Validation("invalid request body", "email must not be empty")
		}
		update.Email = &email
	}
	if in.Role != nil {
		role, err := models.ParseRole(*in.Role)
		if err != nil || strings.TrimSpace(*in.Role) == "" {
			return nil, apperr.Validation("invalid role", "role must be one of Admin, CRM Manager, Team Member")
		}
		update.Role = &role
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if update.Email != nil {
		existing, err := s.users.FindByEmail(ctx, *update.Email)
		switch {
		case err == nil && existing.ID != id:
			return nil, apperr.Conflict("Email already in use")
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, apperr.Internal("database error", err)
		}
	}

	updated, err := s.users.Update(ctx, id, update, s.now().UTC())
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Conflict("Email already in use")
	}
	if err != nil {
		return nil, storeError(err, userNotFound)
	}

	s.invalidateRoster(ctx)
	s.logger.Info("user updated",
		zap.String("user_id", id.Hex()),
		zap.String("updated_by", caller.UserID.Hex()),
	)
	public := updated.Public()
	return &public, nil
}

// Delete removes an account. Customers referencing it keep the dangling id.
func (s *UserService) Delete(ctx context.Context, caller authz.Identity, rawID string) (err error) {
	ctx, span := startSpan(ctx, "UserService.Delete")
	defer func() { endSpan(span, err) }()

	if err := authz.Authorize(caller, authz.ActionUserDelete); err != nil {
		return err
	}
	id, err := parseObjectID(rawID, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.users.Delete(ctx, id); err != nil {
		return storeError(err, userNotFound)
	}

	s.invalidateRoster(ctx)
	s.logger.Info("user deleted",
		zap.String("user_id", id.Hex()),
		zap.String("deleted_by", caller.UserID.Hex()),
	)
	return nil
}

func (s *UserService) invalidateRoster(ctx context.Context) {
	if err := s.roster.Invalidate(ctx); err != nil {
		s.logger.Warn("roster invalidate failed", zap.Error(err))
	}
}

func sortByName(users []models.PublicUser) {
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].Name) < strings.ToLower(users[j].Name)
	})
}

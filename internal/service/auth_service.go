package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"crm/internal/apperr"
	"crm/internal/auth"
	"crm/internal/authz"
	"crm/internal/cache"
	"crm/internal/metrics"
	"crm/internal/models"
	"crm/internal/store"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type LoginResult struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      models.PublicUser `json:"user"`
}

// AuthService registers accounts and exchanges credentials for session tokens.
type AuthService struct {
	users   store.UserStore
	roster  cache.RosterCache
	hasher  *auth.Hasher
	tokens  *auth.TokenManager
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewAuthService(users store.UserStore, roster cache.RosterCache, hasher *auth.Hasher, tokens *auth.TokenManager, m *metrics.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:   users,
		roster:  roster,
		hasher:  hasher,
		tokens:  tokens,
		metrics: m,
		logger:  logger.With(zap.String("component", "auth")),
		now:     time.Now,
	}
}

// Register creates an account. It does not sign the caller in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (_ *models.PublicUser, err error) {
	ctx, span := startSpan(ctx, "AuthService.Register")
	defer func() { endSpan(span, err) }()

	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	var details []string
	if name == "" {
		details = append(details, "name is required")
	}
	if email == "" {
		details = append(details, "email is required")
	}
	if in.Password == "" {
		details = append(details, "password is required")
	}
	if len(details) > 0 {
		return nil, apperr.Validation("invalid request body", details...)
	}

	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, apperr.Validation("invalid role", err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("User already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("database error", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal("could not hash password", err)
	}

	now := s.now().UTC()
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Internal("database error", err)
	}

	if err := s.roster.Invalidate(ctx); err != nil {
		s.logger.Warn("roster invalidate failed", zap.Error(err))
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.Hex()),
		zap.String("role", string(user.Role)),
	)
	public := user.Public()
	return &public, nil
}

// Login verifies credentials. Unknown email and wrong password fail with the
// same error value.
func (s *AuthService) Login(ctx context.Context, email, password string) (_ *LoginResult, err error) {
	ctx, span := startSpan(ctx, "AuthService.Login")
	defer func() { endSpan(span, err) }()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("invalid request body", "email and password are required")
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.hasher.Burn(password)
		s.metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Internal("database error", err)
	}

	ok, err := s.hasher.Check(user.PasswordHash, password)
	if err != nil {
		s.logger.Error("stored password hash unreadable", zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}
	if !ok {
		s.metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, apperr.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(authz.Identity{UserID: user.ID, Role: user.Role})
	if err != nil {
		return nil, apperr.Internal("could not issue token", err)
	}

	s.metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.logger.Info("user logged in", zap.String("user_id", user.ID.Hex()))

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Public(),
	}, nil
}

// Verify turns a raw bearer token into the caller identity.
func (s *AuthService) Verify(raw string) (authz.Identity, error) {
	return s.tokens.Verify(raw)
}

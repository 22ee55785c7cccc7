package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"crm/internal/config"
	"crm/internal/models"
	"crm/internal/service"
	"crm/internal/store"
)

// EnsureAdmin creates the configured admin account on start if it is missing.
// Nothing happens when ADMIN_EMAIL is unset.
func EnsureAdmin(lc fx.Lifecycle, cfg config.Config, users store.UserStore, authSvc *service.AuthService, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureAdmin(ctx, cfg, users, authSvc, logger)
		},
	})
}

func ensureAdmin(ctx context.Context, cfg config.Config, users store.UserStore, authSvc *service.AuthService, logger *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return nil
	}
	if strings.TrimSpace(cfg.AdminPassword) == "" {
		return fmt.Errorf("admin bootstrap missing password")
	}

	existing, err := users.FindByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			logger.Warn("bootstrap admin email belongs to a non-admin account",
				zap.String("email", email),
				zap.String("role", string(existing.Role)),
			)
		}
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("bootstrap lookup user: %w", err)
	}

	created, err := authSvc.Register(ctx, service.RegisterInput{
		Name:     cfg.AdminName,
		Email:    email,
		Password: cfg.AdminPassword,
		Role:     string(models.RoleAdmin),
	})
	if err != nil {
		return fmt.Errorf("bootstrap create user: %w", err)
	}

	logger.Info("bootstrap admin user created",
		zap.String("email", created.Email),
		zap.String("user_id", created.ID),
	)
	return nil
}

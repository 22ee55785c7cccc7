package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"crm/internal/apperr"
	"crm/internal/authz"
	"crm/internal/models"
)

// Claims is the signed session payload.
type Claims struct {
	UserID string      `json:"userId"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Issue signs a token for id that expires after the configured TTL.
func (m *TokenManager) Issue(id authz.Identity) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)
	claims := &Claims{
		UserID: id.UserID.Hex(),
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.Hex(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses raw and returns the identity it carries. Every failure is
// reported as apperr.KindUnauthorized.
func (m *TokenManager) Verify(raw string) (authz.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return authz.Identity{}, apperr.Unauthorized("missing token", nil)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return authz.Identity{}, apperr.Unauthorized("token expired", err)
		}
		return authz.Identity{}, apperr.Unauthorized("invalid token", err)
	}
	if !token.Valid {
		return authz.Identity{}, apperr.Unauthorized("invalid token", jwt.ErrSignatureInvalid)
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return authz.Identity{}, apperr.Unauthorized("invalid token", err)
	}
	if !claims.Role.Valid() {
		return authz.Identity{}, apperr.Unauthorized("invalid token", fmt.Errorf("unknown role %q", claims.Role))
	}

	return authz.Identity{UserID: userID, Role: claims.Role}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		return "", apperr.Unauthorized("missing token", nil)
	}

	parts := strings.Fields(raw)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperr.Unauthorized("invalid token", nil)
	}
	return parts[1], nil
}

// Package cache holds the team roster cache.
package cache

//go:generate mockgen -source=roster.go -destination=mocks/mock_roster.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crm/internal/models"
)

const rosterKey = "crm:roster:v1"

// RosterCache stores the public team roster. A miss is reported with ok false.
type RosterCache interface {
	Get(ctx context.Context) (users []models.PublicUser, ok bool, err error)
	Set(ctx context.Context, users []models.PublicUser) error
	Invalidate(ctx context.Context) error
}

// RedisRoster implements RosterCache on Redis.
type RedisRoster struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ RosterCache = (*RedisRoster)(nil)

func NewRedisRoster(client redis.UniversalClient, ttl time.Duration) *RedisRoster {
	return &RedisRoster{client: client, ttl: ttl}
}

func (r *RedisRoster) Get(ctx context.Context) ([]models.PublicUser, bool, error) {
	payload, err := r.client.Get(ctx, rosterKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load roster: %w", err)
	}

	var users []models.PublicUser
	if err := json.Unmarshal(payload, &users); err != nil {
		return nil, false, fmt.Errorf("decode roster: %w", err)
	}
	return users, true, nil
}

func (r *RedisRoster) Set(ctx context.Context, users []models.PublicUser) error {
	payload, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("marshal roster: %w", err)
	}
	if err := r.client.Set(ctx, rosterKey, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("persist roster: %w", err)
	}
	return nil
}

func (r *RedisRoster) Invalidate(ctx context.Context) error {
	if err := r.client.Del(ctx, rosterKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete roster: %w", err)
	}
	return nil
}

// Noop never holds anything. It is used when Redis is not configured.
type Noop struct{}

var _ RosterCache = Noop{}

func (Noop) Get(context.Context) ([]models.PublicUser, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, []models.PublicUser) error         { return nil }
func (Noop) Invalidate(context.Context) error                       { return nil }

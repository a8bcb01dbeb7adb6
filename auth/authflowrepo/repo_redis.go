package authflowrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepo keeps sign-in flows in Redis so the callback can land on any
// instance. Flows expire through Redis TTLs.
type RedisRepo struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	nowTime func() time.Time
}

var _ Repo = (*RedisRepo)(nil)

// NewRedisRepo creates a repo over client. The caller keeps ownership of the client.
func NewRedisRepo(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisRepo {
	if prefix == "" {
		prefix = "reminder:authflow:"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisRepo{client: client, prefix: prefix, ttl: ttl, nowTime: time.Now}
}

func (r *RedisRepo) Upsert(ctx context.Context, state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}

	stored := *authState
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.nowTime()
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("[RedisRepo Upsert] %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+state, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Upsert] %w", err)
	}
	return nil
}

// Take reads and deletes the flow in one GETDEL so concurrent callbacks
// cannot both use it.
func (r *RedisRepo) Take(ctx context.Context, state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	data, err := r.client.GetDel(ctx, r.prefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[RedisRepo Take] %w", err)
	}

	var authState AuthFlowState
	if err := json.Unmarshal(data, &authState); err != nil {
		return nil, fmt.Errorf("[RedisRepo Take] %w", err)
	}
	return &authState, nil
}

func (r *RedisRepo) Delete(ctx context.Context, state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if err := r.client.Del(ctx, r.prefix+state).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Delete] %w", err)
	}
	return nil
}

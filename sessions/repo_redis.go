package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
	"github.com/redis/go-redis/v9"
)

// RedisRepo is a Redis-backed Repo for multi-instance deployments.
// Records are sealed with a Codec and expire through Redis TTLs.
type RedisRepo struct {
	client redis.UniversalClient
	codec  *Codec
	prefix string
}

var _ Repo = (*RedisRepo)(nil)

// NewRedisRepo creates a repo over an existing client. The repo takes ownership of the client.
func NewRedisRepo(client redis.UniversalClient, codec *Codec, prefix string) *RedisRepo {
	if prefix == "" {
		prefix = "reminder:session:"
	}
	return &RedisRepo{client: client, codec: codec, prefix: prefix}
}

// ConnectRedis creates a client for addr and verifies connectivity with a bounded Ping.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (r *RedisRepo) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisRepo) Get(ctx context.Context, sessionID string) (Session, error) {
	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("[RedisRepo Get] %w", err)
	}

	s, err := r.codec.Open(data)
	if err != nil {
		return Session{}, fmt.Errorf("[RedisRepo Get] %w", err)
	}
	if s.IsExpired(time.Now()) {
		return Session{}, apperrors.ErrSessionNotFound
	}
	return s, nil
}

func (r *RedisRepo) Upsert(ctx context.Context, session Session) error {
	if session.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = time.Until(session.ExpiresAt)
		if ttl <= 0 {
			return r.Delete(ctx, session.ID)
		}
	}

	data, err := r.codec.Seal(session)
	if err != nil {
		return fmt.Errorf("[RedisRepo Upsert] %w", err)
	}
	if err := r.client.Set(ctx, r.key(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Upsert] %w", err)
	}
	return nil
}

func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Delete] %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts records when their TTL elapses.
func (r *RedisRepo) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (r *RedisRepo) Close() error {
	return r.client.Close()
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"league-console/internal/model"
	"league-console/internal/session"
)

const sessionKeyPrefix = "console:session:"

// RedisSessionRepository keeps console sessions in redis with a sliding
// TTL: every save pushes the expiry out again.
type RedisSessionRepository struct {
	client redis.UniversalClient
	codec  *session.Codec
	ttl    time.Duration
}

func NewRedisSessionRepository(client redis.UniversalClient, codec *session.Codec, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, codec: codec, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *RedisSessionRepository) Load(ctx context.Context, id string) (model.Session, error) {
	payload, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Session{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("load session: %w", err)
	}

	stored, err := r.codec.Decode(payload)
	if err != nil {
		slog.Warn("discarding unreadable session", "session_id", id, "error", err)
		if delErr := r.Delete(ctx, id); delErr != nil {
			return model.Session{}, delErr
		}
		return model.Session{}, model.ErrSessionNotFound
	}

	return stored, nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, id string, s model.Session) error {
	payload, err := r.codec.Encode(s)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, sessionKey(id), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

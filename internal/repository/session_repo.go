package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"league-console/internal/model"
	"league-console/internal/session"
)

// SessionRepository keeps console sessions in postgres. Payloads go through
// the session codec, so tokens are sealed at rest when a secret is set.
type SessionRepository struct {
	pool  *pgxpool.Pool
	codec *session.Codec
	ttl   time.Duration
}

func NewSessionRepository(pool *pgxpool.Pool, codec *session.Codec, ttl time.Duration) *SessionRepository {
	return &SessionRepository{pool: pool, codec: codec, ttl: ttl}
}

func (r *SessionRepository) Load(ctx context.Context, id string) (model.Session, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM console_sessions
		 WHERE id = $1 AND expires_at > now()`, id).Scan(&payload)

	if errors.Is(err, pgx.ErrNoRows) {
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

func (r *SessionRepository) Save(ctx context.Context, id string, s model.Session) error {
	payload, err := r.codec.Encode(s)
	if err != nil {
		return err
	}

	var userID *string
	if s.User != nil && s.User.ID != "" {
		userID = &s.User.ID
	}

	now := time.Now().UTC()
	_, err = r.pool.Exec(ctx,
		`INSERT INTO console_sessions (id, payload, user_id, created_at, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET payload = EXCLUDED.payload,
		     user_id = EXCLUDED.user_id,
		     updated_at = EXCLUDED.updated_at,
		     expires_at = EXCLUDED.expires_at`,
		id, payload, userID, now, now.Add(r.ttl))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM console_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteForUser ends every stored session of a user.
func (r *SessionRepository) DeleteForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM console_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM console_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// StartCleanupTicker removes expired sessions every interval until ctx is
// done.
func (r *SessionRepository) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := r.CleanExpired(ctx)
			if err != nil {
				slog.Warn("session cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("expired sessions removed", "count", removed)
			}
		}
	}
}

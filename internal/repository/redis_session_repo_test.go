package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"league-console/internal/model"
	"league-console/internal/session"
)

func newRedisRepo(t *testing.T, secret string) (*RedisSessionRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	codec, err := session.NewCodec(secret)
	require.NoError(t, err)

	return NewRedisSessionRepository(client, codec, time.Hour), mr
}

func sampleSession() model.Session {
	return model.Session{
		User: &model.User{
			ID:               "u-league",
			Username:         "league.admin",
			Roles:            []model.Role{model.RoleLeagueAdmin},
			TenantID:         "T1",
			ManagingLeagueID: "L1",
		},
		Tokens: &model.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"},
	}
}

func TestRedisSessionRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo, mr := newRedisRepo(t, "s3cret")
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "sid-1", sampleSession()))

	raw, err := mr.Get(sessionKey("sid-1"))
	require.NoError(t, err)
	assert.NotContains(t, raw, "access-1")

	loaded, err := repo.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, sampleSession(), loaded)

	require.NoError(t, repo.Delete(ctx, "sid-1"))
	_, err = repo.Load(ctx, "sid-1")
	require.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestRedisSessionRepositoryExpires(t *testing.T) {
	t.Parallel()

	repo, mr := newRedisRepo(t, "")
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "sid-1", sampleSession()))
	assert.Equal(t, time.Hour, mr.TTL(sessionKey("sid-1")))

	mr.FastForward(2 * time.Hour)

	_, err := repo.Load(ctx, "sid-1")
	require.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestRedisSessionRepositoryDropsUnreadablePayload(t *testing.T) {
	t.Parallel()

	repo, mr := newRedisRepo(t, "s3cret")
	require.NoError(t, mr.Set(sessionKey("sid-1"), "not a sealed session"))

	_, err := repo.Load(context.Background(), "sid-1")
	require.ErrorIs(t, err, model.ErrSessionNotFound)
	assert.False(t, mr.Exists(sessionKey("sid-1")))
}

func TestRedisSessionRepositoryBacksStore(t *testing.T) {
	t.Parallel()

	repo, _ := newRedisRepo(t, "s3cret")
	ctx := context.Background()

	manager := session.NewManager(session.ManagerConfig{BackendURL: "http://backend.invalid", Persister: repo})
	require.NoError(t, repo.Save(ctx, "3f2a7c1e-0d4b-4c55-9a7e-2b1d7d1f9c10", sampleSession()))

	store, created, err := manager.Open(ctx, "3f2a7c1e-0d4b-4c55-9a7e-2b1d7d1f9c10", nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "access-1", store.Client().AuthToken())
	assert.Equal(t, "league.admin", store.User().Username)
}

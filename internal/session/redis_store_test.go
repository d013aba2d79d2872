package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Ping(context.Background()))

	_, err = NewRedisStore("not a url")
	require.Error(t, err)
}

func TestRefreshSessionLivesUntilExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRefreshSession(ctx, "hash-1", "user-1", time.Now().Add(2*time.Hour)))

	ttl := mr.TTL("refresh:hash-1")
	assert.Greater(t, ttl, 119*time.Minute)
	assert.LessOrEqual(t, ttl, 2*time.Hour)

	var data TokenData
	raw, err := mr.Get("refresh:hash-1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	assert.Equal(t, "user-1", data.UserID)

	mr.FastForward(time.Hour)
	userID, err := store.LookupRefreshSession(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	mr.FastForward(time.Hour + time.Second)
	_, err = store.LookupRefreshSession(ctx, "hash-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveExpiredRefreshSessionStoresNothing(t *testing.T) {
	store, mr := newTestStore(t)

	require.NoError(t, store.SaveRefreshSession(context.Background(), "hash-old", "user-1", time.Now().Add(-time.Second)))
	assert.False(t, mr.Exists("refresh:hash-old"))
}

// Refresh consumes the presented token and binds the user to a new one.
func TestRefreshRotation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	expires := time.Now().Add(24 * time.Hour)

	require.NoError(t, store.SaveRefreshSession(ctx, "gen-1", "user-1", expires))
	require.NoError(t, store.SaveRefreshSession(ctx, "other", "user-2", expires))

	chain := []string{"gen-1", "gen-2", "gen-3"}
	for i := 1; i < len(chain); i++ {
		current, next := chain[i-1], chain[i]
		userID, err := store.LookupRefreshSession(ctx, current)
		require.NoError(t, err)
		require.NoError(t, store.RevokeRefreshSession(ctx, current))
		require.NoError(t, store.SaveRefreshSession(ctx, next, userID, expires))

		_, err = store.LookupRefreshSession(ctx, current)
		require.ErrorIs(t, err, ErrNotFound, "rotated-out token %s", current)
	}

	userID, err := store.LookupRefreshSession(ctx, "gen-3")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	userID, err = store.LookupRefreshSession(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "user-2", userID)

	// revoking twice is harmless
	require.NoError(t, store.RevokeRefreshSession(ctx, "gen-1"))
}

func TestLookupRejectsUnusableRecords(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("refresh:blank", `{"user_id":""}`))
	_, err := store.LookupRefreshSession(ctx, "blank")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mr.Set("refresh:garbled", "{"))
	_, err = store.LookupRefreshSession(ctx, "garbled")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestRevokedAccessTokenLapsesWithToken(t *testing.T) {
	cases := []struct {
		name     string
		lifetime time.Duration
		stored   bool
	}{
		{name: "access token", lifetime: 15 * time.Minute, stored: true},
		{name: "login challenge", lifetime: 5 * time.Minute, stored: true},
		{name: "already expired", lifetime: -time.Minute, stored: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, mr := newTestStore(t)
			ctx := context.Background()

			require.NoError(t, store.RevokeAccessToken(ctx, "jti-1", time.Now().Add(tc.lifetime)))
			revoked, err := store.IsAccessTokenRevoked(ctx, "jti-1")
			require.NoError(t, err)
			assert.Equal(t, tc.stored, revoked)
			if !tc.stored {
				assert.False(t, mr.Exists("revoked:jti-1"))
				return
			}

			ttl := mr.TTL("revoked:jti-1")
			assert.Greater(t, ttl, tc.lifetime-time.Minute)
			assert.LessOrEqual(t, ttl, tc.lifetime)

			mr.FastForward(tc.lifetime + time.Second)
			revoked, err = store.IsAccessTokenRevoked(ctx, "jti-1")
			require.NoError(t, err)
			assert.False(t, revoked)
		})
	}
}

func TestRevocationsAndRefreshSessionsDoNotCollide(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	require.NoError(t, store.SaveRefreshSession(ctx, "same-id", "user-1", expires))
	revoked, err := store.IsAccessTokenRevoked(ctx, "same-id")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.RevokeAccessToken(ctx, "same-id", expires))
	userID, err := store.LookupRefreshSession(ctx, "same-id")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.ElementsMatch(t, []string{"refresh:same-id", "revoked:same-id"}, mr.Keys())
}

func TestStoreReportsUnreachableRedis(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	mr.Close()

	_, err := store.LookupRefreshSession(ctx, "hash-1")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)

	_, err = store.IsAccessTokenRevoked(ctx, "jti-1")
	require.Error(t, err)
	require.Error(t, store.Ping(ctx))
}

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/reminder-bff/auth"
	"github.com/jrsteele09/reminder-bff/backend"
	"github.com/jrsteele09/reminder-bff/internal/utils"
	"github.com/jrsteele09/reminder-bff/sessions"
	"github.com/stretchr/testify/require"
)

func TestResolve_NoReference(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	res := f.resolver.Resolve(context.Background(), "")
	require.False(t, res.Authenticated)
	require.False(t, res.HasSession())
	require.Empty(t, res.AccessToken)
}

func TestResolve_ForgedReference(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	res := f.resolver.Resolve(context.Background(), "eyJhbGciOiJIUzI1NiJ9.e30.c2lnbmF0dXJl")
	require.False(t, res.Authenticated)
}

func TestResolve_MissingSession(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	ref, err := f.signer.Sign("not-stored", time.Now().Add(time.Hour))
	require.NoError(t, err)

	res := f.resolver.Resolve(context.Background(), ref)
	require.False(t, res.Authenticated)
	require.False(t, res.HasSession())
}

func TestResolve_FreshSession(t *testing.T) {
	f := setupTestFixture(t, time.Minute)
	ref := f.storeSession(t, sessions.Session{
		AccessToken:        "current",
		AccessTokenExpires: time.Now().Add(time.Hour).UnixMilli(),
		RefreshToken:       "r",
		User:               sessions.UserProfile{Email: testUserEmail},
	})

	res := f.resolver.Resolve(context.Background(), ref)
	require.True(t, res.Authenticated)
	require.Equal(t, "current", res.AccessToken)
	require.Equal(t, testUserEmail, res.User.Email)
	require.False(t, res.TokenChanged)
	require.Zero(t, f.refresher.calls.Load())
	require.Zero(t, f.backend.meCalls.Load(), "profile is only enriched on request")
}

func TestResolve_RefreshesAndPersists(t *testing.T) {
	f := setupTestFixture(t, time.Minute)
	ref := f.storeSession(t, sessions.Session{
		ID:                 "sess-refresh",
		AccessToken:        "stale",
		AccessTokenExpires: time.Now().Add(-time.Second).UnixMilli(),
		RefreshToken:       "r",
	})

	res := f.resolver.Resolve(context.Background(), ref)
	require.True(t, res.Authenticated)
	require.Equal(t, "refreshed", res.AccessToken)
	require.True(t, res.TokenChanged)

	stored, err := f.repo.Get(context.Background(), "sess-refresh")
	require.NoError(t, err)
	require.Equal(t, "refreshed", stored.AccessToken)
	require.Equal(t, "r", stored.RefreshToken)
}

func TestResolve_RefreshFailureIsUnauthenticated(t *testing.T) {
	f := setupTestFixture(t, time.Minute)
	f.refresher.fail = true
	ref := f.storeSession(t, sessions.Session{
		ID:                 "sess-fail",
		AccessToken:        "stale",
		AccessTokenExpires: time.Now().Add(-time.Second).UnixMilli(),
		RefreshToken:       "r",
	})

	res := f.resolver.Resolve(context.Background(), ref)
	require.False(t, res.Authenticated)
	require.Empty(t, res.AccessToken)
	require.Equal(t, sessions.ErrorRefreshAccessToken, res.Error)
	require.True(t, res.HasSession())

	stored, err := f.repo.Get(context.Background(), "sess-fail")
	require.NoError(t, err)
	require.Equal(t, sessions.ErrorRefreshAccessToken, stored.Error)
	require.Equal(t, "stale", stored.AccessToken)

	// An errored session stays unusable without another refresh attempt.
	f.refresher.fail = false
	res = f.resolver.Resolve(context.Background(), ref)
	require.False(t, res.Authenticated)
	require.Equal(t, sessions.ErrorRefreshAccessToken, res.Error)
	require.Equal(t, int32(1), f.refresher.calls.Load())
}

func TestResolve_WithProfileEnriches(t *testing.T) {
	f := setupTestFixture(t, time.Minute)
	ref := f.storeSession(t, sessions.Session{
		ID:                 "sess-profile",
		AccessToken:        "current",
		AccessTokenExpires: time.Now().Add(time.Hour).UnixMilli(),
		User:               sessions.UserProfile{Email: testUserEmail, Credits: 1},
	})

	res := f.resolver.Resolve(context.Background(), ref, auth.WithProfile())
	require.True(t, res.Authenticated)
	require.Equal(t, 5, res.User.Credits)
	require.True(t, res.User.IsEmailVerified)

	stored, err := f.repo.Get(context.Background(), "sess-profile")
	require.NoError(t, err)
	require.Equal(t, 5, stored.User.Credits)
	require.False(t, stored.ProfileRefreshedAt.IsZero())

	// Within the interval the cached profile is served.
	_ = f.resolver.Resolve(context.Background(), ref, auth.WithProfile())
	require.Equal(t, int32(1), f.backend.meCalls.Load())
}

func TestResolve_ProfileWriteKeepsConcurrentlyRefreshedTokens(t *testing.T) {
	f := setupTestFixture(t, time.Minute)
	ref := f.storeSession(t, sessions.Session{
		ID:                 "sess-race",
		Provider:           sessions.ProviderGoogle,
		AccessToken:        "T0",
		AccessTokenExpires: time.Now().Add(time.Hour).UnixMilli(),
		RefreshToken:       "R0",
		User:               sessions.UserProfile{Email: testUserEmail, Credits: 1},
	})

	rotatedExpiry := time.Now().Add(2 * time.Hour).UnixMilli()
	f.backend.me = &backend.UserAttributes{Credits: utils.Ptr(7), IsEmailVerified: utils.Ptr(true)}
	f.backend.onMe = func() {
		// Another request refreshes and rotates the tokens while the profile is in flight.
		s, err := f.repo.Get(context.Background(), "sess-race")
		require.NoError(t, err)
		s.AccessToken = "T1"
		s.RefreshToken = "R1"
		s.AccessTokenExpires = rotatedExpiry
		require.NoError(t, f.repo.Upsert(context.Background(), s))
	}

	res := f.resolver.Resolve(context.Background(), ref, auth.WithProfile())
	require.True(t, res.Authenticated)
	require.Equal(t, 7, res.User.Credits)
	require.Equal(t, "T1", res.AccessToken)
	require.True(t, res.TokenChanged)

	stored, err := f.repo.Get(context.Background(), "sess-race")
	require.NoError(t, err)
	require.Equal(t, "T1", stored.AccessToken)
	require.Equal(t, "R1", stored.RefreshToken)
	require.Equal(t, rotatedExpiry, stored.AccessTokenExpires)
	require.Equal(t, 7, stored.User.Credits)
	require.True(t, stored.User.IsEmailVerified)
	require.False(t, stored.ProfileRefreshedAt.IsZero())
}

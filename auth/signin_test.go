package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/reminder-bff/auth"
	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
	"github.com/jrsteele09/reminder-bff/sessions"
	"github.com/stretchr/testify/require"
)

func TestPasswordSignIn(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	backendToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "42",
		"name": "Jane Doe",
		"exp":  exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	f.backend.loginToken = backendToken

	signedIn, err := f.service.PasswordSignIn(context.Background(), " "+testUserEmail+" ", testPassword)
	require.NoError(t, err)
	require.Equal(t, sessions.ProviderCredentials, signedIn.Session.Provider)
	require.Equal(t, backendToken, signedIn.Session.AccessToken)
	require.Equal(t, exp.UnixMilli(), signedIn.Session.AccessTokenExpires)
	require.Empty(t, signedIn.Session.RefreshToken)
	require.Equal(t, "42", signedIn.Session.User.ID)
	require.Equal(t, "Jane Doe", signedIn.Session.User.Name)
	require.Equal(t, testUserEmail, signedIn.Session.User.Email)

	res := f.resolver.Resolve(context.Background(), signedIn.Reference)
	require.True(t, res.Authenticated)
	require.Equal(t, backendToken, res.AccessToken)
}

func TestPasswordSignIn_OpaqueTokenUsesDefaultExpiry(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	signedIn, err := f.service.PasswordSignIn(context.Background(), testUserEmail, testPassword)
	require.NoError(t, err)
	require.InDelta(t, time.Now().Add(time.Hour).UnixMilli(), signedIn.Session.AccessTokenExpires, 5_000)
}

func TestPasswordSignIn_InvalidCredentials(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	_, err := f.service.PasswordSignIn(context.Background(), testUserEmail, "wrong")
	require.Equal(t, apperrors.KindInvalidCredentials, apperrors.KindOf(err))

	_, err = f.service.PasswordSignIn(context.Background(), "", "")
	require.Equal(t, apperrors.KindInvalidCredentials, apperrors.KindOf(err))
}

func TestGoogleSignIn(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	consentURL, err := f.service.BeginGoogleSignIn(context.Background(), "/profile")
	require.NoError(t, err)
	require.Contains(t, consentURL, f.google.state)
	require.NotEmpty(t, f.google.nonce)
	require.NotEmpty(t, f.google.verifier)

	signedIn, err := f.service.CompleteGoogleSignIn(context.Background(), f.google.state, "good-code")
	require.NoError(t, err)
	require.Equal(t, "/profile", signedIn.ReturnURL)
	require.Equal(t, sessions.ProviderGoogle, signedIn.Session.Provider)
	require.Equal(t, "google-id-token", signedIn.Session.AccessToken)
	require.Equal(t, "google-refresh", signedIn.Session.RefreshToken)
	require.Equal(t, testGoogleSub, signedIn.Session.User.ID)
	require.Equal(t, []string{testUserEmail + "|" + testGoogleSub}, f.backend.googleLogins)

	// The state is single use.
	_, err = f.service.CompleteGoogleSignIn(context.Background(), f.google.state, "good-code")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestGoogleSignIn_BackendRejection(t *testing.T) {
	f := setupTestFixture(t, time.Minute)
	f.backend.googleErr = apperrors.New(apperrors.KindUpstreamUnavailable, "/google-login returned 500", nil)

	_, err := f.service.BeginGoogleSignIn(context.Background(), "/")
	require.NoError(t, err)

	_, err = f.service.CompleteGoogleSignIn(context.Background(), f.google.state, "good-code")
	require.Equal(t, apperrors.KindUpstreamUnavailable, apperrors.KindOf(err))

	n, err := f.repo.DeleteExpired(context.Background(), time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	require.Zero(t, n, "no session is created")
}

func TestGoogleSignIn_ExchangeFailure(t *testing.T) {
	f := setupTestFixture(t, time.Minute)
	f.google.exchangeErr = errors.New("invalid_grant")

	_, err := f.service.BeginGoogleSignIn(context.Background(), "/")
	require.NoError(t, err)

	_, err = f.service.CompleteGoogleSignIn(context.Background(), f.google.state, "good-code")
	require.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))
}

func TestGoogleSignIn_Disabled(t *testing.T) {
	f := setupTestFixture(t, time.Minute)
	service, err := auth.NewService(f.repo, f.signer, f.backend, auth.ServiceSettings{}, nil)
	require.NoError(t, err)

	require.False(t, service.GoogleEnabled())
	_, err = service.BeginGoogleSignIn(context.Background(), "/")
	require.ErrorIs(t, err, auth.ErrGoogleSignInDisabled)
}

func TestSignOut(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	signedIn, err := f.service.PasswordSignIn(context.Background(), testUserEmail, testPassword)
	require.NoError(t, err)

	require.NoError(t, f.service.SignOut(context.Background(), signedIn.Reference))
	_, err = f.repo.Get(context.Background(), signedIn.Session.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	require.NoError(t, f.service.SignOut(context.Background(), ""))
	require.NoError(t, f.service.SignOut(context.Background(), "garbage"))
}

func TestNewService_Validation(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	_, err := auth.NewService(nil, f.signer, f.backend, auth.ServiceSettings{}, nil)
	require.Error(t, err)
	_, err = auth.NewService(f.repo, nil, f.backend, auth.ServiceSettings{}, nil)
	require.Error(t, err)
	_, err = auth.NewService(f.repo, f.signer, nil, auth.ServiceSettings{}, nil)
	require.Error(t, err)
}

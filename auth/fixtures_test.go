package auth_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/reminder-bff/auth"
	"github.com/jrsteele09/reminder-bff/auth/authflowrepo"
	"github.com/jrsteele09/reminder-bff/backend"
	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
	"github.com/jrsteele09/reminder-bff/internal/utils"
	"github.com/jrsteele09/reminder-bff/sessions"
	"github.com/jrsteele09/reminder-bff/token"
	"github.com/stretchr/testify/require"
)

const (
	secretStr     = "1234"
	testUserEmail = "jane@example.com"
	testPassword  = "hunter2"
	testGoogleSub = "google-sub-1"
)

// fakeRefresher replaces the access token on every stale session, or fails when fail is set.
type fakeRefresher struct {
	fail  bool
	calls atomic.Int32
}

func (f *fakeRefresher) EnsureFreshToken(_ context.Context, s sessions.Session) sessions.Session {
	if s.IsFresh(time.Now(), 0) {
		return s
	}
	f.calls.Add(1)
	if f.fail || s.RefreshToken == "" {
		s.Error = sessions.ErrorRefreshAccessToken
		return s
	}
	s.AccessToken = "refreshed"
	s.AccessTokenExpires = time.Now().Add(time.Hour).UnixMilli()
	return s
}

// fakeBackend implements auth.CredentialsBackend and auth.UserAttributesFetcher.
type fakeBackend struct {
	loginToken   string
	googleErr    error
	meErr        error
	me           *backend.UserAttributes
	meCalls      atomic.Int32
	googleLogins []string
	// onMe runs inside Me, before the attributes are returned.
	onMe func()
}

func (f *fakeBackend) Login(_ context.Context, email, password string) (string, error) {
	if email != testUserEmail || password != testPassword {
		return "", apperrors.New(apperrors.KindInvalidCredentials, "login returned 401", nil)
	}
	return f.loginToken, nil
}

func (f *fakeBackend) GoogleLogin(_ context.Context, email, googleID string) error {
	if f.googleErr != nil {
		return f.googleErr
	}
	f.googleLogins = append(f.googleLogins, email+"|"+googleID)
	return nil
}

func (f *fakeBackend) Me(_ context.Context, bearer string) (*backend.UserAttributes, error) {
	f.meCalls.Add(1)
	if f.onMe != nil {
		f.onMe()
	}
	if f.meErr != nil {
		return nil, f.meErr
	}
	if f.me != nil {
		return f.me, nil
	}
	return &backend.UserAttributes{Credits: utils.Ptr(5), IsEmailVerified: utils.Ptr(true)}, nil
}

// fakeGoogle records the authorization request and returns a fixed identity.
type fakeGoogle struct {
	state, nonce, verifier string
	exchangeErr            error
}

func (f *fakeGoogle) AuthCodeURL(state, nonce, verifier string) string {
	f.state, f.nonce, f.verifier = state, nonce, verifier
	return "https://accounts.example.com/auth?state=" + state
}

func (f *fakeGoogle) Exchange(_ context.Context, code, verifier, nonce string) (*auth.GoogleIdentity, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	if code != "good-code" || verifier != f.verifier || nonce != f.nonce {
		return nil, apperrors.ErrInvalidToken
	}
	return &auth.GoogleIdentity{
		Subject:      testGoogleSub,
		Email:        testUserEmail,
		Name:         "Jane",
		IDToken:      "google-id-token",
		RefreshToken: "google-refresh",
		Expiry:       time.Now().Add(time.Hour),
	}, nil
}

type testFixture struct {
	repo      *sessions.InMemoryRepo
	signer    *token.ReferenceSigner
	refresher *fakeRefresher
	backend   *fakeBackend
	google    *fakeGoogle
	service   *auth.Service
	resolver  *auth.Resolver
}

func setupTestFixture(t *testing.T, profileInterval time.Duration) *testFixture {
	t.Helper()

	signer, err := token.NewReferenceSigner(secretStr)
	require.NoError(t, err)

	f := &testFixture{
		repo:      sessions.NewInMemoryRepo(),
		signer:    signer,
		refresher: &fakeRefresher{},
		backend:   &fakeBackend{loginToken: "backend-token"},
		google:    &fakeGoogle{},
	}

	f.service, err = auth.NewService(f.repo, signer, f.backend, auth.ServiceSettings{
		MaxSessionAge:             24 * time.Hour,
		DefaultBackendTokenExpiry: time.Hour,
	}, nil, auth.WithGoogle(f.google, authflowrepo.NewInMemoryRepo(time.Minute)))
	require.NoError(t, err)

	enricher := auth.NewProfileEnricher(f.backend, profileInterval, nil)
	f.resolver = auth.NewResolver(f.repo, f.refresher, signer, enricher, nil)
	return f
}

// storeSession saves s with a fresh ID and returns a signed reference to it.
func (f *testFixture) storeSession(t *testing.T, s sessions.Session) string {
	t.Helper()
	if s.ID == "" {
		id, err := sessions.NewID(time.Now())
		require.NoError(t, err)
		s.ID = id
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = time.Now().Add(time.Hour)
	}
	require.NoError(t, f.repo.Upsert(context.Background(), s))

	ref, err := f.signer.Sign(s.ID, s.ExpiresAt)
	require.NoError(t, err)
	return ref
}

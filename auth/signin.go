package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/reminder-bff/auth/authflowrepo"
	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
	"github.com/jrsteele09/reminder-bff/internal/metrics"
	"github.com/jrsteele09/reminder-bff/sessions"
	"github.com/jrsteele09/reminder-bff/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var ErrGoogleSignInDisabled = errors.New("google sign-in is not configured")

// CredentialsBackend is the part of the backend API used by sign-in.
type CredentialsBackend interface {
	Login(ctx context.Context, email, password string) (string, error)
	GoogleLogin(ctx context.Context, email, googleID string) error
}

// ReferenceIssuer signs session references.
type ReferenceIssuer interface {
	Sign(sessionID string, expiresAt time.Time) (string, error)
}

// SignedIn is a newly created session and the reference the browser will hold.
type SignedIn struct {
	Session   sessions.Session
	Reference string
	ReturnURL string
}

// ServiceSettings holds sign-in lifetimes.
type ServiceSettings struct {
	MaxSessionAge             time.Duration
	DefaultBackendTokenExpiry time.Duration
}

// Service creates and destroys sessions.
type Service struct {
	repo       sessions.Repo
	references ReferenceIssuer
	verifier   ReferenceVerifier
	backend    CredentialsBackend
	google     GoogleProvider
	flows      authflowrepo.Repo
	settings   ServiceSettings
	metrics    *metrics.Metrics
	nowTime    func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithGoogle enables Google sign-in.
func WithGoogle(google GoogleProvider, flows authflowrepo.Repo) ServiceOption {
	return func(s *Service) {
		s.google = google
		s.flows = flows
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// ReferenceCodec issues and verifies session references.
type ReferenceCodec interface {
	ReferenceIssuer
	ReferenceVerifier
}

// NewService creates the sign-in service.
func NewService(repo sessions.Repo, references ReferenceCodec, be CredentialsBackend, settings ServiceSettings, m *metrics.Metrics, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[NewService] session repo is required")
	}
	if references == nil {
		return nil, errors.New("[NewService] reference signer is required")
	}
	if be == nil {
		return nil, errors.New("[NewService] backend is required")
	}
	if settings.MaxSessionAge <= 0 {
		settings.MaxSessionAge = 30 * 24 * time.Hour
	}
	if settings.DefaultBackendTokenExpiry <= 0 {
		settings.DefaultBackendTokenExpiry = 7 * 24 * time.Hour
	}

	s := &Service{
		repo:       repo,
		references: references,
		verifier:   references,
		backend:    be,
		settings:   settings,
		metrics:    m,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// GoogleEnabled reports whether Google sign-in is available.
func (s *Service) GoogleEnabled() bool {
	return s.google != nil && s.flows != nil
}

// PasswordSignIn exchanges credentials with the backend and starts a session.
// Backend tokens carry no refresh token; the session ends when the token expires.
func (s *Service) PasswordSignIn(ctx context.Context, email, password string) (*SignedIn, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.metrics.SignIn(sessions.ProviderCredentials, metrics.OutcomeFailure)
		return nil, apperrors.New(apperrors.KindInvalidCredentials, "email and password are required", nil)
	}

	accessToken, err := s.backend.Login(ctx, email, password)
	if err != nil {
		s.metrics.SignIn(sessions.ProviderCredentials, metrics.OutcomeFailure)
		return nil, err
	}

	now := s.nowTime()
	expires, ok := token.UnverifiedExpiry(accessToken)
	if !ok {
		expires = now.Add(s.settings.DefaultBackendTokenExpiry)
	}

	user := sessions.UserProfile{Email: email}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err == nil {
		user.ID, _ = claims.GetSubject()
		if name, ok := claims["name"].(string); ok {
			user.Name = name
		}
	}

	signedIn, err := s.start(ctx, sessions.Session{
		Provider:           sessions.ProviderCredentials,
		User:               user,
		AccessToken:        accessToken,
		AccessTokenExpires: expires.UnixMilli(),
	}, now)
	if err != nil {
		s.metrics.SignIn(sessions.ProviderCredentials, metrics.OutcomeFailure)
		return nil, err
	}
	s.metrics.SignIn(sessions.ProviderCredentials, metrics.OutcomeSuccess)
	return signedIn, nil
}

// BeginGoogleSignIn records a new authorization flow and returns the Google consent URL.
func (s *Service) BeginGoogleSignIn(ctx context.Context, returnURL string) (string, error) {
	if !s.GoogleEnabled() {
		return "", ErrGoogleSignInDisabled
	}

	state := uuid.New().String()
	nonce := uuid.New().String()
	verifier := oauth2.GenerateVerifier()

	if err := s.flows.Upsert(ctx, state, &authflowrepo.AuthFlowState{
		CodeVerifier: verifier,
		Nonce:        nonce,
		ReturnURL:    returnURL,
		CreatedAt:    s.nowTime(),
	}); err != nil {
		return "", fmt.Errorf("[BeginGoogleSignIn] %w", err)
	}
	return s.google.AuthCodeURL(state, nonce, verifier), nil
}

// CompleteGoogleSignIn finishes the flow identified by state. The backend must
// accept the sign-in before a session is created.
func (s *Service) CompleteGoogleSignIn(ctx context.Context, state, code string) (*SignedIn, error) {
	if !s.GoogleEnabled() {
		return nil, ErrGoogleSignInDisabled
	}

	flow, err := s.flows.Take(ctx, state)
	if err != nil {
		s.metrics.SignIn(sessions.ProviderGoogle, metrics.OutcomeFailure)
		return nil, apperrors.Wrapf(apperrors.ErrInvalidState, "%v", err)
	}

	identity, err := s.google.Exchange(ctx, code, flow.CodeVerifier, flow.Nonce)
	if err != nil {
		s.metrics.SignIn(sessions.ProviderGoogle, metrics.OutcomeFailure)
		return nil, apperrors.New(apperrors.KindUnauthenticated, "google exchange", err)
	}

	if err := s.backend.GoogleLogin(ctx, identity.Email, identity.Subject); err != nil {
		s.metrics.SignIn(sessions.ProviderGoogle, metrics.OutcomeFailure)
		return nil, err
	}

	signedIn, err := s.start(ctx, sessions.Session{
		Provider: sessions.ProviderGoogle,
		User: sessions.UserProfile{
			ID:    identity.Subject,
			Email: identity.Email,
			Name:  identity.Name,
		},
		AccessToken:        identity.IDToken,
		AccessTokenExpires: identity.Expiry.UnixMilli(),
		RefreshToken:       identity.RefreshToken,
	}, s.nowTime())
	if err != nil {
		s.metrics.SignIn(sessions.ProviderGoogle, metrics.OutcomeFailure)
		return nil, err
	}
	signedIn.ReturnURL = flow.ReturnURL
	s.metrics.SignIn(sessions.ProviderGoogle, metrics.OutcomeSuccess)
	return signedIn, nil
}

// SignOut deletes the session named by reference. Unverifiable references are ignored.
func (s *Service) SignOut(ctx context.Context, reference string) error {
	if reference == "" {
		return nil
	}
	sessionID, err := s.verifier.Verify(reference)
	if err != nil {
		return nil
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("[SignOut] %w", err)
	}
	log.Info().Str("session", sessionID).Msg("signed out")
	return nil
}

func (s *Service) start(ctx context.Context, session sessions.Session, now time.Time) (*SignedIn, error) {
	id, err := sessions.NewID(now)
	if err != nil {
		return nil, fmt.Errorf("[SignIn] session id: %w", err)
	}
	session.ID = id
	session.CreatedAt = now
	session.ExpiresAt = now.Add(s.settings.MaxSessionAge)

	if err := s.repo.Upsert(ctx, session); err != nil {
		return nil, fmt.Errorf("[SignIn] storing session: %w", err)
	}

	reference, err := s.references.Sign(session.ID, session.ExpiresAt)
	if err != nil {
		_ = s.repo.Delete(ctx, session.ID)
		return nil, fmt.Errorf("[SignIn] %w", err)
	}

	log.Info().Str("session", session.ID).Str("provider", session.Provider).Msg("signed in")
	return &SignedIn{Session: session, Reference: reference}, nil
}

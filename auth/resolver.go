// Package auth answers whether a request carries a usable session, keeps the
// cached profile fresh, and creates sessions at sign-in.
package auth

import (
	"context"
	"errors"

	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
	"github.com/jrsteele09/reminder-bff/internal/metrics"
	"github.com/jrsteele09/reminder-bff/sessions"
	"github.com/rs/zerolog/log"
)

// Resolution results recorded in metrics.
const (
	resultAuthenticated   = "authenticated"
	resultUnauthenticated = "unauthenticated"
	resultRefreshFailed   = "refresh_failed"
)

// TokenRefresher produces a session whose access token is usable now.
type TokenRefresher interface {
	EnsureFreshToken(ctx context.Context, s sessions.Session) sessions.Session
}

// ReferenceVerifier checks a signed session reference and returns the session ID.
type ReferenceVerifier interface {
	Verify(raw string) (string, error)
}

// Result is the outcome of resolving a request's session.
type Result struct {
	Authenticated      bool
	SessionID          string
	AccessToken        string
	AccessTokenExpires int64
	User               sessions.UserProfile
	// Error carries the session's error tag when a stored session exists but is unusable.
	Error string
	// TokenChanged is set when resolution replaced the access token.
	TokenChanged bool
}

// HasSession reports whether a stored session was found, usable or not.
func (r Result) HasSession() bool {
	return r.SessionID != ""
}

type resolveOptions struct {
	withProfile bool
}

type ResolveOption func(*resolveOptions)

// WithProfile runs the profile enricher once the token is fresh. Page data reads use it.
func WithProfile() ResolveOption {
	return func(o *resolveOptions) {
		o.withProfile = true
	}
}

// Resolver turns a session reference into a usable bearer token.
type Resolver struct {
	repo       sessions.Repo
	refresher  TokenRefresher
	references ReferenceVerifier
	enricher   *ProfileEnricher
	metrics    *metrics.Metrics
}

// NewResolver creates a Resolver. enricher may be nil.
func NewResolver(repo sessions.Repo, refresher TokenRefresher, references ReferenceVerifier, enricher *ProfileEnricher, m *metrics.Metrics) *Resolver {
	return &Resolver{
		repo:       repo,
		refresher:  refresher,
		references: references,
		enricher:   enricher,
		metrics:    m,
	}
}

// Resolve verifies reference, loads the session it names and makes sure its
// access token is fresh before returning it. Refreshed state is written back
// to the store as one complete record.
func (r *Resolver) Resolve(ctx context.Context, reference string, opts ...ResolveOption) Result {
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}

	if reference == "" {
		r.metrics.Resolution(resultUnauthenticated)
		return Result{}
	}

	sessionID, err := r.references.Verify(reference)
	if err != nil {
		log.Debug().Err(err).Msg("session reference rejected")
		r.metrics.Resolution(resultUnauthenticated)
		return Result{}
	}

	stored, err := r.repo.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrSessionNotFound) {
			log.Err(err).Str("session", sessionID).Msg("failed to load session")
		}
		r.metrics.Resolution(resultUnauthenticated)
		return Result{}
	}

	if stored.Error != "" {
		r.metrics.Resolution(resultRefreshFailed)
		return Result{SessionID: stored.ID, Error: stored.Error}
	}

	fresh := r.refresher.EnsureFreshToken(ctx, stored)
	if tokensChanged(stored, fresh) {
		if err := r.repo.Upsert(ctx, fresh); err != nil {
			log.Err(err).Str("session", fresh.ID).Msg("failed to persist refreshed session")
		}
	}

	if !fresh.Usable() {
		errTag := fresh.Error
		if errTag == "" {
			errTag = sessions.ErrorRefreshAccessToken
		}
		r.metrics.Resolution(resultRefreshFailed)
		return Result{SessionID: fresh.ID, Error: errTag}
	}

	if o.withProfile && r.enricher != nil {
		enriched := r.enricher.Enrich(ctx, fresh)
		fresh = enriched
		if !enriched.ProfileRefreshedAt.Equal(stored.ProfileRefreshedAt) {
			if merged, ok := r.persistProfile(ctx, enriched); ok && merged.Usable() {
				fresh = merged
			}
		}
	}

	r.metrics.Resolution(resultAuthenticated)
	return Result{
		Authenticated:      true,
		SessionID:          fresh.ID,
		AccessToken:        fresh.AccessToken,
		AccessTokenExpires: fresh.AccessTokenExpires,
		User:               fresh.User,
		TokenChanged:       fresh.AccessToken != stored.AccessToken,
	}
}

// persistProfile writes only the backend-owned profile fields onto the latest
// stored record. Tokens refreshed by a concurrent request while the profile
// was being fetched are kept.
func (r *Resolver) persistProfile(ctx context.Context, enriched sessions.Session) (sessions.Session, bool) {
	latest, err := r.repo.Get(ctx, enriched.ID)
	if err != nil {
		log.Err(err).Str("session", enriched.ID).Msg("failed to reload session for profile update")
		return sessions.Session{}, false
	}
	latest.User.Credits = enriched.User.Credits
	latest.User.IsEmailVerified = enriched.User.IsEmailVerified
	latest.ProfileRefreshedAt = enriched.ProfileRefreshedAt

	if err := r.repo.Upsert(ctx, latest); err != nil {
		log.Err(err).Str("session", enriched.ID).Msg("failed to persist enriched profile")
		return sessions.Session{}, false
	}
	return latest, true
}

func tokensChanged(before, after sessions.Session) bool {
	return before.AccessToken != after.AccessToken ||
		before.AccessTokenExpires != after.AccessTokenExpires ||
		before.RefreshToken != after.RefreshToken ||
		before.Error != after.Error
}

package auth

import (
	"context"
	"time"

	"github.com/jrsteele09/reminder-bff/backend"
	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
	"github.com/jrsteele09/reminder-bff/internal/metrics"
	"github.com/jrsteele09/reminder-bff/internal/tracing"
	"github.com/jrsteele09/reminder-bff/sessions"
	"github.com/rs/zerolog/log"
)

// UserAttributesFetcher reads backend-owned user attributes.
type UserAttributesFetcher interface {
	Me(ctx context.Context, bearer string) (*backend.UserAttributes, error)
}

// ProfileEnricher refreshes the cached Credits and IsEmailVerified fields.
type ProfileEnricher struct {
	fetcher  UserAttributesFetcher
	interval time.Duration
	metrics  *metrics.Metrics
	nowTime  func() time.Time
}

// NewProfileEnricher creates an enricher that fetches at most once per interval
// per session. A zero interval fetches on every call.
func NewProfileEnricher(fetcher UserAttributesFetcher, interval time.Duration, m *metrics.Metrics) *ProfileEnricher {
	return &ProfileEnricher{
		fetcher:  fetcher,
		interval: interval,
		metrics:  m,
		nowTime:  time.Now,
	}
}

// Enrich returns s with backend-owned profile fields updated. Failures are
// logged and the cached profile is returned unchanged.
func (e *ProfileEnricher) Enrich(ctx context.Context, s sessions.Session) sessions.Session {
	if !s.Usable() {
		return s
	}
	now := e.nowTime()
	if e.interval > 0 && !s.ProfileRefreshedAt.IsZero() && now.Sub(s.ProfileRefreshedAt) < e.interval {
		e.metrics.Enrichment(metrics.OutcomeSkipped)
		return s
	}

	ctx, span := tracing.Start(ctx, "auth.Enrich")
	attrs, err := e.fetcher.Me(ctx, s.AccessToken)
	tracing.End(span, err)
	if err != nil {
		e.metrics.Enrichment(metrics.OutcomeFailure)
		log.Warn().
			Err(apperrors.New(apperrors.KindUpstreamUnavailable, "profile enrichment", err)).
			Str("session", s.ID).
			Msg("serving cached profile")
		return s
	}

	if attrs.Credits != nil {
		s.User.Credits = max(*attrs.Credits, 0)
	}
	if attrs.IsEmailVerified != nil {
		s.User.IsEmailVerified = *attrs.IsEmailVerified
	}
	s.ProfileRefreshedAt = now
	e.metrics.Enrichment(metrics.OutcomeSuccess)
	return s
}

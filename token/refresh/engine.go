// Package refresh keeps a session's access token usable by exchanging its
// refresh token at the identity provider when the access token has expired.
package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/reminder-bff/internal/config"
	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
	"github.com/jrsteele09/reminder-bff/internal/metrics"
	"github.com/jrsteele09/reminder-bff/internal/tracing"
	"github.com/jrsteele09/reminder-bff/internal/utils"
	"github.com/jrsteele09/reminder-bff/sessions"
	"github.com/jrsteele09/reminder-bff/token"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const maxResponseBytes = 1 << 20

// Settings configures an Engine.
type Settings struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	// Timeout bounds a single provider call. Zero means 10s.
	Timeout time.Duration
	// Skew is subtracted from the token expiry before it is considered fresh.
	Skew time.Duration
}

// SettingsFromConfig reads the Google provider settings.
func SettingsFromConfig(cfg config.OAuthConfig) Settings {
	return Settings{
		TokenURL:     cfg.GetGoogleTokenURL(),
		ClientID:     cfg.GetGoogleClientID(),
		ClientSecret: cfg.GetGoogleClientSecret(),
		Timeout:      cfg.GetRefreshTimeout(),
		Skew:         cfg.GetTokenExpirySkew(),
	}
}

// Engine refreshes access tokens. It is safe for concurrent use.
type Engine struct {
	settings Settings
	client   *http.Client
	metrics  *metrics.Metrics
	flights  singleflight.Group
}

// NewEngine creates an Engine. A nil client uses http.DefaultClient.
func NewEngine(settings Settings, client *http.Client, m *metrics.Metrics) *Engine {
	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Engine{
		settings: settings,
		client:   client,
		metrics:  m,
	}
}

// refreshed is the outcome of one provider call, shared by collapsed callers.
type refreshed struct {
	accessToken  string
	expires      int64
	refreshToken string
}

// EnsureFreshToken returns s unchanged while its access token is fresh. Otherwise
// it refreshes the token at the identity provider. Failures never surface as Go
// errors: the returned session carries Error = sessions.ErrorRefreshAccessToken
// and keeps its original tokens.
func (e *Engine) EnsureFreshToken(ctx context.Context, s sessions.Session) sessions.Session {
	if s.IsFresh(NowTimeFunc(), e.settings.Skew) {
		return s
	}

	ctx, span := tracing.Start(ctx, "refresh.EnsureFreshToken", attribute.String("session.id", s.ID))

	if s.RefreshToken == "" {
		err := apperrors.New(apperrors.KindRefreshAccessToken, "session has no refresh token", apperrors.ErrMissingRefreshToken)
		e.metrics.Refresh(metrics.OutcomeSkipped, 0)
		log.Warn().Str("session", s.ID).Str("provider", s.Provider).Msg("access token expired and no refresh token is held")
		tracing.End(span, err)
		return failed(s)
	}

	leader := false
	key := s.ID + "\x00" + s.RefreshToken
	v, err, shared := e.flights.Do(key, func() (any, error) {
		leader = true
		start := time.Now()
		r, err := e.refresh(context.WithoutCancel(ctx), s.RefreshToken)
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeFailure
		}
		e.metrics.Refresh(outcome, time.Since(start).Seconds())
		return r, err
	})
	if shared && !leader {
		e.metrics.Refresh(metrics.OutcomeShared, 0)
	}
	tracing.End(span, err)

	if err != nil {
		log.Err(err).Str("session", s.ID).Msg("token refresh failed")
		return failed(s)
	}

	r := v.(refreshed)
	s.AccessToken = r.accessToken
	s.AccessTokenExpires = r.expires
	if r.refreshToken != "" {
		s.RefreshToken = r.refreshToken
	}
	s.Error = ""
	return s
}

func failed(s sessions.Session) sessions.Session {
	s.Error = sessions.ErrorRefreshAccessToken
	return s
}

func (e *Engine) refresh(ctx context.Context, refreshToken string) (refreshed, error) {
	ctx, cancel := context.WithTimeout(ctx, e.settings.Timeout)
	defer cancel()

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	if e.settings.ClientID != "" {
		form.Set("client_id", e.settings.ClientID)
	}
	if e.settings.ClientSecret != "" {
		form.Set("client_secret", e.settings.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.settings.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return refreshed{}, apperrors.New(apperrors.KindRefreshAccessToken, "building request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return refreshed{}, apperrors.New(apperrors.KindRefreshAccessToken, "calling token endpoint", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return refreshed{}, apperrors.New(apperrors.KindRefreshAccessToken, "reading token response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var oauthErr ErrorResponse
		_ = json.Unmarshal(body, &oauthErr)
		detail := fmt.Sprintf("token endpoint returned %d", resp.StatusCode)
		if oauthErr.Error != "" {
			detail += " " + oauthErr.Error
		}
		return refreshed{}, apperrors.New(apperrors.KindRefreshAccessToken, detail, nil)
	}

	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return refreshed{}, apperrors.New(apperrors.KindRefreshAccessToken, "decoding token response", err)
	}

	accessToken := utils.FirstNonEmpty(utils.Value(tr.IdToken), utils.Value(tr.AccessToken))
	if accessToken == "" {
		return refreshed{}, apperrors.New(apperrors.KindRefreshAccessToken, "token response carried no token", nil)
	}

	now := NowTimeFunc()
	var expires int64
	switch {
	case tr.ExpiresIn > 0:
		expires = now.UnixMilli() + tr.ExpiresIn*1000
	default:
		exp, ok := token.UnverifiedExpiry(accessToken)
		if !ok || !exp.After(now) {
			return refreshed{}, apperrors.New(apperrors.KindRefreshAccessToken, "token response carried no expiry", nil)
		}
		expires = exp.UnixMilli()
	}

	return refreshed{
		accessToken:  accessToken,
		expires:      expires,
		refreshToken: utils.Value(tr.RefreshToken),
	}, nil
}

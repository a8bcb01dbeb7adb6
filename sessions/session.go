package sessions

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrorRefreshAccessToken tags a session whose access token could not be refreshed.
// Such a session must never authorize a backend call.
const ErrorRefreshAccessToken = "RefreshAccessTokenError"

// Sign-in providers that can create a session.
const (
	ProviderCredentials = "credentials"
	ProviderGoogle      = "google"
)

// UserProfile holds identity claims plus a cache of backend-owned attributes.
// Credits and IsEmailVerified may be stale between enrichments.
type UserProfile struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Name            string `json:"name,omitempty"`
	Credits         int    `json:"credits"`
	IsEmailVerified bool   `json:"is_email_verified"`
}

// Session is one authenticated browser session as held in the server-side store.
type Session struct {
	// Core identity
	ID       string      `json:"id"`
	Provider string      `json:"provider"`
	User     UserProfile `json:"user"`

	// Tokens (refresh never leaves the server)
	AccessToken        string `json:"access_token"`
	AccessTokenExpires int64  `json:"access_token_expires"` // milliseconds since epoch
	RefreshToken       string `json:"refresh_token,omitempty"`

	// Error is set when the last refresh failed
	Error string `json:"error,omitempty"`

	// Session management
	CreatedAt          time.Time `json:"created_at"`
	ExpiresAt          time.Time `json:"expires_at"`
	ProfileRefreshedAt time.Time `json:"profile_refreshed_at,omitempty"`
}

// IsFresh reports whether the access token can be used at now without a refresh.
// skew is subtracted from the expiry; zero compares against the exact boundary.
func (s Session) IsFresh(now time.Time, skew time.Duration) bool {
	return now.UnixMilli() < s.AccessTokenExpires-skew.Milliseconds()
}

// Usable reports whether the session may authorize backend calls.
func (s Session) Usable() bool {
	return s.Error == "" && s.AccessToken != ""
}

// IsExpired reports whether the session itself (not its access token) has expired.
func (s Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// NewID returns a new lexicographically sortable session ID.
func NewID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

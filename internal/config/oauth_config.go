package config

import "time"

// OAuthConfig describes the identity provider used for Google sign-in and token refresh.
type OAuthConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleIssuer() string
	GetGoogleTokenURL() string
	GetGoogleScopes() []string
	GetRefreshTimeout() time.Duration
	GetTokenExpirySkew() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetGoogleClientID() string {
	return GetEnv("GOOGLE_CLIENT_ID", "")
}

func (OAuth) GetGoogleClientSecret() string {
	return GetEnv("GOOGLE_CLIENT_SECRET", "")
}

func (OAuth) GetGoogleIssuer() string {
	return GetEnv("GOOGLE_ISSUER", "https://accounts.google.com")
}

func (OAuth) GetGoogleTokenURL() string {
	return GetEnv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token")
}

func (OAuth) GetGoogleScopes() []string {
	if scopes := GetList("GOOGLE_SCOPES"); len(scopes) > 0 {
		return scopes
	}
	return []string{"openid", "email", "profile"}
}

func (OAuth) GetRefreshTimeout() time.Duration {
	return GetDuration("REFRESH_TIMEOUT", 10*time.Second)
}

// GetTokenExpirySkew is subtracted from the access token expiry before it is
// considered fresh. Zero keeps the exact expiry boundary.
func (OAuth) GetTokenExpirySkew() time.Duration {
	return GetDuration("TOKEN_EXPIRY_SKEW", 0)
}

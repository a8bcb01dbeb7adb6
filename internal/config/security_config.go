package config

import "time"

type SecurityConfig interface {
	GetSessionSecret() string
	GetMaxSessionAge() time.Duration
	GetAuthCookieLifetime() time.Duration
	GetAuthFlowTimeout() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetSessionSecret signs the session reference cookie and seals stored sessions.
func (Security) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", "")
}

func (Security) GetMaxSessionAge() time.Duration {
	return GetDuration("SESSION_MAX_AGE", 30*24*time.Hour)
}

func (Security) GetAuthCookieLifetime() time.Duration {
	return GetDuration("AUTH_COOKIE_LIFETIME", 7*24*time.Hour)
}

// GetAuthFlowTimeout bounds how long a Google sign-in may sit between redirect and callback.
func (Security) GetAuthFlowTimeout() time.Duration {
	return GetDuration("AUTH_FLOW_TIMEOUT", 10*time.Minute)
}

package config

import (
	"strings"
	"time"
)

type BackendConfig interface {
	GetBackendURL() string
	GetBackendTimeout() time.Duration
	GetProfileRefreshInterval() time.Duration
	GetDefaultBackendTokenExpiry() time.Duration
}

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetBackendURL() string {
	return strings.TrimSuffix(GetEnv("BACKEND_URL", "http://localhost:8000"), "/")
}

func (Backend) GetBackendTimeout() time.Duration {
	return GetDuration("BACKEND_TIMEOUT", 10*time.Second)
}

// GetProfileRefreshInterval is the minimum age of cached credits/verification data
// before a page read fetches them again. Zero refreshes on every page read.
func (Backend) GetProfileRefreshInterval() time.Duration {
	return GetDuration("PROFILE_REFRESH_INTERVAL", time.Minute)
}

// GetDefaultBackendTokenExpiry applies to backend tokens that carry no exp claim.
func (Backend) GetDefaultBackendTokenExpiry() time.Duration {
	return GetDuration("BACKEND_TOKEN_EXPIRY", 7*24*time.Hour)
}

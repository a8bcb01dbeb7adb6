package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/reminder-bff/internal/config"
	"golang.org/x/oauth2"
)

// GoogleIdentity is the verified outcome of a Google authorization code exchange.
type GoogleIdentity struct {
	Subject      string
	Email        string
	Name         string
	IDToken      string
	RefreshToken string
	Expiry       time.Time
}

// GoogleProvider runs the Google side of sign-in.
type GoogleProvider interface {
	// AuthCodeURL returns the Google consent URL for a new sign-in.
	AuthCodeURL(state, nonce, verifier string) string
	// Exchange redeems code and verifies the returned ID token against nonce.
	Exchange(ctx context.Context, code, verifier, nonce string) (*GoogleIdentity, error)
}

// OIDCGoogleProvider is the GoogleProvider backed by Google's OpenID Connect discovery.
type OIDCGoogleProvider struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

var _ GoogleProvider = (*OIDCGoogleProvider)(nil)

// NewGoogleProvider discovers the issuer's endpoints. redirectURL is the BFF's callback.
func NewGoogleProvider(ctx context.Context, cfg config.OAuthConfig, redirectURL string) (*OIDCGoogleProvider, error) {
	if cfg.GetGoogleClientID() == "" {
		return nil, errors.New("[NewGoogleProvider] GOOGLE_CLIENT_ID is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.GetGoogleIssuer())
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &OIDCGoogleProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.GetGoogleClientID(),
			ClientSecret: cfg.GetGoogleClientSecret(),
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       cfg.GetGoogleScopes(),
		},
		verifier: provider.Verifier(&oidc.Config{
			ClientID: cfg.GetGoogleClientID(),
		}),
	}, nil
}

func (g *OIDCGoogleProvider) AuthCodeURL(state, nonce, verifier string) string {
	return g.oauth2Config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (g *OIDCGoogleProvider) Exchange(ctx context.Context, code, verifier, nonce string) (*GoogleIdentity, error) {
	oauth2Token, err := g.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("no ID token in response")
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("ID token verification failed: %w", err)
	}
	if idToken.Nonce != nonce {
		return nil, errors.New("invalid nonce")
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to extract claims: %w", err)
	}

	return &GoogleIdentity{
		Subject:      idToken.Subject,
		Email:        claims.Email,
		Name:         claims.Name,
		IDToken:      rawIDToken,
		RefreshToken: oauth2Token.RefreshToken,
		Expiry:       idToken.Expiry,
	}, nil
}

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

type googleLoginRequest struct {
	Email    string `json:"email"`
	GoogleID string `json:"google_id"`
}

// Login exchanges an email and password for a backend access token.
// A rejected attempt returns a KindInvalidCredentials error.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	resp, err := c.Do(ctx, http.MethodPost, "/login", "", loginRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}

	switch {
	case resp.OK():
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", apperrors.New(apperrors.KindInvalidCredentials, fmt.Sprintf("login returned %d", resp.StatusCode), nil)
	default:
		return "", statusError("/login", resp)
	}

	var lr loginResponse
	if err := json.Unmarshal(resp.Body, &lr); err != nil {
		return "", apperrors.New(apperrors.KindUpstreamUnavailable, "decoding login response", err)
	}
	if lr.AccessToken == "" {
		return "", apperrors.New(apperrors.KindUpstreamUnavailable, "login response carried no access token", nil)
	}
	return lr.AccessToken, nil
}

// GoogleLogin tells the backend a user signed in with Google.
func (c *Client) GoogleLogin(ctx context.Context, email, googleID string) error {
	resp, err := c.Do(ctx, http.MethodPost, "/google-login", "", googleLoginRequest{Email: email, GoogleID: googleID})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return statusError("/google-login", resp)
	}
	return nil
}

// RequestPasswordReset relays a password reset request.
func (c *Client) RequestPasswordReset(ctx context.Context, body json.RawMessage) (*Response, error) {
	return c.Do(ctx, http.MethodPost, "/request-password-reset", "", body)
}

// ResetPassword relays a new password together with its reset token.
func (c *Client) ResetPassword(ctx context.Context, body json.RawMessage) (*Response, error) {
	return c.Do(ctx, http.MethodPost, "/reset-password", "", body)
}

// VerifyEmail confirms an email verification token on behalf of the signed-in user.
func (c *Client) VerifyEmail(ctx context.Context, bearer, verificationToken string) (*Response, error) {
	return c.Do(ctx, http.MethodPost, "/verify-email/"+url.PathEscape(verificationToken), bearer, nil)
}

// SendEmailVerification asks the backend to send a new verification email.
func (c *Client) SendEmailVerification(ctx context.Context, bearer string) (*Response, error) {
	return c.Do(ctx, http.MethodPost, "/send-email-verification", bearer, nil)
}

package backend

import (
	"context"
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
)

// UserAttributes are the backend-owned fields of GET /users/me.
// Absent fields stay nil so callers only overwrite what the backend sent.
type UserAttributes struct {
	Email           *string `json:"email,omitempty"`
	Name            *string `json:"name,omitempty"`
	Credits         *int    `json:"credits,omitempty"`
	IsEmailVerified *bool   `json:"is_email_verified,omitempty"`
}

// Me fetches the current user's attributes.
func (c *Client) Me(ctx context.Context, bearer string) (*UserAttributes, error) {
	resp, err := c.MeRaw(ctx, bearer)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError("/users/me", resp)
	}

	var attrs UserAttributes
	if err := json.Unmarshal(resp.Body, &attrs); err != nil {
		return nil, apperrors.New(apperrors.KindUpstreamUnavailable, "decoding /users/me", err)
	}
	return &attrs, nil
}

// MeRaw returns the unparsed GET /users/me reply.
func (c *Client) MeRaw(ctx context.Context, bearer string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, "/users/me", bearer, nil)
}

package refresh

// TokenResponse is the identity provider's reply to a refresh_token grant
// (RFC 6749 section 5.1). Google returns a fresh id_token alongside the access token.
type TokenResponse struct {
	// AccessToken is the provider's OAuth access token.
	AccessToken *string `json:"access_token,omitempty"`

	// IdToken is the OpenID Connect ID token. It is the bearer the backend accepts.
	IdToken *string `json:"id_token,omitempty"`

	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the issued token.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// RefreshToken is present only when the provider rotates refresh tokens.
	RefreshToken *string `json:"refresh_token,omitempty"`

	Scope string `json:"scope,omitempty"`
}

// ErrorResponse is the provider's error body (RFC 6749 section 5.2).
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Package token signs the browser's session reference and reads claims from
// tokens issued by the backend.
package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const referenceIssuer = "reminder-bff"

// ReferenceClaims are carried by the signed session reference cookie.
// The reference identifies a stored session; it holds no tokens.
type ReferenceClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// ReferenceSigner issues and verifies HS256 session references.
type ReferenceSigner struct {
	secret []byte
}

// NewReferenceSigner creates a signer keyed by the session secret.
func NewReferenceSigner(secret string) (*ReferenceSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	return &ReferenceSigner{secret: []byte(secret)}, nil
}

// Sign returns a reference to sessionID valid until expiresAt.
func (s *ReferenceSigner) Sign(sessionID string, expiresAt time.Time) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session ID is required")
	}

	now := NowTimeFunc()
	claims := ReferenceClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    referenceIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session reference: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns the session ID it names.
func (s *ReferenceSigner) Verify(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", apperrors.ErrInvalidSession
	}

	claims := &ReferenceClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, s.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(referenceIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(NowTimeFunc),
	)
	if err != nil || !parsed.Valid {
		return "", apperrors.Wrapf(apperrors.ErrInvalidSession, "verify reference: %v", err)
	}
	if claims.SessionID == "" {
		return "", apperrors.ErrInvalidSession
	}
	return claims.SessionID, nil
}

func (s *ReferenceSigner) verificationKey(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return s.secret, nil
}

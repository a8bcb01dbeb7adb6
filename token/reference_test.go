package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
	"github.com/jrsteele09/reminder-bff/token"
	"github.com/stretchr/testify/require"
)

const secretStr = "1234"

func TestReferenceSigner_RoundTrip(t *testing.T) {
	signer, err := token.NewReferenceSigner(secretStr)
	require.NoError(t, err)

	raw, err := signer.Sign("01HZX0000000000000000000AB", time.Now().Add(time.Hour))
	require.NoError(t, err)

	sid, err := signer.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "01HZX0000000000000000000AB", sid)
}

func TestReferenceSigner_Rejects(t *testing.T) {
	signer, err := token.NewReferenceSigner(secretStr)
	require.NoError(t, err)
	other, err := token.NewReferenceSigner("another-secret")
	require.NoError(t, err)

	expired, err := signer.Sign("sess", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	forged, err := other.Sign("sess", time.Now().Add(time.Hour))
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sid": "sess",
		"iss": "reminder-bff",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"expired", expired},
		{"wrong secret", forged},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signer.Verify(tt.raw)
			require.ErrorIs(t, err, apperrors.ErrInvalidSession)
		})
	}
}

func TestReferenceSigner_RequiresSecret(t *testing.T) {
	_, err := token.NewReferenceSigner("")
	require.Error(t, err)
}

func TestUnverifiedExpiry(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)

	got, ok := token.UnverifiedExpiry(raw)
	require.True(t, ok)
	require.True(t, exp.Equal(got))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, ok = token.UnverifiedExpiry(noExp)
	require.False(t, ok)

	_, ok = token.UnverifiedExpiry("opaque-token")
	require.False(t, ok)
}

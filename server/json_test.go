package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWriteKindError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"InvalidCredentials", apperrors.New(apperrors.KindInvalidCredentials, "login returned 401", nil), http.StatusUnauthorized, msgBadLogin},
		{"Unauthenticated", apperrors.New(apperrors.KindUnauthenticated, "/users/me returned 401", nil), http.StatusUnauthorized, msgLogIn},
		{"RefreshFailed", apperrors.New(apperrors.KindRefreshAccessToken, "", nil), http.StatusUnauthorized, msgLogIn},
		{"Upstream", apperrors.New(apperrors.KindUpstreamUnavailable, "", errors.New("dial tcp: refused")), http.StatusBadGateway, msgTryAgain},
		{"Unclassified", errors.New("boom"), http.StatusInternalServerError, msgTryAgain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeKindError(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil), tt.err)
			require.Equal(t, tt.status, rec.Code)
			require.JSONEq(t, `{"error":"`+tt.message+`"}`, rec.Body.String())
			require.NotContains(t, rec.Body.String(), "dial tcp")
		})
	}
}

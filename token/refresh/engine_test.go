package refresh_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/reminder-bff/internal/metrics"
	"github.com/jrsteele09/reminder-bff/sessions"
	"github.com/jrsteele09/reminder-bff/token/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "client-1"
	testClientSecret = "secret-1"
	testRefreshToken = "refresh-original"
	testAccessToken  = "access-original"
)

// provider is a fake identity provider token endpoint.
type provider struct {
	server *httptest.Server
	calls  atomic.Int32
	forms  chan map[string]string
}

func newProvider(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *provider {
	t.Helper()
	p := &provider{forms: make(chan map[string]string, 16)}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.calls.Add(1)
		if err := r.ParseForm(); err == nil {
			select {
			case p.forms <- map[string]string{
				"grant_type":    r.PostForm.Get("grant_type"),
				"refresh_token": r.PostForm.Get("refresh_token"),
				"client_id":     r.PostForm.Get("client_id"),
				"client_secret": r.PostForm.Get("client_secret"),
			}:
			default:
			}
		}
		handler(w, r)
	}))
	t.Cleanup(p.server.Close)
	return p
}

func jsonReply(status int, body any) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func newEngine(p *provider, timeout time.Duration) *refresh.Engine {
	return refresh.NewEngine(refresh.Settings{
		TokenURL:     p.server.URL,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		Timeout:      timeout,
	}, p.server.Client(), metrics.New(prometheus.NewRegistry()))
}

func expiredSession() sessions.Session {
	return sessions.Session{
		ID:                 "sess-1",
		Provider:           sessions.ProviderGoogle,
		AccessToken:        testAccessToken,
		AccessTokenExpires: time.Now().UnixMilli() - 1000,
		RefreshToken:       testRefreshToken,
		User:               sessions.UserProfile{ID: "user-1", Email: "jane@example.com"},
	}
}

func TestEnsureFreshToken_FreshTokenMakesNoCalls(t *testing.T) {
	p := newProvider(t, jsonReply(http.StatusOK, map[string]any{"id_token": "new", "expires_in": 3600}))
	engine := newEngine(p, time.Second)

	in := expiredSession()
	in.AccessTokenExpires = time.Now().Add(time.Minute).UnixMilli()

	out := engine.EnsureFreshToken(context.Background(), in)
	require.Equal(t, in, out)
	require.Zero(t, p.calls.Load())
}

func TestEnsureFreshToken_RefreshSucceeds(t *testing.T) {
	p := newProvider(t, jsonReply(http.StatusOK, map[string]any{"id_token": "new", "expires_in": 3600}))
	engine := newEngine(p, time.Second)

	now := time.Now().UnixMilli()
	out := engine.EnsureFreshToken(context.Background(), expiredSession())

	require.Empty(t, out.Error)
	require.Equal(t, "new", out.AccessToken)
	require.InDelta(t, now+3_600_000, out.AccessTokenExpires, 5_000)
	require.Equal(t, testRefreshToken, out.RefreshToken, "refresh token kept when the provider does not rotate")
	require.Equal(t, int32(1), p.calls.Load())

	form := <-p.forms
	require.Equal(t, "refresh_token", form["grant_type"])
	require.Equal(t, testRefreshToken, form["refresh_token"])
	require.Equal(t, testClientID, form["client_id"])
	require.Equal(t, testClientSecret, form["client_secret"])
}

func TestEnsureFreshToken_RotatesRefreshToken(t *testing.T) {
	p := newProvider(t, jsonReply(http.StatusOK, map[string]any{
		"id_token":      "new",
		"expires_in":    3600,
		"refresh_token": "refresh-rotated",
	}))
	engine := newEngine(p, time.Second)

	out := engine.EnsureFreshToken(context.Background(), expiredSession())
	require.Equal(t, "refresh-rotated", out.RefreshToken)
}

func TestEnsureFreshToken_FallsBackToAccessToken(t *testing.T) {
	p := newProvider(t, jsonReply(http.StatusOK, map[string]any{"access_token": "plain-access", "expires_in": 60}))
	engine := newEngine(p, time.Second)

	out := engine.EnsureFreshToken(context.Background(), expiredSession())
	require.Empty(t, out.Error)
	require.Equal(t, "plain-access", out.AccessToken)
}

func TestEnsureFreshToken_ExpiryFromTokenWhenExpiresInMissing(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)

	p := newProvider(t, jsonReply(http.StatusOK, map[string]any{"id_token": idToken}))
	engine := newEngine(p, time.Second)

	out := engine.EnsureFreshToken(context.Background(), expiredSession())
	require.Empty(t, out.Error)
	require.Equal(t, exp.UnixMilli(), out.AccessTokenExpires)
}

func TestEnsureFreshToken_ClearsPreviousError(t *testing.T) {
	p := newProvider(t, jsonReply(http.StatusOK, map[string]any{"id_token": "new", "expires_in": 3600}))
	engine := newEngine(p, time.Second)

	in := expiredSession()
	in.Error = sessions.ErrorRefreshAccessToken
	out := engine.EnsureFreshToken(context.Background(), in)
	require.Empty(t, out.Error)
}

func TestEnsureFreshToken_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler func(http.ResponseWriter, *http.Request)
	}{
		{"400 invalid_grant", jsonReply(http.StatusBadRequest, map[string]any{"error": "invalid_grant"})},
		{"500", jsonReply(http.StatusInternalServerError, map[string]any{"error": "server_error"})},
		{"malformed body", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("{not json")) }},
		{"no token", jsonReply(http.StatusOK, map[string]any{"expires_in": 3600})},
		{"no expiry", jsonReply(http.StatusOK, map[string]any{"id_token": "opaque"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProvider(t, tt.handler)
			engine := newEngine(p, time.Second)

			in := expiredSession()
			out := engine.EnsureFreshToken(context.Background(), in)

			require.Equal(t, sessions.ErrorRefreshAccessToken, out.Error)
			require.Equal(t, in.AccessToken, out.AccessToken)
			require.Equal(t, in.RefreshToken, out.RefreshToken)
			require.Equal(t, in.AccessTokenExpires, out.AccessTokenExpires)
		})
	}
}

func TestEnsureFreshToken_Timeout(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	engine := newEngine(p, 50*time.Millisecond)

	start := time.Now()
	in := expiredSession()
	out := engine.EnsureFreshToken(context.Background(), in)

	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, sessions.ErrorRefreshAccessToken, out.Error)
	require.Equal(t, in.AccessToken, out.AccessToken)
	require.Equal(t, in.RefreshToken, out.RefreshToken)
}

func TestEnsureFreshToken_NetworkError(t *testing.T) {
	p := newProvider(t, jsonReply(http.StatusOK, map[string]any{}))
	engine := newEngine(p, time.Second)
	p.server.Close()

	out := engine.EnsureFreshToken(context.Background(), expiredSession())
	require.Equal(t, sessions.ErrorRefreshAccessToken, out.Error)
}

func TestEnsureFreshToken_NoRefreshToken(t *testing.T) {
	p := newProvider(t, jsonReply(http.StatusOK, map[string]any{"id_token": "new", "expires_in": 3600}))
	engine := newEngine(p, time.Second)

	in := expiredSession()
	in.Provider = sessions.ProviderCredentials
	in.RefreshToken = ""
	out := engine.EnsureFreshToken(context.Background(), in)

	require.Equal(t, sessions.ErrorRefreshAccessToken, out.Error)
	require.Equal(t, testAccessToken, out.AccessToken)
	require.Zero(t, p.calls.Load())
}

func TestEnsureFreshToken_SkewRefreshesEarly(t *testing.T) {
	p := newProvider(t, jsonReply(http.StatusOK, map[string]any{"id_token": "new", "expires_in": 3600}))
	engine := refresh.NewEngine(refresh.Settings{
		TokenURL: p.server.URL,
		Timeout:  time.Second,
		Skew:     30 * time.Second,
	}, p.server.Client(), nil)

	in := expiredSession()
	in.AccessTokenExpires = time.Now().Add(10 * time.Second).UnixMilli()
	out := engine.EnsureFreshToken(context.Background(), in)

	require.Equal(t, "new", out.AccessToken)
	require.Equal(t, int32(1), p.calls.Load())
}

func TestEnsureFreshToken_ConcurrentCallsShareOneRefresh(t *testing.T) {
	release := make(chan struct{})
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		jsonReply(http.StatusOK, map[string]any{"id_token": "new", "expires_in": 3600})(w, r)
	})
	engine := newEngine(p, 5*time.Second)

	const callers = 8
	results := make([]sessions.Session, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.EnsureFreshToken(context.Background(), expiredSession())
		}(i)
	}

	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), p.calls.Load())
	for _, out := range results {
		require.Empty(t, out.Error)
		require.Equal(t, "new", out.AccessToken)
	}
}

func TestEnsureFreshToken_ConcurrentFailuresAllError(t *testing.T) {
	release := make(chan struct{})
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		jsonReply(http.StatusBadRequest, map[string]any{"error": "invalid_grant"})(w, r)
	})
	engine := newEngine(p, 5*time.Second)

	const callers = 4
	results := make([]sessions.Session, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.EnsureFreshToken(context.Background(), expiredSession())
		}(i)
	}

	require.Eventually(t, func() bool { return p.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, out := range results {
		require.Equal(t, sessions.ErrorRefreshAccessToken, out.Error)
		require.Equal(t, testAccessToken, out.AccessToken)
	}
}

package server

import (
	"net/http"

	"github.com/jrsteele09/reminder-bff/auth"
)

// AccessGate redirects page requests without a valid session reference to the
// login page. Allowlisted paths are checked first and always pass. The
// reference signature and expiry are verified; cookie presence alone is not enough.
func (s *Server) AccessGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.allowlist.IsPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if reference := cookieValue(r, sessionCookieName); reference != "" {
			if _, err := s.references.Verify(reference); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		s.metrics.GateRedirect()
		http.Redirect(w, r, loginURL(r.URL.RequestURI()), http.StatusTemporaryRedirect)
	})
}

// Resolve resolves the request's session and keeps the credential cookies in
// step with the stored record: the Authorization cookie is re-issued whenever
// the token differs, and both cookies are cleared once the session is unusable.
func (s *Server) Resolve(w http.ResponseWriter, r *http.Request, opts ...auth.ResolveOption) auth.Result {
	res := s.resolver.Resolve(r.Context(), cookieValue(r, sessionCookieName), opts...)

	switch {
	case res.Authenticated:
		if res.TokenChanged || cookieValue(r, authorizationCookieName) != bearerPrefix+res.AccessToken {
			s.SetAuthorizationCookie(w, r, res.AccessToken)
		}
	case res.Error != "" || cookieValue(r, authorizationCookieName) != "":
		s.ClearAuthCookies(w, r)
	}
	return res
}

// GetAccessToken returns the bearer token for backend calls, or "" when the
// request has no usable session. Callers must answer 401 on "".
func (s *Server) GetAccessToken(w http.ResponseWriter, r *http.Request) string {
	res := s.Resolve(w, r)
	if !res.Authenticated {
		return ""
	}
	return res.AccessToken
}

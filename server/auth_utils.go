package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// sessionCookieName holds the signed reference to the server-side session record
	sessionCookieName = "session"
	// authorizationCookieName holds "Bearer <token>" for handlers that call the backend directly
	authorizationCookieName = "Authorization"

	bearerPrefix = "Bearer "
)

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) isSecure(r *http.Request) bool {
	return getScheme(r) == "https" || s.config.GetEnv() == "PROD"
}

// SetSessionCookie writes the session reference. It lives as long as the session record.
func (s *Server) SetSessionCookie(w http.ResponseWriter, r *http.Request, reference string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    reference,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// SetAuthorizationCookie writes the bearer cookie derived from the session's
// current access token, with an absolute expiry.
func (s *Server) SetAuthorizationCookie(w http.ResponseWriter, r *http.Request, accessToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authorizationCookieName,
		Value:    bearerPrefix + accessToken,
		Path:     "/",
		Expires:  s.nowTime().Add(s.config.GetAuthCookieLifetime()),
		HttpOnly: true,
		Secure:   s.isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookies expires both credential cookies.
func (s *Server) ClearAuthCookies(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{sessionCookieName, authorizationCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   s.isSecure(r),
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// loginURL returns the login page carrying dest as the post-login destination.
func loginURL(dest string) string {
	if dest == "" || dest == RouteIndex {
		return RouteLogin
	}
	return RouteLogin + "?" + redirectParam + "=" + url.QueryEscape(dest)
}

// safeRedirect returns target when it is a local page path, otherwise "/".
// API routes are never a post-login destination.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return RouteIndex
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" {
		return RouteIndex
	}
	if u.Path == RouteLogin || u.Path == "/api" || strings.HasPrefix(u.Path, "/api/") {
		return RouteIndex
	}
	return target
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/reminder-bff/auth"
	apperrors "github.com/jrsteele09/reminder-bff/internal/errors"
	"github.com/jrsteele09/reminder-bff/sessions"
	"github.com/rs/zerolog/log"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Redirect string `json:"redirect"`
}

type loginResponse struct {
	OK       bool   `json:"ok"`
	Redirect string `json:"redirect"`
}

type sessionResponse struct {
	Authenticated bool                  `json:"authenticated"`
	User          *sessions.UserProfile `json:"user,omitempty"`
	Error         string                `json:"error,omitempty"`
}

// LoginPageHandler renders the login form. Visitors who already hold a usable
// session go straight to their destination.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirect := r.URL.Query().Get(redirectParam)
		if res := s.Resolve(w, r); res.Authenticated {
			http.Redirect(w, r, safeRedirect(redirect), http.StatusSeeOther)
			return
		}
		s.renderLogin(w, http.StatusOK, PageData{
			Redirect: redirect,
			Error:    r.URL.Query().Get("error"),
		})
	}
}

func (s *Server) renderLogin(w http.ResponseWriter, status int, data PageData) {
	data.Title = "Log in"
	data.GoogleEnabled = s.signIn.GoogleEnabled()
	s.render(w, status, "login.html", data)
}

// LoginSubmissionHandler signs in with email and password. It accepts either an
// HTML form post or a JSON body.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asJSON := isJSONRequest(r)

		var req loginRequest
		if asJSON {
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
				writeJSONError(w, http.StatusBadRequest, msgBadRequest)
				return
			}
		} else {
			if err := r.ParseForm(); err != nil {
				s.renderLogin(w, http.StatusBadRequest, PageData{Error: msgBadRequest})
				return
			}
			req = loginRequest{
				Email:    r.PostForm.Get("email"),
				Password: r.PostForm.Get("password"),
				Redirect: r.PostForm.Get(redirectParam),
			}
		}

		signedIn, err := s.signIn.PasswordSignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			if asJSON {
				writeKindError(w, r, err)
				return
			}
			data := PageData{Email: strings.TrimSpace(req.Email), Redirect: req.Redirect}
			status := http.StatusUnauthorized
			if apperrors.KindOf(err) == apperrors.KindInvalidCredentials {
				data.Error = msgBadLogin
			} else {
				log.Warn().Err(err).Msg("password sign-in failed")
				data.Error = msgTryAgain
				status = http.StatusBadGateway
			}
			s.renderLogin(w, status, data)
			return
		}

		s.setSignedInCookies(w, r, signedIn)
		dest := safeRedirect(req.Redirect)
		if asJSON {
			writeJSON(w, http.StatusOK, loginResponse{OK: true, Redirect: dest})
			return
		}
		redirectSuccess(w, r, dest)
	}
}

// GoogleSignInHandler starts the Google authorization code flow.
func (s *Server) GoogleSignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := s.signIn.BeginGoogleSignIn(r.Context(), safeRedirect(r.URL.Query().Get(redirectParam)))
		if err != nil {
			if !errors.Is(err, auth.ErrGoogleSignInDisabled) {
				log.Err(err).Msg("failed to start google sign-in")
			}
			http.Redirect(w, r, loginWithError("Google sign-in is unavailable."), http.StatusFound)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// GoogleCallbackHandler completes the Google flow and creates the session.
func (s *Server) GoogleCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if providerErr := query.Get("error"); providerErr != "" {
			log.Info().Str("error", providerErr).Msg("google sign-in cancelled")
			http.Redirect(w, r, loginWithError("Google sign-in was cancelled."), http.StatusFound)
			return
		}

		signedIn, err := s.signIn.CompleteGoogleSignIn(r.Context(), query.Get("state"), query.Get("code"))
		if err != nil {
			log.Warn().Err(err).Msg("google sign-in failed")
			msg := msgTryAgain
			if errors.Is(err, apperrors.ErrInvalidState) || apperrors.KindOf(err) == apperrors.KindUnauthenticated {
				msg = "Google sign-in failed, please try again."
			}
			http.Redirect(w, r, loginWithError(msg), http.StatusFound)
			return
		}

		s.setSignedInCookies(w, r, signedIn)
		http.Redirect(w, r, safeRedirect(signedIn.ReturnURL), http.StatusFound)
	}
}

// LogoutHandler deletes the session record and expires both cookies. It is
// only routed for POST so a link cannot sign the user out.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.signIn.SignOut(r.Context(), cookieValue(r, sessionCookieName)); err != nil {
			log.Err(err).Msg("failed to delete session")
		}
		s.ClearAuthCookies(w, r)

		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, loginResponse{OK: true, Redirect: RouteLogin})
			return
		}
		redirectSuccess(w, r, RouteLogin)
	}
}

// SessionHandler reports the current session to the browser. The access
// token is never included.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := s.Resolve(w, r)
		resp := sessionResponse{Authenticated: res.Authenticated, Error: res.Error}
		if res.Authenticated {
			resp.User = &res.User
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) setSignedInCookies(w http.ResponseWriter, r *http.Request, signedIn *auth.SignedIn) {
	s.SetSessionCookie(w, r, signedIn.Reference, signedIn.Session.ExpiresAt)
	s.SetAuthorizationCookie(w, r, signedIn.Session.AccessToken)
}

func loginWithError(msg string) string {
	return RouteLogin + "?error=" + url.QueryEscape(msg)
}

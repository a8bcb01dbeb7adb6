package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/reminder-bff/auth"
	"github.com/rs/zerolog/log"
)

const (
	howItWorksText = "Add the birthdays, anniversaries and other occasions you care about. We remind you ahead of time so you never miss one."
	aboutText      = "A small service that makes sure the people who matter hear from you on the days that matter."
	privacyText    = "We store your email address and the occasions you add. We never sell your data."
	termsText      = "Reminder credits are consumed when a reminder is sent. Unused credits do not expire."
)

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

// PublicPageHandler renders an informational page. It never requires a session
// but shows the signed-in user when there is one.
func (s *Server) PublicPageHandler(title, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := PageData{Title: title, Body: body}
		if res := s.Resolve(w, r); res.Authenticated {
			data.User = &res.User
		}
		s.render(w, http.StatusOK, "page.html", data)
	}
}

// IndexHandler renders the signed-in home page.
func (s *Server) IndexHandler() http.HandlerFunc {
	return s.userPage("Home", "home.html")
}

// ProfileHandler renders the user's profile with freshly enriched credits.
func (s *Server) ProfileHandler() http.HandlerFunc {
	return s.userPage("Profile", "profile.html")
}

// userPage resolves the session with profile enrichment and redirects to the
// login page when the session is no longer usable.
func (s *Server) userPage(title, templateName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := s.Resolve(w, r, auth.WithProfile())
		if !res.Authenticated {
			http.Redirect(w, r, loginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		s.render(w, http.StatusOK, templateName, PageData{Title: title, User: &res.User})
	}
}

func (s *Server) ForgotPasswordPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusOK, "forgot_password.html", PageData{Title: "Forgot password"})
	}
}

func (s *Server) ResetPasswordPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusOK, "reset_password.html", PageData{
			Title: "Reset password",
			Token: r.URL.Query().Get("token"),
		})
	}
}

// VerifyEmailPageHandler confirms the verification token from an emailed link.
// The backend requires the signed-in user's token, so anonymous visitors log in first.
func (s *Server) VerifyEmailPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken := s.GetAccessToken(w, r)
		if accessToken == "" {
			http.Redirect(w, r, loginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}

		data := PageData{Title: "Verify email"}
		resp, err := s.backend.VerifyEmail(r.Context(), accessToken, chi.URLParam(r, "token"))
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("email verification failed")
			data.Error = msgTryAgain
		case !resp.OK():
			data.Error = "This verification link is invalid or has expired."
		default:
			data.Message = "Your email address is verified."
		}
		s.render(w, http.StatusOK, "page.html", data)
	}
}

func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "404 - Page Not Found", http.StatusNotFound)
	}
}

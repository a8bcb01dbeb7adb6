package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/reminder-bff/backend"
	"github.com/rs/zerolog/log"
)

// RequestPasswordResetHandler forwards a reset request for an email address.
func (s *Server) RequestPasswordResetHandler() http.HandlerFunc {
	return s.anonymousPassThrough(s.backend.RequestPasswordReset, formReply{
		title:   "Forgot password",
		message: "If that address has an account, a reset link is on its way.",
	})
}

// ResetPasswordHandler forwards a new password together with its reset token.
func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return s.anonymousPassThrough(s.backend.ResetPassword, formReply{
		title:   "Reset password",
		message: "Your password has been changed. You can now log in.",
	})
}

func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return s.bearerPassThrough(func(r *http.Request, bearer string) (*backend.Response, error) {
		return s.backend.VerifyEmail(r.Context(), bearer, chi.URLParam(r, "token"))
	}, formReply{title: "Verify email", message: "Your email address is verified."})
}

func (s *Server) SendEmailVerificationHandler() http.HandlerFunc {
	return s.bearerPassThrough(func(r *http.Request, bearer string) (*backend.Response, error) {
		return s.backend.SendEmailVerification(r.Context(), bearer)
	}, formReply{title: "Verify email", message: "We sent you a new verification email."})
}

func (s *Server) UsersMeHandler() http.HandlerFunc {
	return s.bearerPassThrough(func(r *http.Request, bearer string) (*backend.Response, error) {
		return s.backend.MeRaw(r.Context(), bearer)
	}, formReply{})
}

// formReply is the page shown when a pass-through is posted from an HTML form.
type formReply struct {
	title   string
	message string
}

type anonymousCall func(ctx context.Context, body json.RawMessage) (*backend.Response, error)

func (s *Server) anonymousPassThrough(call anonymousCall, reply formReply) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBodyAsJSON(w, r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, msgBadRequest)
			return
		}
		resp, err := call(r.Context(), body)
		s.passThroughReply(w, r, resp, err, reply)
	}
}

// bearerPassThrough calls the backend with the session's current access token.
// Requests without a usable session get 401 and never reach the backend.
func (s *Server) bearerPassThrough(call func(r *http.Request, bearer string) (*backend.Response, error), reply formReply) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken := s.GetAccessToken(w, r)
		if accessToken == "" {
			if isFormPost(r) {
				http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
				return
			}
			writeJSONError(w, http.StatusUnauthorized, msgLogIn)
			return
		}
		resp, err := call(r, accessToken)
		s.passThroughReply(w, r, resp, err, reply)
	}
}

// passThroughReply relays the backend reply to API callers. Form posts get a
// rendered page instead.
func (s *Server) passThroughReply(w http.ResponseWriter, r *http.Request, resp *backend.Response, err error, reply formReply) {
	if err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("backend call failed")
	}

	if isFormPost(r) && reply.title != "" {
		data := PageData{Title: reply.title}
		status := http.StatusOK
		switch {
		case err != nil:
			data.Error = msgTryAgain
			status = http.StatusBadGateway
		case !resp.OK():
			data.Error = "That did not work. Check the details and try again."
			status = resp.StatusCode
		default:
			data.Message = reply.message
		}
		s.render(w, status, "page.html", data)
		return
	}

	if err != nil {
		writeJSONError(w, http.StatusBadGateway, msgTryAgain)
		return
	}
	relay(w, resp.StatusCode, resp.Body)
}

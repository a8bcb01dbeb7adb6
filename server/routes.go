package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	// Operational
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// Public pages
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteHowItWorks, ChainMiddleware(s.PublicPageHandler("How it works", howItWorksText), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAbout, ChainMiddleware(s.PublicPageHandler("About", aboutText), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RoutePrivacy, ChainMiddleware(s.PublicPageHandler("Privacy", privacyText), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteTerms, ChainMiddleware(s.PublicPageHandler("Terms", termsText), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteResetPassword, ChainMiddleware(s.ResetPasswordPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteVerifyEmail, ChainMiddleware(s.VerifyEmailPageHandler(), s.HTMLMiddleWare()...))

	// Gated pages
	s.RegisterRouteHandler("GET "+RouteIndex, ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteProfile, ChainMiddleware(s.ProfileHandler(), s.HTMLMiddleWare()...))

	// Auth API
	s.RegisterRouteHandler("POST "+RouteAPIAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIAuthGoogle, ChainMiddleware(s.GoogleSignInHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIAuthCallbackGoogle, ChainMiddleware(s.GoogleCallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIAuthSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))

	// Backend pass-through
	s.RegisterRouteHandler("POST "+RouteAPIRequestPasswordReset, ChainMiddleware(s.RequestPasswordResetHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIResetPassword, ChainMiddleware(s.ResetPasswordHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIVerifyEmail, ChainMiddleware(s.VerifyEmailHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPISendEmailVerification, ChainMiddleware(s.SendEmailVerificationHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIUsersMe, ChainMiddleware(s.UsersMeHandler(), s.APIMiddleware()...))

	// CORS preflight for the API
	s.RegisterRouteHandler("OPTIONS /api/*", ChainMiddleware(s.NotFoundHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteRobots, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := chi.URLParam(r, "*")
		if filePath == "" {
			filePath = strings.TrimPrefix(r.URL.Path, "/")
		}
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		if err := StreamFile(w, r, filePath); err != nil {
			logError(r.Method, filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}

func logError(method, path, error string) {
	var displayMethod string
	if color, ok := methodColors[method]; ok {
		displayMethod = color + method + ResetColor
	} else {
		displayMethod = Gray + method + ResetColor
	}
	log.Warn().Msgf("[%s] %s %s", displayMethod, path, Red+error+ResetColor)
}

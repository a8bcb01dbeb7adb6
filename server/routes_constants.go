package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Operational
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// Pages
	RouteIndex          = "/"
	RouteProfile        = "/profile"
	RouteLogin          = "/login"
	RouteHowItWorks     = "/how-it-works"
	RouteAbout          = "/about"
	RoutePrivacy        = "/privacy"
	RouteTerms          = "/terms"
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"
	RouteVerifyEmail    = "/verify-email/{token}"

	// Auth API
	RouteAPIAuthLogin             = "/api/auth/login"
	RouteAPIAuthLogout            = "/api/auth/logout"
	RouteAPIAuthSession           = "/api/auth/session"
	RouteAPIAuthGoogle            = "/api/auth/google"
	RouteAPIAuthCallbackGoogle    = "/api/auth/callback/google"
	RouteAPIRequestPasswordReset  = "/api/auth/request-password-reset"
	RouteAPIResetPassword         = "/api/auth/reset-password"
	RouteAPIVerifyEmail           = "/api/auth/verify-email/{token}"
	RouteAPISendEmailVerification = "/api/auth/send-email-verification"
	RouteAPIUsersMe               = "/api/users/me"

	// Static Asset Routes (patterns)
	RouteStatic  = "/static/*"
	RouteRobots  = "/robots.txt"
	RouteFavicon = "/favicon.ico"
)

// redirectParam carries the original destination through the login page.
const redirectParam = "redirect"

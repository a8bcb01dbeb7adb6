package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/reminder-bff/auth"
	"github.com/jrsteele09/reminder-bff/backend"
	"github.com/jrsteele09/reminder-bff/internal/config"
	"github.com/jrsteele09/reminder-bff/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators the HTTP layer is built on.
type Deps struct {
	Resolver   *auth.Resolver
	SignIn     *auth.Service
	Backend    *backend.Client
	References auth.ReferenceVerifier
	Metrics    *metrics.Metrics
	// Gatherer backs /metrics. Nil uses the default Prometheus registry.
	Gatherer prometheus.Gatherer
}

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	router     chi.Router
	routes     []string
	config     config.Config
	resolver   *auth.Resolver
	signIn     *auth.Service
	backend    *backend.Client
	references auth.ReferenceVerifier
	allowlist  *Allowlist
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	templates  map[string]*template.Template
	nowTime    func() time.Time
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Resolver == nil || deps.SignIn == nil || deps.Backend == nil || deps.References == nil {
		return nil, errors.New("[Server New] resolver, sign-in service, backend and reference verifier are required")
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		env:        cfg.GetEnv(),
		router:     chi.NewRouter(),
		config:     cfg,
		resolver:   deps.Resolver,
		signIn:     deps.SignIn,
		backend:    deps.Backend,
		references: deps.References,
		allowlist:  NewAllowlist(cfg.GetPublicPaths()...),
		metrics:    deps.Metrics,
		gatherer:   gatherer,
		templates:  templates,
		nowTime:    time.Now,
	}

	s.router.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.LoggingMiddleware,
		middleware.Recoverer,
		s.AccessGate,
	)
	s.router.NotFound(s.NotFoundHandler())

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RegisterRouteHandler registers handler for a "METHOD /path" pattern.
func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	method, path, found := strings.Cut(pattern, " ")
	if !found {
		s.router.Handle(pattern, handler)
		return
	}
	s.router.Method(method, path, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.RegisterRouteHandler(pattern, http.HandlerFunc(handler))
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}

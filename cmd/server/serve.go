package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/reminder-bff/auth"
	"github.com/jrsteele09/reminder-bff/auth/authflowrepo"
	"github.com/jrsteele09/reminder-bff/backend"
	"github.com/jrsteele09/reminder-bff/internal/config"
	"github.com/jrsteele09/reminder-bff/internal/metrics"
	"github.com/jrsteele09/reminder-bff/server"
	"github.com/jrsteele09/reminder-bff/sessions"
	"github.com/jrsteele09/reminder-bff/token"
	"github.com/jrsteele09/reminder-bff/token/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var purgeInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		displayAppname(c.GetAppName())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		repo, err := sessions.NewRepoFromConfig(ctx, c)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer repo.Close()

		flows, closeFlows, err := newFlowRepo(ctx, c)
		if err != nil {
			return fmt.Errorf("failed to open sign-in flow store: %w", err)
		}
		defer closeFlows()

		handler, err := buildServer(ctx, c, repo, flows)
		if err != nil {
			return err
		}

		if purgeInterval > 0 {
			go purgeExpired(ctx, repo, purgeInterval)
		}

		httpServer := &http.Server{
			Addr:              c.GetPort(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		done := make(chan error, 1)
		go func() {
			done <- listenAndServe(httpServer)
		}()

		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return shutdown(httpServer)
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().DurationVar(&purgeInterval, "purge-interval", 10*time.Minute, "How often expired sessions are removed (0 disables)")
}

func buildServer(ctx context.Context, c config.Config, repo sessions.Repo, flows authflowrepo.Repo) (*server.Server, error) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	references, err := token.NewReferenceSigner(c.GetSessionSecret())
	if err != nil {
		return nil, err
	}

	backendClient := backend.NewClientFromConfig(c)
	engine := refresh.NewEngine(refresh.SettingsFromConfig(c), nil, m)
	enricher := auth.NewProfileEnricher(backendClient, c.GetProfileRefreshInterval(), m)
	resolver := auth.NewResolver(repo, engine, references, enricher, m)

	var options []auth.ServiceOption
	if c.GetGoogleClientID() != "" {
		google, err := auth.NewGoogleProvider(ctx, c, c.GetBaseURL()+server.RouteAPIAuthCallbackGoogle)
		if err != nil {
			log.Warn().Err(err).Msg("google sign-in disabled")
		} else {
			options = append(options, auth.WithGoogle(google, flows))
		}
	}

	signIn, err := auth.NewService(repo, references, backendClient, auth.ServiceSettings{
		MaxSessionAge:             c.GetMaxSessionAge(),
		DefaultBackendTokenExpiry: c.GetDefaultBackendTokenExpiry(),
	}, m, options...)
	if err != nil {
		return nil, err
	}

	return server.New(c, server.Deps{
		Resolver:   resolver,
		SignIn:     signIn,
		Backend:    backendClient,
		References: references,
		Metrics:    m,
		Gatherer:   registry,
	})
}

// newFlowRepo keeps Google sign-in flows next to the sessions when they live in
// Redis, so a callback can be served by any instance.
func newFlowRepo(ctx context.Context, c config.Config) (authflowrepo.Repo, func() error, error) {
	if c.GetStoreDriver() != config.StoreDriverRedis {
		return authflowrepo.NewInMemoryRepo(c.GetAuthFlowTimeout()), func() error { return nil }, nil
	}
	client, err := sessions.ConnectRedis(ctx, c.GetRedisAddr(), c.GetRedisPassword(), c.GetRedisDB())
	if err != nil {
		return nil, nil, err
	}
	return authflowrepo.NewRedisRepo(client, "", c.GetAuthFlowTimeout()), client.Close, nil
}

func purgeExpired(ctx context.Context, repo sessions.Repo, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.DeleteExpired(ctx, now)
			if err != nil {
				log.Err(err).Msg("failed to purge expired sessions")
				continue
			}
			if n > 0 {
				log.Info().Int("count", n).Msg("purged expired sessions")
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

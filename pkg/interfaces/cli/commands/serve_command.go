package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vsinha/batchplan/pkg/config"
	"github.com/vsinha/batchplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/batchplan/pkg/interfaces/api"
	"github.com/vsinha/batchplan/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// ServeConfig holds configuration for the serve command
type ServeConfig struct {
	// ScenarioDir optionally seeds masters and stock before serving
	ScenarioDir string
	AsOf        string
}

// ServeCommand exposes the planner over HTTP until ctx is cancelled
type ServeCommand struct {
	config ServeConfig
	app    *config.Config
}

func NewServeCommand(cfg ServeConfig, app *config.Config) *ServeCommand {
	return &ServeCommand{config: cfg, app: app}
}

// Execute serves until ctx is done, then shuts the server down gracefully
func (c *ServeCommand) Execute(ctx context.Context) error {
	env, err := NewEnvironment(ctx, c.app)
	if err != nil {
		return err
	}
	defer env.Close()

	log := logger.With("serve")

	if c.config.ScenarioDir != "" {
		asOf, err := parseAsOf(c.config.AsOf)
		if err != nil {
			return fmt.Errorf("validation error: %w", err)
		}
		scenario, err := csv.NewLoader().LoadScenario(c.config.ScenarioDir, asOf)
		if err != nil {
			return fmt.Errorf("error loading scenario: %w", err)
		}
		if err := env.Seed(ctx, scenario); err != nil {
			return err
		}
		log.Info().Str("scenario", scenario.Name).Msg("scenario seeded")
	}

	router := api.NewRouter(&api.Services{
		Orchestrator: env.Orchestrator,
		Materials:    env.Materials,
		Stock:        env.Stock,
	}, c.app.Server.AllowedOrigins)

	port := c.app.Server.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  time.Duration(c.app.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(c.app.Server.WriteTimeout) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("Server exiting")
	return nil
}

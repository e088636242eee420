package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/waldemarhermann/netchat/internal/auth"
	"github.com/waldemarhermann/netchat/internal/config"
	"github.com/waldemarhermann/netchat/internal/core"
	"github.com/waldemarhermann/netchat/internal/store"
	"github.com/waldemarhermann/netchat/internal/store/sqlite"
	"github.com/waldemarhermann/netchat/internal/transport/tcp"
)

// App wires the store, the session registry, and the TCP transport together.
type App struct {
	server *tcp.Server
	store  store.Store
	log    *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	registry := core.NewRegistry()
	notifier := core.NewNotifier(st, registry, logger)
	authService := auth.NewService(st)
	dispatcher := core.NewDispatcher(registry, notifier, authService, st, logger)
	server := tcp.NewServer(cfg.Addr, dispatcher, registry, notifier, logger)

	return &App{
		server: server,
		store:  st,
		log:    logger,
	}, nil
}

// Run binds the listener and serves until context cancellation or a fatal
// accept error. A failure to bind aborts startup.
func (a *App) Run(ctx context.Context) error {
	if err := a.server.Listen(); err != nil {
		a.cleanup()
		return fmt.Errorf("bind listener: %w", err)
	}

	err := a.server.Serve(ctx)
	a.cleanup()
	return err
}

// cleanup closes the database.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

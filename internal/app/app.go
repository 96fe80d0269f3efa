package app

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat-server/internal/auth"
	"github.com/pollchat/pollchat-server/internal/config"
	"github.com/pollchat/pollchat-server/internal/core"
	"github.com/pollchat/pollchat-server/internal/store"
	"github.com/pollchat/pollchat-server/internal/store/memory"
	"github.com/pollchat/pollchat-server/internal/store/sqlite"
	transporthttp "github.com/pollchat/pollchat-server/internal/transport/http"
)

// sessionTTL is how long a login session stays valid.
const sessionTTL = 7 * 24 * time.Hour

// App wires together the store, services and HTTP transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	chat            *core.Service
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with the provided configuration. When the
// database path is empty or the database cannot be opened, the app falls back
// to the in-memory store and keeps serving.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st := openStore(cfg, logger)

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: "pollchat",
		TTL:    sessionTTL,
	})

	chat := core.NewService(st, core.Config{
		AdminSecret: cfg.AdminSecret,
		SuperAdmins: cfg.SuperAdmins,
	}, logger)

	server := transporthttp.NewServer(chat, authService, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		chat:            chat,
		store:           st,
		log:             logger,
	}, nil
}

func openStore(cfg *config.Config, logger *zerolog.Logger) store.Store {
	if cfg.DatabasePath == "" {
		logger.Info().Msg("no database path configured, using in-memory store")
		return memory.New()
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		logger.Warn().Err(err).Str("db_path", cfg.DatabasePath).
			Msg("failed to open database, falling back to in-memory store")
		return memory.New()
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")
	return st
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.chat.EnsureWorld(initCtx); err != nil {
		a.cleanup()
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the store and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

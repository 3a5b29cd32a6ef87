// Package server wires the reference sync server: store, services and the
// gRPC endpoint, with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/dmitrijs2005/clinicsync/internal/server/config"
	"github.com/dmitrijs2005/clinicsync/internal/server/records"
	"github.com/dmitrijs2005/clinicsync/internal/server/store"
	"github.com/dmitrijs2005/clinicsync/internal/server/users"

	gs "github.com/dmitrijs2005/clinicsync/internal/server/grpc"
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	store         store.Store
	userService   *users.Service
	recordService *records.Service
}

// NewLogger builds the server logger for the configured backend.
func NewLogger(c *config.Config) (logging.Logger, error) {
	if c.LogBackend == "slog" {
		h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logging.ParseLevel(c.LogLevel)})
		return logging.NewSlogLogger(slog.New(h)), nil
	}
	l, err := logging.NewZapProduction(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return l, nil
}

// openStore connects to PostgreSQL, or keeps everything in memory when no
// DSN is configured.
func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if c.DatabaseDSN == "" {
		return store.NewMemory(), nil
	}
	return store.OpenPostgres(ctx, c.DatabaseDSN)
}

func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	st, err := openStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	return &App{
		config:        c,
		logger:        l,
		store:         st,
		userService:   users.NewService(st, c, l),
		recordService: records.NewService(st, l),
	}, nil
}

// Run serves until ctx is done, then closes the store.
func (app *App) Run(ctx context.Context) error {
	backend := "memory"
	if app.config.DatabaseDSN != "" {
		backend = "postgres"
	}
	app.logger.Info(ctx, "Starting app...", "store", backend, "auto_approve", app.config.AutoApprove)

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.recordService,
		app.config.SecretKey, app.config.AdminToken)

	runErr := s.Run(ctx)
	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "close store", "error", err)
	}
	return runErr
}

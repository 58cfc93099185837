// Package app initializes and orchestrates the main components of the Finch
// application: configuration, database, job dispatcher and HTTP server.
package app

import (
	"context"
	"log/slog"

	"github.com/finch-review/finch/internal/config"
	"github.com/finch-review/finch/internal/core"
	"github.com/finch-review/finch/internal/db"
	"github.com/finch-review/finch/internal/server"
)

// App holds the main application components.
type App struct {
	ctx        context.Context
	cfg        *config.Config
	server     *server.Server
	logger     *slog.Logger
	dispatcher core.JobDispatcher
	dbConn     *db.DB
}

// NewApp assembles the application from its already-constructed components.
// Construction of the component graph lives in the wire package.
func NewApp(ctx context.Context, cfg *config.Config, dbConn *db.DB, dispatcher core.JobDispatcher, srv *server.Server, logger *slog.Logger) *App {
	return &App{
		ctx:        ctx,
		cfg:        cfg,
		server:     srv,
		logger:     logger,
		dispatcher: dispatcher,
		dbConn:     dbConn,
	}
}

// Start runs the HTTP server and blocks until shutdown.
func (a *App) Start() error {
	a.logger.Info("starting Finch",
		"server_port", a.cfg.ServerPort,
		"max_workers", a.cfg.MaxWorkers)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly: the HTTP server first to drain
// incoming requests, then the dispatcher so in-flight reviews finish, then
// the database pool.
func (a *App) Stop() error {
	a.logger.Info("shutting down Finch services")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.dispatcher.Stop()

	a.logger.Info("closing database connection")
	if err := a.dbConn.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("Finch stopped")
	return nil
}

// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/finch-review/finch/internal/app"
	"github.com/finch-review/finch/internal/config"
	"github.com/finch-review/finch/internal/db"
	"github.com/finch-review/finch/internal/jobs"
	"github.com/finch-review/finch/internal/llm"
	"github.com/finch-review/finch/internal/review"
	"github.com/finch-review/finch/internal/server"
	"github.com/finch-review/finch/internal/storage"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	loggerConfig := provideLoggerConfig(cfg)
	logWriter := provideLogWriter()
	slogLogger := provideSlogLogger(loggerConfig, logWriter)

	dbConfig := provideDBConfig(cfg)
	dbConn, dbCleanup, err := db.NewDatabase(dbConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := storage.NewStore(dbConn.DB)

	modelClient, err := provideModelClient(cfg, slogLogger)
	if err != nil {
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to create model client: %w", err)
	}

	promptMgr, err := llm.NewPromptManager()
	if err != nil {
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to create prompt manager: %w", err)
	}

	orchestrator := review.NewOrchestrator(modelClient, promptMgr, slogLogger)
	resolver := provideRepoConfigResolver(cfg, store, slogLogger)
	filter := provideFilter()

	reviewJob := jobs.NewReviewJob(cfg, store, resolver, orchestrator, filter, slogLogger)
	dispatcher := jobs.NewDispatcher(reviewJob, provideMaxWorkers(cfg), slogLogger)

	srv := server.NewServer(ctx, cfg, dispatcher, slogLogger)
	application := app.NewApp(ctx, cfg, dbConn, dispatcher, srv, slogLogger)

	cleanup := func() {
		dbCleanup()
	}
	return application, cleanup, nil
}

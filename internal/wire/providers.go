package wire

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/wire"

	"github.com/finch-review/finch/internal/app"
	"github.com/finch-review/finch/internal/config"
	"github.com/finch-review/finch/internal/db"
	"github.com/finch-review/finch/internal/jobs"
	"github.com/finch-review/finch/internal/llm"
	"github.com/finch-review/finch/internal/logger"
	"github.com/finch-review/finch/internal/review"
	"github.com/finch-review/finch/internal/server"
	"github.com/finch-review/finch/internal/storage"
)

// AppSet is the wire provider set for the full server application.
var AppSet = wire.NewSet(
	app.NewApp,
	server.NewServer,
	config.LoadConfig,
	provideRepoConfigResolver,
	db.NewDatabase,
	storage.NewStore,
	jobs.NewDispatcher,
	jobs.NewReviewJob,
	llm.NewPromptManager,
	review.NewOrchestrator,
	provideModelClient,
	provideFilter,
	provideMaxWorkers,
	provideLoggerConfig,
	provideLogWriter,
	provideSlogLogger,
	provideDBConfig,
)

func provideModelClient(cfg *config.Config, logger *slog.Logger) (llm.Client, error) {
	return llm.NewOpenAIClient(cfg.ModelAPIKey, cfg.ModelBaseURL, cfg.ModelTimeout, logger)
}

func provideRepoConfigResolver(cfg *config.Config, store storage.Store, logger *slog.Logger) *config.RepoConfigResolver {
	return config.NewRepoConfigResolver(store, logger, cfg.ModelName)
}

func provideFilter() *review.Filter {
	return review.NewFilter(nil)
}

func provideMaxWorkers(cfg *config.Config) int {
	return cfg.MaxWorkers
}

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return logger.Config{
		Level:  strings.ToLower(cfg.LogLevel.String()),
		Format: "text",
		Output: "stdout",
	}
}

func provideLogWriter() io.Writer {
	return os.Stdout
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	return logger.NewLogger(loggerConfig, writer)
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.DB
}

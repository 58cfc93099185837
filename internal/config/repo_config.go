package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"

	"github.com/finch-review/finch/internal/core"
	"github.com/finch-review/finch/internal/github"
	"github.com/finch-review/finch/internal/storage"
)

// RepoConfigFile is the per-repository configuration file name.
const RepoConfigFile = ".finch.yml"

var ErrConfigParsing = errors.New("config parsing failed")

// RepoConfigResolver resolves the effective review configuration for a
// repository. Precedence: .finch.yml at the PR head, then the stored
// configuration, then defaults. Results are cached per head SHA because the
// file cannot change without producing a new SHA.
type RepoConfigResolver struct {
	store        storage.Store
	cache        *cache.Cache
	logger       *slog.Logger
	defaultModel string
}

// NewRepoConfigResolver creates a resolver with a 15 minute cache. A
// non-empty defaultModel replaces the built-in model default, so the
// operator's MODEL_NAME applies to every repository that does not pick its
// own model in .finch.yml.
func NewRepoConfigResolver(store storage.Store, logger *slog.Logger, defaultModel string) *RepoConfigResolver {
	return &RepoConfigResolver{
		store:        store,
		cache:        cache.New(15*time.Minute, 30*time.Minute),
		logger:       logger,
		defaultModel: defaultModel,
	}
}

// defaults returns the baseline configuration with the operator's model
// substituted for the built-in default.
func (r *RepoConfigResolver) defaults() *core.RepoReviewConfig {
	cfg := core.DefaultRepoReviewConfig()
	if r.defaultModel != "" {
		cfg.Model = r.defaultModel
	}
	return cfg
}

// Resolve returns the effective configuration for the given event. It never
// fails: a broken .finch.yml or an unreachable store degrades to the next
// source, logged at warn level.
func (r *RepoConfigResolver) Resolve(ctx context.Context, gh github.Client, event *core.GitHubEvent) *core.RepoReviewConfig {
	key := event.RepoFullName + "@" + event.HeadSHA
	if cached, ok := r.cache.Get(key); ok {
		return cached.(*core.RepoReviewConfig)
	}

	cfg := r.resolve(ctx, gh, event)
	r.cache.Set(key, cfg, cache.DefaultExpiration)
	return cfg
}

func (r *RepoConfigResolver) resolve(ctx context.Context, gh github.Client, event *core.GitHubEvent) *core.RepoReviewConfig {
	data, err := gh.GetFileContent(ctx, event.RepoOwner, event.RepoName, RepoConfigFile, event.HeadSHA)
	if err == nil {
		cfg, parseErr := ParseRepoConfigOver(data, r.defaults())
		if parseErr == nil {
			return cfg
		}
		r.logger.Warn("ignoring malformed repo config file",
			"repo", event.RepoFullName, "file", RepoConfigFile, "error", parseErr)
	}

	if r.store != nil {
		cfg, storeErr := r.store.GetRepoConfig(ctx, event.RepoFullName)
		if storeErr == nil {
			return cfg
		}
		if !errors.Is(storeErr, storage.ErrNotFound) {
			r.logger.Warn("failed to load stored repo config",
				"repo", event.RepoFullName, "error", storeErr)
		}
	}

	return r.defaults()
}

// ParseRepoConfig parses a .finch.yml document on top of the built-in
// defaults.
func ParseRepoConfig(data []byte) (*core.RepoReviewConfig, error) {
	return ParseRepoConfigOver(data, core.DefaultRepoReviewConfig())
}

// ParseRepoConfigOver parses a .finch.yml document on top of the supplied
// baseline. The baseline is mutated and returned.
func ParseRepoConfigOver(data []byte, baseline *core.RepoReviewConfig) (*core.RepoReviewConfig, error) {
	if err := yaml.Unmarshal(data, baseline); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}
	return baseline, nil
}

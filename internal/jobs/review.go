// Package jobs defines background tasks such as code reviews.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/finch-review/finch/internal/config"
	"github.com/finch-review/finch/internal/core"
	"github.com/finch-review/finch/internal/github"
	"github.com/finch-review/finch/internal/review"
	"github.com/finch-review/finch/internal/storage"
)

// clientFactory builds an installation-scoped GitHub client for an event.
// Injected so tests can substitute a mock client.
type clientFactory func(ctx context.Context, appID int64, privateKeyPath string, installationID int64, logger *slog.Logger) (github.Client, error)

// ReviewJob is the background job that runs one full AI review for a pull
// request event: fetch context, generate, finalize, filter, persist, post.
type ReviewJob struct {
	cfg       *config.Config
	store     storage.Store
	resolver  *config.RepoConfigResolver
	orch      *review.Orchestrator
	filter    *review.Filter
	logger    *slog.Logger
	newClient clientFactory

	mu       sync.Mutex
	breakers map[string]*review.CircuitBreaker // keyed by repo full name
}

// NewReviewJob creates a ReviewJob.
func NewReviewJob(cfg *config.Config, store storage.Store, resolver *config.RepoConfigResolver, orch *review.Orchestrator, filter *review.Filter, logger *slog.Logger) core.Job {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if orch == nil {
		panic("orchestrator cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if filter == nil {
		filter = review.NewFilter(nil)
	}
	return &ReviewJob{
		cfg:       cfg,
		store:     store,
		resolver:  resolver,
		orch:      orch,
		filter:    filter,
		logger:    logger,
		newClient: github.CreateInstallationClient,
		breakers:  make(map[string]*review.CircuitBreaker),
	}
}

// Run executes the code review job for a given GitHub event.
func (j *ReviewJob) Run(ctx context.Context, event *core.GitHubEvent) error {
	if err := j.validateInputs(ctx, event); err != nil {
		j.logger.Error("input validation failed", "error", err)
		return fmt.Errorf("input validation failed: %w", err)
	}

	j.logger.Info("starting review job", "repo", event.RepoFullName, "pr", event.PRNumber)

	ghClient, err := j.newClient(ctx, j.cfg.GitHubAppID, j.cfg.GitHubPrivateKeyPath, event.InstallationID, j.logger)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	pr, err := ghClient.GetPullRequest(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
	if err != nil {
		return fmt.Errorf("failed to get PR details: %w", err)
	}
	if pr.GetHead() == nil || pr.GetHead().GetSHA() == "" {
		return fmt.Errorf("PR %d has no valid head SHA", event.PRNumber)
	}
	event.HeadSHA = pr.GetHead().GetSHA()

	statusUpdater := github.NewStatusUpdater(ghClient)
	checkRunID, err := statusUpdater.InProgress(ctx, event, "Code Review", "AI analysis in progress...")
	if err != nil {
		return fmt.Errorf("failed to set in-progress status: %w", err)
	}

	prCtx, repoCfg, stats, err := j.gatherContext(ctx, ghClient, event)
	if err != nil {
		j.updateStatusOnError(ctx, statusUpdater, event, checkRunID, "Failed to gather pull request context")
		return err
	}

	env, err := j.orch.GenerateReview(ctx, prCtx, repoCfg, j.breakerFor(event.RepoFullName))
	if err != nil {
		j.updateStatusOnError(ctx, statusUpdater, event, checkRunID, "Review generation failed")
		return fmt.Errorf("failed to generate review: %w", err)
	}

	final, usedFallback := review.Finalize(env.Parsed, env.FallbackComments)

	filterCfg := *repoCfg
	filterCfg.IgnoreMinorThreshold, filterCfg.IgnoreMajorThreshold = review.ResolveThresholds(repoCfg, stats)
	final.Comments = j.filter.Apply(final.Comments, &filterCfg)

	if err := j.persist(ctx, event, env, final, usedFallback); err != nil {
		// Persistence problems should not block the review from reaching the PR.
		j.logger.Error("failed to persist review", "repo", event.RepoFullName, "pr", event.PRNumber, "error", err)
	}

	inline, offDiff := SplitCommentsByDiff(j.logger, final.Comments, validLineMaps(prCtx.ChangedFiles, j.logger))
	if err := statusUpdater.PostStructuredReview(ctx, event, final, inline, offDiff); err != nil {
		j.updateStatusOnError(ctx, statusUpdater, event, checkRunID, "Failed to post review")
		return fmt.Errorf("failed to post review: %w", err)
	}

	conclusion, title, summary := "success", "Review Complete", "AI analysis finished successfully"
	if usedFallback {
		conclusion, title, summary = "neutral", "Review Degraded", "The model response could not be validated; synthesized findings were posted instead"
	}
	if err := statusUpdater.Completed(ctx, event, checkRunID, conclusion, title, summary); err != nil {
		return fmt.Errorf("failed to update completion status: %w", err)
	}

	j.logger.Info("review job completed",
		"repo", event.RepoFullName,
		"pr", event.PRNumber,
		"comments", len(final.Comments),
		"used_fallback", usedFallback,
		"retries", env.Metadata.RetryCount,
	)
	return nil
}

// gatherContext fetches the changed files, the effective repo configuration
// and the feedback statistics concurrently.
func (j *ReviewJob) gatherContext(ctx context.Context, ghClient github.Client, event *core.GitHubEvent) (*core.PRContext, *core.RepoReviewConfig, map[core.Severity]core.FeedbackStat, error) {
	var (
		files   []core.ChangedFile
		repoCfg *core.RepoReviewConfig
		stats   map[core.Severity]core.FeedbackStat
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		files, err = ghClient.GetChangedFiles(gctx, event.RepoOwner, event.RepoName, event.PRNumber)
		if err != nil {
			return fmt.Errorf("failed to list changed files: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if j.resolver == nil {
			repoCfg = core.DefaultRepoReviewConfig()
			return nil
		}
		repoCfg = j.resolver.Resolve(gctx, ghClient, event)
		return nil
	})
	g.Go(func() error {
		if j.store == nil {
			return nil
		}
		var err error
		stats, err = j.store.GetFeedbackStats(gctx, event.RepoFullName)
		if err != nil {
			// Adaptive thresholds degrade to configured values without stats.
			j.logger.Warn("failed to load feedback stats", "repo", event.RepoFullName, "error", err)
			stats = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	return &core.PRContext{
		RepoFullName: event.RepoFullName,
		Number:       event.PRNumber,
		Title:        event.PRTitle,
		Description:  event.PRBody,
		Author:       event.PRAuthor,
		HeadSHA:      event.HeadSHA,
		ChangedFiles: files,
	}, repoCfg, stats, nil
}

// breakerFor returns the circuit breaker for a repository, creating it on
// first use. Breaker state is shared across jobs for the same repository.
func (j *ReviewJob) breakerFor(repoFullName string) *review.CircuitBreaker {
	j.mu.Lock()
	defer j.mu.Unlock()
	b, ok := j.breakers[repoFullName]
	if !ok {
		b = review.NewCircuitBreaker()
		j.breakers[repoFullName] = b
	}
	return b
}

// persist saves the finalized review with its envelope metadata.
func (j *ReviewJob) persist(ctx context.Context, event *core.GitHubEvent, env *core.Envelope, final *core.StructuredReview, usedFallback bool) error {
	if j.store == nil {
		return nil
	}
	commentsJSON, err := json.Marshal(final.Comments)
	if err != nil {
		return fmt.Errorf("encoding comments: %w", err)
	}
	return j.store.SaveReview(ctx, &core.ReviewRecord{
		RepoFullName: event.RepoFullName,
		PRNumber:     event.PRNumber,
		HeadSHA:      event.HeadSHA,
		Summary:      final.Summary,
		CommentsJSON: commentsJSON,
		Success:      env.Metadata.Success,
		UsedFallback: usedFallback,
		RetryCount:   env.Metadata.RetryCount,
		AnalysisMS:   env.Metadata.AnalysisTime.Milliseconds(),
	})
}

// validLineMaps parses every changed file's patch into the set of
// commentable line numbers.
func validLineMaps(files []core.ChangedFile, logger *slog.Logger) map[string]map[int]struct{} {
	maps := make(map[string]map[int]struct{}, len(files))
	for _, f := range files {
		if f.Patch == "" {
			continue
		}
		maps[f.Path] = github.ParseValidLinesFromPatch(f.Patch, logger)
	}
	return maps
}

// validateInputs ensures the event contains all required fields.
func (j *ReviewJob) validateInputs(ctx context.Context, event *core.GitHubEvent) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.RepoOwner == "" {
		return fmt.Errorf("repository owner cannot be empty")
	}
	if event.RepoName == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if event.RepoFullName == "" {
		return fmt.Errorf("repository full name cannot be empty")
	}
	if event.PRNumber <= 0 {
		return fmt.Errorf("pull request number must be positive, got: %d", event.PRNumber)
	}
	if event.InstallationID <= 0 {
		return fmt.Errorf("installation ID must be positive, got: %d", event.InstallationID)
	}
	return nil
}

// updateStatusOnError sends a failure status to GitHub Check Runs.
func (j *ReviewJob) updateStatusOnError(ctx context.Context, statusUpdater github.StatusUpdater, event *core.GitHubEvent, checkRunID int64, message string) {
	if err := statusUpdater.Completed(ctx, event, checkRunID, "failure", "Review Failed", message); err != nil {
		j.logger.Error("failed to update failure status", "error", err)
	}
}

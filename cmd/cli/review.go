package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finch-review/finch/internal/config"
	"github.com/finch-review/finch/internal/core"
	"github.com/finch-review/finch/internal/github"
	"github.com/finch-review/finch/internal/llm"
	"github.com/finch-review/finch/internal/review"
)

var verbose bool

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	infoColor    = color.New(color.FgWhite)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

var reviewCmd = &cobra.Command{
	Use:   "review [pr-url]",
	Short: "Run a one-off AI code review for a GitHub Pull Request",
	Long: `Run a one-off AI code review for a GitHub Pull Request.

The review command fetches the PR diff, sends it to the configured model and
prints the validated, filtered review to the terminal. Nothing is posted to
GitHub.

Examples:
  finch-cli review https://github.com/owner/repo/pull/123
  finch-cli review --verbose https://github.com/owner/repo/pull/123`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output with timing information")
	rootCmd.AddCommand(reviewCmd)
}

// stepTimer tracks timing for verbose output
type stepTimer struct {
	stepNum    int
	totalSteps int
	start      time.Time
	verbose    bool
}

func newStepTimer(totalSteps int, verbose bool) *stepTimer {
	return &stepTimer{
		stepNum:    0,
		totalSteps: totalSteps,
		verbose:    verbose,
	}
}

func (t *stepTimer) step(name string) {
	t.stepNum++
	t.start = time.Now()
	if t.verbose {
		titleColor.Printf("\n🔧 Step %d/%d: %s...\n", t.stepNum, t.totalSteps, name)
	} else {
		fmt.Printf("%s...\n", name)
	}
}

func (t *stepTimer) done(details ...string) {
	if t.verbose {
		elapsed := time.Since(t.start).Round(time.Millisecond)
		successColor.Printf("   ✓ Done (%s)\n", elapsed)
		for _, d := range details {
			dimColor.Printf("   └── %s\n", d)
		}
	}
}

func (t *stepTimer) info(format string, args ...any) {
	if t.verbose {
		dimColor.Printf("   ├── "+format+"\n", args...)
	}
}

func runReview(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	prURL := args[0]

	timer := newStepTimer(4, verbose)
	overallStart := time.Now()

	titleColor.Println("🐦 Finch - PR Review")
	dimColor.Printf("   Target: %s\n\n", prURL)

	logger := cliLogger()

	// 1. Parse URL and fetch PR metadata
	timer.step("Fetching PR metadata")
	owner, repoName, prNumber, err := parsePullRequestURL(prURL)
	if err != nil {
		return fmt.Errorf("invalid PR URL: %w\n\nExpected format: https://github.com/owner/repo/pull/123", err)
	}

	token := resolveGitHubToken()
	if token == "" {
		return fmt.Errorf("GITHUB_TOKEN is not set\n\nTip: Set FINCH_GITHUB_TOKEN or GITHUB_TOKEN environment variable")
	}
	ghClient := github.NewPATClient(ctx, token, logger)

	pr, err := ghClient.GetPullRequest(ctx, owner, repoName, prNumber)
	if err != nil {
		return fmt.Errorf("failed to fetch PR: %w\n\nTip: Check that the PR exists and your token has access", err)
	}
	headSHA := pr.GetHead().GetSHA()

	files, err := ghClient.GetChangedFiles(ctx, owner, repoName, prNumber)
	if err != nil {
		return fmt.Errorf("failed to list changed files: %w", err)
	}

	timer.info("PR #%d: %s", pr.GetNumber(), pr.GetTitle())
	timer.info("Head SHA: %s", truncateSHA(headSHA))
	timer.info("Changed files: %d", len(files))
	timer.done()

	// 2. Resolve per-repository review configuration
	timer.step("Loading repository configuration")
	repoCfg := resolveRepoConfig(ctx, ghClient, owner, repoName, headSHA, timer)
	timer.info("Model: %s", repoCfg.Model)
	timer.info("Max comments: %d", repoCfg.MaxCommentsPerReview)
	timer.done()

	// 3. Generate Review
	timer.step("Generating review")
	prCtx := &core.PRContext{
		RepoFullName: fmt.Sprintf("%s/%s", owner, repoName),
		Number:       prNumber,
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		Author:       pr.GetUser().GetLogin(),
		HeadSHA:      headSHA,
		ChangedFiles: files,
	}

	env, err := generateReview(ctx, prCtx, repoCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to generate review: %w\n\nTip: Check that FINCH_MODEL_API_KEY is set and the model endpoint is reachable", err)
	}
	timer.info("Retries: %d", env.Metadata.RetryCount)
	timer.done()

	// 4. Finalize and filter
	timer.step("Finalizing review")
	final, usedFallback := review.Finalize(env.Parsed, env.FallbackComments)

	filterCfg := *repoCfg
	filterCfg.IgnoreMinorThreshold, filterCfg.IgnoreMajorThreshold = review.ResolveThresholds(repoCfg, nil)
	final.Comments = review.NewFilter(nil).Apply(final.Comments, &filterCfg)
	timer.info("Comments after filtering: %d", len(final.Comments))
	timer.done()

	if verbose {
		dimColor.Printf("\n⏱️  Total time: %s\n", time.Since(overallStart).Round(time.Millisecond))
	}
	if usedFallback {
		warnColor.Println("\n⚠️  The model response could not be validated; showing synthesized findings.")
	}

	printReview(final)
	return nil
}

// generateReview wires the one-off model pipeline from environment settings.
func generateReview(ctx context.Context, prCtx *core.PRContext, repoCfg *core.RepoReviewConfig, logger *slog.Logger) (*core.Envelope, error) {
	timeout := viper.GetDuration("MODEL_TIMEOUT")
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	modelClient, err := llm.NewOpenAIClient(viper.GetString("MODEL_API_KEY"), viper.GetString("MODEL_BASE_URL"), timeout, logger)
	if err != nil {
		return nil, err
	}
	prompts, err := llm.NewPromptManager()
	if err != nil {
		return nil, err
	}
	orch := review.NewOrchestrator(modelClient, prompts, logger)
	return orch.GenerateReview(ctx, prCtx, repoCfg, review.NewCircuitBreaker())
}

// resolveRepoConfig fetches .finch.yml from the PR head, falling back to
// defaults. A one-off CLI run has no database, so the stored config layer is
// skipped. FINCH_MODEL_NAME overrides the built-in default model for
// repositories whose .finch.yml does not pick one.
func resolveRepoConfig(ctx context.Context, ghClient github.Client, owner, repoName, headSHA string, timer *stepTimer) *core.RepoReviewConfig {
	defaults := func() *core.RepoReviewConfig {
		cfg := core.DefaultRepoReviewConfig()
		if model := viper.GetString("MODEL_NAME"); model != "" {
			cfg.Model = model
		}
		return cfg
	}

	data, err := ghClient.GetFileContent(ctx, owner, repoName, config.RepoConfigFile, headSHA)
	if err != nil {
		timer.info("No %s found, using defaults", config.RepoConfigFile)
		return defaults()
	}
	cfg, err := config.ParseRepoConfigOver(data, defaults())
	if err != nil {
		errorColor.Printf("   ✗ Invalid %s, using defaults: %v\n", config.RepoConfigFile, err)
		return defaults()
	}
	timer.info("Loaded %s from head commit", config.RepoConfigFile)
	return cfg
}

// parsePullRequestURL extracts owner, repository and PR number from a GitHub
// pull request URL such as https://github.com/owner/repo/pull/123.
func parsePullRequestURL(rawURL string) (owner, repo string, number int, err error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	trimmed = strings.TrimSuffix(trimmed, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 5 || parts[0] != "github.com" || parts[3] != "pull" {
		return "", "", 0, fmt.Errorf("unrecognized pull request URL %q", rawURL)
	}
	number, err = strconv.Atoi(parts[4])
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("invalid pull request number %q", parts[4])
	}
	return parts[1], parts[2], number, nil
}

// cliLogger logs to stderr so command output on stdout stays clean. Verbose
// mode lowers the level to debug.
func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func truncateSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func printReview(final *core.StructuredReview) {
	separator := strings.Repeat("═", 60)

	fmt.Println()
	titleColor.Println(separator)
	titleColor.Println("📋 REVIEW SUMMARY")
	titleColor.Println(separator)
	fmt.Println()

	rendered, err := glamour.Render(final.Summary, "auto")
	if err != nil {
		infoColor.Println(final.Summary)
	} else {
		fmt.Print(rendered)
	}

	if len(final.Comments) == 0 {
		fmt.Println()
		successColor.Println("✅ No issues found!")
		return
	}

	thinSeparator := strings.Repeat("─", 60)
	fmt.Println()
	warnColor.Println(thinSeparator)
	warnColor.Printf("💡 FINDINGS (%d)\n", len(final.Comments))
	warnColor.Println(thinSeparator)

	for i, c := range final.Comments {
		fmt.Println()
		printSeverityBadge(c.Severity)
		boldColor.Printf(" %s", c.FilePath)
		dimColor.Printf(":%d\n", c.Line)

		fmt.Println()
		infoColor.Printf("%s\n", c.Message)
		dimColor.Printf("   Why: %s\n", c.Rationale)
		if c.Suggestion != "" {
			fmt.Println()
			infoColor.Println("   Suggested change:")
			for _, line := range strings.Split(c.Suggestion, "\n") {
				dimColor.Printf("   | %s\n", line)
			}
		}

		if i < len(final.Comments)-1 {
			fmt.Println()
			dimColor.Println(strings.Repeat("─", 40))
		}
	}
	fmt.Println()
}

func printSeverityBadge(severity core.Severity) {
	switch severity {
	case core.SeverityCritical:
		color.New(color.BgRed, color.FgWhite, color.Bold).Printf(" %s ", severity)
	case core.SeverityMajor:
		color.New(color.BgYellow, color.FgBlack).Printf(" %s ", severity)
	case core.SeverityMinor:
		color.New(color.BgGreen, color.FgWhite).Printf(" %s ", severity)
	default:
		color.New(color.BgWhite, color.FgBlack).Printf(" %s ", severity)
	}
}

package review

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finch-review/finch/internal/core"
	"github.com/finch-review/finch/internal/llm"
)

// scriptedClient returns canned responses in order, repeating the last one
// once the script runs out.
type scriptedClient struct {
	script []scriptedStep
	calls  int
}

type scriptedStep struct {
	content string
	err     error
}

func (c *scriptedClient) Complete(_ context.Context, _ llm.Request) (llm.Response, error) {
	idx := c.calls
	c.calls++
	if idx >= len(c.script) {
		idx = len(c.script) - 1
	}
	step := c.script[idx]
	if step.err != nil {
		return llm.Response{}, step.err
	}
	return llm.Response{Content: step.content}, nil
}

// recordingSleeper captures backoff delays instead of sleeping.
type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestOrchestrator(t *testing.T, client llm.Client) (*Orchestrator, *recordingSleeper) {
	t.Helper()
	pm, err := llm.NewPromptManager()
	require.NoError(t, err)

	sleeper := &recordingSleeper{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(client, pm, logger).WithSleeper(sleeper.sleep), sleeper
}

func testPRContext() *core.PRContext {
	return &core.PRContext{
		RepoFullName: "acme/rocket",
		Number:       7,
		Title:        "Add retry handling",
		ChangedFiles: []core.ChangedFile{{Path: "a.go", Patch: "@@ -1,2 +1,3 @@", Additions: 10, Deletions: 2}},
	}
}

func TestGenerateReview_SucceedsFirstTry(t *testing.T) {
	client := &scriptedClient{script: []scriptedStep{{content: validReviewJSON}}}
	orch, sleeper := newTestOrchestrator(t, client)

	env, err := orch.GenerateReview(context.Background(), testPRContext(), core.DefaultRepoReviewConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls, "success must short-circuit remaining retries")
	assert.Empty(t, sleeper.delays)
	assert.True(t, env.Metadata.Success)
	assert.Equal(t, 0, env.Metadata.RetryCount)
	require.NotNil(t, env.Parsed)
	require.Len(t, env.Parsed.Comments, 1)
	assert.Equal(t, "a.ts", env.Parsed.Comments[0].FilePath)
	assert.Empty(t, env.FallbackComments)
	assert.NotEmpty(t, env.ID)
}

func TestGenerateReview_KeepsFindingWithExtraNestedField(t *testing.T) {
	const doc = `{"summary":"one injection risk found","comments":[{"filePath":"a.go","line":5,"severity":"critical","message":"SQL injection","rationale":"user input concatenated into query string","confidence":0.9}]}`
	client := &scriptedClient{script: []scriptedStep{{content: doc}}}
	orch, sleeper := newTestOrchestrator(t, client)

	env, err := orch.GenerateReview(context.Background(), testPRContext(), core.DefaultRepoReviewConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls, "an invented nested key must not burn a retry")
	assert.Empty(t, sleeper.delays)
	assert.True(t, env.Metadata.Success)
	assert.False(t, env.Metadata.UsedFallback)
	require.NotNil(t, env.Parsed)
	require.Len(t, env.Parsed.Comments, 1)
	assert.Equal(t, "SQL injection", env.Parsed.Comments[0].Message)
}

func TestGenerateReview_ExhaustsRetryBudgetOnGarbage(t *testing.T) {
	client := &scriptedClient{script: []scriptedStep{
		{content: "the model refused to answer and wrote a poem instead"},
	}}
	orch, sleeper := newTestOrchestrator(t, client)

	env, err := orch.GenerateReview(context.Background(), testPRContext(), core.DefaultRepoReviewConfig(), nil)
	require.NoError(t, err, "exhaustion is a degraded success, not an error")

	assert.Equal(t, 8, client.calls, "exactly eight attempts for parse failures")
	assert.False(t, env.Metadata.Success)
	assert.True(t, env.Metadata.UsedFallback)
	assert.NotEmpty(t, env.FallbackComments)
	assert.NotEmpty(t, env.ValidationErrors)

	// Capped exponential backoff: 3s, 6s, 12s, then 24s for the rest.
	want := []time.Duration{
		3 * time.Second, 6 * time.Second, 12 * time.Second,
		24 * time.Second, 24 * time.Second, 24 * time.Second, 24 * time.Second,
	}
	assert.Equal(t, want, sleeper.delays)
}

func TestGenerateReview_RateLimitSchedule(t *testing.T) {
	rateLimited := llm.ClassifyStatus(429, "slow down")
	client := &scriptedClient{script: []scriptedStep{
		{err: rateLimited},
		{err: rateLimited},
		{err: rateLimited},
		{content: validReviewJSON},
	}}
	orch, sleeper := newTestOrchestrator(t, client)

	env, err := orch.GenerateReview(context.Background(), testPRContext(), core.DefaultRepoReviewConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, client.calls, "succeeds on the fourth try")
	assert.True(t, env.Metadata.Success)
	assert.Equal(t, 3, env.Metadata.RetryCount)
	assert.Equal(t, []time.Duration{8 * time.Second, 16 * time.Second, 32 * time.Second}, sleeper.delays)
}

func TestGenerateReview_ServerErrorsUseGenericSchedule(t *testing.T) {
	serverErr := llm.ClassifyStatus(502, "bad gateway")
	client := &scriptedClient{script: []scriptedStep{
		{err: serverErr},
		{err: serverErr},
		{content: validReviewJSON},
	}}
	orch, sleeper := newTestOrchestrator(t, client)

	env, err := orch.GenerateReview(context.Background(), testPRContext(), core.DefaultRepoReviewConfig(), nil)
	require.NoError(t, err)

	assert.True(t, env.Metadata.Success)
	assert.Equal(t, []time.Duration{3 * time.Second, 6 * time.Second}, sleeper.delays)
}

func TestGenerateReview_FatalErrorAbortsImmediately(t *testing.T) {
	client := &scriptedClient{script: []scriptedStep{
		{err: llm.ClassifyStatus(401, "bad credentials")},
	}}
	orch, sleeper := newTestOrchestrator(t, client)

	env, err := orch.GenerateReview(context.Background(), testPRContext(), core.DefaultRepoReviewConfig(), nil)
	require.Error(t, err)

	assert.Equal(t, 1, client.calls, "fatal errors are never retried")
	assert.Empty(t, sleeper.delays)
	assert.False(t, env.Metadata.Success)
	assert.Empty(t, env.FallbackComments, "configuration problems do not get content fallbacks")
	assert.NotEmpty(t, env.Metadata.Error)
}

func TestGenerateReview_ValidationFailureThenSuccess(t *testing.T) {
	// Parseable JSON that fails schema validation (extra top-level field).
	invalid := `{"summary":"a perfectly fine summary","comments":[],"verdict":"APPROVE"}`
	client := &scriptedClient{script: []scriptedStep{
		{content: invalid},
		{content: validReviewJSON},
	}}
	orch, sleeper := newTestOrchestrator(t, client)

	env, err := orch.GenerateReview(context.Background(), testPRContext(), core.DefaultRepoReviewConfig(), nil)
	require.NoError(t, err)

	assert.True(t, env.Metadata.Success)
	assert.Equal(t, 1, env.Metadata.RetryCount)
	assert.Equal(t, []time.Duration{3 * time.Second}, sleeper.delays)
	assert.NotEmpty(t, env.ValidationErrors, "validation errors from failed attempts are carried in the envelope")
}

func TestGenerateReview_OpenBreakerBlocksCall(t *testing.T) {
	client := &scriptedClient{script: []scriptedStep{{content: validReviewJSON}}}
	orch, _ := newTestOrchestrator(t, client)

	breaker := NewCircuitBreaker()
	breaker.State = BreakerOpen
	breaker.LastFailureTime = time.Now()

	_, err := orch.GenerateReview(context.Background(), testPRContext(), core.DefaultRepoReviewConfig(), breaker)
	require.Error(t, err)
	assert.Equal(t, 0, client.calls)
}

func TestGenerateReview_SuccessClosesBreaker(t *testing.T) {
	client := &scriptedClient{script: []scriptedStep{{content: validReviewJSON}}}
	orch, _ := newTestOrchestrator(t, client)

	breaker := NewCircuitBreaker()
	breaker.FailureCount = 3

	_, err := orch.GenerateReview(context.Background(), testPRContext(), core.DefaultRepoReviewConfig(), breaker)
	require.NoError(t, err)
	assert.Equal(t, BreakerClosed, breaker.State)
	assert.Equal(t, 0, breaker.FailureCount)
}

func TestCircuitBreaker_OpensAfterThresholdAndHalfOpensAfterCooldown(t *testing.T) {
	b := NewCircuitBreaker()
	now := time.Now()

	for range breakerFailureThreshold {
		b.RecordFailure(now)
	}
	assert.Equal(t, BreakerOpen, b.State)
	assert.False(t, b.Allow(now.Add(breakerCooldown/2)))

	assert.True(t, b.Allow(now.Add(breakerCooldown)))
	assert.Equal(t, BreakerHalfOpen, b.State)
}

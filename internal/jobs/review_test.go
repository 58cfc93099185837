package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	gh "github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/finch-review/finch/internal/config"
	"github.com/finch-review/finch/internal/core"
	"github.com/finch-review/finch/internal/github"
	"github.com/finch-review/finch/internal/llm"
	"github.com/finch-review/finch/internal/review"
	"github.com/finch-review/finch/internal/storage"
	"github.com/finch-review/finch/mocks"
)

const reviewJSON = `{"summary":"one serious problem found","comments":[{"filePath":"a.go","line":5,"severity":"critical","message":"SQL injection","rationale":"user input concatenated into query string without parameterization"}]}`

// Patch where new-side lines 1 through 6 are commentable.
const testPatch = "@@ -1,5 +1,6 @@\n l1\n l2\n+l3\n l4\n l5\n l6"

func testEvent() *core.GitHubEvent {
	return &core.GitHubEvent{
		RepoOwner:      "acme",
		RepoName:       "rocket",
		RepoFullName:   "acme/rocket",
		Action:         "opened",
		PRNumber:       7,
		PRTitle:        "Add login endpoint",
		PRAuthor:       "alice",
		Sender:         "bob",
		InstallationID: 42,
	}
}

func newTestJob(t *testing.T, ghMock *mocks.MockGitHubClient, storeMock storage.Store, llmMock llm.Client) *ReviewJob {
	t.Helper()

	pm, err := llm.NewPromptManager()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := review.NewOrchestrator(llmMock, pm, logger).
		WithSleeper(func(context.Context, time.Duration) error { return nil })

	cfg := &config.Config{GitHubAppID: 1, GitHubPrivateKeyPath: "unused.pem", MaxWorkers: 1}
	resolver := config.NewRepoConfigResolver(storeMock, logger, "")

	job := NewReviewJob(cfg, storeMock, resolver, orch, review.NewFilter(nil), logger).(*ReviewJob)
	job.newClient = func(context.Context, int64, string, int64, *slog.Logger) (github.Client, error) {
		return ghMock, nil
	}
	return job
}

func TestReviewJob_Run_HappyPath(t *testing.T) {
	ctrl := gomock.NewController(t)

	ghMock := mocks.NewMockGitHubClient(ctrl)
	storeMock := mocks.NewMockStore(ctrl)
	llmMock := mocks.NewMockLLMClient(ctrl)
	event := testEvent()

	llmMock.EXPECT().Complete(gomock.Any(), gomock.Any()).
		Return(llm.Response{Content: reviewJSON}, nil)

	ghMock.EXPECT().GetPullRequest(gomock.Any(), "acme", "rocket", 7).
		Return(&gh.PullRequest{Head: &gh.PullRequestBranch{SHA: gh.Ptr("abc123")}}, nil)
	ghMock.EXPECT().CreateCheckRun(gomock.Any(), "acme", "rocket", gomock.Any()).
		Return(&gh.CheckRun{ID: gh.Ptr(int64(77))}, nil)
	ghMock.EXPECT().GetChangedFiles(gomock.Any(), "acme", "rocket", 7).
		Return([]core.ChangedFile{{Path: "a.go", Patch: testPatch, Additions: 1}}, nil)
	ghMock.EXPECT().GetFileContent(gomock.Any(), "acme", "rocket", ".finch.yml", "abc123").
		Return(nil, errors.New("404 not found"))

	storeMock.EXPECT().GetRepoConfig(gomock.Any(), "acme/rocket").
		Return(nil, storage.ErrNotFound)
	storeMock.EXPECT().GetFeedbackStats(gomock.Any(), "acme/rocket").
		Return(nil, nil)

	var saved *core.ReviewRecord
	storeMock.EXPECT().SaveReview(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *core.ReviewRecord) error {
			saved = r
			return nil
		})

	var postedEvent string
	var postedDrafts []github.DraftReviewComment
	ghMock.EXPECT().CreateReview(gomock.Any(), "acme", "rocket", 7, gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ int, reviewEvent, _ string, drafts []github.DraftReviewComment) error {
			postedEvent = reviewEvent
			postedDrafts = drafts
			return nil
		})

	var conclusion string
	ghMock.EXPECT().UpdateCheckRun(gomock.Any(), "acme", "rocket", int64(77), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ int64, opts gh.UpdateCheckRunOptions) (*gh.CheckRun, error) {
			conclusion = opts.GetConclusion()
			return &gh.CheckRun{}, nil
		})

	job := newTestJob(t, ghMock, storeMock, llmMock)
	require.NoError(t, job.Run(context.Background(), event))

	assert.Equal(t, "abc123", event.HeadSHA, "head SHA comes from the fetched PR, not the webhook")
	assert.Equal(t, "success", conclusion)

	assert.Equal(t, github.ReviewEventRequestChanges, postedEvent, "critical finding on someone else's PR escalates")
	require.Len(t, postedDrafts, 1, "comment on a diff line is posted inline")
	assert.Equal(t, "a.go", postedDrafts[0].Path)
	assert.Equal(t, 5, postedDrafts[0].Line)

	require.NotNil(t, saved)
	assert.Equal(t, "acme/rocket", saved.RepoFullName)
	assert.True(t, saved.Success)
	assert.False(t, saved.UsedFallback)
	assert.JSONEq(t, `[{"filePath":"a.go","line":5,"severity":"critical","message":"SQL injection","rationale":"user input concatenated into query string without parameterization"}]`, string(saved.CommentsJSON))
}

func TestReviewJob_Run_FatalModelErrorFailsCheckRun(t *testing.T) {
	ctrl := gomock.NewController(t)

	ghMock := mocks.NewMockGitHubClient(ctrl)
	storeMock := mocks.NewMockStore(ctrl)
	llmMock := mocks.NewMockLLMClient(ctrl)
	event := testEvent()

	llmMock.EXPECT().Complete(gomock.Any(), gomock.Any()).
		Return(llm.Response{}, llm.ClassifyStatus(401, "bad credentials"))

	ghMock.EXPECT().GetPullRequest(gomock.Any(), "acme", "rocket", 7).
		Return(&gh.PullRequest{Head: &gh.PullRequestBranch{SHA: gh.Ptr("abc123")}}, nil)
	ghMock.EXPECT().CreateCheckRun(gomock.Any(), "acme", "rocket", gomock.Any()).
		Return(&gh.CheckRun{ID: gh.Ptr(int64(77))}, nil)
	ghMock.EXPECT().GetChangedFiles(gomock.Any(), "acme", "rocket", 7).
		Return([]core.ChangedFile{{Path: "a.go", Patch: testPatch}}, nil)
	ghMock.EXPECT().GetFileContent(gomock.Any(), "acme", "rocket", ".finch.yml", "abc123").
		Return(nil, errors.New("404 not found"))

	storeMock.EXPECT().GetRepoConfig(gomock.Any(), "acme/rocket").
		Return(nil, storage.ErrNotFound)
	storeMock.EXPECT().GetFeedbackStats(gomock.Any(), "acme/rocket").
		Return(nil, nil)

	var conclusion string
	ghMock.EXPECT().UpdateCheckRun(gomock.Any(), "acme", "rocket", int64(77), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ int64, opts gh.UpdateCheckRunOptions) (*gh.CheckRun, error) {
			conclusion = opts.GetConclusion()
			return &gh.CheckRun{}, nil
		})

	job := newTestJob(t, ghMock, storeMock, llmMock)
	err := job.Run(context.Background(), event)

	require.Error(t, err)
	assert.Equal(t, "failure", conclusion, "fatal pre-flight errors fail the check run without posting a review")
}

func TestReviewJob_Run_RejectsIncompleteEvent(t *testing.T) {
	job := newTestJob(t, nil, mocks.NewMockStore(gomock.NewController(t)), mocks.NewMockLLMClient(gomock.NewController(t)))

	err := job.Run(context.Background(), &core.GitHubEvent{RepoOwner: "acme"})
	require.Error(t, err)
}

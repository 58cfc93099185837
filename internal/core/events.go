package core

import (
	"fmt"

	"github.com/google/go-github/v73/github"
)

// GitHubEvent represents a simplified, internal view of a GitHub webhook event.
type GitHubEvent struct {
	// Repository details
	RepoOwner    string
	RepoName     string
	RepoFullName string

	Action   string
	PRNumber int
	PRTitle  string
	PRBody   string
	PRAuthor string
	HeadSHA  string

	Sender         string
	InstallationID int64
}

// EventFromPullRequest transforms a raw GitHub PullRequestEvent into the
// application's internal GitHubEvent representation. It acts as an
// anti-corruption layer, ensuring the incoming webhook payload is valid and
// contains all necessary data before it's processed by a job. Only "opened"
// and "synchronize" actions trigger a review.
func EventFromPullRequest(event *github.PullRequestEvent) (*GitHubEvent, error) {
	action := event.GetAction()
	if action != "opened" && action != "synchronize" {
		return nil, fmt.Errorf("action %q does not trigger a review", action)
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetOwner() == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}

	pr := event.GetPullRequest()
	if pr == nil {
		return nil, fmt.Errorf("pull request payload is missing from the event")
	}

	prNumber := pr.GetNumber()
	if prNumber <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", prNumber)
	}

	if pr.GetHead() == nil || pr.GetHead().GetSHA() == "" {
		return nil, fmt.Errorf("pull request %d has no valid head SHA", prNumber)
	}

	if event.GetInstallation() == nil || event.GetInstallation().GetID() == 0 {
		return nil, fmt.Errorf("installation ID is missing from the event")
	}

	return &GitHubEvent{
		RepoOwner:      repo.GetOwner().GetLogin(),
		RepoName:       repo.GetName(),
		RepoFullName:   repo.GetFullName(),
		Action:         action,
		PRNumber:       prNumber,
		PRTitle:        pr.GetTitle(),
		PRBody:         pr.GetBody(),
		PRAuthor:       pr.GetUser().GetLogin(),
		HeadSHA:        pr.GetHead().GetSHA(),
		Sender:         event.GetSender().GetLogin(),
		InstallationID: event.GetInstallation().GetID(),
	}, nil
}

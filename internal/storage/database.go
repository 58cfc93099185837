// Package storage implements the Postgres persistence layer.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/finch-review/finch/internal/core"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
//
//go:generate mockgen -destination=../../mocks/mock_store.go -package=mocks . Store
type Store interface {
	SaveReview(ctx context.Context, record *core.ReviewRecord) error
	GetLatestReviewForPR(ctx context.Context, repoFullName string, prNumber int) (*core.ReviewRecord, error)
	ListRecentReviews(ctx context.Context, repoFullName string, limit int) ([]core.ReviewRecord, error)
	GetRepoConfig(ctx context.Context, repoFullName string) (*core.RepoReviewConfig, error)
	UpsertRepoConfig(ctx context.Context, repoFullName string, cfg *core.RepoReviewConfig) error
	SaveFeedback(ctx context.Context, fb *core.Feedback) error
	GetFeedbackStats(ctx context.Context, repoFullName string) (map[core.Severity]core.FeedbackStat, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store backed by Postgres.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

// SaveReview inserts a new review record. Reviews are append-only; a new
// review for the same PR supersedes earlier ones by creation time.
func (s *postgresStore) SaveReview(ctx context.Context, record *core.ReviewRecord) error {
	query := `INSERT INTO reviews (repo_full_name, pr_number, head_sha, summary, comments, success, used_fallback, retry_count, analysis_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.db.ExecContext(ctx, query,
		record.RepoFullName, record.PRNumber, record.HeadSHA,
		record.Summary, record.CommentsJSON,
		record.Success, record.UsedFallback, record.RetryCount, record.AnalysisMS,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("saving review for %s#%d: %w", record.RepoFullName, record.PRNumber, err)
	}
	return nil
}

// GetLatestReviewForPR retrieves the most recent review for a given pull request.
func (s *postgresStore) GetLatestReviewForPR(ctx context.Context, repoFullName string, prNumber int) (*core.ReviewRecord, error) {
	query := `
		SELECT id, repo_full_name, pr_number, head_sha, summary, comments, success, used_fallback, retry_count, analysis_ms, created_at
		FROM reviews
		WHERE repo_full_name = $1 AND pr_number = $2
		ORDER BY created_at DESC
		LIMIT 1`

	var r core.ReviewRecord
	if err := s.db.GetContext(ctx, &r, query, repoFullName, prNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("review for PR %s#%d: %w", repoFullName, prNumber, ErrNotFound)
		}
		return nil, err
	}
	return &r, nil
}

// ListRecentReviews returns the newest reviews for a repository, most recent
// first.
func (s *postgresStore) ListRecentReviews(ctx context.Context, repoFullName string, limit int) ([]core.ReviewRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, repo_full_name, pr_number, head_sha, summary, comments, success, used_fallback, retry_count, analysis_ms, created_at
		FROM reviews
		WHERE repo_full_name = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var records []core.ReviewRecord
	if err := s.db.SelectContext(ctx, &records, query, repoFullName, limit); err != nil {
		return nil, err
	}
	return records, nil
}

// GetRepoConfig loads the stored review configuration for a repository.
// ErrNotFound means nothing has been stored; callers fall back to defaults.
func (s *postgresStore) GetRepoConfig(ctx context.Context, repoFullName string) (*core.RepoReviewConfig, error) {
	query := `SELECT config FROM repo_configs WHERE repo_full_name = $1`

	var raw []byte
	if err := s.db.GetContext(ctx, &raw, query, repoFullName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("repo config for %s: %w", repoFullName, ErrNotFound)
		}
		return nil, err
	}

	cfg := core.DefaultRepoReviewConfig()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("decoding repo config for %s: %w", repoFullName, err)
	}
	return cfg, nil
}

// UpsertRepoConfig stores or replaces the review configuration for a repository.
func (s *postgresStore) UpsertRepoConfig(ctx context.Context, repoFullName string, cfg *core.RepoReviewConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding repo config for %s: %w", repoFullName, err)
	}

	query := `
		INSERT INTO repo_configs (repo_full_name, config, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (repo_full_name) DO UPDATE SET config = EXCLUDED.config, updated_at = EXCLUDED.updated_at`
	_, err = s.db.ExecContext(ctx, query, repoFullName, raw, time.Now())
	return err
}

// SaveFeedback records one accept/ignore action on a posted comment.
func (s *postgresStore) SaveFeedback(ctx context.Context, fb *core.Feedback) error {
	query := `INSERT INTO review_feedback (repo_full_name, pr_number, severity, action, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.ExecContext(ctx, query, fb.RepoFullName, fb.PRNumber, fb.Severity, fb.Action, time.Now())
	if err != nil {
		return fmt.Errorf("saving feedback for %s#%d: %w", fb.RepoFullName, fb.PRNumber, err)
	}
	return nil
}

// GetFeedbackStats aggregates feedback per severity for adaptive thresholds.
func (s *postgresStore) GetFeedbackStats(ctx context.Context, repoFullName string) (map[core.Severity]core.FeedbackStat, error) {
	query := `
		SELECT severity,
		       COUNT(*) FILTER (WHERE action = 'ignored') AS ignored,
		       COUNT(*) AS total
		FROM review_feedback
		WHERE repo_full_name = $1
		GROUP BY severity`

	rows, err := s.db.QueryxContext(ctx, query, repoFullName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[core.Severity]core.FeedbackStat)
	for rows.Next() {
		var severity string
		var stat core.FeedbackStat
		if err := rows.Scan(&severity, &stat.Ignored, &stat.Total); err != nil {
			return nil, err
		}
		stats[core.Severity(severity)] = stat
	}
	return stats, rows.Err()
}

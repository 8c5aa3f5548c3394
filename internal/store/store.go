// internal/store/store.go
package store

import (
	"context"

	"portfolio-backend/internal/model"
)

// Store is the persistence surface for repository records and sync logs.
// All other components go through this interface, never through SQL directly.
type Store interface {
	// ListRepositories returns non-fork, non-private records ordered by
	// updated_at descending, capped at limit.
	ListRepositories(ctx context.Context, limit int) ([]model.Repository, error)

	// GetRepositoryByGithubID returns nil when no record exists.
	GetRepositoryByGithubID(ctx context.Context, githubID int64) (*model.Repository, error)

	// UpsertRepository inserts or replaces the record keyed on github_id.
	// Last writer wins unconditionally; last_fetched_at is set server-side.
	UpsertRepository(ctx context.Context, repo model.Repository) (model.Repository, error)

	// DeleteRepository reports whether a row existed and was removed.
	DeleteRepository(ctx context.Context, githubID int64) (bool, error)

	// InsertSyncLog appends one audit entry. Entries are never updated.
	InsertSyncLog(ctx context.Context, entry model.SyncLog) (model.SyncLog, error)

	// ListSyncLogs returns the most recent entries first.
	ListSyncLogs(ctx context.Context, limit int) ([]model.SyncLog, error)

	// CountRepositories counts non-fork, non-private records.
	CountRepositories(ctx context.Context) (int, error)
}

// internal/model/models.go
package model

import "time"

// Sync log types and statuses.
const (
	SyncTypeManual  = "manual"
	SyncTypeWebhook = "webhook"

	SyncStatusSuccess = "success"
	SyncStatusPartial = "partial"
	SyncStatusFailed  = "failed"
)

// Repository is the cached, normalized representation of one GitHub
// repository. Pointer fields map to nullable columns.
type Repository struct {
	GithubID        int64      `json:"github_id"`
	Name            string     `json:"name"`
	FullName        string     `json:"full_name"`
	Description     *string    `json:"description"`
	HTMLURL         string     `json:"html_url"`
	Homepage        *string    `json:"homepage"`
	Language        *string    `json:"language"`
	StargazersCount int        `json:"stargazers_count"`
	ForksCount      int        `json:"forks_count"`
	OpenIssuesCount int        `json:"open_issues_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	PushedAt        *time.Time `json:"pushed_at"`
	DemoLink        *string    `json:"demo_link"`
	ProjectImage    *string    `json:"project_image"`
	IsFork          bool       `json:"is_fork"`
	IsPrivate       bool       `json:"is_private"`
	LastFetchedAt   time.Time  `json:"last_fetched_at"`
}

// SyncLog is one append-only audit entry per orchestration run.
type SyncLog struct {
	ID              int64     `json:"id"`
	SyncType        string    `json:"sync_type"`
	RepositoryName  *string   `json:"repository_name"`
	ReposProcessed  int       `json:"repos_processed"`
	Status          string    `json:"status"`
	ErrorMessage    *string   `json:"error_message"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
}

// RateLimit is the GitHub API rate-limit status for the configured token.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

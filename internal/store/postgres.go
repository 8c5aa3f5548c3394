// internal/store/postgres.go
package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"portfolio-backend/internal/apperrors"
	"portfolio-backend/internal/model"
)

const repositoryColumns = `github_id, name, full_name, description, html_url, homepage,
	language, stargazers_count, forks_count, open_issues_count,
	created_at, updated_at, pushed_at, demo_link, project_image,
	is_fork, is_private, last_fetched_at`

const syncLogColumns = `id, sync_type, repository_name, repos_processed, status,
	error_message, started_at, completed_at, execution_time_ms`

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Postgres store.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	return &Postgres{pool: pool, logger: logger}
}

func (p *Postgres) ListRepositories(ctx context.Context, limit int) ([]model.Repository, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+repositoryColumns+`
		 FROM repositories
		 WHERE is_fork = false AND is_private = false
		 ORDER BY updated_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "list repositories", Err: err}
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, &apperrors.StorageError{Op: "scan repository", Err: err}
		}
		repos = append(repos, repo)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.StorageError{Op: "list repositories", Err: err}
	}

	return repos, nil
}

func (p *Postgres) GetRepositoryByGithubID(ctx context.Context, githubID int64) (*model.Repository, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+repositoryColumns+` FROM repositories WHERE github_id = $1`, githubID)

	repo, err := scanRepository(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &apperrors.StorageError{Op: "get repository", Err: err}
	}

	return &repo, nil
}

func (p *Postgres) UpsertRepository(ctx context.Context, repo model.Repository) (model.Repository, error) {
	row := p.pool.QueryRow(ctx,
		`INSERT INTO repositories (
			github_id, name, full_name, description, html_url, homepage,
			language, stargazers_count, forks_count, open_issues_count,
			created_at, updated_at, pushed_at, demo_link, project_image,
			is_fork, is_private, last_fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
		ON CONFLICT (github_id)
		DO UPDATE SET
			name = EXCLUDED.name,
			full_name = EXCLUDED.full_name,
			description = EXCLUDED.description,
			html_url = EXCLUDED.html_url,
			homepage = EXCLUDED.homepage,
			language = EXCLUDED.language,
			stargazers_count = EXCLUDED.stargazers_count,
			forks_count = EXCLUDED.forks_count,
			open_issues_count = EXCLUDED.open_issues_count,
			updated_at = EXCLUDED.updated_at,
			pushed_at = EXCLUDED.pushed_at,
			demo_link = EXCLUDED.demo_link,
			project_image = EXCLUDED.project_image,
			is_fork = EXCLUDED.is_fork,
			is_private = EXCLUDED.is_private,
			last_fetched_at = NOW()
		RETURNING `+repositoryColumns,
		repo.GithubID, repo.Name, repo.FullName, repo.Description, repo.HTMLURL, repo.Homepage,
		repo.Language, repo.StargazersCount, repo.ForksCount, repo.OpenIssuesCount,
		repo.CreatedAt, repo.UpdatedAt, repo.PushedAt, repo.DemoLink, repo.ProjectImage,
		repo.IsFork, repo.IsPrivate)

	saved, err := scanRepository(row)
	if err != nil {
		return model.Repository{}, &apperrors.StorageError{Op: "upsert repository", Err: err}
	}

	return saved, nil
}

func (p *Postgres) DeleteRepository(ctx context.Context, githubID int64) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM repositories WHERE github_id = $1`, githubID)
	if err != nil {
		return false, &apperrors.StorageError{Op: "delete repository", Err: err}
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) InsertSyncLog(ctx context.Context, entry model.SyncLog) (model.SyncLog, error) {
	row := p.pool.QueryRow(ctx,
		`INSERT INTO sync_logs (
			sync_type, repository_name, repos_processed, status,
			error_message, started_at, completed_at, execution_time_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+syncLogColumns,
		entry.SyncType, entry.RepositoryName, entry.ReposProcessed, entry.Status,
		entry.ErrorMessage, entry.StartedAt, entry.CompletedAt, entry.ExecutionTimeMs)

	saved, err := scanSyncLog(row)
	if err != nil {
		return model.SyncLog{}, &apperrors.StorageError{Op: "insert sync log", Err: err}
	}

	return saved, nil
}

func (p *Postgres) ListSyncLogs(ctx context.Context, limit int) ([]model.SyncLog, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+syncLogColumns+` FROM sync_logs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "list sync logs", Err: err}
	}
	defer rows.Close()

	var logs []model.SyncLog
	for rows.Next() {
		entry, err := scanSyncLog(rows)
		if err != nil {
			return nil, &apperrors.StorageError{Op: "scan sync log", Err: err}
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.StorageError{Op: "list sync logs", Err: err}
	}

	return logs, nil
}

func (p *Postgres) CountRepositories(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM repositories WHERE is_fork = false AND is_private = false`).Scan(&count)
	if err != nil {
		return 0, &apperrors.StorageError{Op: "count repositories", Err: err}
	}
	return count, nil
}

func scanRepository(row pgx.Row) (model.Repository, error) {
	var r model.Repository
	err := row.Scan(
		&r.GithubID, &r.Name, &r.FullName, &r.Description, &r.HTMLURL, &r.Homepage,
		&r.Language, &r.StargazersCount, &r.ForksCount, &r.OpenIssuesCount,
		&r.CreatedAt, &r.UpdatedAt, &r.PushedAt, &r.DemoLink, &r.ProjectImage,
		&r.IsFork, &r.IsPrivate, &r.LastFetchedAt)
	return r, err
}

func scanSyncLog(row pgx.Row) (model.SyncLog, error) {
	var l model.SyncLog
	err := row.Scan(
		&l.ID, &l.SyncType, &l.RepositoryName, &l.ReposProcessed, &l.Status,
		&l.ErrorMessage, &l.StartedAt, &l.CompletedAt, &l.ExecutionTimeMs)
	return l, err
}

// internal/syncer/syncer.go
package syncer

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	gh "github.com/google/go-github/v62/github"

	"portfolio-backend/internal/github"
	"portfolio-backend/internal/metrics"
	"portfolio-backend/internal/model"
	"portfolio-backend/internal/patterns"
	"portfolio-backend/internal/store"
)

// GithubClient is the subset of the GitHub client the syncer depends on.
type GithubClient interface {
	ListUserRepositories(ctx context.Context, username string) ([]*gh.Repository, error)
	GetRepository(ctx context.Context, owner, name string) (*gh.Repository, error)
	GetReadme(ctx context.Context, owner, name string) (content string, found bool, err error)
}

// Syncer orchestrates fetching, pattern extraction, and storage of
// repository records.
type Syncer struct {
	store     store.Store
	ghClient  GithubClient
	logger    *slog.Logger
	username  string
	itemDelay time.Duration
	metrics   *metrics.Metrics
}

// New creates a Syncer. itemDelay, when non-zero, is slept between
// repositories within a batch as a rate-limiting courtesy.
func New(st store.Store, ghClient GithubClient, logger *slog.Logger, username string, itemDelay time.Duration, m *metrics.Metrics) *Syncer {
	return &Syncer{
		store:     st,
		ghClient:  ghClient,
		logger:    logger,
		username:  username,
		itemDelay: itemDelay,
		metrics:   m,
	}
}

// BatchError records one failed repository within a batch.
type BatchError struct {
	Repo  string `json:"repo"`
	Error string `json:"error"`
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Total           int
	Processed       int
	Failed          int
	Offset          int
	HasMore         bool
	NextOffset      *int
	Errors          []BatchError
	ExecutionTimeMs int64
}

// RunBatch fetches the full repository list, filters out forks, and
// processes the slice [offset, offset+batchSize). Per-repository failures
// are collected without aborting the batch; a failed list fetch aborts the
// whole call. One sync log entry is written per batch that processed work.
func (s *Syncer) RunBatch(ctx context.Context, batchSize, offset int) (*BatchResult, error) {
	start := time.Now()
	logger := s.logger.With("batch_size", batchSize, "offset", offset)
	logger.Info("Starting repository sync batch")

	allRepos, err := s.ghClient.ListUserRepositories(ctx, s.username)
	if err != nil {
		s.appendLog(ctx, model.SyncTypeManual, nil, 0, model.SyncStatusFailed, strPtr(err.Error()), start)
		s.observeRun(model.SyncTypeManual, model.SyncStatusFailed, 0)
		return nil, err
	}

	repos := make([]*gh.Repository, 0, len(allRepos))
	for _, r := range allRepos {
		if !r.GetFork() {
			repos = append(repos, r)
		}
	}
	total := len(repos)
	logger.Info("Fetched repository list", "total", total)

	if batchSize <= 0 || offset < 0 || offset >= total {
		logger.Info("No repositories in batch window")
		return &BatchResult{Total: total, Offset: offset, ExecutionTimeMs: time.Since(start).Milliseconds()}, nil
	}
	end := offset + batchSize
	if end > total {
		end = total
	}

	var (
		processed int
		errs      []BatchError
	)
	for i, repo := range repos[offset:end] {
		if i > 0 && s.itemDelay > 0 {
			time.Sleep(s.itemDelay)
		}

		if err := s.processRepository(ctx, repo); err != nil {
			logger.Error("Failed to process repository", "repo", repo.GetFullName(), "error", err)
			errs = append(errs, BatchError{Repo: repo.GetFullName(), Error: err.Error()})
			continue
		}
		processed++
		logger.Debug("Processed repository", "repo", repo.GetFullName())
	}

	status := model.SyncStatusSuccess
	if len(errs) > 0 {
		status = model.SyncStatusPartial
	}

	var errMsg *string
	if len(errs) > 0 {
		if detail, err := json.Marshal(errs); err == nil {
			errMsg = strPtr(string(detail))
		}
	}

	execMs := time.Since(start).Milliseconds()
	entry := model.SyncLog{
		SyncType:        model.SyncTypeManual,
		ReposProcessed:  processed,
		Status:          status,
		ErrorMessage:    errMsg,
		StartedAt:       start,
		CompletedAt:     time.Now(),
		ExecutionTimeMs: execMs,
	}
	if _, err := s.store.InsertSyncLog(ctx, entry); err != nil {
		return nil, err
	}
	s.observeRun(model.SyncTypeManual, status, processed)

	result := &BatchResult{
		Total:           total,
		Processed:       processed,
		Failed:          len(errs),
		Offset:          offset,
		HasMore:         offset+batchSize < total,
		Errors:          errs,
		ExecutionTimeMs: execMs,
	}
	if result.HasMore {
		next := offset + batchSize
		result.NextOffset = &next
	}

	logger.Info("Sync batch finished", "processed", processed, "failed", len(errs), "status", status)
	return result, nil
}

// SyncOne fetches a single repository fresh and upserts it. Used by the
// webhook path; writes one webhook-type sync log entry.
func (s *Syncer) SyncOne(ctx context.Context, owner, name string) (*model.Repository, error) {
	start := time.Now()
	fullName := owner + "/" + name
	logger := s.logger.With("repo", fullName)
	logger.Info("Syncing single repository")

	raw, err := s.ghClient.GetRepository(ctx, owner, name)
	if err != nil {
		s.appendLog(ctx, model.SyncTypeWebhook, &fullName, 0, model.SyncStatusFailed, strPtr(err.Error()), start)
		s.observeRun(model.SyncTypeWebhook, model.SyncStatusFailed, 0)
		return nil, err
	}

	saved, err := s.upsertWithPatterns(ctx, raw)
	if err != nil {
		s.appendLog(ctx, model.SyncTypeWebhook, &fullName, 0, model.SyncStatusFailed, strPtr(err.Error()), start)
		s.observeRun(model.SyncTypeWebhook, model.SyncStatusFailed, 0)
		return nil, err
	}

	s.appendLog(ctx, model.SyncTypeWebhook, &saved.FullName, 1, model.SyncStatusSuccess, nil, start)
	s.observeRun(model.SyncTypeWebhook, model.SyncStatusSuccess, 1)
	logger.Info("Single repository synced")
	return saved, nil
}

// DeleteOne removes a repository record by its GitHub ID. Used by the
// webhook "deleted" action; writes one webhook-type sync log entry.
func (s *Syncer) DeleteOne(ctx context.Context, githubID int64, fullName string) (bool, error) {
	start := time.Now()

	deleted, err := s.store.DeleteRepository(ctx, githubID)
	if err != nil {
		s.appendLog(ctx, model.SyncTypeWebhook, &fullName, 0, model.SyncStatusFailed, strPtr(err.Error()), start)
		s.observeRun(model.SyncTypeWebhook, model.SyncStatusFailed, 0)
		return false, err
	}

	s.appendLog(ctx, model.SyncTypeWebhook, &fullName, 1, model.SyncStatusSuccess, nil, start)
	s.observeRun(model.SyncTypeWebhook, model.SyncStatusSuccess, 0)
	s.logger.Info("Deleted repository", "repo", fullName, "existed", deleted)
	return deleted, nil
}

// processRepository normalizes a raw list item, enriches it from the README,
// and upserts it.
func (s *Syncer) processRepository(ctx context.Context, raw *gh.Repository) error {
	_, err := s.upsertWithPatterns(ctx, raw)
	return err
}

func (s *Syncer) upsertWithPatterns(ctx context.Context, raw *gh.Repository) (*model.Repository, error) {
	rec := github.Transform(raw)

	owner := raw.GetOwner().GetLogin()
	if owner == "" {
		owner, _, _ = strings.Cut(rec.FullName, "/")
	}

	readme, found, err := s.ghClient.GetReadme(ctx, owner, rec.Name)
	if err != nil {
		return nil, err
	}
	if !found {
		s.logger.Debug("Repository has no README", "repo", rec.FullName)
	}

	extracted := patterns.Extract(readme, owner, rec.Name)
	rec.DemoLink = extracted.DemoLink
	rec.ProjectImage = extracted.ProjectImage

	saved, err := s.store.UpsertRepository(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// appendLog writes a sync log entry; failures are logged and swallowed so
// bookkeeping cannot mask the primary outcome.
func (s *Syncer) appendLog(ctx context.Context, syncType string, repoName *string, processed int, status string, errMsg *string, start time.Time) {
	entry := model.SyncLog{
		SyncType:        syncType,
		RepositoryName:  repoName,
		ReposProcessed:  processed,
		Status:          status,
		ErrorMessage:    errMsg,
		StartedAt:       start,
		CompletedAt:     time.Now(),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
	if _, err := s.store.InsertSyncLog(ctx, entry); err != nil {
		s.logger.Error("Failed to append sync log", "error", err)
	}
}

func (s *Syncer) observeRun(syncType, status string, processed int) {
	if s.metrics == nil {
		return
	}
	s.metrics.SyncRunsTotal.WithLabelValues(syncType, status).Inc()
	if processed > 0 {
		s.metrics.ReposProcessedTotal.Add(float64(processed))
	}
}

func strPtr(s string) *string {
	return &s
}

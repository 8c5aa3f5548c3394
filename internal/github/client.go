// internal/github/client.go
package github

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"portfolio-backend/internal/apperrors"
	"portfolio-backend/internal/model"
)

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance. An empty token is
// permitted: requests then run unauthenticated against a much lower rate
// ceiling, which is a deployment concern rather than an error.
func NewClient(token string, logger *slog.Logger) *Client {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	} else {
		logger.Warn("No GitHub token configured, using unauthenticated rate limits")
	}

	return &Client{
		gh:     github.NewClient(httpClient),
		logger: logger,
	}
}

// ListUserRepositories fetches up to 100 repositories for a user, most
// recently updated first. The records are returned untransformed.
func (c *Client) ListUserRepositories(ctx context.Context, username string) ([]*github.Repository, error) {
	c.logger.Debug("Fetching repositories", "username", username)

	opts := &github.RepositoryListByUserOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	repos, _, err := c.gh.Repositories.ListByUser(ctx, username, opts)
	if err != nil {
		return nil, translateError(err)
	}

	c.logger.Debug("Fetched repositories", "username", username, "count", len(repos))
	return repos, nil
}

// GetRepository fetches a single repository.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*github.Repository, error) {
	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, translateError(err)
	}
	return repo, nil
}

// GetReadme fetches and decodes a repository README. A missing README is not
// an error: found is false and the content empty.
func (c *Client) GetReadme(ctx context.Context, owner, name string) (content string, found bool, err error) {
	readme, resp, err := c.gh.Repositories.GetReadme(ctx, owner, name, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			c.logger.Debug("No README found", "owner", owner, "repo", name)
			return "", false, nil
		}
		return "", false, translateError(err)
	}

	content, err = readme.GetContent()
	if err != nil {
		return "", false, &apperrors.UpstreamError{StatusCode: resp.StatusCode, Message: "undecodable README content"}
	}

	return content, true, nil
}

// CheckRateLimit reports the remaining GitHub API quota.
func (c *Client) CheckRateLimit(ctx context.Context) (*model.RateLimit, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return nil, translateError(err)
	}

	core := limits.GetCore()
	return &model.RateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}

// OverrideBaseURL points the underlying client at a different API host. Used
// by tests to route requests into a local stub server.
func (c *Client) OverrideBaseURL(baseURL string) error {
	ghc, err := github.NewClient(nil).WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return err
	}
	c.gh = ghc
	return nil
}

// Transform maps a raw GitHub repository onto the internal record shape,
// applying explicit defaults for absent fields.
func Transform(r *github.Repository) model.Repository {
	var pushedAt *time.Time
	if r.PushedAt != nil {
		t := r.PushedAt.Time
		pushedAt = &t
	}

	return model.Repository{
		GithubID:        r.GetID(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		Description:     emptyToNil(r.Description),
		HTMLURL:         r.GetHTMLURL(),
		Homepage:        emptyToNil(r.Homepage),
		Language:        emptyToNil(r.Language),
		StargazersCount: r.GetStargazersCount(),
		ForksCount:      r.GetForksCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		CreatedAt:       r.GetCreatedAt().Time,
		UpdatedAt:       r.GetUpdatedAt().Time,
		PushedAt:        pushedAt,
		IsFork:          r.GetFork(),
		IsPrivate:       r.GetPrivate(),
	}
}

// translateError maps go-github failures onto the internal error taxonomy.
// A 403 is surfaced as a distinct rate-limited failure.
func translateError(err error) error {
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &apperrors.RateLimitedError{}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &apperrors.RateLimitedError{}
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		if ghErr.Response.StatusCode == http.StatusForbidden {
			return &apperrors.RateLimitedError{}
		}
		return &apperrors.UpstreamError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
		}
	}

	return err
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

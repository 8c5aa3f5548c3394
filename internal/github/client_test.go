// internal/github/client_test.go
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-backend/internal/apperrors"
)

// setupTestClient creates a httptest server and a client pointing to it.
func setupTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := NewClient("", logger)
	require.NoError(t, client.OverrideBaseURL(server.URL))

	return client, server
}

func TestClient_ListUserRepositories(t *testing.T) {
	t.Run("requests 100 items sorted by recency", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v3/users/octocat/repos", r.URL.Path)
			assert.Equal(t, "100", r.URL.Query().Get("per_page"))
			assert.Equal(t, "updated", r.URL.Query().Get("sort"))
			fmt.Fprintln(w, `[{"id": 1, "name": "alpha", "full_name": "octocat/alpha"}, {"id": 2, "name": "beta", "full_name": "octocat/beta", "fork": true}]`)
		})
		client, _ := setupTestClient(t, handler)

		repos, err := client.ListUserRepositories(context.Background(), "octocat")

		require.NoError(t, err)
		require.Len(t, repos, 2)
		assert.Equal(t, "alpha", repos[0].GetName())
		assert.True(t, repos[1].GetFork())
	})

	t.Run("surfaces 403 as rate limited", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintln(w, `{"message": "API rate limit exceeded"}`)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.ListUserRepositories(context.Background(), "octocat")

		require.Error(t, err)
		var rateLimited *apperrors.RateLimitedError
		assert.ErrorAs(t, err, &rateLimited)
	})

	t.Run("surfaces other failures as upstream errors with status", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprintln(w, `{"message": "upstream broke"}`)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.ListUserRepositories(context.Background(), "octocat")

		require.Error(t, err)
		var upstream *apperrors.UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, http.StatusBadGateway, upstream.StatusCode)
	})
}

func TestClient_GetRepository(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/repos/octocat/alpha", r.URL.Path)
		fmt.Fprintln(w, `{"id": 42, "name": "alpha", "full_name": "octocat/alpha", "stargazers_count": 7}`)
	})
	client, _ := setupTestClient(t, handler)

	repo, err := client.GetRepository(context.Background(), "octocat", "alpha")

	require.NoError(t, err)
	assert.Equal(t, int64(42), repo.GetID())
	assert.Equal(t, 7, repo.GetStargazersCount())
}

func TestClient_GetReadme(t *testing.T) {
	t.Run("decodes base64 content", func(t *testing.T) {
		readme := "# Hello\ndemo https://foo.app"
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v3/repos/octocat/alpha/readme", r.URL.Path)
			fmt.Fprintf(w, `{"type": "file", "encoding": "base64", "content": %q}`,
				base64.StdEncoding.EncodeToString([]byte(readme)))
		})
		client, _ := setupTestClient(t, handler)

		content, found, err := client.GetReadme(context.Background(), "octocat", "alpha")

		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, readme, content)
	})

	t.Run("treats 404 as no README rather than an error", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"message": "Not Found"}`)
		})
		client, _ := setupTestClient(t, handler)

		content, found, err := client.GetReadme(context.Background(), "octocat", "alpha")

		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, content)
	})

	t.Run("surfaces server errors", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintln(w, `{"message": "boom"}`)
		})
		client, _ := setupTestClient(t, handler)

		_, _, err := client.GetReadme(context.Background(), "octocat", "alpha")

		require.Error(t, err)
		var upstream *apperrors.UpstreamError
		assert.ErrorAs(t, err, &upstream)
	})
}

func TestClient_CheckRateLimit(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/rate_limit", r.URL.Path)
		fmt.Fprintln(w, `{"resources": {"core": {"limit": 5000, "remaining": 4321, "reset": 1735689600}}}`)
	})
	client, _ := setupTestClient(t, handler)

	rl, err := client.CheckRateLimit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 5000, rl.Limit)
	assert.Equal(t, 4321, rl.Remaining)
	assert.False(t, rl.Reset.IsZero())
}

func TestTransform(t *testing.T) {
	t.Run("maps fields and applies defaults", func(t *testing.T) {
		raw := &github.Repository{
			ID:       github.Int64(42),
			Name:     github.String("alpha"),
			FullName: github.String("octocat/alpha"),
			HTMLURL:  github.String("https://github.com/octocat/alpha"),
		}

		rec := Transform(raw)

		assert.Equal(t, int64(42), rec.GithubID)
		assert.Equal(t, "octocat/alpha", rec.FullName)
		assert.Nil(t, rec.Description)
		assert.Nil(t, rec.Homepage)
		assert.Nil(t, rec.Language)
		assert.Nil(t, rec.PushedAt)
		assert.Zero(t, rec.StargazersCount)
		assert.Zero(t, rec.ForksCount)
		assert.Zero(t, rec.OpenIssuesCount)
		assert.False(t, rec.IsFork)
		assert.False(t, rec.IsPrivate)
	})

	t.Run("empty strings become nil", func(t *testing.T) {
		raw := &github.Repository{
			ID:          github.Int64(1),
			Description: github.String(""),
			Homepage:    github.String("https://alpha.app"),
		}

		rec := Transform(raw)

		assert.Nil(t, rec.Description)
		require.NotNil(t, rec.Homepage)
		assert.Equal(t, "https://alpha.app", *rec.Homepage)
	})
}

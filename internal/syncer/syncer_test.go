// internal/syncer/syncer_test.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	gh "github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolio-backend/internal/model"
)

// MockStore is a mock of the store.Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListRepositories(ctx context.Context, limit int) ([]model.Repository, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]model.Repository), args.Error(1)
}
func (m *MockStore) GetRepositoryByGithubID(ctx context.Context, githubID int64) (*model.Repository, error) {
	args := m.Called(ctx, githubID)
	repo, _ := args.Get(0).(*model.Repository)
	return repo, args.Error(1)
}
func (m *MockStore) UpsertRepository(ctx context.Context, repo model.Repository) (model.Repository, error) {
	args := m.Called(ctx, repo)
	return args.Get(0).(model.Repository), args.Error(1)
}
func (m *MockStore) DeleteRepository(ctx context.Context, githubID int64) (bool, error) {
	args := m.Called(ctx, githubID)
	return args.Bool(0), args.Error(1)
}
func (m *MockStore) InsertSyncLog(ctx context.Context, entry model.SyncLog) (model.SyncLog, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(model.SyncLog), args.Error(1)
}
func (m *MockStore) ListSyncLogs(ctx context.Context, limit int) ([]model.SyncLog, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]model.SyncLog), args.Error(1)
}
func (m *MockStore) CountRepositories(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// stubClient implements GithubClient with function fields.
type stubClient struct {
	listFn   func(ctx context.Context, username string) ([]*gh.Repository, error)
	getFn    func(ctx context.Context, owner, name string) (*gh.Repository, error)
	readmeFn func(ctx context.Context, owner, name string) (string, bool, error)
}

func (s *stubClient) ListUserRepositories(ctx context.Context, username string) ([]*gh.Repository, error) {
	return s.listFn(ctx, username)
}
func (s *stubClient) GetRepository(ctx context.Context, owner, name string) (*gh.Repository, error) {
	return s.getFn(ctx, owner, name)
}
func (s *stubClient) GetReadme(ctx context.Context, owner, name string) (string, bool, error) {
	if s.readmeFn == nil {
		return "", false, nil
	}
	return s.readmeFn(ctx, owner, name)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func rawRepo(id int64, name string, fork bool) *gh.Repository {
	return &gh.Repository{
		ID:       gh.Int64(id),
		Name:     gh.String(name),
		FullName: gh.String("octocat/" + name),
		Owner:    &gh.User{Login: gh.String("octocat")},
		Fork:     gh.Bool(fork),
	}
}

func rawRepoList(n int) []*gh.Repository {
	repos := make([]*gh.Repository, n)
	for i := range repos {
		repos[i] = rawRepo(int64(i+1), fmt.Sprintf("repo-%d", i+1), false)
	}
	return repos
}

func TestSyncer_RunBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("batch continuation partitions the filtered list", func(t *testing.T) {
		client := &stubClient{
			listFn: func(ctx context.Context, username string) ([]*gh.Repository, error) {
				return rawRepoList(7), nil
			},
		}

		var upserted []int64
		mockStore := new(MockStore)
		mockStore.On("UpsertRepository", ctx, mock.Anything).Run(func(args mock.Arguments) {
			upserted = append(upserted, args.Get(1).(model.Repository).GithubID)
		}).Return(model.Repository{}, nil)
		mockStore.On("InsertSyncLog", ctx, mock.Anything).Return(model.SyncLog{}, nil)

		s := New(mockStore, client, testLogger(), "octocat", 0, nil)

		first, err := s.RunBatch(ctx, 3, 0)
		require.NoError(t, err)
		assert.True(t, first.HasMore)
		require.NotNil(t, first.NextOffset)
		assert.Equal(t, 3, *first.NextOffset)

		second, err := s.RunBatch(ctx, 3, *first.NextOffset)
		require.NoError(t, err)
		assert.True(t, second.HasMore)
		require.NotNil(t, second.NextOffset)
		assert.Equal(t, 6, *second.NextOffset)

		third, err := s.RunBatch(ctx, 3, *second.NextOffset)
		require.NoError(t, err)
		assert.False(t, third.HasMore)
		assert.Nil(t, third.NextOffset)

		assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, upserted)
		assert.Equal(t, 7, first.Total)
		assert.Equal(t, 3, first.Processed)
		assert.Equal(t, 1, third.Processed)
	})

	t.Run("filters out forks before slicing", func(t *testing.T) {
		client := &stubClient{
			listFn: func(ctx context.Context, username string) ([]*gh.Repository, error) {
				return []*gh.Repository{
					rawRepo(1, "kept", false),
					rawRepo(2, "forked", true),
					rawRepo(3, "also-kept", false),
				}, nil
			},
		}

		mockStore := new(MockStore)
		mockStore.On("UpsertRepository", ctx, mock.Anything).Return(model.Repository{}, nil).Twice()
		mockStore.On("InsertSyncLog", ctx, mock.Anything).Return(model.SyncLog{}, nil).Once()

		s := New(mockStore, client, testLogger(), "octocat", 0, nil)
		result, err := s.RunBatch(ctx, 10, 0)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Total)
		assert.Equal(t, 2, result.Processed)
		mockStore.AssertExpectations(t)
	})

	t.Run("partial failure keeps siblings and logs partial status", func(t *testing.T) {
		client := &stubClient{
			listFn: func(ctx context.Context, username string) ([]*gh.Repository, error) {
				return rawRepoList(3), nil
			},
			readmeFn: func(ctx context.Context, owner, name string) (string, bool, error) {
				if name == "repo-2" {
					return "", false, errors.New("readme fetch blew up")
				}
				return "", false, nil
			},
		}

		mockStore := new(MockStore)
		mockStore.On("UpsertRepository", ctx, mock.Anything).Return(model.Repository{}, nil).Twice()
		mockStore.On("InsertSyncLog", ctx, mock.MatchedBy(func(entry model.SyncLog) bool {
			return entry.Status == model.SyncStatusPartial &&
				entry.SyncType == model.SyncTypeManual &&
				entry.ReposProcessed == 2 &&
				entry.ErrorMessage != nil
		})).Return(model.SyncLog{}, nil).Once()

		s := New(mockStore, client, testLogger(), "octocat", 0, nil)
		result, err := s.RunBatch(ctx, 3, 0)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "octocat/repo-2", result.Errors[0].Repo)
		mockStore.AssertExpectations(t)
	})

	t.Run("list fetch failure logs failed status and propagates", func(t *testing.T) {
		upstream := errors.New("github is down")
		client := &stubClient{
			listFn: func(ctx context.Context, username string) ([]*gh.Repository, error) {
				return nil, upstream
			},
		}

		mockStore := new(MockStore)
		mockStore.On("InsertSyncLog", ctx, mock.MatchedBy(func(entry model.SyncLog) bool {
			return entry.Status == model.SyncStatusFailed && entry.ReposProcessed == 0
		})).Return(model.SyncLog{}, nil).Once()

		s := New(mockStore, client, testLogger(), "octocat", 0, nil)
		_, err := s.RunBatch(ctx, 3, 0)

		require.Error(t, err)
		assert.Equal(t, upstream, err)
		mockStore.AssertExpectations(t)
		mockStore.AssertNotCalled(t, "UpsertRepository")
	})

	t.Run("empty batch window writes no log entry", func(t *testing.T) {
		client := &stubClient{
			listFn: func(ctx context.Context, username string) ([]*gh.Repository, error) {
				return rawRepoList(2), nil
			},
		}

		mockStore := new(MockStore)
		s := New(mockStore, client, testLogger(), "octocat", 0, nil)

		result, err := s.RunBatch(ctx, 3, 5)

		require.NoError(t, err)
		assert.Zero(t, result.Processed)
		assert.False(t, result.HasMore)
		mockStore.AssertNotCalled(t, "InsertSyncLog")
		mockStore.AssertNotCalled(t, "UpsertRepository")
	})

	t.Run("merges extracted patterns into the upserted record", func(t *testing.T) {
		client := &stubClient{
			listFn: func(ctx context.Context, username string) ([]*gh.Repository, error) {
				return rawRepoList(1), nil
			},
			readmeFn: func(ctx context.Context, owner, name string) (string, bool, error) {
				return "![shot](./shot.png)\n\ndemo https://repo-1.app\n", true, nil
			},
		}

		mockStore := new(MockStore)
		mockStore.On("UpsertRepository", ctx, mock.MatchedBy(func(rec model.Repository) bool {
			return rec.DemoLink != nil && *rec.DemoLink == "https://repo-1.app" &&
				rec.ProjectImage != nil &&
				*rec.ProjectImage == "https://raw.githubusercontent.com/octocat/repo-1/main/shot.png"
		})).Return(model.Repository{}, nil).Once()
		mockStore.On("InsertSyncLog", ctx, mock.Anything).Return(model.SyncLog{}, nil).Once()

		s := New(mockStore, client, testLogger(), "octocat", 0, nil)
		_, err := s.RunBatch(ctx, 1, 0)

		require.NoError(t, err)
		mockStore.AssertExpectations(t)
	})
}

func TestSyncer_SyncOne(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches fresh data and logs a webhook entry", func(t *testing.T) {
		client := &stubClient{
			getFn: func(ctx context.Context, owner, name string) (*gh.Repository, error) {
				return rawRepo(9, name, false), nil
			},
		}

		mockStore := new(MockStore)
		mockStore.On("UpsertRepository", ctx, mock.Anything).
			Return(model.Repository{GithubID: 9, FullName: "octocat/thing"}, nil).Once()
		mockStore.On("InsertSyncLog", ctx, mock.MatchedBy(func(entry model.SyncLog) bool {
			return entry.SyncType == model.SyncTypeWebhook &&
				entry.Status == model.SyncStatusSuccess &&
				entry.ReposProcessed == 1
		})).Return(model.SyncLog{}, nil).Once()

		s := New(mockStore, client, testLogger(), "octocat", 0, nil)
		saved, err := s.SyncOne(ctx, "octocat", "thing")

		require.NoError(t, err)
		assert.Equal(t, int64(9), saved.GithubID)
		mockStore.AssertExpectations(t)
	})

	t.Run("logs a failed webhook entry when the fetch fails", func(t *testing.T) {
		client := &stubClient{
			getFn: func(ctx context.Context, owner, name string) (*gh.Repository, error) {
				return nil, errors.New("nope")
			},
		}

		mockStore := new(MockStore)
		mockStore.On("InsertSyncLog", ctx, mock.MatchedBy(func(entry model.SyncLog) bool {
			return entry.SyncType == model.SyncTypeWebhook && entry.Status == model.SyncStatusFailed
		})).Return(model.SyncLog{}, nil).Once()

		s := New(mockStore, client, testLogger(), "octocat", 0, nil)
		_, err := s.SyncOne(ctx, "octocat", "thing")

		require.Error(t, err)
		mockStore.AssertExpectations(t)
		mockStore.AssertNotCalled(t, "UpsertRepository")
	})
}

func TestSyncer_DeleteOne(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes and logs a webhook entry", func(t *testing.T) {
		mockStore := new(MockStore)
		mockStore.On("DeleteRepository", ctx, int64(7)).Return(true, nil).Once()
		mockStore.On("InsertSyncLog", ctx, mock.MatchedBy(func(entry model.SyncLog) bool {
			return entry.SyncType == model.SyncTypeWebhook &&
				entry.Status == model.SyncStatusSuccess &&
				entry.RepositoryName != nil && *entry.RepositoryName == "octocat/gone"
		})).Return(model.SyncLog{}, nil).Once()

		s := New(mockStore, &stubClient{}, testLogger(), "octocat", 0, nil)
		deleted, err := s.DeleteOne(ctx, 7, "octocat/gone")

		require.NoError(t, err)
		assert.True(t, deleted)
		mockStore.AssertExpectations(t)
	})

	t.Run("propagates storage failure", func(t *testing.T) {
		mockStore := new(MockStore)
		mockStore.On("DeleteRepository", ctx, int64(7)).Return(false, errors.New("db down")).Once()
		mockStore.On("InsertSyncLog", ctx, mock.Anything).Return(model.SyncLog{}, nil).Once()

		s := New(mockStore, &stubClient{}, testLogger(), "octocat", 0, nil)
		_, err := s.DeleteOne(ctx, 7, "octocat/gone")

		require.Error(t, err)
		mockStore.AssertExpectations(t)
	})
}

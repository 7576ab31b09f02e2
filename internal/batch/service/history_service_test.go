package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"batch-runner/internal/batch/dto"
	"batch-runner/internal/batch/repository"
	"batch-runner/internal/entity"
	"batch-runner/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	mu            sync.Mutex
	usersByName   map[string]*entity.User
	namesByID     map[uint]string
	findByIDsCall int
	lastIDs       []uint
}

func (r *fakeUserRepo) FindByName(_ context.Context, name string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usersByName[name], nil
}

func (r *fakeUserRepo) FindByIDs(_ context.Context, ids []uint) (map[uint]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findByIDsCall++
	r.lastIDs = ids
	names := make(map[uint]string)
	for _, id := range ids {
		if name, ok := r.namesByID[id]; ok {
			names[id] = name
		}
	}
	return names, nil
}

func terminalExecution(jobName string, userID uint, exitCode int) entity.BatchExecution {
	execution := entity.NewBatchExecution("job", jobName, userID, nil)
	if exitCode == 0 {
		_ = execution.Complete()
	} else {
		_ = execution.Fail(exitCode)
	}
	return *execution
}

func newTestHistoryService(executionRepo *fakeExecutionRepo, userRepo *fakeUserRepo) HistoryService {
	if userRepo == nil {
		userRepo = &fakeUserRepo{}
	}
	return NewHistoryService(executionRepo, userRepo, logger.NewNop())
}

func TestSearchNonAdminPinnedToOwnRows(t *testing.T) {
	repo := newFakeExecutionRepo()
	repo.searchFn = func(criteria repository.SearchCriteria) ([]entity.BatchExecution, error) {
		return []entity.BatchExecution{terminalExecution("Report", 7, 0)}, nil
	}
	repo.countFn = func(repository.SearchCriteria) (int64, error) { return 1, nil }
	svc := newTestHistoryService(repo, nil)

	// The requested user-name filter must be ignored for non-admin callers.
	page, err := svc.Search(context.Background(), dto.HistorySearchRequest{UserName: "someone-else"}, 7, false)
	require.NoError(t, err)

	require.Len(t, repo.criteria, 1)
	require.NotNil(t, repo.criteria[0].UserID)
	assert.Equal(t, uint(7), *repo.criteria[0].UserID)
	assert.False(t, repo.criteria[0].MatchNone)

	require.Len(t, page.Content, 1)
	assert.Nil(t, page.Content[0].UserName)
}

func TestSearchAdminAllUsers(t *testing.T) {
	repo := newFakeExecutionRepo()
	svc := newTestHistoryService(repo, nil)

	_, err := svc.Search(context.Background(), dto.HistorySearchRequest{}, 1, true)
	require.NoError(t, err)

	require.Len(t, repo.criteria, 1)
	assert.Nil(t, repo.criteria[0].UserID)
	assert.False(t, repo.criteria[0].MatchNone)
}

func TestSearchAdminUnknownUserNameMatchesNothing(t *testing.T) {
	repo := newFakeExecutionRepo()
	repo.countFn = func(criteria repository.SearchCriteria) (int64, error) {
		require.True(t, criteria.MatchNone)
		return 0, nil
	}
	svc := newTestHistoryService(repo, &fakeUserRepo{})

	page, err := svc.Search(context.Background(), dto.HistorySearchRequest{UserName: "typo-name"}, 1, true)
	require.NoError(t, err)

	require.Len(t, repo.criteria, 1)
	assert.True(t, repo.criteria[0].MatchNone)

	assert.Empty(t, page.Content)
	assert.Equal(t, int64(0), page.TotalCount)
	assert.Equal(t, 0, page.TotalPages)
	assert.False(t, page.HasNextPage)
	assert.False(t, page.HasPrevPage)
}

func TestSearchAdminResolvesUserNameFilter(t *testing.T) {
	repo := newFakeExecutionRepo()
	userRepo := &fakeUserRepo{usersByName: map[string]*entity.User{
		"alice": {ID: 3, Name: "alice"},
	}}
	svc := newTestHistoryService(repo, userRepo)

	_, err := svc.Search(context.Background(), dto.HistorySearchRequest{UserName: " alice "}, 1, true)
	require.NoError(t, err)

	require.Len(t, repo.criteria, 1)
	require.NotNil(t, repo.criteria[0].UserID)
	assert.Equal(t, uint(3), *repo.criteria[0].UserID)
}

func TestSearchAdminBatchesDisplayNameLookup(t *testing.T) {
	repo := newFakeExecutionRepo()
	repo.searchFn = func(repository.SearchCriteria) ([]entity.BatchExecution, error) {
		return []entity.BatchExecution{
			terminalExecution("A", 1, 0),
			terminalExecution("B", 1, 2),
			terminalExecution("C", 2, 0),
			terminalExecution("D", 9, 0),
		}, nil
	}
	repo.countFn = func(repository.SearchCriteria) (int64, error) { return 4, nil }
	userRepo := &fakeUserRepo{namesByID: map[uint]string{1: "alice", 2: "bob"}}
	svc := newTestHistoryService(repo, userRepo)

	page, err := svc.Search(context.Background(), dto.HistorySearchRequest{}, 1, true)
	require.NoError(t, err)

	// Distinct ids resolved in a single lookup, never one per row.
	assert.Equal(t, 1, userRepo.findByIDsCall)
	assert.ElementsMatch(t, []uint{1, 2, 9}, userRepo.lastIDs)

	require.Len(t, page.Content, 4)
	require.NotNil(t, page.Content[0].UserName)
	assert.Equal(t, "alice", *page.Content[0].UserName)
	require.NotNil(t, page.Content[2].UserName)
	assert.Equal(t, "bob", *page.Content[2].UserName)
	require.NotNil(t, page.Content[3].UserName)
	assert.Equal(t, "Unknown", *page.Content[3].UserName)
}

func TestSearchPagination(t *testing.T) {
	repo := newFakeExecutionRepo()
	repo.searchFn = func(repository.SearchCriteria) ([]entity.BatchExecution, error) {
		return []entity.BatchExecution{
			terminalExecution("X", 1, 0),
			terminalExecution("Y", 1, 0),
			terminalExecution("Z", 1, 0),
			terminalExecution("W", 1, 0),
			terminalExecution("V", 1, 0),
		}, nil
	}
	repo.countFn = func(repository.SearchCriteria) (int64, error) { return 25, nil }
	svc := newTestHistoryService(repo, nil)

	page, err := svc.Search(context.Background(), dto.HistorySearchRequest{Page: 2, PageSize: 10}, 1, false)
	require.NoError(t, err)

	require.Len(t, repo.criteria, 1)
	assert.Equal(t, 20, repo.criteria[0].Offset)
	assert.Equal(t, 10, repo.criteria[0].Limit)

	assert.Equal(t, int64(25), page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.False(t, page.HasNextPage)
	assert.True(t, page.HasPrevPage)
}

func TestSearchNormalizesPagination(t *testing.T) {
	repo := newFakeExecutionRepo()
	svc := newTestHistoryService(repo, nil)

	page, err := svc.Search(context.Background(), dto.HistorySearchRequest{Page: -3, PageSize: 1000}, 1, false)
	require.NoError(t, err)

	require.Len(t, repo.criteria, 1)
	assert.Equal(t, 0, repo.criteria[0].Offset)
	assert.Equal(t, maxPageSize, repo.criteria[0].Limit)
	assert.Equal(t, 0, page.CurrentPage)
	assert.Equal(t, maxPageSize, page.PageSize)
}

func TestSearchPassesFilters(t *testing.T) {
	repo := newFakeExecutionRepo()
	svc := newTestHistoryService(repo, nil)

	startedAfter := time.Now().Add(-24 * time.Hour)
	endedBefore := time.Now()
	_, err := svc.Search(context.Background(), dto.HistorySearchRequest{
		JobName:      "Report",
		Status:       string(entity.StatusFailed),
		StartedAfter: &startedAfter,
		EndedBefore:  &endedBefore,
	}, 1, false)
	require.NoError(t, err)

	require.Len(t, repo.criteria, 1)
	criteria := repo.criteria[0]
	assert.Equal(t, "Report", criteria.JobName)
	assert.Equal(t, string(entity.StatusFailed), criteria.Status)
	assert.Equal(t, &startedAfter, criteria.StartedAfter)
	assert.Equal(t, &endedBefore, criteria.EndedBefore)
}

func TestSearchComputesDuration(t *testing.T) {
	repo := newFakeExecutionRepo()
	repo.searchFn = func(repository.SearchCriteria) ([]entity.BatchExecution, error) {
		execution := entity.NewBatchExecution("job", "Report", 1, nil)
		execution.StartTime = time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
		execution.Status = entity.StatusCompletedSuccess
		execution.ExitCode = sql.NullInt32{Int32: 0, Valid: true}
		execution.EndTime = sql.NullTime{Time: execution.StartTime.Add(90 * time.Second), Valid: true}
		return []entity.BatchExecution{*execution}, nil
	}
	repo.countFn = func(repository.SearchCriteria) (int64, error) { return 1, nil }
	svc := newTestHistoryService(repo, nil)

	page, err := svc.Search(context.Background(), dto.HistorySearchRequest{}, 1, false)
	require.NoError(t, err)

	require.Len(t, page.Content, 1)
	require.NotNil(t, page.Content[0].DurationMillis)
	assert.Equal(t, int64(90000), *page.Content[0].DurationMillis)
}

func TestGetHistoryIsSelfOnly(t *testing.T) {
	repo := newFakeExecutionRepo()
	svc := newTestHistoryService(repo, nil)

	_, err := svc.GetHistory(context.Background(), 5, 0, 10)
	require.NoError(t, err)

	require.Len(t, repo.criteria, 1)
	require.NotNil(t, repo.criteria[0].UserID)
	assert.Equal(t, uint(5), *repo.criteria[0].UserID)
}

package service

import (
	"context"
	"fmt"
	"strings"

	"batch-runner/internal/batch/dto"
	"batch-runner/internal/batch/repository"
	"batch-runner/internal/entity"
	"batch-runner/pkg/logger"
	"batch-runner/pkg/utils"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// HistoryService serves access-controlled, paginated execution history.
type HistoryService interface {
	Search(ctx context.Context, req dto.HistorySearchRequest, callerID uint, callerIsAdmin bool) (*dto.HistoryPageResponse, error)
	GetHistory(ctx context.Context, userID uint, page, pageSize int) (*dto.HistoryPageResponse, error)
}

// NewHistoryService creates a new execution history service.
func NewHistoryService(executionRepo repository.ExecutionRepository, userRepo repository.UserRepository, log *logger.Logger) HistoryService {
	return &historyService{
		executionRepo: executionRepo,
		userRepo:      userRepo,
		logger:        log,
	}
}

type historyService struct {
	executionRepo repository.ExecutionRepository
	userRepo      repository.UserRepository
	logger        *logger.Logger
}

// Search runs an access-controlled history search. The effective user scope
// is resolved once, before any querying, and travels inside the criteria so
// the query layer stays free of role conditionals.
func (s *historyService) Search(ctx context.Context, req dto.HistorySearchRequest, callerID uint, callerIsAdmin bool) (*dto.HistoryPageResponse, error) {
	page, pageSize := normalizePagination(req.Page, req.PageSize)

	criteria := repository.SearchCriteria{
		JobName:      req.JobName,
		Status:       req.Status,
		StartedAfter: req.StartedAfter,
		EndedBefore:  req.EndedBefore,
		Offset:       utils.CalculateOffset(page, pageSize),
		Limit:        pageSize,
	}
	if err := s.resolveUserScope(ctx, &criteria, req.UserName, callerID, callerIsAdmin); err != nil {
		return nil, err
	}

	executions, err := s.executionRepo.Search(ctx, criteria)
	if err != nil {
		s.logger.Error("Failed to search execution history", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to search execution history: %w", err)
	}

	totalCount, err := s.executionRepo.Count(ctx, criteria)
	if err != nil {
		s.logger.Error("Failed to count execution history", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to count execution history: %w", err)
	}

	userNames, err := s.resolveDisplayNames(ctx, executions, callerIsAdmin)
	if err != nil {
		return nil, err
	}

	items := make([]dto.HistoryItem, 0, len(executions))
	for i := range executions {
		items = append(items, mapHistoryItem(&executions[i], userNames, callerIsAdmin))
	}

	totalPages := utils.CalculateTotalPages(totalCount, pageSize)
	return &dto.HistoryPageResponse{
		Content:     items,
		TotalCount:  totalCount,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    pageSize,
		HasNextPage: utils.HasNextPage(page, totalPages),
		HasPrevPage: utils.HasPrevPage(page),
	}, nil
}

// GetHistory is the self-only convenience form of Search.
func (s *historyService) GetHistory(ctx context.Context, userID uint, page, pageSize int) (*dto.HistoryPageResponse, error) {
	return s.Search(ctx, dto.HistorySearchRequest{Page: page, PageSize: pageSize}, userID, false)
}

// resolveUserScope applies the access policy. Non-admin callers are always
// pinned to their own rows. An admin filtering by a user name that does not
// resolve gets an empty result, never an unrestricted one.
func (s *historyService) resolveUserScope(ctx context.Context, criteria *repository.SearchCriteria, requestedUserName string, callerID uint, callerIsAdmin bool) error {
	if !callerIsAdmin {
		criteria.UserID = &callerID
		return nil
	}

	name := strings.TrimSpace(requestedUserName)
	if name == "" {
		return nil // all users
	}

	user, err := s.userRepo.FindByName(ctx, name)
	if err != nil {
		s.logger.Error("Failed to resolve user name filter", logger.ErrorField(err), logger.StringField("user_name", name))
		return fmt.Errorf("failed to resolve user name filter: %w", err)
	}
	if user == nil {
		criteria.MatchNone = true
		return nil
	}
	criteria.UserID = &user.ID
	return nil
}

// resolveDisplayNames batch-resolves the distinct user ids on the page for
// admin callers. One lookup per page, never one per row.
func (s *historyService) resolveDisplayNames(ctx context.Context, executions []entity.BatchExecution, callerIsAdmin bool) (map[uint]string, error) {
	if !callerIsAdmin || len(executions) == 0 {
		return nil, nil
	}

	seen := make(map[uint]struct{}, len(executions))
	ids := make([]uint, 0, len(executions))
	for i := range executions {
		if _, ok := seen[executions[i].UserID]; !ok {
			seen[executions[i].UserID] = struct{}{}
			ids = append(ids, executions[i].UserID)
		}
	}

	names, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to resolve user display names", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to resolve user display names: %w", err)
	}
	return names, nil
}

func mapHistoryItem(execution *entity.BatchExecution, userNames map[uint]string, callerIsAdmin bool) dto.HistoryItem {
	item := dto.HistoryItem{
		ID:        execution.ID,
		JobID:     execution.JobID,
		JobName:   execution.JobName,
		Status:    string(execution.Status),
		UserID:    execution.UserID,
		StartTime: execution.StartTime,
	}
	if execution.ExitCode.Valid {
		exitCode := int(execution.ExitCode.Int32)
		item.ExitCode = &exitCode
	}
	if execution.EndTime.Valid {
		endTime := execution.EndTime.Time
		item.EndTime = &endTime
		duration := endTime.Sub(execution.StartTime).Milliseconds()
		item.DurationMillis = &duration
	}
	if callerIsAdmin {
		name, ok := userNames[execution.UserID]
		if !ok {
			name = "Unknown"
		}
		item.UserName = &name
	}
	return item
}

func normalizePagination(page, pageSize int) (int, int) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

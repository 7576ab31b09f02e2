package repository

import (
	"context"
	"time"

	"batch-runner/internal/entity"

	"gorm.io/gorm"
)

// SearchCriteria carries the effective, access-controlled filters for a
// history search. A nil UserID means all users; MatchNone forces an empty
// result regardless of the other filters.
type SearchCriteria struct {
	UserID       *uint
	MatchNone    bool
	JobName      string
	Status       string
	StartedAfter *time.Time
	EndedBefore  *time.Time
	Offset       int
	Limit        int
}

// ExecutionRepository defines the interface for batch execution data operations.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *entity.BatchExecution) error
	FindByID(ctx context.Context, id string) (*entity.BatchExecution, error)
	Update(ctx context.Context, execution *entity.BatchExecution) error
	Search(ctx context.Context, criteria SearchCriteria) ([]entity.BatchExecution, error)
	Count(ctx context.Context, criteria SearchCriteria) (int64, error)
}

// NewExecutionRepository creates a new GORM-based batch execution repository.
func NewExecutionRepository(db *gorm.DB) ExecutionRepository {
	return &executionRepository{db: db}
}

type executionRepository struct {
	db *gorm.DB
}

// Create inserts a new batch execution record.
func (r *executionRepository) Create(ctx context.Context, execution *entity.BatchExecution) error {
	return r.db.WithContext(ctx).Create(execution).Error
}

// FindByID retrieves a batch execution record by its ID.
func (r *executionRepository) FindByID(ctx context.Context, id string) (*entity.BatchExecution, error) {
	var execution entity.BatchExecution
	if err := r.db.WithContext(ctx).First(&execution, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &execution, nil
}

// Update persists the current state of a batch execution record.
func (r *executionRepository) Update(ctx context.Context, execution *entity.BatchExecution) error {
	return r.db.WithContext(ctx).Save(execution).Error
}

// Search retrieves a page of batch execution records matching the criteria,
// newest start time first with the id as a tie breaker.
func (r *executionRepository) Search(ctx context.Context, criteria SearchCriteria) ([]entity.BatchExecution, error) {
	var executions []entity.BatchExecution
	err := applyCriteria(r.db.WithContext(ctx), criteria).
		Order("start_time DESC, id DESC").
		Offset(criteria.Offset).
		Limit(criteria.Limit).
		Find(&executions).Error
	if err != nil {
		return nil, err
	}
	return executions, nil
}

// Count returns the total number of records matching the criteria,
// disregarding pagination.
func (r *executionRepository) Count(ctx context.Context, criteria SearchCriteria) (int64, error) {
	var count int64
	err := applyCriteria(r.db.WithContext(ctx).Model(&entity.BatchExecution{}), criteria).
		Count(&count).Error
	return count, err
}

func applyCriteria(db *gorm.DB, criteria SearchCriteria) *gorm.DB {
	if criteria.MatchNone {
		return db.Where("1 = 0")
	}
	if criteria.UserID != nil {
		db = db.Where("user_id = ?", *criteria.UserID)
	}
	if criteria.JobName != "" {
		db = db.Where("job_name LIKE ?", "%"+criteria.JobName+"%")
	}
	if criteria.Status != "" {
		db = db.Where("status = ?", criteria.Status)
	}
	if criteria.StartedAfter != nil {
		db = db.Where("start_time >= ?", *criteria.StartedAfter)
	}
	if criteria.EndedBefore != nil {
		db = db.Where("end_time <= ?", *criteria.EndedBefore)
	}
	return db
}

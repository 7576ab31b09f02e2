package entity

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ExecutionStatus represents the lifecycle state of a batch execution.
type ExecutionStatus string

const (
	StatusRunning          ExecutionStatus = "RUNNING"
	StatusCompletedSuccess ExecutionStatus = "COMPLETED_SUCCESS"
	StatusFailed           ExecutionStatus = "FAILED"
)

const (
	// TimeoutExitCode is the reserved exit code recorded when an execution is
	// killed because it exceeded its configured timeout. It matches the
	// timeout(1) convention and is never produced by the outcome mapping for
	// a process that exited on its own.
	TimeoutExitCode = 124

	// GenericFailureExitCode is recorded when the execution failed before the
	// process produced an exit code, e.g. the command could not be spawned.
	GenericFailureExitCode = 1
)

var (
	// ErrInvalidStatusTransition is returned when a terminal transition is
	// applied to an execution that is not running.
	ErrInvalidStatusTransition = errors.New("invalid execution status transition")

	// ErrInvalidFailureExitCode is returned when Fail is called with exit code 0.
	ErrInvalidFailureExitCode = errors.New("failure exit code must be nonzero")
)

// BatchExecution is one run of a batch job, tracked from start to its
// terminal outcome. JobID and JobName are denormalized from the catalog at
// start time so history stays stable when the catalog changes.
type BatchExecution struct {
	ID        string          `gorm:"primaryKey" json:"id"`
	JobID     string          `gorm:"not null;index" json:"job_id"`
	JobName   string          `gorm:"not null" json:"job_name"`
	Arguments pq.StringArray  `gorm:"type:text[]" json:"arguments" swaggertype:"array,string"`
	Status    ExecutionStatus `gorm:"not null;index" json:"status"`
	ExitCode  sql.NullInt32   `json:"exit_code" swaggertype:"integer"`
	UserID    uint            `gorm:"not null;index" json:"user_id"`
	StartTime time.Time       `gorm:"not null" json:"start_time"`
	EndTime   sql.NullTime    `json:"end_time" swaggertype:"string" format:"date-time"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the BatchExecution model.
func (BatchExecution) TableName() string {
	return "batch_executions"
}

// NewBatchExecution creates a new running execution with a fresh UUID. The
// job arguments are captured as a snapshot so history shows what actually ran.
func NewBatchExecution(jobID, jobName string, userID uint, arguments []string) *BatchExecution {
	now := time.Now()
	return &BatchExecution{
		ID:        uuid.New().String(),
		JobID:     jobID,
		JobName:   jobName,
		Arguments: arguments,
		Status:    StatusRunning,
		UserID:    userID,
		StartTime: now,
		CreatedAt: now,
	}
}

// Complete marks the execution as successfully finished with exit code 0.
func (e *BatchExecution) Complete() error {
	if e.Status != StatusRunning {
		return ErrInvalidStatusTransition
	}
	e.Status = StatusCompletedSuccess
	e.ExitCode = sql.NullInt32{Int32: 0, Valid: true}
	e.EndTime = sql.NullTime{Time: time.Now(), Valid: true}
	return nil
}

// Fail marks the execution as failed with the given nonzero exit code.
func (e *BatchExecution) Fail(exitCode int) error {
	if e.Status != StatusRunning {
		return ErrInvalidStatusTransition
	}
	if exitCode == 0 {
		return ErrInvalidFailureExitCode
	}
	e.Status = StatusFailed
	e.ExitCode = sql.NullInt32{Int32: int32(exitCode), Valid: true}
	e.EndTime = sql.NullTime{Time: time.Now(), Valid: true}
	return nil
}

// Timeout marks the execution as failed with the reserved timeout exit code.
func (e *BatchExecution) Timeout() error {
	if e.Status != StatusRunning {
		return ErrInvalidStatusTransition
	}
	e.Status = StatusFailed
	e.ExitCode = sql.NullInt32{Int32: TimeoutExitCode, Valid: true}
	e.EndTime = sql.NullTime{Time: time.Now(), Valid: true}
	return nil
}

// IsRunning reports whether the execution has not reached a terminal status.
func (e *BatchExecution) IsRunning() bool {
	return e.Status == StatusRunning
}

// IsCompleted reports whether the execution reached a terminal status.
func (e *BatchExecution) IsCompleted() bool {
	return e.Status != StatusRunning
}

// IsSuccessful reports whether the execution completed successfully.
func (e *BatchExecution) IsSuccessful() bool {
	return e.Status == StatusCompletedSuccess
}

package dto

import (
	"time"

	"batch-runner/internal/entity"
)

// JobResponse is the DTO for API responses listing available batch jobs.
type JobResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Timeout     int    `json:"timeout"`
}

// ExecuteResponse is the DTO returned when a batch execution is started.
type ExecuteResponse struct {
	ExecutionID string `json:"execution_id"`
}

// ExecutionStatusResponse is the DTO for a single execution's status.
type ExecutionStatusResponse struct {
	ID        string     `json:"id"`
	JobID     string     `json:"job_id"`
	JobName   string     `json:"job_name"`
	Status    string     `json:"status"`
	ExitCode  *int       `json:"exit_code,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// NewExecutionStatusResponse maps an execution entity to its status DTO.
func NewExecutionStatusResponse(execution *entity.BatchExecution) *ExecutionStatusResponse {
	resp := &ExecutionStatusResponse{
		ID:        execution.ID,
		JobID:     execution.JobID,
		JobName:   execution.JobName,
		Status:    string(execution.Status),
		StartTime: execution.StartTime,
	}
	if execution.ExitCode.Valid {
		exitCode := int(execution.ExitCode.Int32)
		resp.ExitCode = &exitCode
	}
	if execution.EndTime.Valid {
		endTime := execution.EndTime.Time
		resp.EndTime = &endTime
	}
	return resp
}

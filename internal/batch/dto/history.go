package dto

import (
	"time"
)

// HistorySearchRequest is the DTO for history search requests. UserName is
// only honored for admin callers; StartedAfter and EndedBefore bound the
// execution's start and end times respectively.
type HistorySearchRequest struct {
	UserName     string     `json:"user_name"`
	JobName      string     `json:"job_name"`
	Status       string     `json:"status"`
	StartedAfter *time.Time `json:"started_after"`
	EndedBefore  *time.Time `json:"ended_before"`
	Page         int        `json:"page"`
	PageSize     int        `json:"page_size"`
}

// HistoryItem is one row of a history page. UserName is populated only for
// admin callers; DurationMillis only once the execution is terminal.
type HistoryItem struct {
	ID             string     `json:"id"`
	JobID          string     `json:"job_id"`
	JobName        string     `json:"job_name"`
	Status         string     `json:"status"`
	ExitCode       *int       `json:"exit_code,omitempty"`
	UserID         uint       `json:"user_id"`
	UserName       *string    `json:"user_name,omitempty"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	DurationMillis *int64     `json:"duration_ms,omitempty"`
}

// HistoryPageResponse is one page of history search results.
type HistoryPageResponse struct {
	Content     []HistoryItem `json:"content"`
	TotalCount  int64         `json:"total_count"`
	TotalPages  int           `json:"total_pages"`
	CurrentPage int           `json:"current_page"`
	PageSize    int           `json:"page_size"`
	HasNextPage bool          `json:"has_next_page"`
	HasPrevPage bool          `json:"has_prev_page"`
}

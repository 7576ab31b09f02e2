package events

import (
	"context"
	"encoding/json"

	"batch-runner/internal/entity"
	"batch-runner/pkg/common"
	"batch-runner/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// ExecutionEvent is the payload published for execution lifecycle changes.
type ExecutionEvent struct {
	Type        string `json:"type"`
	ExecutionID string `json:"execution_id"`
	JobID       string `json:"job_id"`
	JobName     string `json:"job_name"`
	Status      string `json:"status"`
	ExitCode    *int   `json:"exit_code,omitempty"`
	UserID      uint   `json:"user_id"`
}

// Publisher emits execution lifecycle events for external consumers.
// Publishing is best effort and must never influence the execution outcome.
type Publisher interface {
	ExecutionStarted(ctx context.Context, execution *entity.BatchExecution)
	ExecutionFinished(ctx context.Context, execution *entity.BatchExecution)
}

// NewRedisPublisher creates a publisher that appends events to a capped
// Redis stream.
func NewRedisPublisher(client *redis.Client, streamMaxLen int64, log *logger.Logger) Publisher {
	return &redisPublisher{
		client:       client,
		streamMaxLen: streamMaxLen,
		logger:       log,
	}
}

type redisPublisher struct {
	client       *redis.Client
	streamMaxLen int64
	logger       *logger.Logger
}

func (p *redisPublisher) ExecutionStarted(ctx context.Context, execution *entity.BatchExecution) {
	p.publish(ctx, common.EventTypeExecutionStarted, execution)
}

func (p *redisPublisher) ExecutionFinished(ctx context.Context, execution *entity.BatchExecution) {
	p.publish(ctx, common.EventTypeExecutionFinished, execution)
}

func (p *redisPublisher) publish(ctx context.Context, eventType string, execution *entity.BatchExecution) {
	event := ExecutionEvent{
		Type:        eventType,
		ExecutionID: execution.ID,
		JobID:       execution.JobID,
		JobName:     execution.JobName,
		Status:      string(execution.Status),
		UserID:      execution.UserID,
	}
	if execution.ExitCode.Valid {
		exitCode := int(execution.ExitCode.Int32)
		event.ExitCode = &exitCode
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal execution event", logger.ErrorField(err), logger.Field("execution_id", execution.ID))
		return
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamBatchExecutionEvents,
		Values: map[string]interface{}{"payload": payload},
		MaxLen: p.streamMaxLen,
		Approx: true,
	}).Err(); err != nil {
		p.logger.Error("Failed to publish execution event", logger.ErrorField(err), logger.Field("execution_id", execution.ID))
	}
}

// NewNopPublisher returns a publisher that drops all events, used when the
// event stream is disabled.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

type nopPublisher struct{}

func (nopPublisher) ExecutionStarted(context.Context, *entity.BatchExecution)  {}
func (nopPublisher) ExecutionFinished(context.Context, *entity.BatchExecution) {}

package common

const (
	RedisStreamBatchExecutionEvents = "batch.execution.events"

	EventTypeExecutionStarted  = "execution.started"
	EventTypeExecutionFinished = "execution.finished"
)

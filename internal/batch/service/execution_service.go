package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"batch-runner/internal/batch/catalog"
	"batch-runner/internal/batch/dto"
	"batch-runner/internal/batch/events"
	"batch-runner/internal/batch/repository"
	"batch-runner/internal/batch/runner"
	"batch-runner/internal/entity"
	"batch-runner/pkg/logger"
	"batch-runner/pkg/telegram"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

var (
	// ErrJobNotFound is returned when the requested job id is unknown or the
	// job is disabled.
	ErrJobNotFound = errors.New("job not found or disabled")

	// ErrExecutionNotFound is returned when an execution id resolves neither
	// in-flight nor in the store.
	ErrExecutionNotFound = errors.New("execution not found")
)

// ExecutionService starts batch executions and answers status queries. One
// goroutine per started execution owns all mutation of its record after the
// initial insert.
type ExecutionService interface {
	ListJobs() []dto.JobResponse
	Execute(ctx context.Context, jobID string, userID uint) (string, error)
	GetStatus(ctx context.Context, executionID string) (*dto.ExecutionStatusResponse, error)
}

// inflightExecution is the transient handle kept while an execution runs.
// Done is closed after the terminal durable update has been applied.
type inflightExecution struct {
	JobID     string
	JobName   string
	UserID    uint
	StartTime time.Time
	Done      chan struct{}
}

// NewExecutionService creates a new batch execution service. The telegram
// notifier may be nil when alerting is disabled.
func NewExecutionService(
	jobCatalog *catalog.Catalog,
	executionRepo repository.ExecutionRepository,
	commandBuilder runner.CommandBuilder,
	processRunner runner.Runner,
	publisher events.Publisher,
	notifier telegram.Notifier,
	log *logger.Logger,
) ExecutionService {
	return &executionService{
		catalog:        jobCatalog,
		executionRepo:  executionRepo,
		commandBuilder: commandBuilder,
		runner:         processRunner,
		publisher:      publisher,
		notifier:       notifier,
		inflight:       cache.New(cache.NoExpiration, 0),
		logger:         log,
	}
}

type executionService struct {
	catalog        *catalog.Catalog
	executionRepo  repository.ExecutionRepository
	commandBuilder runner.CommandBuilder
	runner         runner.Runner
	publisher      events.Publisher
	notifier       telegram.Notifier
	inflight       *cache.Cache
	logger         *logger.Logger
}

// ListJobs returns the enabled catalog entries.
func (s *executionService) ListJobs() []dto.JobResponse {
	jobs := s.catalog.Enabled()
	responses := make([]dto.JobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, dto.JobResponse{
			ID:          job.ID,
			Name:        job.Name,
			Description: job.Description,
			Timeout:     job.Timeout,
		})
	}
	return responses
}

// Execute starts a new execution of the given job and returns its id without
// waiting for the job to finish. The RUNNING record is durable and the id is
// registered in-flight before this returns, so a status query for the
// returned id always finds something.
func (s *executionService) Execute(ctx context.Context, jobID string, userID uint) (string, error) {
	job, ok := s.catalog.Get(jobID)
	if !ok || !job.Enabled {
		return "", ErrJobNotFound
	}

	execution := entity.NewBatchExecution(job.ID, job.Name, userID, job.Arguments)
	if err := s.executionRepo.Create(ctx, execution); err != nil {
		return "", fmt.Errorf("failed to create execution record: %w", err)
	}

	s.inflight.Set(execution.ID, &inflightExecution{
		JobID:     execution.JobID,
		JobName:   execution.JobName,
		UserID:    execution.UserID,
		StartTime: execution.StartTime,
		Done:      make(chan struct{}),
	}, cache.NoExpiration)

	s.publisher.ExecutionStarted(ctx, execution)

	s.logger.Info("Batch execution started",
		logger.StringField("execution_id", execution.ID),
		logger.StringField("job_id", job.ID),
		logger.Field("user_id", userID))

	go s.runExecution(execution.ID, job)

	return execution.ID, nil
}

// GetStatus answers a status query, preferring the in-flight index to avoid
// a storage round trip ruling on "still running". The durable record remains
// the source of truth for anything terminal.
func (s *executionService) GetStatus(ctx context.Context, executionID string) (*dto.ExecutionStatusResponse, error) {
	if raw, found := s.inflight.Get(executionID); found {
		execution, err := s.executionRepo.FindByID(ctx, executionID)
		if err == nil {
			return dto.NewExecutionStatusResponse(execution), nil
		}
		s.logger.Warn("Failed to load in-flight execution record, synthesizing view",
			logger.ErrorField(err), logger.StringField("execution_id", executionID))
		handle := raw.(*inflightExecution)
		return &dto.ExecutionStatusResponse{
			ID:        executionID,
			JobID:     handle.JobID,
			JobName:   handle.JobName,
			Status:    string(entity.StatusRunning),
			StartTime: handle.StartTime,
		}, nil
	}

	execution, err := s.executionRepo.FindByID(ctx, executionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("failed to load execution: %w", err)
	}
	return dto.NewExecutionStatusResponse(execution), nil
}

// runExecution supervises one execution to its terminal state. It must never
// return without attempting a terminal durable update; nothing else will.
// The context is detached from the initiating request on purpose: a client
// disconnect must not abort a started job.
func (s *executionService) runExecution(executionID string, job catalog.Job) {
	ctx := context.Background()

	defer s.unregister(executionID)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Execution goroutine panicked",
				logger.StringField("execution_id", executionID), logger.Field("panic", r))
			s.finish(ctx, executionID, func(e *entity.BatchExecution) error {
				return e.Fail(entity.GenericFailureExitCode)
			})
		}
	}()

	spec := runner.RunSpec{
		Args:             s.commandBuilder.Build(job),
		WorkingDirectory: job.WorkingDirectory,
		Environment:      job.Environment,
		Timeout:          time.Duration(job.Timeout) * time.Second,
	}

	outcome, err := s.runner.Run(ctx, spec)
	switch {
	case err != nil:
		// Spawn and wait failures are job failures; the job "ran" and failed.
		s.logger.Error("Batch process failed to run",
			logger.ErrorField(err), logger.StringField("execution_id", executionID))
		s.finish(ctx, executionID, func(e *entity.BatchExecution) error {
			return e.Fail(entity.GenericFailureExitCode)
		})
	case outcome.TimedOut:
		s.logger.Warn("Batch execution timed out",
			logger.StringField("execution_id", executionID),
			logger.IntField("timeout_seconds", job.Timeout))
		s.finish(ctx, executionID, (*entity.BatchExecution).Timeout)
	case outcome.ExitCode == 0:
		s.finish(ctx, executionID, (*entity.BatchExecution).Complete)
	default:
		s.finish(ctx, executionID, func(e *entity.BatchExecution) error {
			return e.Fail(outcome.ExitCode)
		})
	}
}

// finish loads the record, applies the terminal transition, and persists it.
// A rejected transition means a conflicting completion signal already won; it
// is logged and swallowed so it cannot take down the goroutine.
func (s *executionService) finish(ctx context.Context, executionID string, transition func(*entity.BatchExecution) error) {
	execution, err := s.executionRepo.FindByID(ctx, executionID)
	if err != nil {
		s.logger.Error("Failed to load execution for completion",
			logger.ErrorField(err), logger.StringField("execution_id", executionID))
		return
	}

	if err := transition(execution); err != nil {
		s.logger.Warn("Rejected execution status transition",
			logger.ErrorField(err), logger.StringField("execution_id", executionID),
			logger.StringField("status", string(execution.Status)))
		return
	}

	if err := s.executionRepo.Update(ctx, execution); err != nil {
		s.logger.Error("Failed to update execution record",
			logger.ErrorField(err), logger.StringField("execution_id", executionID))
		return
	}

	s.logger.Info("Batch execution finished",
		logger.StringField("execution_id", executionID),
		logger.StringField("status", string(execution.Status)),
		logger.IntField("exit_code", int(execution.ExitCode.Int32)))

	s.publisher.ExecutionFinished(ctx, execution)

	if execution.Status == entity.StatusFailed && s.notifier != nil {
		message := telegram.FormatExecutionFailure(execution.ID, execution.JobName, int(execution.ExitCode.Int32))
		if err := s.notifier.SendMessage(message); err != nil {
			s.logger.Warn("Failed to send failure alert",
				logger.ErrorField(err), logger.StringField("execution_id", executionID))
		}
	}
}

// unregister removes the in-flight entry. It runs after the durable update,
// so a reader that misses the entry finds the terminal record.
func (s *executionService) unregister(executionID string) {
	if raw, found := s.inflight.Get(executionID); found {
		close(raw.(*inflightExecution).Done)
	}
	s.inflight.Delete(executionID)
}

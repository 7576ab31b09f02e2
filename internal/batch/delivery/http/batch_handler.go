package http

import (
	"errors"
	"net/http"
	"strconv"

	"batch-runner/internal/batch/dto"
	"batch-runner/internal/batch/service"
	"batch-runner/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BatchHandler handles HTTP requests for batch execution and history.
type BatchHandler struct {
	executionService service.ExecutionService
	historyService   service.HistoryService
	logger           *logger.Logger
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(executionService service.ExecutionService, historyService service.HistoryService, log *logger.Logger) *BatchHandler {
	return &BatchHandler{executionService: executionService, historyService: historyService, logger: log}
}

// RegisterRoutes registers the batch routes to the Echo group. The execute
// route additionally takes the given middleware (rate limiting).
func (h *BatchHandler) RegisterRoutes(g *echo.Group, executeMiddleware ...echo.MiddlewareFunc) {
	g.GET("/jobs", h.ListJobs)
	g.POST("/execute", h.Execute, executeMiddleware...)
	g.GET("/status/:execution_id", h.GetStatus)
	g.GET("/history", h.GetHistory)
	g.POST("/history/search", h.SearchHistory)
}

// ListJobs godoc
// @Summary List available batch jobs
// @Description Get all enabled batch job definitions
// @Tags batch
// @Produce json
// @Success 200 {array} dto.JobResponse
// @Router /batch/jobs [get]
func (h *BatchHandler) ListJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.executionService.ListJobs())
}

// Execute godoc
// @Summary Start a batch execution
// @Description Start the given job as a supervised external process
// @Tags batch
// @Produce json
// @Param job_id query string true "Job ID"
// @Success 202 {object} dto.ExecuteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /batch/execute [post]
func (h *BatchHandler) Execute(c echo.Context) error {
	jobID := c.QueryParam("job_id")
	if jobID == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "job_id is required"})
	}

	userID, _ := caller(c)
	executionID, err := h.executionService.Execute(c.Request().Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "job not found or disabled"})
		}
		h.logger.Error("Failed to start batch execution", logger.ErrorField(err), logger.StringField("job_id", jobID))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to start batch execution"})
	}

	return c.JSON(http.StatusAccepted, dto.ExecuteResponse{ExecutionID: executionID})
}

// GetStatus godoc
// @Summary Get a batch execution's status
// @Description Get the live or historical status of one execution
// @Tags batch
// @Produce json
// @Param execution_id path string true "Execution ID"
// @Success 200 {object} dto.ExecutionStatusResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /batch/status/{execution_id} [get]
func (h *BatchHandler) GetStatus(c echo.Context) error {
	status, err := h.executionService.GetStatus(c.Request().Context(), c.Param("execution_id"))
	if err != nil {
		if errors.Is(err, service.ErrExecutionNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "execution not found"})
		}
		h.logger.Error("Failed to get execution status", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to get execution status"})
	}
	return c.JSON(http.StatusOK, status)
}

// GetHistory godoc
// @Summary Get the caller's execution history
// @Description Paginated history of the caller's own executions
// @Tags batch
// @Produce json
// @Param page query int false "Zero-based page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.HistoryPageResponse
// @Router /batch/history [get]
func (h *BatchHandler) GetHistory(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	userID, _ := caller(c)
	pageResp, err := h.historyService.GetHistory(c.Request().Context(), userID, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to get execution history", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to get execution history"})
	}
	return c.JSON(http.StatusOK, pageResp)
}

// SearchHistory godoc
// @Summary Search execution history
// @Description Filtered, paginated history search; admin-only filters apply only to admin callers
// @Tags batch
// @Accept json
// @Produce json
// @Param request body dto.HistorySearchRequest true "Search criteria"
// @Success 200 {object} dto.HistoryPageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /batch/history/search [post]
func (h *BatchHandler) SearchHistory(c echo.Context) error {
	var req dto.HistorySearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid search request"})
	}

	userID, isAdmin := caller(c)
	pageResp, err := h.historyService.Search(c.Request().Context(), req, userID, isAdmin)
	if err != nil {
		h.logger.Error("Failed to search execution history", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to search execution history"})
	}
	return c.JSON(http.StatusOK, pageResp)
}

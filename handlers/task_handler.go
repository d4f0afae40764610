package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/outreach-sequencer/internal/domain"
	"github.com/onurcolak/outreach-sequencer/pkg/response"
	"github.com/onurcolak/outreach-sequencer/pkg/validator"
)

type taskService interface {
	GetReady(ctx context.Context, limit int) ([]domain.ReadyTask, error)
	GetStep(ctx context.Context, id int64) (*domain.LeadStepProgress, error)
	Claim(ctx context.Context, id int64) (*domain.ClaimedTask, error)
	ClaimBatch(ctx context.Context, limit int, blockedSenders ...string) ([]domain.ClaimedTask, error)
	Release(ctx context.Context, id int64, token string) error
	Complete(ctx context.Context, id int64, success bool, token string) (*domain.CompletionResult, error)
	GetCachedCompletions(ctx context.Context) (map[int64]*domain.CompletedStep, error)
}

// TaskHandler is the executor-facing API: read due work, claim it and
// report outcomes.
type TaskHandler struct {
	service taskService
}

func NewTaskHandler(service taskService) *TaskHandler {
	return &TaskHandler{service: service}
}

type ClaimBatchRequest struct {
	Limit int `json:"limit" validate:"omitempty,min=1,max=500"`
}

type ReleaseRequest struct {
	ClaimToken string `json:"claimToken" validate:"required,uuid4"`
}

type CompleteRequest struct {
	Success    *bool  `json:"success" validate:"required"`
	ClaimToken string `json:"claimToken,omitempty" validate:"omitempty,uuid4"`
}

// GetReadyTasks godoc
// @Summary List ready tasks
// @Description Returns due, unclaimed steps of active campaigns ordered by due time. Does not claim them.
// @Tags tasks
// @Produce json
// @Param x-api-key header string true "Executor API key"
// @Param limit query int false "Maximum rows (default: 50, max: 500)"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/tasks/ready [get]
func (h *TaskHandler) GetReadyTasks(c echo.Context) error {
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l <= 0 {
			return response.BadRequest(c, fmt.Errorf("limit must be a positive integer"))
		}
		limit = l
	}

	tasks, err := h.service.GetReady(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}

	if tasks == nil {
		tasks = []domain.ReadyTask{}
	}

	return response.Ok(c, tasks)
}

// GetTask godoc
// @Summary Get a step progress row
// @Description Returns the row with its status, due time, attempts and claim time
// @Tags tasks
// @Produce json
// @Param x-api-key header string true "Executor API key"
// @Param id path int true "Step progress id"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	step, err := h.service.GetStep(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, step)
}

// ClaimTasks godoc
// @Summary Claim a batch of ready tasks
// @Description Claims up to limit ready steps; only the steps this caller won are returned
// @Tags tasks
// @Accept json
// @Produce json
// @Param x-api-key header string true "Executor API key"
// @Param request body ClaimBatchRequest false "Batch size"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/tasks/claim [post]
func (h *TaskHandler) ClaimTasks(c echo.Context) error {
	var req ClaimBatchRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	claimed, err := h.service.ClaimBatch(c.Request().Context(), req.Limit)
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, map[string]any{
		"count": len(claimed),
		"tasks": claimed,
	})
}

// ClaimTask godoc
// @Summary Claim one ready task
// @Description Moves the step from ready to running. Exactly one of any concurrent callers wins.
// @Tags tasks
// @Produce json
// @Param x-api-key header string true "Executor API key"
// @Param id path int true "Step progress id"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Claim lost"
// @Router /api/v1/tasks/{id}/claim [post]
func (h *TaskHandler) ClaimTask(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	task, err := h.service.Claim(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, map[string]any{
		"claimed": true,
		"task":    task,
	})
}

// ReleaseTask godoc
// @Summary Release a claimed task
// @Description Hands a running step back to ready without counting the attempt
// @Tags tasks
// @Accept json
// @Produce json
// @Param x-api-key header string true "Executor API key"
// @Param id path int true "Step progress id"
// @Param request body ReleaseRequest true "Claim token"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/tasks/{id}/release [post]
func (h *TaskHandler) ReleaseTask(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var req ReleaseRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	if err := h.service.Release(c.Request().Context(), id, req.ClaimToken); err != nil {
		return respondError(c, err)
	}

	return response.OkWithMessage(c, "Step released", map[string]any{"id": id})
}

// CompleteTask godoc
// @Summary Report the outcome of a step
// @Description Marks the step done or failed and activates the next step when allowed. Repeated completions are no-ops.
// @Tags tasks
// @Accept json
// @Produce json
// @Param x-api-key header string true "Executor API key"
// @Param id path int true "Step progress id"
// @Param request body CompleteRequest true "Outcome"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/tasks/{id}/complete [post]
func (h *TaskHandler) CompleteTask(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var req CompleteRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	result, err := h.service.Complete(c.Request().Context(), id, *req.Success, req.ClaimToken)
	if err != nil {
		return respondError(c, err)
	}

	if result.Duplicate {
		return response.OkWithMessage(c, "Step already completed", result)
	}

	return response.Ok(c, result)
}

// GetCachedCompletions godoc
// @Summary Recent completions
// @Description Returns completion outcomes cached in Valkey
// @Tags tasks
// @Produce json
// @Param x-api-key header string true "Executor API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/tasks/completed/cached [get]
func (h *TaskHandler) GetCachedCompletions(c echo.Context) error {
	cached, err := h.service.GetCachedCompletions(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, cached)
}

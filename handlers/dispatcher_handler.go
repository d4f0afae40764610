package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/outreach-sequencer/internal/scheduler"
	"github.com/onurcolak/outreach-sequencer/pkg/response"
	"github.com/onurcolak/outreach-sequencer/pkg/validator"
)

type dispatcher interface {
	StartWithParams(ctx context.Context, interval time.Duration, batchSize int) error
	Stop() error
	IsRunning() bool
	GetStatus() scheduler.DispatcherStatus
}

type DispatcherHandler struct {
	dispatcher dispatcher
	ctx        context.Context
}

type StartDispatcherRequest struct {
	IntervalSeconds *int `json:"intervalSeconds,omitempty" validate:"omitempty,min=1"`
	BatchSize       *int `json:"batchSize,omitempty" validate:"omitempty,min=1,max=500"`
}

// NewDispatcherHandler keeps ctx so a dispatcher started over HTTP lives as
// long as the process, not the request.
func NewDispatcherHandler(d dispatcher, ctx context.Context) *DispatcherHandler {
	return &DispatcherHandler{
		dispatcher: d,
		ctx:        ctx,
	}
}

// StartDispatcher godoc
// @Summary Start the dispatcher
// @Description Starts handing ready steps to the workflow runner, with optional poll interval and batch size
// @Tags dispatcher
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param request body StartDispatcherRequest false "Dispatcher parameters (optional)"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/dispatcher/start [post]
func (h *DispatcherHandler) StartDispatcher(c echo.Context) error {
	if h.dispatcher.IsRunning() {
		return response.OkWithMessage(c, "Dispatcher is already running", h.dispatcher.GetStatus())
	}

	var req StartDispatcherRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	var interval time.Duration
	if req.IntervalSeconds != nil {
		interval = time.Duration(*req.IntervalSeconds) * time.Second
	}

	batchSize := 0
	if req.BatchSize != nil {
		batchSize = *req.BatchSize
	}

	if err := h.dispatcher.StartWithParams(h.ctx, interval, batchSize); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Dispatcher started successfully", h.dispatcher.GetStatus())
}

// StopDispatcher godoc
// @Summary Stop the dispatcher
// @Description Stops the dispatcher after the current batch finishes
// @Tags dispatcher
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/dispatcher/stop [post]
func (h *DispatcherHandler) StopDispatcher(c echo.Context) error {
	if !h.dispatcher.IsRunning() {
		return response.OkWithMessage(c, "Dispatcher is already stopped", h.dispatcher.GetStatus())
	}

	if err := h.dispatcher.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Dispatcher stopped successfully", h.dispatcher.GetStatus())
}

// GetDispatcherStatus godoc
// @Summary Get dispatcher status
// @Tags dispatcher
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/dispatcher/status [get]
func (h *DispatcherHandler) GetDispatcherStatus(c echo.Context) error {
	return response.Ok(c, h.dispatcher.GetStatus())
}

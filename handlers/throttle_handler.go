package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/outreach-sequencer/internal/domain"
	"github.com/onurcolak/outreach-sequencer/pkg/response"
)

type throttleService interface {
	CheckAndReserve(ctx context.Context, sender string) (*domain.ThrottleDecision, error)
	GetState(ctx context.Context, sender string) (*domain.ThrottleState, error)
}

type ThrottleHandler struct {
	service throttleService
}

func NewThrottleHandler(service throttleService) *ThrottleHandler {
	return &ThrottleHandler{service: service}
}

// Reserve godoc
// @Summary Check and reserve a send slot
// @Description Atomically checks the sender's interval and daily cap and consumes one slot when allowed. A denial is a normal 200 response.
// @Tags throttle
// @Produce json
// @Param x-api-key header string true "Executor API key"
// @Param sender path string true "Sender identity"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/throttle/{sender}/reserve [post]
func (h *ThrottleHandler) Reserve(c echo.Context) error {
	decision, err := h.service.CheckAndReserve(c.Request().Context(), c.Param("sender"))
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, decision)
}

// GetState godoc
// @Summary Get sender throttle state
// @Tags throttle
// @Produce json
// @Param x-api-key header string true "Executor API key"
// @Param sender path string true "Sender identity"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/throttle/{sender} [get]
func (h *ThrottleHandler) GetState(c echo.Context) error {
	state, err := h.service.GetState(c.Request().Context(), c.Param("sender"))
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, state)
}

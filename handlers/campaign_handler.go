package handlers

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/outreach-sequencer/internal/domain"
	"github.com/onurcolak/outreach-sequencer/pkg/response"
	"github.com/onurcolak/outreach-sequencer/pkg/validator"
)

type publisher interface {
	Publish(ctx context.Context, campaignID int64) (*domain.PublishResult, error)
}

type campaignService interface {
	Pause(ctx context.Context, id int64) error
	Resume(ctx context.Context, id int64) error
	GetSequence(ctx context.Context, id int64) ([]domain.SequenceStep, error)
	ReplaceSequence(ctx context.Context, id int64, steps []domain.SequenceStep) error
	Stats(ctx context.Context, id int64) (*domain.ProgressStats, error)
	LeadTimeline(ctx context.Context, campaignID, leadID int64) ([]domain.LeadStepProgress, error)
}

type CampaignHandler struct {
	publisher publisher
	service   campaignService
}

func NewCampaignHandler(publisher publisher, service campaignService) *CampaignHandler {
	return &CampaignHandler{publisher: publisher, service: service}
}

type SequenceStepRequest struct {
	StepNumber  int    `json:"stepNumber" validate:"required,min=1"`
	ChannelType string `json:"channelType" validate:"required,channel"`
	WaitSeconds int64  `json:"waitSeconds" validate:"min=0"`
	TemplateRef string `json:"templateRef" validate:"required,max=255"`
}

type ReplaceSequenceRequest struct {
	Steps []SequenceStepRequest `json:"steps" validate:"required,min=1,dive"`
}

// Publish godoc
// @Summary Publish a campaign
// @Description Validates the campaign and precomputes every lead's step timeline in one transaction, then activates the campaign. Re-publishing only adds rows for newly targeted leads.
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Campaign id"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ProblemsResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/publish [post]
func (h *CampaignHandler) Publish(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	result, err := h.publisher.Publish(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return response.OkWithMessage(c, "Campaign published", result)
}

// Pause godoc
// @Summary Pause a campaign
// @Description Hides the campaign's ready steps from executors without touching their schedule
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Campaign id"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/pause [post]
func (h *CampaignHandler) Pause(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.Pause(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}

	return response.OkWithMessage(c, "Campaign paused", map[string]any{"id": id, "isActive": false})
}

// Resume godoc
// @Summary Resume a campaign
// @Description Re-exposes the campaign's ready steps; overdue steps become eligible immediately
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Campaign id"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/resume [post]
func (h *CampaignHandler) Resume(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.Resume(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}

	return response.OkWithMessage(c, "Campaign resumed", map[string]any{"id": id, "isActive": true})
}

// GetSequence godoc
// @Summary Get a campaign's sequence template
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Campaign id"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/sequence [get]
func (h *CampaignHandler) GetSequence(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	steps, err := h.service.GetSequence(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	if steps == nil {
		steps = []domain.SequenceStep{}
	}

	return response.Ok(c, steps)
}

// ReplaceSequence godoc
// @Summary Replace a campaign's sequence template
// @Description Only allowed before the campaign is first published
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Campaign id"
// @Param request body ReplaceSequenceRequest true "Ordered steps"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/campaigns/{id}/sequence [put]
func (h *CampaignHandler) ReplaceSequence(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var req ReplaceSequenceRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	steps := make([]domain.SequenceStep, 0, len(req.Steps))
	for _, s := range req.Steps {
		steps = append(steps, domain.SequenceStep{
			CampaignID:  id,
			StepNumber:  s.StepNumber,
			ChannelType: domain.ChannelType(s.ChannelType),
			WaitSeconds: s.WaitSeconds,
			TemplateRef: s.TemplateRef,
		})
	}

	if err := h.service.ReplaceSequence(c.Request().Context(), id, steps); err != nil {
		return respondError(c, err)
	}

	return response.OkWithMessage(c, "Sequence saved", steps)
}

// GetProgressStats godoc
// @Summary Progress counters of a campaign
// @Description Returns the number of step rows per status
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Campaign id"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/progress/stats [get]
func (h *CampaignHandler) GetProgressStats(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	stats, err := h.service.Stats(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, map[string]any{
		"queued":  stats.Queued,
		"ready":   stats.Ready,
		"running": stats.Running,
		"done":    stats.Done,
		"failed":  stats.Failed,
		"total":   stats.Queued + stats.Ready + stats.Running + stats.Done + stats.Failed,
	})
}

// GetLeadTimeline godoc
// @Summary Step timeline of one lead
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Campaign id"
// @Param leadId path int true "Lead id"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/leads/{leadId}/progress [get]
func (h *CampaignHandler) GetLeadTimeline(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	leadID, err := strconv.ParseInt(c.Param("leadId"), 10, 64)
	if err != nil || leadID <= 0 {
		return response.BadRequestWithMessage(c, "leadId must be a positive integer")
	}

	rows, err := h.service.LeadTimeline(c.Request().Context(), id, leadID)
	if err != nil {
		return respondError(c, err)
	}

	if rows == nil {
		rows = []domain.LeadStepProgress{}
	}

	return response.Ok(c, rows)
}

package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/outreach-sequencer/internal/domain"
	"github.com/onurcolak/outreach-sequencer/pkg/logger"
	"github.com/onurcolak/outreach-sequencer/pkg/response"
)

// respondError maps engine errors to HTTP statuses.
func respondError(c echo.Context, err error) error {
	var cfgErr *domain.ConfigError

	switch {
	case errors.As(err, &cfgErr):
		return response.Problems(c, domain.ErrInvalidSequence.Error(), cfgErr.Problems)
	case errors.Is(err, domain.ErrStepNotFound), errors.Is(err, domain.ErrCampaignNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrClaimLost):
		return response.Conflict(c, err.Error(), map[string]bool{"claimed": false})
	case errors.Is(err, domain.ErrClaimMismatch),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrSequenceLocked):
		return response.Conflict(c, err.Error(), nil)
	case errors.Is(err, domain.ErrSenderRequired):
		return response.BadRequest(c, err)
	}

	logger.Errorf("%s %s failed: %v", c.Request().Method, c.Path(), err)
	return response.InternalServerError(c, err)
}

func parseIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return id, nil
}

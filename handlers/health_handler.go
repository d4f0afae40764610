package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type dbPinger interface {
	PingContext(ctx context.Context) error
}

type cachePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health checks.
type HealthHandler struct {
	db           dbPinger
	valkey       cachePinger
	checkTimeout time.Duration
}

// NewHealthHandler takes a nil cache when Valkey is disabled.
func NewHealthHandler(db dbPinger, cache cachePinger) *HealthHandler {
	return &HealthHandler{
		db:           db,
		valkey:       cache,
		checkTimeout: 2 * time.Second,
	}
}

// Health returns overall status and basic component statuses (MySQL and Valkey).
// @Summary Health check
// @Description Returns overall status with MySQL and Valkey connectivity results
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	overallStatus := "ok"
	code := http.StatusOK

	dbStatus := "up"
	if h.db == nil || h.db.PingContext(ctx) != nil {
		dbStatus = "down"
		overallStatus = "down"
		code = http.StatusServiceUnavailable
	}

	valkeyStatus := "disabled"
	if h.valkey != nil {
		if err := h.valkey.Ping(ctx); err != nil {
			valkeyStatus = "down"
			if overallStatus == "ok" {
				overallStatus = "degraded"
			}
		} else {
			valkeyStatus = "up"
		}
	}

	return c.JSON(code, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"components": map[string]any{
			"database": map[string]any{
				"status": dbStatus,
			},
			"valkey": map[string]any{
				"status": valkeyStatus,
			},
		},
	})
}

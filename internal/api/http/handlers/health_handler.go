package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/observability"
)

// HealthHandler exposes liveness, readiness and counters.
type HealthHandler struct {
	metrics *observability.Metrics
}

// NewHealthHandler constructs handler.
func NewHealthHandler(metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{metrics: metrics}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready GET /health/ready.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"metrics": h.metrics.Snapshot(),
	})
}

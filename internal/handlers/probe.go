package handlers

import (
	"github.com/gofiber/fiber/v3"

	"auraroll/internal/rewards"
)

// ProbeHandler handles Kubernetes health probe endpoints.
type ProbeHandler struct {
	table *rewards.Table
}

// NewProbeHandler creates a new probe handler.
func NewProbeHandler(table *rewards.Table) *ProbeHandler {
	return &ProbeHandler{table: table}
}

// Liveness handles the /healthz endpoint for Kubernetes liveness probes.
// Returns 200 OK if the application is running.
func (h *ProbeHandler) Liveness(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// Readiness handles the /readyz endpoint for Kubernetes readiness probes.
// Returns 200 OK once the reward table is loaded.
func (h *ProbeHandler) Readiness(c fiber.Ctx) error {
	if h.table == nil || h.table.Len() == 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "error",
			"error":  "reward table not loaded",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "ok",
		"rewards": h.table.Len(),
	})
}

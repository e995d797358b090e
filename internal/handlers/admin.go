package handlers

import (
	"github.com/gofiber/fiber/v2"

	"caselaw-retrieval/pkg/pipeline"
)

// AdminHandler exposes the session-metrics snapshot and the administrative
// circuit-reset route (spec §4.4's natural operational counterpart: an
// operator needs a way to force-close the reasoner's breaker out of band).
type AdminHandler struct {
	pipeline *pipeline.Pipeline
}

// NewAdminHandler builds an AdminHandler.
func NewAdminHandler(pl *pipeline.Pipeline) *AdminHandler {
	return &AdminHandler{pipeline: pl}
}

// Metrics handles GET /api/v1/admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   h.pipeline.Metrics(),
	})
}

// ResetCircuit handles POST /api/v1/admin/reasoner/reset-circuit.
func (h *AdminHandler) ResetCircuit(c *fiber.Ctx) error {
	h.pipeline.ResetReasonerCircuit(c.Context())
	return c.JSON(fiber.Map{"status": "success", "message": "reasoner circuit reset"})
}

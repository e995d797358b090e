package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"caselaw-retrieval/internal/config"
)

// HealthHandler serves the root and health-check endpoints, grounded on
// the teacher's h.Health.Root/h.Health.Health routes in cmd/server/main.go.
type HealthHandler struct {
	cfg       *config.Config
	startedAt time.Time
}

// NewHealthHandler builds a HealthHandler.
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg, startedAt: time.Now()}
}

// Root handles GET /.
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "caselaw-retrieval",
		"status":  "running",
	})
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"environment": h.cfg.Environment,
		"uptime":      time.Since(h.startedAt).String(),
	})
}

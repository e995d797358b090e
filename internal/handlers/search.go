package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"caselaw-retrieval/internal/config"
	"caselaw-retrieval/pkg/models"
	"caselaw-retrieval/pkg/pipeline"
)

// searchTimeout bounds one end-to-end pipeline run: intent, planning, up to
// two reasoner passes, phased retrieval, verification and gating.
const searchTimeout = 45 * time.Second

// SearchHandler handles the single case-law search endpoint.
type SearchHandler struct {
	pipeline *pipeline.Pipeline
	cfg      *config.Config
}

// NewSearchHandler builds a SearchHandler.
func NewSearchHandler(pl *pipeline.Pipeline, cfg *config.Config) *SearchHandler {
	return &SearchHandler{pipeline: pl, cfg: cfg}
}

// Search handles POST /api/v1/search (spec §6).
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), searchTimeout)
	defer cancel()

	var req models.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	fillSearchDefaults(&req, h.cfg.Retrieval.MaxResultsDefault)

	if err := validate.Struct(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "validation failed: "+err.Error())
	}

	resp, err := h.pipeline.Run(ctx, req)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "search failed: "+err.Error())
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data":   resp,
	})
}

// fillSearchDefaults backfills a missing request id and clamps maxResults
// in place, mirroring the teacher's validateSearchRequest bounds-clamping
// idiom rather than rejecting the request outright.
func fillSearchDefaults(req *models.SearchRequest, defaultMax int) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.MaxResults <= 0 {
		req.MaxResults = defaultMax
	}
	if req.MaxResults > 50 {
		req.MaxResults = 50
	}
}

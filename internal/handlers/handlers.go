// Package handlers wires the Fiber HTTP surface onto pkg/pipeline, the same
// sub-handler-registry idiom the teacher's internal/handlers package uses
// (a Handlers struct grouping one handler per concern, constructed once at
// startup from *config.Config).
package handlers

import (
	"github.com/go-playground/validator/v10"

	"caselaw-retrieval/internal/config"
	"caselaw-retrieval/pkg/pipeline"
)

// Handlers groups every HTTP handler the server exposes.
type Handlers struct {
	Health *HealthHandler
	Search *SearchHandler
	Admin  *AdminHandler
}

// validate is a package-level singleton, following the teacher's
// internal/models/validation.go idiom (one *validator.Validate reused
// across every handler rather than constructed per request).
var validate = validator.New()

// New builds the handler registry, wiring the already-constructed pipeline
// into the search handler.
func New(cfg *config.Config, pl *pipeline.Pipeline) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(cfg),
		Search: NewSearchHandler(pl, cfg),
		Admin:  NewAdminHandler(pl),
	}
}

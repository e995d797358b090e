package pipeline

import (
	"context"

	"caselaw-retrieval/internal/concurrency"
	"caselaw-retrieval/pkg/models"
	"caselaw-retrieval/pkg/retrieval"
)

// phaseOrder is the successive fallback wave sequence (spec §4.3/§5):
// each phase is attempted in turn, every variant in a phase fanning out
// across every provider concurrently, until enough candidates accumulate
// or every phase has been tried.
var phaseOrder = []models.QueryPhase{
	models.PhasePrimary, models.PhaseFallback, models.PhaseRescue,
	models.PhaseMicro, models.PhaseRevolving, models.PhaseBrowse,
}

type retrievalJob struct {
	variant  models.QueryVariant
	provider retrieval.Provider
}

// retrieveAll runs every phase in order, fanning each phase's
// (variant x provider) pairs out through the shared worker pool, ordering
// variants within a phase by descending priority (spec §5: "within a
// phase, variants issued in priority order descending"). It stops early
// once a generous multiple of maxResults has accumulated.
func (p *Pipeline) retrieveAll(ctx context.Context, variants []models.QueryVariant, maxResults int) ([]models.CaseCandidate, string) {
	target := maxResults * 3
	if target <= 0 {
		target = p.cfg.Retrieval.MaxResultsDefault * 3
	}

	seen := make(map[string]bool)
	var all []models.CaseCandidate
	lastBlocked := retrieval.BlockedNone

	byPhase := make(map[models.QueryPhase][]models.QueryVariant)
	for _, v := range variants {
		byPhase[v.Phase] = append(byPhase[v.Phase], v)
	}

	for _, phase := range phaseOrder {
		phaseVariants := byPhase[phase]
		if len(phaseVariants) == 0 {
			continue
		}
		ordered := orderByPriority(phaseVariants)

		var jobs []retrievalJob
		for _, v := range ordered {
			for _, prov := range p.providers {
				jobs = append(jobs, retrievalJob{variant: v, provider: prov})
			}
		}
		if len(jobs) == 0 {
			continue
		}

		outputs := make([]retrieval.Output, len(jobs))
		p.pool.Run(ctx, len(jobs), func(ctx context.Context, idx int) error {
			job := jobs[idx]
			out, err := job.provider.Search(ctx, retrieval.Input{
				Variant:    job.variant,
				MaxResults: maxResults,
				Timeout:    p.cfg.Retrieval.PerProviderTimeout,
				Scope:      job.provider.Name(),
			})
			outputs[idx] = out
			return err
		})

		for _, out := range outputs {
			if out.Debug.BlockedType != retrieval.BlockedNone {
				lastBlocked = out.Debug.BlockedType
			}
			for _, c := range out.Cases {
				if c.URL == "" || seen[c.URL] {
					continue
				}
				seen[c.URL] = true
				all = append(all, c)
			}
		}

		if len(all) >= target {
			break
		}
	}

	if len(all) == 0 && lastBlocked != retrieval.BlockedNone {
		return all, string(lastBlocked)
	}
	return all, ""
}

// orderByPriority drains variants through the shared priority-queue
// primitive so retrieval issues them in descending priority, ties kept in
// FIFO order.
func orderByPriority(variants []models.QueryVariant) []models.QueryVariant {
	pq := concurrency.NewPriorityQueue()
	for _, v := range variants {
		pq.Push(v, v.Priority)
	}
	drained := pq.DrainOrdered()
	out := make([]models.QueryVariant, 0, len(drained))
	for _, d := range drained {
		out = append(out, d.(models.QueryVariant))
	}
	return out
}

// Package scorer assigns a calibrated confidence score to each gated
// candidate and diversifies the final list by fingerprint and court-day
// (spec §4.9 "Scorer, proposition gate, diversifier").
package scorer

import (
	"sort"
	"strings"

	"caselaw-retrieval/pkg/models"
)

// weights mirror the signal breakdown named in the proposition-gate spec:
// hook coverage dominates, polarity and rerank are secondary signals, and a
// provisional-evidence penalty pulls the score down without zeroing it.
const (
	weightHookCoverage   = 0.40
	weightRequiredElems  = 0.20
	weightPolarity       = 0.15
	weightRerank         = 0.15
	weightEvidenceDepth  = 0.10
	provisionalPenalty   = 0.15
)

// defaultExploratoryCap is used when callers pass a non-positive cap (e.g.
// direct Score() calls in tests that don't thread config through).
const defaultExploratoryCap = 0.55

// Score computes a calibrated [0,1] confidence score and wraps c into a
// ScoredCase with its tier, band and match evidence. exploratoryCap bounds
// the exploratory tier's confidence (spec §4.9's EXPLORATORY_CONFIDENCE_CAP);
// a non-positive value falls back to the spec-named default.
func Score(checklist models.PropositionChecklist, c models.CaseCandidate, tier models.RetrievalTier, missing []string, exploratoryCap float64) models.ScoredCase {
	if exploratoryCap <= 0 {
		exploratoryCap = defaultExploratoryCap
	}
	var s float64

	s += weightHookCoverage * hookCoverageRatio(checklist, c)
	s += weightRequiredElems * requiredElementRatio(checklist, c)

	if checklist.OutcomeConstraint.Polarity == "" || checklist.OutcomeConstraint.Polarity == models.PolarityUnknown {
		s += weightPolarity // no polarity constraint to satisfy; don't penalise
	} else if c.EvidenceQuality != nil && c.EvidenceQuality.HasPolaritySentence {
		s += weightPolarity
	}

	if c.Retrieval.RerankScore != nil {
		s += weightRerank * clamp01(*c.Retrieval.RerankScore)
	} else {
		s += weightRerank * 0.5 // neutral prior when no rerank signal ran
	}

	s += weightEvidenceDepth * evidenceDepthRatio(c)

	if tier == models.TierExploratory {
		s = clamp01(s)
		if s > exploratoryCap {
			s = exploratoryCap
		}
	} else {
		if isProvisional(c) {
			s -= provisionalPenalty
		}
		s = clamp01(s)
	}

	return models.ScoredCase{
		CaseCandidate:   c,
		Score:           s,
		ConfidenceScore: s,
		ConfidenceBand:  models.ConfidenceBandFor(s),
		RetrievalTier:   tier,
		MatchEvidence:   matchEvidence(c),
	}
}

// ScoreAll scores every candidate against the same checklist, using the tier
// and missing-elements slices already computed by the proposition gate, and
// returns them sorted by descending score.
func ScoreAll(checklist models.PropositionChecklist, cands []models.CaseCandidate, tiers []models.RetrievalTier, missing [][]string, exploratoryCap float64) []models.ScoredCase {
	out := make([]models.ScoredCase, len(cands))
	for i, c := range cands {
		var m []string
		if i < len(missing) {
			m = missing[i]
		}
		out[i] = Score(checklist, c, tiers[i], m, exploratoryCap)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func isProvisional(c models.CaseCandidate) bool {
	return c.DetailHydration == nil || !c.DetailHydration.Succeeded || c.DetailHydration.Method == "snippet_fallback" || c.DetailHydration.Method == "" || c.DetailHydration.FromCache && !c.DetailHydration.Succeeded
}

func hookCoverageRatio(checklist models.PropositionChecklist, c models.CaseCandidate) float64 {
	required := 0
	satisfied := 0
	if checklist.Graph != nil {
		for _, step := range checklist.Graph.Steps {
			if step.HookGroupID == "" || step.Kind != models.StepMandatory {
				continue
			}
			required++
			if stepSatisfied(checklist, step, c) {
				satisfied++
			}
		}
	}
	if required == 0 {
		return 1
	}
	return float64(satisfied) / float64(required)
}

func stepSatisfied(checklist models.PropositionChecklist, step models.PropositionStep, c models.CaseCandidate) bool {
	text := c.DetailText
	if text == "" {
		text = c.Snippet
	}
	for _, g := range checklist.HookGroups {
		if g.GroupID != step.HookGroupID {
			continue
		}
		hits := 0
		for _, t := range g.Terms {
			if containsFold(text, t) {
				hits++
			}
		}
		min := g.MinMatch
		if min < 1 {
			min = 1
		}
		return hits >= min
	}
	return false
}

func requiredElementRatio(checklist models.PropositionChecklist, c models.CaseCandidate) float64 {
	if len(checklist.RequiredElements) == 0 {
		return 1
	}
	text := c.DetailText
	if text == "" {
		text = c.Snippet
	}
	hit := 0
	for _, e := range checklist.RequiredElements {
		if containsFold(text, e) {
			hit++
		}
	}
	return float64(hit) / float64(len(checklist.RequiredElements))
}

func evidenceDepthRatio(c models.CaseCandidate) float64 {
	if c.EvidenceQuality == nil {
		return 0
	}
	eq := c.EvidenceQuality
	hits := 0
	total := 5
	for _, b := range []bool{eq.HasRelationSentence, eq.HasPolaritySentence, eq.HasHookIntersection, eq.HasRoleSentence, eq.HasChainSentence} {
		if b {
			hits++
		}
	}
	return float64(hits) / float64(total)
}

func matchEvidence(c models.CaseCandidate) []string {
	var out []string
	if c.EvidenceQuality == nil {
		return out
	}
	eq := c.EvidenceQuality
	if eq.HasRelationSentence {
		out = append(out, "relation_sentence")
	}
	if eq.HasPolaritySentence {
		out = append(out, "polarity_sentence")
	}
	if eq.HasHookIntersection {
		out = append(out, "hook_intersection")
	}
	if eq.HasRoleSentence {
		out = append(out, "role_sentence")
	}
	if eq.HasChainSentence {
		out = append(out, "chain_sentence")
	}
	return out
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func containsFold(text, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(term))
}

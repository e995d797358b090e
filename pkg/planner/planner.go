// Package planner is the deterministic query planner (spec §4.3): it always
// runs, building phased query variants and a keyword pack from an
// IntentProfile without any LLM involvement. The per-intent-type plan
// generation and priority-ordering idiom is grounded on the retrieval
// planner agent in the pack
// (mshogin-adk-llm-proxy/.../retrieval_planner.go: generatePlansForIntent
// dispatch, confidence-ordered bubble sort, deterministic plan construction)
// adapted from a dispatch-commit retrieval domain to statutory case-law
// retrieval.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"caselaw-retrieval/pkg/legaltext"
	"caselaw-retrieval/pkg/models"
)

// phaseCaps bounds how many variants each phase may contribute, per spec
// §4.3 step 4 defaults.
var phaseCaps = map[models.QueryPhase]int{
	models.PhasePrimary:   2,
	models.PhaseFallback:  2,
	models.PhaseRescue:    1,
	models.PhaseMicro:     1,
	models.PhaseRevolving: 1,
	models.PhaseBrowse:    1,
}

var phaseOrder = []models.QueryPhase{
	models.PhasePrimary, models.PhaseFallback, models.PhaseRescue,
	models.PhaseMicro, models.PhaseRevolving, models.PhaseBrowse,
}

// synonymFamilies maps a recognised term to the high-impact synonyms the
// planner expands it to (spec §4.3 step 3).
var synonymFamilies = map[string][]string{
	"delay condonation refused": {"condonation rejected", "delay not condoned"},
	"time barred":               {"limitation barred", "beyond limitation"},
	"sanction required":         {"prior sanction mandatory", "sanction under section 197"},
	"sanction not required":     {"sanction not necessary", "no sanction needed"},
}

// Plan builds the deterministic PlannerOutput from an IntentProfile.
func Plan(p models.IntentProfile) models.PlannerOutput {
	hooks := legaltext.Truncate(p.Statutes, 4)

	phrases := make(map[models.QueryPhase][]string)

	// Step 1: hook intersections across top <=4 statutory hooks, pairwise,
	// with issue/procedure suffixes.
	for i := 0; i < len(hooks); i++ {
		for j := i + 1; j < len(hooks); j++ {
			base := hooks[i] + " " + hooks[j]
			phrases[models.PhasePrimary] = append(phrases[models.PhasePrimary], withSuffix(base, p.Issues, p.Procedures)...)
		}
	}

	// Step 2: actor x procedure x (hook|""), outcome x procedure, hook x outcome.
	for _, actor := range p.Actors {
		for _, proc := range p.Procedures {
			phrases[models.PhaseFallback] = append(phrases[models.PhaseFallback], normalizePhrase(actor+" "+proc))
			for _, hook := range hooks {
				phrases[models.PhaseFallback] = append(phrases[models.PhaseFallback], normalizePhrase(actor+" "+proc+" "+hook))
			}
		}
	}
	for _, issue := range p.Issues {
		for _, proc := range p.Procedures {
			phrases[models.PhaseRescue] = append(phrases[models.PhaseRescue], normalizePhrase(issue+" "+proc))
		}
		for _, hook := range hooks {
			phrases[models.PhaseRescue] = append(phrases[models.PhaseRescue], normalizePhrase(hook+" "+issue))
		}
	}

	// Step 3: high-impact synonym expansion over the cleaned query.
	for trigger, synonyms := range synonymFamilies {
		if strings.Contains(p.CleanedQuery, trigger) {
			phrases[models.PhaseMicro] = append(phrases[models.PhaseMicro], synonyms...)
		}
	}

	// Browse/revolving phases fall back to bare anchors when nothing sharper
	// is available, guaranteeing the response is never built on zero
	// variants.
	for _, a := range p.Anchors {
		phrases[models.PhaseRevolving] = append(phrases[models.PhaseRevolving], a)
	}
	phrases[models.PhaseBrowse] = append(phrases[models.PhaseBrowse], p.CleanedQuery)

	var variants []models.QueryVariant
	seen := make(map[string]bool)
	priority := 1000
	for _, phase := range phaseOrder {
		limit := phaseCaps[phase]
		list := legaltext.Dedup(phrases[phase])
		list = legaltext.Truncate(list, limit)
		for _, phrase := range list {
			key := string(phase) + ":" + phrase
			if phrase == "" || seen[key] {
				continue
			}
			seen[key] = true
			variants = append(variants, models.QueryVariant{
				ID:           fmt.Sprintf("planner-%d", len(variants)+1),
				Phrase:       phrase,
				Phase:        phase,
				Purpose:      "deterministic-plan",
				CourtScope:   p.CourtHint,
				Strictness:   strictnessFor(phase),
				Tokens:       legaltext.Tokenize(phrase),
				CanonicalKey: key,
				Priority:     priority,
			})
			priority--
		}
	}

	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].Priority > variants[j].Priority
	})

	return models.PlannerOutput{
		Variants: variants,
		KeywordPack: models.KeywordPack{
			Primary:       legaltext.Dedup(append(append([]string{}, p.Actors...), p.Procedures...)),
			LegalSignals:  legaltext.Dedup(hooks),
			SearchPhrases: legaltext.Dedup(flatten(phrases)),
		},
	}
}

func strictnessFor(phase models.QueryPhase) models.Strictness {
	switch phase {
	case models.PhasePrimary, models.PhaseFallback:
		return models.StrictnessStrict
	default:
		return models.StrictnessRelaxed
	}
}

func withSuffix(base string, suffixGroups ...[]string) []string {
	out := []string{normalizePhrase(base)}
	for _, group := range suffixGroups {
		for _, s := range group {
			out = append(out, normalizePhrase(base+" "+s))
		}
	}
	return out
}

func normalizePhrase(s string) string {
	return legaltext.Normalize(s)
}

func flatten(m map[models.QueryPhase][]string) []string {
	var out []string
	for _, phase := range phaseOrder {
		out = append(out, m[phase]...)
	}
	return out
}

package reasoner

import (
	"fmt"
	"strings"

	"caselaw-retrieval/pkg/legaltext"
	"caselaw-retrieval/pkg/models"
)

// statutoryFamilies recognises the hook-group families named in spec §4.4:
// "PC Act, CrPC, IPC, CPC, Limitation Act".
var statutoryFamilies = []string{"pc act", "crpc", "ipc", "cpc", "limitation act"}

func familyOf(term string) string {
	lower := strings.ToLower(term)
	for _, f := range statutoryFamilies {
		if strings.Contains(lower, f) {
			return f
		}
	}
	return ""
}

// defaultContradictionTerms returns the polarity-driven default exclusion
// terms (spec §4.4: "Default contradiction terms by polarity").
func defaultContradictionTerms(p models.Polarity) []string {
	switch p {
	case models.PolarityRefused, models.PolarityDismissed:
		return []string{"condoned", "allowed", "restored"}
	case models.PolarityAllowed, models.PolarityQuashed:
		return []string{"refused", "dismissed"}
	default:
		return nil
	}
}

// ExpandSketch deterministically expands a validated ReasonerSketch into a
// ReasonerPlan (spec §4.4 "Plan expansion from sketch"): builds <=12 strict
// variants, <=12 broad variants, hook groups keyed by statutory family and
// section number, required=true for statutory hooks or the primary hook in
// non-disjunctive cases.
func ExpandSketch(sketch models.ReasonerSketch, intent models.IntentProfile) *models.ReasonerPlan {
	disjunctive := legaltext.HasDisjunction(intent.CleanedQuery)

	groupsBySection := make(map[string]*models.HookGroup)
	var order []string
	for _, hook := range sketch.Hooks {
		family := familyOf(hook)
		section := ""
		for _, ref := range legaltext.ExtractLegalReferences(hook) {
			if ref.Kind == "section" {
				section = ref.Number
			}
		}
		key := family + "|" + section
		if key == "|" {
			key = hook
		}
		if g, ok := groupsBySection[key]; ok {
			g.Terms = legaltext.Dedup(append(g.Terms, hook))
			continue
		}
		order = append(order, key)
		groupsBySection[key] = &models.HookGroup{
			GroupID:  fmt.Sprintf("grp-%d", len(order)),
			Terms:    []string{hook},
			MinMatch: 1,
			Required: family != "",
		}
	}
	if !disjunctive && len(order) > 0 {
		groupsBySection[order[0]].Required = true
	}

	var hookGroups []models.HookGroup
	for _, k := range order {
		hookGroups = append(hookGroups, *groupsBySection[k])
	}

	plan := &models.ReasonerPlan{
		Proposition: models.Proposition{
			Actors:           sketch.Actors,
			Proceeding:       sketch.Proceeding,
			LegalHooks:       sketch.Hooks,
			OutcomeRequired:  sketch.Polarity == models.PolarityRequired,
			OutcomeNegative:  sketch.Polarity == models.PolarityRefused || sketch.Polarity == models.PolarityDismissed,
			JurisdictionHint: sketch.CourtHint,
			HookGroups:       hookGroups,
			OutcomeConstraint: models.OutcomeConstraint{
				Polarity:           sketch.Polarity,
				Terms:              sketch.Outcome,
				ContradictionTerms: defaultContradictionTerms(sketch.Polarity),
			},
			InteractionRequired: len(hookGroups) >= 2,
		},
		MustHaveTerms:    legaltext.Dedup(sketch.StrictTerms),
		MustNotHaveTerms: defaultContradictionTerms(sketch.Polarity),
	}

	plan.Proposition.Relations = buildRelations(hookGroups, plan.Proposition.InteractionRequired)

	plan.QueryVariantsStrict = buildVariantPhrases(sketch.Actors, sketch.Proceeding, sketch.Outcome, hookGroups, true)
	plan.QueryVariantsBroad = buildVariantPhrases(sketch.Actors, sketch.Proceeding, sketch.BroadTerms, hookGroups, false)
	plan.CaseAnchors = legaltext.Dedup(append(append([]string{}, sketch.StrictTerms...), sketch.BroadTerms...))

	plan.ClampMinMatch()
	plan.ValidateGroupReferences()
	return plan
}

func buildRelations(groups []models.HookGroup, interactionRequired bool) []models.Relation {
	if !interactionRequired || len(groups) < 2 {
		return nil
	}
	var rels []models.Relation
	for i := 0; i < len(groups)-1; i++ {
		rels = append(rels, models.Relation{
			Type:         models.RelationInteractsWith,
			LeftGroupID:  groups[i].GroupID,
			RightGroupID: groups[i+1].GroupID,
			Required:     groups[i].Required && groups[i+1].Required,
		})
	}
	return rels
}

func buildVariantPhrases(actors, proceeding, outcomeOrBroad []string, groups []models.HookGroup, strict bool) []string {
	var phrases []string
	limit := 12
	for _, a := range actors {
		for _, p := range proceeding {
			for _, g := range groups {
				if len(g.Terms) == 0 {
					continue
				}
				phrase := legaltext.Normalize(strings.Join([]string{a, p, g.Terms[0]}, " "))
				phrases = append(phrases, phrase)
				if len(phrases) >= limit {
					return legaltext.Truncate(legaltext.Dedup(phrases), limit)
				}
			}
			for _, o := range outcomeOrBroad {
				phrase := legaltext.Normalize(strings.Join([]string{a, p, o}, " "))
				phrases = append(phrases, phrase)
				if len(phrases) >= limit {
					return legaltext.Truncate(legaltext.Dedup(phrases), limit)
				}
			}
		}
	}
	_ = strict
	return legaltext.Truncate(legaltext.Dedup(phrases), limit)
}

// Ground applies the post-expansion grounding pass (spec §4.4 "Grounding"):
// drop outcome constraints when the query lacks any polarity evidence, drop
// hook groups with no overlap against intent's statutory signals, and prune
// variants referencing dropped terms.
func Ground(plan *models.ReasonerPlan, intent models.IntentProfile) {
	if plan.Proposition.OutcomeConstraint.Polarity == models.PolarityUnknown ||
		!legaltext.HasExplicitDisposition(intent.CleanedQuery) {
		plan.Proposition.OutcomeConstraint = models.OutcomeConstraint{Polarity: models.PolarityUnknown}
		plan.MustNotHaveTerms = nil
	}

	signalSet := legaltext.TokenSet(append(append([]string{}, intent.Statutes...), intent.Anchors...))
	var kept []models.HookGroup
	var dropped []string
	for _, g := range plan.Proposition.HookGroups {
		overlap := 0
		for _, t := range g.Terms {
			for _, tok := range legaltext.Tokenize(t) {
				if signalSet[tok] {
					overlap++
				}
			}
		}
		if overlap > 0 {
			kept = append(kept, g)
		} else {
			dropped = append(dropped, g.Terms...)
		}
	}
	plan.Proposition.HookGroups = kept
	plan.ValidateGroupReferences()

	plan.QueryVariantsStrict = pruneReferencingDropped(plan.QueryVariantsStrict, dropped)
	plan.QueryVariantsBroad = pruneReferencingDropped(plan.QueryVariantsBroad, dropped)
}

// pruneReferencingDropped removes phrases that mention any term whose hook
// group was dropped during grounding.
func pruneReferencingDropped(phrases []string, droppedTerms []string) []string {
	if len(droppedTerms) == 0 {
		return phrases
	}
	var kept []string
	for _, p := range phrases {
		if legaltext.ContainsAny(p, droppedTerms) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

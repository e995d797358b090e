// Package proposition builds the evaluable PropositionGraph from a
// CanonicalIntent (and optional ReasonerPlan), then gates verified
// candidates into exact_strict / exact_provisional / near-miss tiers
// (spec §4.9 "Proposition gate").
package proposition

import (
	"fmt"
	"strings"

	"caselaw-retrieval/pkg/legaltext"
	"caselaw-retrieval/pkg/models"
)

// BuildChecklist fuses CanonicalIntent and an optional ReasonerPlan into a
// PropositionChecklist with its evaluable graph. plan may be nil when the
// reasoner was not invoked or its pass-2 output was unusable.
func BuildChecklist(intent models.CanonicalIntent, plan *models.ReasonerPlan) models.PropositionChecklist {
	checklist := models.PropositionChecklist{
		RequiredElements: append([]string{}, intent.MustIncludeTokens...),
		OptionalElements: append([]string{}, intent.SoftHintTerms...),
		HookGroups:       intent.HookGroups,
	}
	if plan != nil {
		checklist.Relations = plan.Proposition.Relations
		checklist.OutcomeConstraint = plan.Proposition.OutcomeConstraint
		checklist.InteractionRequired = plan.Proposition.InteractionRequired
		if len(plan.Proposition.HookGroups) > 0 {
			checklist.HookGroups = mergeHookGroups(checklist.HookGroups, plan.Proposition.HookGroups)
		}
	} else {
		checklist.OutcomeConstraint = models.OutcomeConstraint{
			Polarity:           intent.OutcomePolarity,
			ContradictionTerms: intent.ContradictionTerms,
		}
	}
	actors := legaltext.Dedup(append(append([]string{}, intent.Actors...), planActors(plan)...))
	proceedings := legaltext.Dedup(append(append([]string{}, intent.Proceedings...), planProceedings(plan)...))

	graph := buildGraph(checklist, actors, proceedings)
	checklist.Graph = &graph
	return checklist
}

func planActors(plan *models.ReasonerPlan) []string {
	if plan == nil {
		return nil
	}
	return plan.Proposition.Actors
}

func planProceedings(plan *models.ReasonerPlan) []string {
	if plan == nil {
		return nil
	}
	return plan.Proposition.Proceeding
}

// mergeHookGroups keeps canonical groups and appends any reasoner-derived
// groups not already present by GroupID.
func mergeHookGroups(canonical []models.CanonicalHookGroup, planGroups []models.HookGroup) []models.CanonicalHookGroup {
	known := make(map[string]bool, len(canonical))
	for _, g := range canonical {
		known[g.GroupID] = true
	}
	out := append([]models.CanonicalHookGroup{}, canonical...)
	for _, g := range planGroups {
		if known[g.GroupID] {
			continue
		}
		out = append(out, models.CanonicalHookGroup{
			GroupID: g.GroupID, Terms: g.Terms, MinMatch: g.MinMatch, Required: g.Required,
		})
	}
	return out
}

func buildGraph(c models.PropositionChecklist, actors, proceedings []string) models.PropositionGraph {
	var steps []models.PropositionStep
	for _, g := range c.HookGroups {
		if !g.Required {
			continue
		}
		steps = append(steps, models.PropositionStep{
			ID:          "hook:" + g.GroupID,
			Kind:        models.StepMandatory,
			HookGroupID: g.GroupID,
			Description: fmt.Sprintf("requires >=%d of %v", g.MinMatch, g.Terms),
		})
	}
	for i, r := range c.Relations {
		// requires/applies_to/interacts_with all constrain two hook groups to
		// co-occur within a proximity window (spec §4.9 chainConstraints);
		// excluded_by has no chain-window reading and is left to contradiction
		// handling elsewhere.
		if r.Type != models.RelationRequires && r.Type != models.RelationAppliesTo && r.Type != models.RelationInteractsWith {
			continue
		}
		kind := models.StepPeripheral
		if r.Required {
			kind = models.StepMandatory
		}
		left := hookTerms(c.HookGroups, r.LeftGroupID)
		right := hookTerms(c.HookGroups, r.RightGroupID)
		steps = append(steps, models.PropositionStep{
			ID:   fmt.Sprintf("chain:%d", i),
			Kind: kind,
			ChainConstraint: &models.ChainConstraint{
				StepID: fmt.Sprintf("chain:%d", i), LeftTerms: left, RightTerms: right, WindowChars: 400,
			},
			Description: fmt.Sprintf("%s(%s,%s)", r.Type, r.LeftGroupID, r.RightGroupID),
		})
	}
	steps = append(steps, buildRoleSteps(actors, proceedings)...)
	return models.PropositionGraph{Steps: steps, EnforceNoHookRoleChain: c.InteractionRequired}
}

// buildRoleSteps emits a peripheral RoleConstraint step per actor whose
// procedural role can be inferred from the proceeding text (spec §4.9:
// "actor-as-appellant / respondent / prosecution, detected by patterns
// around vs, appellant:, preferred appeal, etc."). Role steps are
// peripheral, not mandatory: failing one demotes exact_strict to
// exact_provisional rather than to near_miss outright.
func buildRoleSteps(actors, proceedings []string) []models.PropositionStep {
	proceedingsText := strings.ToLower(strings.Join(proceedings, " "))
	var steps []models.PropositionStep
	for i, actor := range actors {
		role, ok := legaltext.DetectActorRole(actor, proceedingsText)
		if !ok {
			continue
		}
		id := fmt.Sprintf("role:%d", i)
		steps = append(steps, models.PropositionStep{
			ID:   id,
			Kind: models.StepPeripheral,
			RoleConstraint: &models.RoleConstraint{
				StepID: id, Actor: actor, Role: role,
			},
			Description: fmt.Sprintf("%s as %s", actor, role),
		})
	}
	return steps
}

func hookTerms(groups []models.CanonicalHookGroup, id string) []string {
	for _, g := range groups {
		if g.GroupID == id {
			return g.Terms
		}
	}
	return nil
}

// Evaluate scores one verified candidate against the checklist, returning
// the gate tier, any missing mandatory step descriptions, and a one-line gap
// summary (empty when nothing is missing).
func Evaluate(checklist models.PropositionChecklist, c models.CaseCandidate) (models.RetrievalTier, []string, string) {
	text := strings.ToLower(c.DetailText)
	if text == "" {
		text = strings.ToLower(c.Snippet)
	}

	var missingMandatory []string
	mandatorySatisfied := true
	provisional := c.DetailHydration == nil || !c.DetailHydration.Succeeded || c.DetailHydration.Method == "snippet_fallback"

	anyChainStep := false
	anyChainSatisfied := false
	if checklist.Graph != nil {
		for _, step := range checklist.Graph.Steps {
			ok := evaluateStep(step, checklist, text)
			if step.ChainConstraint != nil {
				anyChainStep = true
				if ok {
					anyChainSatisfied = true
				}
			}
			if !ok && step.Kind == models.StepMandatory {
				mandatorySatisfied = false
				missingMandatory = append(missingMandatory, step.Description)
			}
			if !ok && step.Kind == models.StepPeripheral {
				provisional = true
			}
		}
	}

	// §9 open question: interaction_required currently counts proximity
	// (a satisfied chain step) as satisfying the co-occurrence gate, rather
	// than demanding a stricter same-sentence match. Decided here: when no
	// chain step exists at all to test (no relations were derived), the
	// requirement cannot be evaluated and does not gate; when chain steps
	// exist, at least one must pass.
	if checklist.InteractionRequired && anyChainStep && !anyChainSatisfied {
		mandatorySatisfied = false
		missingMandatory = append(missingMandatory, "required hook interaction not found")
	}

	polarityOK := true
	if checklist.OutcomeConstraint.Polarity != "" && checklist.OutcomeConstraint.Polarity != models.PolarityUnknown {
		polarityOK = c.EvidenceQuality != nil && c.EvidenceQuality.HasPolaritySentence
		if legaltext.ContainsAny(text, checklist.OutcomeConstraint.ContradictionTerms) {
			polarityOK = false
		}
	}

	switch {
	case mandatorySatisfied && polarityOK && !provisional:
		return models.TierExactStrict, nil, ""
	case mandatorySatisfied && polarityOK:
		return models.TierExactProvisional, nil, ""
	default:
		gap := "missing: " + strings.Join(missingMandatory, "; ")
		if !polarityOK {
			gap += "; outcome polarity unconfirmed or contradicted"
		}
		return models.TierExploratory, missingMandatory, gap
	}
}

// strictChainWindowChars is the tighter same-sentence-scale proximity window
// applied when EnforceNoHookRoleChain is set, per the §9 open question's
// stricter co-occurrence reading.
const strictChainWindowChars = 120

func evaluateStep(step models.PropositionStep, checklist models.PropositionChecklist, text string) bool {
	switch {
	case step.HookGroupID != "":
		group := findGroup(checklist.HookGroups, step.HookGroupID)
		return countTermHits(text, group.Terms) >= max1(group.MinMatch)
	case step.ChainConstraint != nil:
		cc := step.ChainConstraint
		window := cc.WindowChars
		if checklist.Graph != nil && checklist.Graph.EnforceNoHookRoleChain && window > strictChainWindowChars {
			window = strictChainWindowChars
		}
		return legaltext.WithinWindow(text, cc.LeftTerms, cc.RightTerms, window)
	case step.RoleConstraint != nil:
		rc := step.RoleConstraint
		return strings.Contains(text, strings.ToLower(rc.Actor)) && strings.Contains(text, strings.ToLower(rc.Role))
	default:
		return true
	}
}

func findGroup(groups []models.CanonicalHookGroup, id string) models.CanonicalHookGroup {
	for _, g := range groups {
		if g.GroupID == id {
			return g
		}
	}
	return models.CanonicalHookGroup{}
}

func countTermHits(text string, terms []string) int {
	n := 0
	for _, t := range terms {
		if t != "" && strings.Contains(text, strings.ToLower(t)) {
			n++
		}
	}
	return n
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

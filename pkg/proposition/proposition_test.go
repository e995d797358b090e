package proposition

import (
	"strings"
	"testing"

	"caselaw-retrieval/pkg/models"
)

func TestBuildChecklistCollectsRequiredHookGroupSteps(t *testing.T) {
	intent := models.CanonicalIntent{
		HookGroups: []models.CanonicalHookGroup{
			{GroupID: "g1", Terms: []string{"section 437", "anticipatory bail"}, MinMatch: 1, Required: true},
			{GroupID: "g2", Terms: []string{"section 482"}, MinMatch: 1, Required: false},
		},
	}
	checklist := BuildChecklist(intent, nil)
	if checklist.Graph == nil || len(checklist.Graph.Steps) != 1 {
		t.Fatalf("expected exactly one mandatory step for the required group, got %+v", checklist.Graph)
	}
	if checklist.Graph.Steps[0].HookGroupID != "g1" {
		t.Fatalf("expected step for g1, got %+v", checklist.Graph.Steps[0])
	}
}

func TestEvaluateReturnsExactStrictWhenAllSatisfiedAndNotProvisional(t *testing.T) {
	intent := models.CanonicalIntent{
		HookGroups: []models.CanonicalHookGroup{
			{GroupID: "g1", Terms: []string{"section 437"}, MinMatch: 1, Required: true},
		},
		OutcomePolarity: models.PolarityAllowed,
	}
	checklist := BuildChecklist(intent, nil)
	c := models.CaseCandidate{
		DetailText:      "The application under section 437 was allowed by the court.",
		EvidenceQuality: &models.EvidenceQuality{HasPolaritySentence: true},
		DetailHydration: &models.DetailHydration{Succeeded: true, Method: "direct"},
	}
	tier, missing, gap := Evaluate(checklist, c)
	if tier != models.TierExactStrict {
		t.Fatalf("expected exact_strict, got %v (missing=%v gap=%q)", tier, missing, gap)
	}
}

func TestEvaluateReturnsExploratoryWhenMandatoryHookMissing(t *testing.T) {
	intent := models.CanonicalIntent{
		HookGroups: []models.CanonicalHookGroup{
			{GroupID: "g1", Terms: []string{"section 437"}, MinMatch: 1, Required: true},
		},
	}
	checklist := BuildChecklist(intent, nil)
	c := models.CaseCandidate{DetailText: "This judgment discusses an unrelated matter."}
	tier, missing, gap := Evaluate(checklist, c)
	if tier != models.TierExploratory {
		t.Fatalf("expected exploratory, got %v", tier)
	}
	if len(missing) != 1 || gap == "" {
		t.Fatalf("expected one missing element and a gap summary, got missing=%v gap=%q", missing, gap)
	}
}

func TestBuildChecklistEmitsRoleConstraintStepForDetectableActor(t *testing.T) {
	intent := models.CanonicalIntent{
		Actors:      []string{"state"},
		Proceedings: []string{"state preferred appeal against acquittal"},
	}
	checklist := BuildChecklist(intent, nil)
	var found *models.PropositionStep
	for i := range checklist.Graph.Steps {
		if checklist.Graph.Steps[i].RoleConstraint != nil {
			found = &checklist.Graph.Steps[i]
		}
	}
	if found == nil {
		t.Fatalf("expected a role-constraint step for actor 'state', got %+v", checklist.Graph.Steps)
	}
	if found.RoleConstraint.Role != "appellant" {
		t.Fatalf("expected role 'appellant', got %q", found.RoleConstraint.Role)
	}
	if found.Kind != models.StepMandatory && found.Kind != models.StepPeripheral {
		t.Fatalf("expected role step to carry a valid kind, got %v", found.Kind)
	}
}

func TestEvaluateFailsWhenInteractionRequiredButNoChainStepSatisfied(t *testing.T) {
	intent := models.CanonicalIntent{
		HookGroups: []models.CanonicalHookGroup{
			{GroupID: "g1", Terms: []string{"sanction required"}, MinMatch: 1, Required: true},
			{GroupID: "g2", Terms: []string{"bribery offence"}, MinMatch: 1, Required: true},
		},
	}
	plan := &models.ReasonerPlan{
		Proposition: models.Proposition{
			InteractionRequired: true,
			Relations: []models.Relation{
				{Type: models.RelationInteractsWith, LeftGroupID: "g1", RightGroupID: "g2", Required: true},
			},
		},
	}
	checklist := BuildChecklist(intent, plan)
	if !checklist.Graph.EnforceNoHookRoleChain {
		t.Fatalf("expected EnforceNoHookRoleChain to mirror InteractionRequired")
	}

	farApart := models.CaseCandidate{
		DetailText: "sanction required is discussed here. " + strings.Repeat("filler text here. ", 40) + "bribery offence appears much later.",
	}
	tier, missing, _ := Evaluate(checklist, farApart)
	if tier == models.TierExactStrict || tier == models.TierExactProvisional {
		t.Fatalf("expected interaction_required to gate a candidate whose hooks never co-occur, got tier=%v missing=%v", tier, missing)
	}
}

func TestEvaluateReturnsProvisionalWhenHydrationWasSnippetFallback(t *testing.T) {
	intent := models.CanonicalIntent{}
	checklist := BuildChecklist(intent, nil)
	c := models.CaseCandidate{
		DetailText:      "some snippet text",
		DetailHydration: &models.DetailHydration{Succeeded: true, Method: "snippet_fallback"},
	}
	tier, _, _ := Evaluate(checklist, c)
	if tier != models.TierExactProvisional {
		t.Fatalf("expected exact_provisional for snippet-fallback evidence, got %v", tier)
	}
}

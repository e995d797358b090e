package reasoner

import (
	"testing"

	"caselaw-retrieval/pkg/models"
)

func TestExpandSketchBuildsHookGroups(t *testing.T) {
	sketch := models.ReasonerSketch{
		Actors:      []string{"state"},
		Proceeding:  []string{"criminal appeal"},
		Outcome:     []string{"refused"},
		Hooks:       []string{"section 197 crpc", "section 19 pc act"},
		Polarity:    models.PolarityRefused,
		StrictTerms: []string{"section 197", "section 19"},
	}
	plan := ExpandSketch(sketch, models.IntentProfile{CleanedQuery: "state appeal section 197 crpc section 19 pc act"})
	if len(plan.Proposition.HookGroups) != 2 {
		t.Fatalf("expected 2 hook groups, got %d", len(plan.Proposition.HookGroups))
	}
	for _, g := range plan.Proposition.HookGroups {
		if !g.Required {
			t.Fatalf("expected statutory hook groups required, got %+v", g)
		}
	}
}

func TestClampMinMatchAndValidateGroupReferences(t *testing.T) {
	plan := &models.ReasonerPlan{
		Proposition: models.Proposition{
			HookGroups: []models.HookGroup{{GroupID: "g1", Terms: []string{"a", "b", "c", "d", "e"}, MinMatch: 99}},
			Relations:  []models.Relation{{LeftGroupID: "g1", RightGroupID: "missing"}},
		},
	}
	plan.ClampMinMatch()
	plan.ValidateGroupReferences()
	if plan.Proposition.HookGroups[0].MinMatch != 4 {
		t.Fatalf("expected min_match clamped to 4, got %d", plan.Proposition.HookGroups[0].MinMatch)
	}
	if len(plan.Proposition.Relations) != 0 {
		t.Fatalf("expected dangling relation dropped, got %+v", plan.Proposition.Relations)
	}
}

func TestGroundDropsOutcomeConstraintWithoutDispositionEvidence(t *testing.T) {
	plan := &models.ReasonerPlan{
		Proposition: models.Proposition{
			OutcomeConstraint: models.OutcomeConstraint{Polarity: models.PolarityRefused},
		},
		MustNotHaveTerms: []string{"condoned"},
	}
	Ground(plan, models.IntentProfile{CleanedQuery: "whether delay can be condoned under section 5"})
	if plan.Proposition.OutcomeConstraint.Polarity != models.PolarityUnknown {
		t.Fatalf("expected polarity reset to unknown, got %v", plan.Proposition.OutcomeConstraint.Polarity)
	}
	if len(plan.MustNotHaveTerms) != 0 {
		t.Fatalf("expected contradiction terms cleared, got %+v", plan.MustNotHaveTerms)
	}
}

func TestGroundDropsUnsupportedHookGroups(t *testing.T) {
	plan := &models.ReasonerPlan{
		Proposition: models.Proposition{
			HookGroups: []models.HookGroup{
				{GroupID: "g1", Terms: []string{"section 197 crpc"}},
				{GroupID: "g2", Terms: []string{"unrelated term zzz"}},
			},
		},
	}
	Ground(plan, models.IntentProfile{CleanedQuery: "state appeal section 197 crpc", Statutes: []string{"section 197 crpc"}})
	if len(plan.Proposition.HookGroups) != 1 || plan.Proposition.HookGroups[0].GroupID != "g1" {
		t.Fatalf("expected only g1 to survive grounding, got %+v", plan.Proposition.HookGroups)
	}
}

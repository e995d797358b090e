package canonical

import (
	"testing"

	"caselaw-retrieval/pkg/models"
)

func TestBuildCanonicalIntentFusesPlan(t *testing.T) {
	intent := models.IntentProfile{
		CleanedQuery: "state appeal refused section 197 crpc",
		Actors:       []string{"state"},
		Procedures:   []string{"criminal appeal"},
		Statutes:     []string{"section 197 crpc"},
	}
	plan := &models.ReasonerPlan{
		Proposition: models.Proposition{
			Actors:     []string{"state"},
			Proceeding: []string{"criminal appeal"},
			LegalHooks: []string{"section 197 crpc"},
			HookGroups: []models.HookGroup{{GroupID: "g1", Terms: []string{"section 197 crpc"}, Required: true}},
			OutcomeConstraint: models.OutcomeConstraint{
				Polarity: models.PolarityRefused,
				Terms:    []string{"refused"},
			},
		},
	}
	c := BuildCanonicalIntent(intent, plan)
	if len(c.RequiredHookGroups()) != 1 {
		t.Fatalf("expected 1 required hook group, got %+v", c.HookGroups)
	}
	if c.OutcomePolarity != models.PolarityRefused {
		t.Fatalf("expected refused polarity, got %v", c.OutcomePolarity)
	}
	if len(c.ContradictionTerms) == 0 {
		t.Fatalf("expected contradiction terms for refused polarity")
	}
}

func TestBuildCanonicalIntentWithoutPlanStillDeterministic(t *testing.T) {
	intent := models.IntentProfile{CleanedQuery: "bail plea under section 439 crpc", Statutes: []string{"section 439 crpc"}}
	c1 := BuildCanonicalIntent(intent, nil)
	c2 := BuildCanonicalIntent(intent, nil)
	if len(c1.LegalHooks) != len(c2.LegalHooks) {
		t.Fatalf("expected idempotent canonicalisation")
	}
}

func TestApplyContradictionExclusionsRequiresPrecisionAndConfidentPolarity(t *testing.T) {
	if ApplyContradictionExclusions(models.QueryModeContext, models.PolarityRefused, "whatever") {
		t.Fatalf("expected non-precision mode to not apply exclusions")
	}
	if ApplyContradictionExclusions(models.QueryModePrecision, models.PolarityUnknown, "whatever") {
		t.Fatalf("expected unknown polarity to not apply exclusions")
	}
	if !ApplyContradictionExclusions(models.QueryModePrecision, models.PolarityRefused, "delay condonation sought") {
		t.Fatalf("expected refused polarity with delay context to apply exclusions")
	}
	if ApplyContradictionExclusions(models.QueryModePrecision, models.PolarityRefused, "plain appeal") {
		t.Fatalf("expected refused polarity without delay context to not apply exclusions")
	}
}

func TestSynthesizeRetrievalQueriesBoundedAndNonEmpty(t *testing.T) {
	c := BuildCanonicalIntent(models.IntentProfile{
		CleanedQuery: "state appeal section 197 crpc sanction",
		Actors:       []string{"state"},
		Procedures:   []string{"criminal appeal"},
		Statutes:     []string{"section 197 crpc"},
	}, nil)
	variants := SynthesizeRetrievalQueries(c, models.KeywordPack{SearchPhrases: []string{"state criminal appeal section 197 crpc"}})
	if len(variants) == 0 {
		t.Fatalf("expected at least one variant")
	}
	if len(variants) > maxVariants {
		t.Fatalf("expected at most %d variants, got %d", maxVariants, len(variants))
	}
}

func TestSynthesizeRetrievalQueriesRequiresMultiHookPhrasesWhenNonDisjunctive(t *testing.T) {
	c := models.CanonicalIntent{
		Actors:      []string{"accused"},
		Proceedings: []string{"quashing petition"},
		HookGroups: []models.CanonicalHookGroup{
			{GroupID: "g1", Family: "ipc", Terms: []string{"section 420 ipc"}, Required: true},
			{GroupID: "g2", Family: "crpc", Terms: []string{"section 482 crpc"}, Required: true},
		},
	}
	variants := SynthesizeRetrievalQueries(c, models.KeywordPack{SearchPhrases: []string{"accused quashing petition section 420 ipc section 482 crpc"}})
	found := false
	for _, v := range variants {
		if v.Phase == models.PhasePrimary {
			found = true
			if !(containsSubstr(v.Phrase, "420") && containsSubstr(v.Phrase, "482")) {
				t.Fatalf("expected primary-phase phrase to mention both hooks, got %q", v.Phrase)
			}
		}
	}
	if !found {
		t.Fatalf("expected at least one primary-phase variant")
	}
}

func containsSubstr(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

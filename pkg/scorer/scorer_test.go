package scorer

import (
	"testing"

	"caselaw-retrieval/pkg/models"
	"caselaw-retrieval/pkg/proposition"
)

func TestScoreExactStrictOutscoresExploratory(t *testing.T) {
	intent := models.CanonicalIntent{
		HookGroups: []models.CanonicalHookGroup{
			{GroupID: "g1", Terms: []string{"section 437"}, MinMatch: 1, Required: true},
		},
	}
	checklist := proposition.BuildChecklist(intent, nil)

	strong := models.CaseCandidate{
		DetailText:      "the application under section 437 was allowed",
		EvidenceQuality: &models.EvidenceQuality{HasPolaritySentence: true, HasHookIntersection: true},
		DetailHydration: &models.DetailHydration{Succeeded: true, Method: "direct"},
	}
	weak := models.CaseCandidate{DetailText: "unrelated matter"}

	strongScored := Score(checklist, strong, models.TierExactStrict, nil, 0)
	weakScored := Score(checklist, weak, models.TierExploratory, []string{"hook g1"}, 0)

	if strongScored.Score <= weakScored.Score {
		t.Fatalf("expected exact_strict to outscore exploratory, got %f vs %f", strongScored.Score, weakScored.Score)
	}
	if strongScored.ConfidenceBand == models.BandLow {
		t.Fatalf("expected a non-LOW band for a fully satisfied candidate, got %v", strongScored.ConfidenceBand)
	}
}

func TestScoreExploratoryNeverExceedsConfiguredCap(t *testing.T) {
	intent := models.CanonicalIntent{
		HookGroups: []models.CanonicalHookGroup{
			{GroupID: "g1", Terms: []string{"section 437"}, MinMatch: 1, Required: true},
		},
	}
	checklist := proposition.BuildChecklist(intent, nil)
	rerank := 1.0
	strong := models.CaseCandidate{
		DetailText:      "the application under section 437 was allowed",
		EvidenceQuality: &models.EvidenceQuality{HasRelationSentence: true, HasPolaritySentence: true, HasHookIntersection: true, HasRoleSentence: true, HasChainSentence: true},
		DetailHydration: &models.DetailHydration{Succeeded: true, Method: "direct"},
		Retrieval:       models.RetrievalMeta{RerankScore: &rerank},
	}

	cap := 0.3
	scored := Score(checklist, strong, models.TierExploratory, nil, cap)
	if scored.Score > cap {
		t.Fatalf("expected exploratory score capped at %f, got %f", cap, scored.Score)
	}

	defaultScored := Score(checklist, strong, models.TierExploratory, nil, 0)
	if defaultScored.Score > defaultExploratoryCap {
		t.Fatalf("expected exploratory score capped at default %f, got %f", defaultExploratoryCap, defaultScored.Score)
	}
}

func TestDiversifyEnforcesMaxPerFingerprint(t *testing.T) {
	cands := []models.ScoredCase{
		{CaseCandidate: models.CaseCandidate{Title: "State v. Rao", Court: models.CourtResolvedSC}, Score: 0.9},
		{CaseCandidate: models.CaseCandidate{Title: "State v. Rao", Court: models.CourtResolvedSC}, Score: 0.8},
		{CaseCandidate: models.CaseCandidate{Title: "State v. Rao", Court: models.CourtResolvedSC}, Score: 0.7},
	}
	out := Diversify(DiversifyConfig{MaxPerFingerprint: 2}, cands)
	if len(out) != 2 {
		t.Fatalf("expected 2 kept under maxPerFingerprint=2, got %d", len(out))
	}
}

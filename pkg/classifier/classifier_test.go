package classifier

import (
	"testing"

	"caselaw-retrieval/pkg/models"
)

func TestClassifyDetectsCaseByVPattern(t *testing.T) {
	c := models.CaseCandidate{Title: "State of Maharashtra v. Praful Desai", Snippet: "appeal against acquittal"}
	if got := Classify(c); got != models.ClassCase {
		t.Fatalf("expected case, got %v", got)
	}
}

func TestClassifyDetectsStatuteByActMarker(t *testing.T) {
	c := models.CaseCandidate{Title: "The Prevention of Corruption Act, 1988", Snippet: "Section 7"}
	if got := Classify(c); got != models.ClassStatute {
		t.Fatalf("expected statute, got %v", got)
	}
}

func TestClassifyFallsBackToOther(t *testing.T) {
	c := models.CaseCandidate{Title: "Annual budget circular", Snippet: "miscellaneous office memo"}
	if got := Classify(c); got != models.ClassOther {
		t.Fatalf("expected other, got %v", got)
	}
}

func TestFilterCasesKeepsOnlyCaseClassification(t *testing.T) {
	cands := ClassifyAll([]models.CaseCandidate{
		{Title: "State v. Rao"},
		{Title: "The Limitation Act, 1963"},
	})
	filtered := FilterCases(cands)
	if len(filtered) != 1 || filtered[0].Title != "State v. Rao" {
		t.Fatalf("expected 1 case candidate kept, got %+v", filtered)
	}
}

package intent

import (
	"testing"

	"caselaw-retrieval/pkg/models"
)

func TestExtractDetectsCourtHint(t *testing.T) {
	p := Extract("the High Court refused to quash the FIR under section 482")
	if p.CourtHint != models.CourtHC {
		t.Fatalf("expected HC hint, got %v", p.CourtHint)
	}
}

func TestExtractDefaultsCourtHintToAny(t *testing.T) {
	p := Extract("state criminal appeal against discharge order")
	if p.CourtHint != models.CourtAny {
		t.Fatalf("expected ANY hint, got %v", p.CourtHint)
	}
}

func TestExtractAnchorsBounded(t *testing.T) {
	p := Extract("section 1 section 2 section 3 section 4 section 5 section 6 section 7 section 8 section 9 section 10 section 11 section 12 section 13 section 14 section 15 section 16 section 17 section 18 section 19 section 20 section 21 section 22 section 23 section 24 section 25 section 26")
	if len(p.Anchors) > maxAnchors {
		t.Fatalf("expected anchors bounded to %d, got %d", maxAnchors, len(p.Anchors))
	}
}

func TestExtractAppliesTransitionAliases(t *testing.T) {
	p := Extract("an application under section 197 CrPC for sanction")
	found := false
	for _, s := range p.Statutes {
		if s == "bnss" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected bnss alias among statutes, got %+v", p.Statutes)
	}
}

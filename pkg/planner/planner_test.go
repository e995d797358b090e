package planner

import (
	"testing"

	"caselaw-retrieval/pkg/intent"
)

func TestPlanCapsAtFortyVariants(t *testing.T) {
	p := intent.Extract("state criminal appeal section 197 crpc section 19 pc act sanction required delay condonation refused discharge bail acquittal")
	out := Plan(p)
	if len(out.Variants) > 40 {
		t.Fatalf("expected at most 40 variants, got %d", len(out.Variants))
	}
}

func TestPlanOrdersByPriorityDescending(t *testing.T) {
	p := intent.Extract("state criminal appeal section 197 crpc section 19 pc act")
	out := Plan(p)
	for i := 1; i < len(out.Variants); i++ {
		if out.Variants[i].Priority > out.Variants[i-1].Priority {
			t.Fatalf("expected descending priority order at index %d", i)
		}
	}
}

func TestPlanNeverEmpty(t *testing.T) {
	p := intent.Extract("some vague query with no dictionary matches")
	out := Plan(p)
	if len(out.Variants) == 0 {
		t.Fatalf("expected at least one variant from browse fallback")
	}
}

package legaltext

import "testing"

func TestCleanQueryStripsLeadingVerbs(t *testing.T) {
	got := CleanQuery("Please find Cases where the accused was acquitted")
	if got == "please find cases where the accused was acquitted" {
		t.Fatalf("expected leading verbs stripped, got %q", got)
	}
}

func TestExtractLegalReferencesSection(t *testing.T) {
	refs := ExtractLegalReferences("delay condonation under section 5 of the limitation act")
	found := false
	for _, r := range refs {
		if r.Kind == "section" && r.Number == "5" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected section 5 reference, got %+v", refs)
	}
}

func TestIsOpenEndedQuestion(t *testing.T) {
	if !IsOpenEndedQuestion("whether the delay can be condoned under section 5") {
		t.Fatalf("expected open-ended question to be detected")
	}
	if IsOpenEndedQuestion("the high court condoned the delay") {
		t.Fatalf("did not expect an affirmative statement to be open-ended")
	}
}

func TestWithinWindow(t *testing.T) {
	text := "the appellant sought condonation near the respondent objection"
	if !WithinWindow(text, []string{"appellant"}, []string{"respondent"}, 60) {
		t.Fatalf("expected terms within window")
	}
	if WithinWindow(text, []string{"appellant"}, []string{"respondent"}, 5) {
		t.Fatalf("did not expect terms within a 5-char window")
	}
}

func TestOverlap(t *testing.T) {
	if got := Overlap([]string{"a", "b", "c"}, []string{"b", "c", "d"}); got != 2 {
		t.Fatalf("expected overlap 2, got %d", got)
	}
}

func TestDetectActorRole(t *testing.T) {
	role, ok := DetectActorRole("state", "state preferred appeal against acquittal")
	if !ok || role != "appellant" {
		t.Fatalf("expected state to be detected as appellant, got role=%q ok=%v", role, ok)
	}
	role, ok = DetectActorRole("accused", "state vs accused criminal appeal")
	if !ok || role != "respondent" {
		t.Fatalf("expected accused to be detected as respondent, got role=%q ok=%v", role, ok)
	}
	if _, ok := DetectActorRole("state", "no disposition terms here"); ok {
		t.Fatalf("did not expect a role without any vs/appellant pattern")
	}
	if _, ok := DetectActorRole("", "state vs accused"); ok {
		t.Fatalf("did not expect a role for an empty actor")
	}
}

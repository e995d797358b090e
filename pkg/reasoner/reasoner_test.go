package reasoner

import (
	"strings"
	"testing"

	"caselaw-retrieval/pkg/errs"
	"caselaw-retrieval/pkg/models"
)

func TestParseSketchWithSalvageParsesCleanJSON(t *testing.T) {
	text := `{"actors":["state"],"strict_terms":["section 437"]}`
	sketch, err, kind := parseSketchWithSalvage(text)
	if err != nil || kind != "" {
		t.Fatalf("expected clean JSON to parse without error, got err=%v kind=%v", err, kind)
	}
	if len(sketch.StrictTerms) != 1 || sketch.StrictTerms[0] != "section 437" {
		t.Fatalf("unexpected sketch: %+v", sketch)
	}
}

func TestParseSketchWithSalvageRecoversFromSurroundingProse(t *testing.T) {
	text := "here is the sketch: {\"strict_terms\":[\"section 437\"]} thanks"
	sketch, err, kind := parseSketchWithSalvage(text)
	if err != nil || kind != "" {
		t.Fatalf("expected salvage to recover valid JSON, got err=%v kind=%v", err, kind)
	}
	if len(sketch.StrictTerms) != 1 {
		t.Fatalf("unexpected sketch: %+v", sketch)
	}
}

func TestParseSketchWithSalvageReportsUnparsedWhenNoBrackets(t *testing.T) {
	_, err, kind := parseSketchWithSalvage("not json at all")
	if err == nil || kind != errs.KindReasonerUnparsed {
		t.Fatalf("expected KindReasonerUnparsed, got err=%v kind=%v", err, kind)
	}
}

func TestParseSketchWithSalvageReportsSketchKindWhenSalvageUnusable(t *testing.T) {
	_, err, kind := parseSketchWithSalvage("prose before {not: valid, json} prose after")
	if err == nil || kind != errs.KindReasonerSketch {
		t.Fatalf("expected KindReasonerSketch, got err=%v kind=%v", err, kind)
	}
}

func TestCompactPass1PromptIsShorterThanFullPrompt(t *testing.T) {
	p := models.IntentProfile{
		CleanedQuery: "bail under section 437",
		Statutes:     []string{"crpc"},
		Actors:       []string{"state", "accused"},
	}
	full := buildPass1Prompt(p)
	compact := compactPass1Prompt(p)
	if len(compact) >= len(full) {
		t.Fatalf("expected the compact retry prompt to be shorter than the full prompt")
	}
	if !strings.Contains(compact, p.CleanedQuery) {
		t.Fatalf("expected the compact prompt to still carry the query, got %q", compact)
	}
}

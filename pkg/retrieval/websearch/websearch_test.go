package websearch

import (
	"strings"
	"testing"

	"caselaw-retrieval/pkg/models"
)

func TestCompileQueryExpansionModeHasNoExclusions(t *testing.T) {
	v := models.QueryVariant{
		Phrase:            "state criminal appeal",
		MustIncludeTokens: []string{"197", "sanction"},
		MustExcludeTokens: []string{"condoned"},
		RetrievalDirectives: models.RetrievalDirectives{
			QueryMode: models.QueryModeExpansion,
		},
	}
	q := CompileQuery(v, "indiankanoon.org", false)
	if strings.Contains(q, "-\"") {
		t.Fatalf("expected no exclusions in expansion mode, got %q", q)
	}
}

func TestCompileQueryPrecisionWithTwoIncludesAndExcludeAddsExclusion(t *testing.T) {
	v := models.QueryVariant{
		Phrase:            "state criminal appeal",
		MustIncludeTokens: []string{"197", "sanction"},
		MustExcludeTokens: []string{"condoned"},
		RetrievalDirectives: models.RetrievalDirectives{
			QueryMode: models.QueryModePrecision,
		},
	}
	q := CompileQuery(v, "indiankanoon.org", false)
	if !strings.Contains(q, "-\"condoned\"") {
		t.Fatalf("expected exclusion in precision mode with >=2 includes, got %q", q)
	}
}

func TestCanonicalDocURLStripsQueryAndFragment(t *testing.T) {
	got := canonicalDocURL("https://example.org/doc/1?ref=home#top")
	want := "https://example.org/doc/1"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

package lexicalapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"caselaw-retrieval/pkg/models"
	"caselaw-retrieval/pkg/retrieval"
)

func TestCompileQueryAddsNottOnlyInPrecisionWithTwoMustHaves(t *testing.T) {
	v := models.QueryVariant{
		Phrase:            "state appeal section 197 crpc",
		MustIncludeTokens: []string{"state", "appeal"},
		MustExcludeTokens: []string{"condoned"},
		RetrievalDirectives: models.RetrievalDirectives{QueryMode: models.QueryModePrecision},
	}
	q := CompileQuery(v)
	if !containsAll(q, []string{"ANDD", "NOTT", "condoned"}) {
		t.Fatalf("expected NOTT exclusion in precision mode with 2 must-haves, got %q", q)
	}
}

func TestCompileQuerySkipsNottWithFewerThanTwoMustHaves(t *testing.T) {
	v := models.QueryVariant{
		Phrase:            "state appeal",
		MustIncludeTokens: []string{"state"},
		MustExcludeTokens: []string{"condoned"},
		RetrievalDirectives: models.RetrievalDirectives{QueryMode: models.QueryModePrecision},
	}
	q := CompileQuery(v)
	if containsAll(q, []string{"NOTT"}) {
		t.Fatalf("expected no NOTT clause with only 1 must-have, got %q", q)
	}
}

func TestSearchFiltersLikelyStatutesAndSetsCooldownOn429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("doc") != "" {
			json.NewEncoder(w).Encode(docMeta{Bench: "J. Rao"})
			return
		}
		json.NewEncoder(w).Encode(rawResponse{Docs: []rawRow{
			{Title: "State v Rao", URL: "/doc/1", Court: "High Court of Delhi"},
			{Title: "The Indian Penal Code, 1860", URL: "/doc/2"},
		}})
	}))
	defer srv.Close()

	cooldown := retrieval.NewCooldownTracker()
	c := New(Config{BaseURL: srv.URL}, cooldown, nil)
	out, err := c.Search(context.Background(), retrieval.Input{
		Variant: models.QueryVariant{Phrase: "state v rao"}, MaxResults: 10, Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Cases) != 1 {
		t.Fatalf("expected statute row filtered out, got %d cases", len(out.Cases))
	}
	if out.Cases[0].Court != models.CourtResolvedHC {
		t.Fatalf("expected resolved HC court, got %v", out.Cases[0].Court)
	}
}

func containsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !contains(s, sub) {
			return false
		}
	}
	return true
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

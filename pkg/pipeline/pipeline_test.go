package pipeline

import (
	"context"
	"testing"

	"caselaw-retrieval/internal/concurrency"
	"caselaw-retrieval/internal/config"
	"caselaw-retrieval/internal/metrics"
	"caselaw-retrieval/pkg/cache"
	"caselaw-retrieval/pkg/models"
	"caselaw-retrieval/pkg/retrieval"
	"caselaw-retrieval/pkg/verifier"
)

// stubProvider returns a fixed set of candidates for every variant it sees,
// standing in for the network-backed providers so the orchestrator can be
// exercised without real retrieval traffic.
type stubProvider struct {
	name  string
	cases []models.CaseCandidate
}

func (s stubProvider) Name() string { return s.name }

func (s stubProvider) Search(ctx context.Context, in retrieval.Input) (retrieval.Output, error) {
	return retrieval.Output{
		Cases: s.cases,
		Debug: retrieval.Debug{SourceTag: s.name, ParsedCount: len(s.cases)},
	}, nil
}

// stubFetcher hydrates every URL with the same fixed detail text, so the
// verifier stage has evidence to score against.
type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, url string) (verifier.DetailResult, error) {
	return verifier.DetailResult{
		Title:      "State v. Rao",
		CourtText:  "High Court",
		DetailText: "the application under section 437 was allowed on grounds of delay",
	}, nil
}

type stubResolver struct{}

func (stubResolver) Alternates(models.CaseCandidate) []string { return nil }
func (stubResolver) ResolveByHint(context.Context, models.CaseCandidate) (string, bool) {
	return "", false
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cfg := &config.Config{}
	cfg.Retrieval.MaxResultsDefault = 20
	cfg.Retrieval.PerProviderTimeout = 0
	cfg.Retrieval.GlobalInFlightCap = 4
	cfg.Retrieval.CooldownSec = 30
	cfg.Diversify.MaxPerFingerprint = 2
	cfg.Diversify.MaxPerCourtDay = 3
	cfg.Verifier.Limit = 15

	c := cache.New(cache.Config{})

	cands := []models.CaseCandidate{
		{Source: models.SourceLexicalAPI, Title: "State v. Rao", URL: "https://example.org/doc/1/", Court: models.CourtResolvedHC, Snippet: "delay condonation refused under section 437"},
		{Source: models.SourceLexicalAPI, Title: "Union v. Singh", URL: "https://example.org/doc/2/", Court: models.CourtResolvedSC, Snippet: "unrelated sanction matter"},
	}

	vf := verifier.New(verifier.Config{Limit: 15}, c, stubFetcher{}, stubResolver{}, nil)

	return &Pipeline{
		cfg:            cfg,
		cache:          c,
		providers:      []retrieval.Provider{stubProvider{name: "stub", cases: cands}},
		verifier:       vf,
		pool:           concurrency.NewWorkerPool(4),
		recentFallback: newRecentHashes(recentFallbackWindow),
		metrics:        metrics.New(),
	}
}

func TestRunProducesScoredCasesWithoutReasonerOrHybrid(t *testing.T) {
	p := newTestPipeline(t)

	resp, err := p.Run(context.Background(), models.SearchRequest{
		Query:      "delay condonation refused under section 437",
		MaxResults: 10,
		RequestID:  "req-1",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if resp.RequestID != "req-1" {
		t.Fatalf("expected request id to round-trip, got %q", resp.RequestID)
	}
	if resp.TotalFetched == 0 {
		t.Fatalf("expected at least one fetched candidate")
	}
	if len(resp.PipelineTrace) == 0 {
		t.Fatalf("expected a non-empty pipeline trace")
	}
	if len(resp.Notes) != len(models.StandardNotes) {
		t.Fatalf("expected the standard notes to be carried through, got %v", resp.Notes)
	}
}

func TestRunRecallsStaleFallbackCasesOnSubsequentNoMatch(t *testing.T) {
	p := newTestPipeline(t)
	p.cfg.Flags.StaleFallback = true
	p.cfg.Flags.ExploratoryConfidenceCap = 0.4

	query := "delay condonation refused under section 437"

	first, err := p.Run(context.Background(), models.SearchRequest{
		Query:      query,
		MaxResults: 10,
		RequestID:  "req-warm",
	})
	if err != nil {
		t.Fatalf("warm run returned error: %v", err)
	}
	if first.Status != models.StatusCompleted || len(first.Cases) == 0 {
		t.Fatalf("expected the warm run to complete with cases, got status=%v cases=%d", first.Status, len(first.Cases))
	}

	// Same fingerprint (identical query), but this time nothing survives
	// classification, so the run would otherwise report no_match.
	p.providers = []retrieval.Provider{stubProvider{name: "stub", cases: []models.CaseCandidate{
		{Source: models.SourceLexicalAPI, Title: "The Indian Penal Code, 1860", URL: "https://example.org/act/1/", Snippet: "section 437"},
	}}}

	second, err := p.Run(context.Background(), models.SearchRequest{
		Query:      query,
		MaxResults: 10,
		RequestID:  "req-stale",
	})
	if err != nil {
		t.Fatalf("stale run returned error: %v", err)
	}
	if len(second.Cases) == 0 {
		t.Fatalf("expected a stale-fallback recall to return a non-empty response")
	}
	if !second.PartialRun {
		t.Fatalf("expected the recalled response to be marked partial")
	}
	for _, sc := range second.Cases {
		if sc.RetrievalTier != models.TierExploratory {
			t.Fatalf("expected every recalled case to be retiered exploratory, got %v", sc.RetrievalTier)
		}
		if sc.FallbackReason != "stale_cache" {
			t.Fatalf("expected FallbackReason=stale_cache, got %q", sc.FallbackReason)
		}
		if sc.Score > p.cfg.Flags.ExploratoryConfidenceCap {
			t.Fatalf("expected recalled score clamped to the exploratory cap, got %v", sc.Score)
		}
	}
}

func TestRunReportsNoMatchWhenNothingSurvivesClassification(t *testing.T) {
	p := newTestPipeline(t)
	p.providers = []retrieval.Provider{stubProvider{name: "stub", cases: []models.CaseCandidate{
		{Source: models.SourceLexicalAPI, Title: "The Indian Penal Code, 1860", URL: "https://example.org/act/1/", Snippet: "section 437"},
	}}}

	resp, err := p.Run(context.Background(), models.SearchRequest{
		Query:      "bail under section 437",
		MaxResults: 10,
		RequestID:  "req-2",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if resp.Status == models.StatusCompleted {
		t.Fatalf("expected a statute-only result set to not complete with cases, got status=%v cases=%d", resp.Status, len(resp.Cases))
	}
	if len(resp.Cases) != 0 {
		t.Fatalf("expected zero surfaced cases once the only candidate is filtered as a statute, got %d", len(resp.Cases))
	}
}

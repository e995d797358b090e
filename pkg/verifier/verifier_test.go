package verifier

import (
	"context"
	"testing"

	"caselaw-retrieval/pkg/cache"
	"caselaw-retrieval/pkg/errs"
	"caselaw-retrieval/pkg/models"
)

type fakeFetcher struct {
	byURL map[string]DetailResult
	err   map[string]error
	calls map[string]int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (DetailResult, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[url]++
	if err, ok := f.err[url]; ok {
		return DetailResult{}, err
	}
	if res, ok := f.byURL[url]; ok {
		return res, nil
	}
	return DetailResult{}, errs.New(errs.KindParseEmpty, "no fixture")
}

type fakeResolver struct {
	alts []string
	hint string
	ok   bool
}

func (r *fakeResolver) Alternates(models.CaseCandidate) []string { return r.alts }
func (r *fakeResolver) ResolveByHint(context.Context, models.CaseCandidate) (string, bool) {
	return r.hint, r.ok
}

func TestVerifyCandidatesHydratesOnlyTopLimit(t *testing.T) {
	fetcher := &fakeFetcher{byURL: map[string]DetailResult{
		"http://x/1": {Title: "T1", DetailText: "The appellant's bail under section 437 was allowed."},
	}}
	v := New(Config{Limit: 1, Concurrency: 2}, cache.New(cache.Config{}), fetcher, &fakeResolver{}, nil)

	cands := []models.CaseCandidate{
		{URL: "http://x/1", Title: "orig1"},
		{URL: "http://x/2", Title: "orig2"},
	}
	out := v.VerifyCandidates(context.Background(), cands)

	if out[0].DetailHydration == nil || !out[0].DetailHydration.Succeeded {
		t.Fatalf("expected candidate 0 hydrated, got %+v", out[0].DetailHydration)
	}
	if out[1].DetailHydration != nil {
		t.Fatalf("expected candidate 1 (beyond limit) untouched, got %+v", out[1].DetailHydration)
	}
	if out[1].Title != "orig2" {
		t.Fatalf("expected untouched title preserved, got %q", out[1].Title)
	}
}

func TestVerifyCandidatesFallsBackToAlternateURL(t *testing.T) {
	fetcher := &fakeFetcher{
		err: map[string]error{"http://primary": errs.New(errs.KindHTTP403, "forbidden")},
		byURL: map[string]DetailResult{
			"http://alt": {Title: "alt title", DetailText: "accordingly the appeal was dismissed."},
		},
	}
	v := New(Config{Limit: 1}, cache.New(cache.Config{}), fetcher, &fakeResolver{alts: []string{"http://alt"}}, nil)

	out := v.VerifyCandidates(context.Background(), []models.CaseCandidate{{URL: "http://primary"}})
	if out[0].DetailHydration == nil || out[0].DetailHydration.Method != "alternate_url" {
		t.Fatalf("expected alternate_url hydration, got %+v", out[0].DetailHydration)
	}
}

func TestVerifyCandidatesCachesPermanentFailure(t *testing.T) {
	c := cache.New(cache.Config{})
	fetcher := &fakeFetcher{err: map[string]error{"http://bad": errs.New(errs.KindHTTP429, "rate limited")}}
	v := New(Config{Limit: 1}, c, fetcher, &fakeResolver{}, nil)

	_ = v.VerifyCandidates(context.Background(), []models.CaseCandidate{{URL: "http://bad"}})
	out2 := v.VerifyCandidates(context.Background(), []models.CaseCandidate{{URL: "http://bad"}})

	if fetcher.calls["http://bad"] != 1 {
		t.Fatalf("expected the second run to hit the cache, not refetch; calls=%d", fetcher.calls["http://bad"])
	}
	if out2[0].DetailHydration == nil || !out2[0].DetailHydration.FromCache {
		t.Fatalf("expected cached failure on second run, got %+v", out2[0].DetailHydration)
	}
}

func TestEvaluateEvidenceDetectsHookIntersectionAndPolarity(t *testing.T) {
	eq := EvaluateEvidence("The bail application under section 437 was dismissed. Accordingly the matter stands closed.")
	if !eq.HasHookIntersection {
		t.Fatalf("expected hook intersection for bail+section mention")
	}
	if !eq.HasPolaritySentence {
		t.Fatalf("expected polarity sentence for 'dismissed'")
	}
	if !eq.HasChainSentence {
		t.Fatalf("expected chain sentence for 'accordingly'")
	}
}

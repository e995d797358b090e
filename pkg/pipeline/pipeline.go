// Package pipeline wires every retrieval stage into the end-to-end control
// flow (spec §2): intent extraction, deterministic planning, the optional
// two-pass reasoner, canonical-intent fusion, query-variant synthesis,
// phased concurrent retrieval, classification, detail verification,
// proposition gating, scoring and diversification. It is the orchestrator
// that internal/handlers calls once per request; construction (New) wires
// every sub-package from internal/config the way the teacher's
// internal/handlers.New(cfg) wires its services.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"caselaw-retrieval/internal/concurrency"
	"caselaw-retrieval/internal/config"
	"caselaw-retrieval/internal/metrics"
	"caselaw-retrieval/pkg/cache"
	"caselaw-retrieval/pkg/canonical"
	"caselaw-retrieval/pkg/chunkstore"
	"caselaw-retrieval/pkg/classifier"
	"caselaw-retrieval/pkg/hybrid"
	"caselaw-retrieval/pkg/intent"
	"caselaw-retrieval/pkg/modelgateway"
	"caselaw-retrieval/pkg/models"
	"caselaw-retrieval/pkg/planner"
	"caselaw-retrieval/pkg/proposition"
	"caselaw-retrieval/pkg/reasoner"
	"caselaw-retrieval/pkg/retrieval"
	"caselaw-retrieval/pkg/retrieval/htmlsearch"
	"caselaw-retrieval/pkg/retrieval/lexicalapi"
	"caselaw-retrieval/pkg/retrieval/websearch"
	"caselaw-retrieval/pkg/scorer"
	"caselaw-retrieval/pkg/verifier"
)

// maxSnippetsForPass2 bounds how much retrieved evidence feeds the
// reasoner's pass-2 seed hash, mirroring the provider prompt budgets.
const maxSnippetsForPass2 = 8

// recentFallbackWindow is how many stale-fallback hashes are retained for
// recall purposes (spec §6: "a capped recent-hash index of 120 entries").
const recentFallbackWindow = 120

// Pipeline is the fully-wired orchestrator. Build one with New and reuse it
// across requests; all mutable state lives in the per-request run.
type Pipeline struct {
	cfg *config.Config

	cache    *cache.Cache
	gateway  *modelgateway.Gateway
	reasoner *reasoner.Reasoner
	hybrid   *hybrid.Hybrid

	providers []retrieval.Provider
	verifier  *verifier.Verifier
	pool      *concurrency.WorkerPool

	recentFallback *recentHashes
	metrics        *metrics.Recorder
}

// Metrics returns the process-wide counter snapshot (spec §1's session-local
// metrics collaborator).
func (p *Pipeline) Metrics() metrics.Snapshot { return p.metrics.Snapshot() }

// ResetReasonerCircuit force-closes the reasoner's circuit breaker, backing
// the administrative circuit-reset route. A no-op when the reasoner is
// disabled.
func (p *Pipeline) ResetReasonerCircuit(ctx context.Context) {
	if p.reasoner != nil {
		p.reasoner.ResetCircuit(ctx)
	}
}

// New constructs every sub-component from cfg, the way the teacher's
// internal/handlers.New builds its service layer from *config.Config.
func New(cfg *config.Config) (*Pipeline, error) {
	c := cache.New(cache.Config{
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
	})

	gw := modelgateway.New()

	var rs *reasoner.Reasoner
	if cfg.Reasoner.Enabled {
		rs = reasoner.New(reasoner.Config{
			Enabled:              cfg.Reasoner.Enabled,
			ModelID:              cfg.Gateway.ModelID,
			Region:               cfg.Gateway.Region,
			FallbackModelID:      cfg.Gateway.FallbackModelID,
			MaxCallsPerRequest:   cfg.Reasoner.MaxCallsPerRequest,
			CacheTTLPass1Sec:     cfg.Reasoner.CacheTTLPass1Sec,
			CacheTTLPass2Sec:     cfg.Reasoner.CacheTTLPass2Sec,
			CircuitFailThreshold: cfg.Reasoner.CircuitFailThreshold,
			CircuitCooldownSec:   cfg.Reasoner.CircuitCooldownSec,
			RateLimit:            cfg.Reasoner.RateLimit,
			RateWindowSec:        cfg.Reasoner.RateWindowSec,
			MaxInFlight:          cfg.Reasoner.MaxInFlight,
			LockWaitMs:           cfg.Reasoner.LockWaitMs,
			LockTTLSec:           cfg.Reasoner.LockTTLSec,
			BaseTimeout:          cfg.Reasoner.BaseTimeout,
			ComplexityBump:       cfg.Reasoner.ComplexityBump,
			MaxTimeout:           cfg.Reasoner.MaxTimeout,
			MaxTokens:            cfg.Gateway.MaxTokens,
		}, c, gw)
	}

	var hy *hybrid.Hybrid
	if cfg.Hybrid.Enabled {
		lex, err := hybrid.NewLexicalStore(hybrid.LexicalConfig{
			Host:     cfg.Hybrid.OpenSearchHost,
			Port:     cfg.Hybrid.OpenSearchPort,
			UseSSL:   cfg.Hybrid.OpenSearchUseSSL,
			Username: cfg.Hybrid.OpenSearchUsername,
			Password: cfg.Hybrid.OpenSearchPassword,
			Index:    cfg.Hybrid.OpenSearchIndex,
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline: opensearch leg: %w", err)
		}
		var embedder hybrid.Embedder = hybrid.LocalHashEmbedder{}
		if cfg.Hybrid.EmbedModelID != "" {
			embedder = hybrid.NewTitanEmbedder(cfg.Hybrid.EmbedModelID, cfg.Hybrid.EmbedRegion)
		}
		sem, err := hybrid.NewSemanticStore(hybrid.SemanticConfig{
			Host:           cfg.Hybrid.QdrantHost,
			Port:           cfg.Hybrid.QdrantPort,
			APIKey:         cfg.Hybrid.QdrantAPIKey,
			UseTLS:         cfg.Hybrid.QdrantUseTLS,
			CollectionName: cfg.Hybrid.QdrantCollection,
		}, embedder)
		if err != nil {
			return nil, fmt.Errorf("pipeline: qdrant leg: %w", err)
		}
		hy = hybrid.New(hybrid.Config{
			Lexical:       lex,
			Semantic:      sem,
			Gateway:       gw,
			RerankModelID: cfg.Hybrid.RerankModelID,
			RerankRegion:  cfg.Hybrid.RerankRegion,
			LegTimeout:    cfg.Hybrid.LegTimeout,
		})
	}

	cooldown := retrieval.NewCooldownTracker()

	var hybridFn lexicalapi.HybridSearchFunc
	if hy != nil {
		hybridFn = hy.Search
	}
	lexClient := lexicalapi.New(lexicalapi.Config{
		BaseURL:           cfg.LexicalAPI.BaseURL,
		HTTPTimeout:       cfg.LexicalAPI.HTTPTimeout,
		DetailConcurrency: cfg.LexicalAPI.DetailConcurrency,
		EnrichTopN:        cfg.LexicalAPI.EnrichTopN,
		HybridEnabled:     cfg.Hybrid.Enabled,
		HybridShadow:      cfg.Hybrid.Shadow,
	}, cooldown, hybridFn)

	htmlClient := htmlsearch.New(htmlsearch.Config{
		BaseURL:     cfg.HTMLSearch.BaseURL,
		HTTPTimeout: cfg.HTMLSearch.HTTPTimeout,
		MaxPages:    cfg.HTMLSearch.MaxPages,
		PageBudget:  cfg.HTMLSearch.PageBudget,
	}, cooldown)

	webClient := websearch.New(websearch.Config{
		Endpoint:    cfg.WebSearch.Endpoint,
		APIKey:      cfg.WebSearch.APIKey,
		SiteDomain:  cfg.WebSearch.SiteDomain,
		HTTPTimeout: cfg.WebSearch.HTTPTimeout,
	}, cooldown, c)

	resolver := &verifier.HybridAlternateResolver{}
	if hy != nil {
		resolver.Hybrid = func(ctx context.Context, titleAndCourt string) (string, bool) {
			out, err := hy.Search(ctx, models.QueryVariant{Phrase: titleAndCourt}, 1)
			if err != nil || len(out.Cases) == 0 {
				return "", false
			}
			return out.Cases[0].URL, true
		}
	}

	vf := verifier.New(verifier.Config{
		Concurrency:           cfg.Verifier.Concurrency,
		Limit:                 cfg.Verifier.Limit,
		DetailCacheTTLSec:     cfg.Verifier.DetailCacheTTLSec,
		FailureCacheTTLSec:    cfg.Verifier.FailureCacheTTLSec,
		HybridFallbackCutoff:  cfg.Verifier.HybridFallbackCutoff,
		SnippetFallbackCutoff: cfg.Verifier.SnippetFallbackCutoff,
		MinSnippets:           cfg.Verifier.MinSnippets,
	}, c, verifier.NewHTTPFetcher(cfg.Retrieval.PerProviderTimeout), resolver, webClient)

	// The chunk manifest is populated out-of-band by an offline indexing
	// job. chunkstore.New only builds the bucket client; no manifest is read
	// here, and the store and any error are discarded.
	if cfg.ChunkStore.Bucket != "" {
		_, _ = chunkstore.New(context.Background(), chunkstore.Config{
			AccessKey: cfg.ChunkStore.AccessKey,
			SecretKey: cfg.ChunkStore.SecretKey,
			Endpoint:  cfg.ChunkStore.Endpoint,
			Region:    cfg.ChunkStore.Region,
			Bucket:    cfg.ChunkStore.Bucket,
		})
	}

	return &Pipeline{
		cfg:            cfg,
		cache:          c,
		gateway:        gw,
		reasoner:       rs,
		hybrid:         hy,
		providers:      []retrieval.Provider{lexClient, htmlClient, webClient},
		verifier:       vf,
		pool:           concurrency.NewWorkerPool(cfg.Retrieval.GlobalInFlightCap),
		recentFallback: newRecentHashes(recentFallbackWindow),
		metrics:        metrics.New(),
	}, nil
}

// trace accumulates PipelineTraceEntry records with per-stage timing.
type trace struct {
	entries []models.PipelineTraceEntry
}

func (t *trace) record(stage, outcome string, start time.Time) {
	t.entries = append(t.entries, models.PipelineTraceEntry{
		Stage:   stage,
		Outcome: outcome,
		Millis:  time.Since(start).Milliseconds(),
	})
}

// Run executes the full control flow for one request (spec §2).
func (p *Pipeline) Run(ctx context.Context, req models.SearchRequest) (models.SearchResponse, error) {
	tr := &trace{}
	var insights []string
	partialRun := false
	blockedKind := ""

	t0 := time.Now()
	ip := intent.Extract(req.Query)
	tr.record("intent", "ok", t0)

	t1 := time.Now()
	plannerOut := planner.Plan(ip)
	tr.record("planner", "ok", t1)

	callsSoFar := 0
	var sketch *models.ReasonerSketch
	if p.reasoner != nil {
		t2 := time.Now()
		s, res := p.reasoner.RunPass1(ctx, ip, callsSoFar, false)
		sketch = s
		tr.record("reasoner_pass1", passOutcome(res), t2)
		p.recordReasonerOutcome(res)
		if sketch != nil {
			callsSoFar++
			insights = append(insights, "reasoner pass-1 produced a sketch")
		} else if res.Reason != "" {
			insights = append(insights, "reasoner pass-1 skipped: "+res.Reason)
		}
	}

	var plan *models.ReasonerPlan
	if sketch != nil {
		plan = reasoner.ExpandSketch(*sketch, ip)
		reasoner.Ground(plan, ip)
		plan.ValidateGroupReferences()
		plan.ClampMinMatch()
	}

	t3 := time.Now()
	canonicalIntent := canonical.BuildCanonicalIntent(ip, plan)
	tr.record("canonical", "ok", t3)

	t4 := time.Now()
	variants := canonical.SynthesizeRetrievalQueries(canonicalIntent, plannerOut.KeywordPack)
	if len(variants) == 0 {
		variants = plannerOut.Variants
	}
	tr.record("query_rewrite", fmt.Sprintf("%d_variants", len(variants)), t4)

	t5 := time.Now()
	cands, retrievalBlocked := p.retrieveAll(ctx, variants, req.MaxResults)
	if retrievalBlocked != "" {
		blockedKind = retrievalBlocked
		partialRun = true
	}
	tr.record("retrieval", fmt.Sprintf("%d_candidates", len(cands)), t5)

	t6 := time.Now()
	totalFetched := len(cands)
	cands = classifier.ClassifyAll(cands)
	cases := classifier.FilterCases(cands)
	filteredCount := totalFetched - len(cases)
	tr.record("classify", fmt.Sprintf("%d_cases", len(cases)), t6)

	t7 := time.Now()
	cases = p.verifier.VerifyCandidates(ctx, cases)
	tr.record("verify", "ok", t7)

	if p.reasoner != nil && sketch != nil {
		t8 := time.Now()
		snippets := topSnippets(cases, maxSnippetsForPass2)
		refined, res := p.reasoner.RunPass2(ctx, ip, *sketch, plan.QueryVariantsStrict, snippets, callsSoFar, false)
		tr.record("reasoner_pass2", passOutcome(res), t8)
		p.recordReasonerOutcome(res)
		if refined != nil {
			plan = refined
			insights = append(insights, "reasoner pass-2 refined the plan with retrieved evidence")
		} else if res.Reason != "" {
			insights = append(insights, "reasoner pass-2 skipped: "+res.Reason)
		}
	}

	t9 := time.Now()
	checklist := proposition.BuildChecklist(canonicalIntent, plan)
	tiers := make([]models.RetrievalTier, len(cases))
	missingAll := make([][]string, len(cases))
	missingByURL := make(map[string][]string, len(cases))
	gapByURL := make(map[string]string, len(cases))
	for i, c := range cases {
		tier, missing, gap := proposition.Evaluate(checklist, c)
		tiers[i] = tier
		missingAll[i] = missing
		missingByURL[c.URL] = missing
		gapByURL[c.URL] = gap
	}
	scored := scorer.ScoreAll(checklist, cases, tiers, missingAll, p.cfg.Flags.ExploratoryConfidenceCap)
	tr.record("proposition_gate", fmt.Sprintf("%d_scored", len(scored)), t9)

	t10 := time.Now()
	diversified := scorer.Diversify(scorer.DiversifyConfig{
		MaxPerFingerprint: p.cfg.Diversify.MaxPerFingerprint,
		MaxPerCourtDay:    p.cfg.Diversify.MaxPerCourtDay,
	}, scored)
	tr.record("diversify", fmt.Sprintf("%d_kept", len(diversified)), t10)

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = p.cfg.Retrieval.MaxResultsDefault
	}

	var strict, provisional []models.ScoredCase
	var nearMiss []models.NearMissCase
	for _, sc := range diversified {
		switch sc.RetrievalTier {
		case models.TierExactStrict:
			strict = append(strict, sc)
		case models.TierExactProvisional:
			provisional = append(provisional, sc)
		default:
			nearMiss = append(nearMiss, models.NearMissCase{
				ScoredCase:      sc,
				MissingElements: missingByURL[sc.URL],
				GapSummary:      gapByURL[sc.URL],
			})
		}
	}

	combinedExact := append(append([]models.ScoredCase{}, strict...), provisional...)
	allCases := append(append([]models.ScoredCase{}, combinedExact...), scoredFromNearMiss(nearMiss)...)
	sort.SliceStable(allCases, func(i, j int) bool { return allCases[i].Score > allCases[j].Score })
	if len(allCases) > maxResults {
		allCases = allCases[:maxResults]
	}

	status := models.StatusCompleted
	switch {
	case len(allCases) == 0 && blockedKind != "":
		status = models.StatusBlocked
	case len(allCases) == 0:
		status = models.StatusNoMatch
	}

	fingerprint := canonicalFingerprint(req.Query)
	if status == models.StatusNoMatch && p.cfg.Flags.StaleFallback {
		if stale, ok := p.recentFallback.lookup(fingerprint); ok {
			recalled := applyStaleFallback(stale, p.cfg.Flags.ExploratoryConfidenceCap)
			allCases = recalled
			strict = nil
			provisional = nil
			combinedExact = nil
			nearMiss = nearMiss[:0]
			for _, sc := range recalled {
				nearMiss = append(nearMiss, models.NearMissCase{
					ScoredCase:      sc,
					MissingElements: missingByURL[sc.URL],
					GapSummary:      gapByURL[sc.URL],
				})
			}
			insights = append(insights, fmt.Sprintf("served %d recent stale-fallback case(s) (stale_cache)", len(recalled)))
			partialRun = true
			status = models.StatusCompleted
		}
	}
	if status == models.StatusCompleted && len(allCases) > 0 && !partialRun {
		p.recentFallback.remember(fingerprint, allCases)
	}

	resp := models.SearchResponse{
		RequestID:             req.RequestID,
		Status:                status,
		BlockedKind:           blockedKind,
		ExecutionPath:         models.PathServerOnly,
		PartialRun:            partialRun,
		Query:                 req.Query,
		Context:               ip.Context(),
		Proposition:           propositionView(checklist),
		KeywordPack:           plannerOut.KeywordPack,
		TotalFetched:          totalFetched,
		FilteredCount:         filteredCount,
		Cases:                 allCases,
		CasesExact:            combinedExact,
		CasesExactStrict:      strict,
		CasesExactProvisional: provisional,
		CasesNearMiss:         nearMiss,
		Insights:              insights,
		Notes:                 append([]string{}, models.StandardNotes...),
		PipelineTrace:         tr.entries,
	}
	if blockedKind != "" {
		retryAfter := int64(p.cfg.Retrieval.CooldownSec * 1000)
		resp.RetryAfterMs = &retryAfter
		p.metrics.ProviderBlocked()
	}
	if status == models.StatusBlocked {
		p.metrics.RequestFailed()
	} else {
		p.metrics.RequestServed()
	}
	return resp, nil
}

// recordReasonerOutcome bumps the call/cache-hit counters for one reasoner
// pass, mirroring the governance order spec §4.4 already evaluates.
func (p *Pipeline) recordReasonerOutcome(res reasoner.PassResult) {
	if res.CacheHit {
		p.metrics.ReasonerCacheHit()
		return
	}
	if !res.Skipped && res.Err == nil {
		p.metrics.ReasonerCall()
	}
}

func propositionView(checklist models.PropositionChecklist) models.PropositionView {
	var constraints []string
	if checklist.OutcomeConstraint.Polarity != "" {
		constraints = append(constraints, "outcome_polarity:"+string(checklist.OutcomeConstraint.Polarity))
	}
	if checklist.InteractionRequired {
		constraints = append(constraints, "interaction_required")
	}
	return models.PropositionView{
		RequiredElements: checklist.RequiredElements,
		OptionalElements: checklist.OptionalElements,
		Constraints:      constraints,
	}
}

func scoredFromNearMiss(nm []models.NearMissCase) []models.ScoredCase {
	out := make([]models.ScoredCase, len(nm))
	for i, n := range nm {
		out[i] = n.ScoredCase
	}
	return out
}

func passOutcome(res reasoner.PassResult) string {
	switch {
	case res.Err != nil:
		return "error"
	case res.CacheHit:
		return "cache_hit"
	case res.Skipped:
		return "skipped:" + res.Reason
	default:
		return "ok"
	}
}

func topSnippets(cases []models.CaseCandidate, n int) []string {
	var out []string
	for _, c := range cases {
		text := c.DetailText
		if text == "" {
			text = c.Snippet
		}
		if text == "" {
			continue
		}
		out = append(out, text)
		if len(out) >= n {
			break
		}
	}
	return out
}

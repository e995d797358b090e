package verifier

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"caselaw-retrieval/pkg/cache"
	"caselaw-retrieval/pkg/classifier"
	"caselaw-retrieval/pkg/errs"
	"caselaw-retrieval/pkg/models"
	"caselaw-retrieval/internal/concurrency"
)

// SnippetSearcher supplies the last-resort evidence source: site-restricted
// search snippets assembled into a synthetic detail artifact when both the
// primary URL and every alternate fail (spec §4.8: "snippet fallback").
type SnippetSearcher interface {
	SiteSnippets(ctx context.Context, c models.CaseCandidate, min int) ([]string, error)
}

// Config tunes hydration scope and fallback cutoffs.
type Config struct {
	Concurrency          int // default 4
	Limit                int // how many top candidates to hydrate, default 15
	DetailCacheTTLSec     int // default 21600 (6h)
	FailureCacheTTLSec    int // default 1800
	HybridFallbackCutoff  int // rank below which hint resolution is tried, default 20
	SnippetFallbackCutoff int // rank below which snippet fallback is tried, default 10
	MinSnippets           int // default 3
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Concurrency > 6 {
		c.Concurrency = 6
	}
	if c.Limit <= 0 {
		c.Limit = 15
	}
	if c.DetailCacheTTLSec <= 0 {
		c.DetailCacheTTLSec = 21600
	}
	if c.FailureCacheTTLSec <= 0 {
		c.FailureCacheTTLSec = 1800
	}
	if c.HybridFallbackCutoff <= 0 {
		c.HybridFallbackCutoff = 20
	}
	if c.SnippetFallbackCutoff <= 0 {
		c.SnippetFallbackCutoff = 10
	}
	if c.MinSnippets <= 0 {
		c.MinSnippets = 3
	}
	return c
}

// Verifier hydrates the top-ranked candidates with detail-page evidence.
type Verifier struct {
	cfg      Config
	cache    *cache.Cache
	fetcher  Fetcher
	resolver AlternateResolver
	snippets SnippetSearcher
	pool     *concurrency.WorkerPool
}

// New builds a Verifier. snippets may be nil, disabling the snippet
// fallback tier.
func New(cfg Config, c *cache.Cache, fetcher Fetcher, resolver AlternateResolver, snippets SnippetSearcher) *Verifier {
	cfg = cfg.withDefaults()
	return &Verifier{
		cfg:      cfg,
		cache:    c,
		fetcher:  fetcher,
		resolver: resolver,
		snippets: snippets,
		pool:     concurrency.NewWorkerPool(cfg.Concurrency),
	}
}

// cachedDetail is what's stored under the per-URL cache key: either a
// successful hydration or a cacheable failure kind.
type cachedDetail struct {
	Succeeded  bool
	Title      string
	CourtText  string
	DetailText string
	ErrorKind  string
}

// VerifyCandidates hydrates the top min(limit, len(cands)) candidates in
// rank order, leaving the remainder untouched (spec §4.8 testable property
// 4: "only the top N are hydrated; the tail is returned unchanged"). The
// returned slice preserves input order and length.
func (v *Verifier) VerifyCandidates(ctx context.Context, cands []models.CaseCandidate) []models.CaseCandidate {
	out := make([]models.CaseCandidate, len(cands))
	copy(out, cands)

	n := v.cfg.Limit
	if n > len(out) {
		n = len(out)
	}

	v.pool.Run(ctx, n, func(ctx context.Context, i int) error {
		out[i] = v.hydrateOne(ctx, out[i], i)
		return nil
	})

	for i := 0; i < n; i++ {
		out[i].Classification = classifier.Classify(out[i])
	}
	return out
}

func (v *Verifier) hydrateOne(ctx context.Context, c models.CaseCandidate, rank int) models.CaseCandidate {
	key := detailCacheKey(c.URL)

	if cached, ok := cache.GetValue[cachedDetail](ctx, v.cache, key); ok {
		if cached.Succeeded {
			return applyDetail(c, cached.Title, cached.CourtText, cached.DetailText, "cache", true)
		}
		c.DetailHydration = &models.DetailHydration{Attempted: true, Succeeded: false, FromCache: true, ErrorKind: cached.ErrorKind}
		return c
	}

	if res, err := v.fetchWithRetry(ctx, c.URL); err == nil {
		v.cacheSuccess(ctx, key, res)
		return applyDetail(c, res.Title, res.CourtText, res.DetailText, "direct", false)
	} else if kind := errs.KindOf(err); errs.Cacheable(kind) {
		v.cacheFailure(ctx, key, kind)
	}

	for _, alt := range v.resolver.Alternates(c) {
		if res, err := v.fetchWithRetry(ctx, alt); err == nil {
			v.cacheSuccess(ctx, key, res)
			return applyDetail(c, res.Title, res.CourtText, res.DetailText, "alternate_url", false)
		}
	}

	if rank < v.cfg.HybridFallbackCutoff {
		if altURL, ok := v.resolver.ResolveByHint(ctx, c); ok {
			if res, err := v.fetchWithRetry(ctx, altURL); err == nil {
				v.cacheSuccess(ctx, key, res)
				return applyDetail(c, res.Title, res.CourtText, res.DetailText, "hint_resolution", false)
			}
		}
	}

	if v.snippets != nil && rank < v.cfg.SnippetFallbackCutoff {
		if snips, err := v.snippets.SiteSnippets(ctx, c, v.cfg.MinSnippets); err == nil && len(snips) >= v.cfg.MinSnippets {
			artifact := strings.Join(snips, " ... ")
			c.DetailArtifact = artifact
			c.EvidenceQuality = ptrEvidence(EvaluateEvidence(artifact))
			c.DetailHydration = &models.DetailHydration{Attempted: true, Succeeded: true, Method: "snippet_fallback"}
			return c
		}
	}

	c.DetailHydration = &models.DetailHydration{Attempted: true, Succeeded: false, ErrorKind: string(errs.KindParseEmpty)}
	return c
}

// fetchWithRetry retries transient failures once with a short backoff;
// permanent failures (403/429/parse_empty) are returned immediately so the
// caller can cache them (spec §4.8 step 2).
func (v *Verifier) fetchWithRetry(ctx context.Context, url string) (DetailResult, error) {
	if url == "" {
		return DetailResult{}, errs.New(errs.KindParseEmpty, "empty detail url")
	}
	res, err := v.fetcher.Fetch(ctx, url)
	if err == nil {
		return res, nil
	}
	if isTransient(errs.KindOf(err)) {
		select {
		case <-ctx.Done():
			return DetailResult{}, err
		case <-time.After(400 * time.Millisecond):
		}
		res, err2 := v.fetcher.Fetch(ctx, url)
		if err2 == nil {
			return res, nil
		}
		return DetailResult{}, err2
	}
	return DetailResult{}, err
}

func (v *Verifier) cacheSuccess(ctx context.Context, key string, res DetailResult) {
	_ = cache.SetValue(ctx, v.cache, key, cachedDetail{
		Succeeded:  true,
		Title:      res.Title,
		CourtText:  res.CourtText,
		DetailText: res.DetailText,
	}, v.cfg.DetailCacheTTLSec)
}

func (v *Verifier) cacheFailure(ctx context.Context, key string, kind errs.Kind) {
	_ = cache.SetValue(ctx, v.cache, key, cachedDetail{
		Succeeded: false,
		ErrorKind: string(kind),
	}, v.cfg.FailureCacheTTLSec)
}

func applyDetail(c models.CaseCandidate, title, courtText, detailText, method string, fromCache bool) models.CaseCandidate {
	if title != "" {
		c.Title = title
	}
	if courtText != "" {
		c.CourtText = courtText
	}
	c.DetailText = detailText
	if d := ExtractDecisionDate(detailText); d != "" {
		c.DecisionDate = d
	}
	eq := EvaluateEvidence(detailText)
	c.EvidenceQuality = &eq
	c.DetailHydration = &models.DetailHydration{Attempted: true, Succeeded: true, Method: method, FromCache: fromCache}
	return c
}

func ptrEvidence(eq models.EvidenceQuality) *models.EvidenceQuality { return &eq }

func detailCacheKey(url string) string {
	h := sha1.Sum([]byte(url))
	return fmt.Sprintf("detail:v1:url:%s", hex.EncodeToString(h[:]))
}

// Package websearch implements the web-search bypass/fallback provider
// (spec §4.6 "Web-search provider"): a site-restricted query compiler with
// quoted phrases, core terms and exclusions, a relax-and-retry-once policy
// on zero results, a short positive-result cache, and organic-result
// dedup by canonical document URL.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"caselaw-retrieval/pkg/cache"
	"caselaw-retrieval/pkg/models"
	"caselaw-retrieval/pkg/retrieval"
)

const scope = "web_search"

// cacheTTLSec is the positive-result cache window (spec §4.6: "~10 min
// TTL"). Per spec §9 Open Questions, negative (zero-organic) results are
// deliberately not cached.
const cacheTTLSec = 10 * 60

// Config configures the endpoint, target site and client.
type Config struct {
	Endpoint    string // JSON web-search API base URL
	APIKey      string
	SiteDomain  string // site: restriction, e.g. "indiankanoon.org"
	HTTPTimeout time.Duration
}

// Client issues site-restricted web-search queries as a bypass/fallback
// provider.
type Client struct {
	cfg      Config
	http     *http.Client
	cooldown *retrieval.CooldownTracker
	cache    *cache.Cache
}

// New builds a Client.
func New(cfg Config, cooldown *retrieval.CooldownTracker, c *cache.Cache) *Client {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 6 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.HTTPTimeout}, cooldown: cooldown, cache: c}
}

// Name identifies the provider.
func (c *Client) Name() string { return string(models.SourceWebSearch) }

// CompileQuery builds the site-restricted search string for a variant:
// a quoted phrase, bounded core terms, and (only in precision mode with
// >=2 include tokens and >=1 exclude term) quoted exclusions (spec §4.6,
// testable property 7).
func CompileQuery(v models.QueryVariant, siteDomain string, relaxed bool) string {
	var parts []string
	parts = append(parts, "site:"+siteDomain)

	if v.Phrase != "" {
		if relaxed {
			parts = append(parts, v.Phrase)
		} else {
			parts = append(parts, fmt.Sprintf("%q", v.Phrase))
		}
	}

	for _, t := range boundedCoreTerms(v.MustIncludeTokens) {
		parts = append(parts, t)
	}

	applyExclusions := !relaxed &&
		v.RetrievalDirectives.QueryMode == models.QueryModePrecision &&
		len(v.MustIncludeTokens) >= 2 &&
		len(v.MustExcludeTokens) >= 1
	if applyExclusions {
		for _, e := range v.MustExcludeTokens {
			parts = append(parts, fmt.Sprintf("-%q", e))
		}
	}
	return strings.Join(parts, " ")
}

func boundedCoreTerms(tokens []string) []string {
	const limit = 3
	if len(tokens) <= limit {
		return tokens
	}
	return tokens[:limit]
}

type organicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	Organic []organicResult `json:"organic"`
}

// Search compiles a site-restricted query, retries once with relaxed
// quoting/exclusions on zero results in context/expansion modes, and
// dedupes organic results by canonical doc URL.
func (c *Client) Search(ctx context.Context, in retrieval.Input) (retrieval.Output, error) {
	debug := retrieval.Debug{SourceTag: c.Name()}
	if blocked, ok := c.cooldown.Blocked(scope); ok {
		debug.BlockedType = blocked
		return retrieval.Output{Debug: debug}, nil
	}

	query := CompileQuery(in.Variant, c.cfg.SiteDomain, false)
	debug.CompiledQuery = query

	cands, err := c.runQuery(ctx, query, &debug)
	if err != nil {
		return retrieval.Output{Debug: debug}, nil
	}

	relaxable := in.Variant.RetrievalDirectives.QueryMode == models.QueryModeContext ||
		in.Variant.RetrievalDirectives.QueryMode == models.QueryModeExpansion
	if len(cands) == 0 && relaxable {
		relaxedQuery := CompileQuery(in.Variant, c.cfg.SiteDomain, true)
		debug.CompiledQuery = relaxedQuery
		cands, err = c.runQuery(ctx, relaxedQuery, &debug)
		if err != nil {
			return retrieval.Output{Debug: debug}, nil
		}
	}

	cands = dedupeByCanonicalURL(cands)
	debug.ParsedCount = len(cands)
	return retrieval.Output{Cases: cands, Debug: debug}, nil
}

// SiteSnippets issues a site-restricted query for c's title and collects
// organic snippets, used by the verifier as the last-resort evidence
// source when both the primary detail URL and every alternate fail (spec
// §4.8: "issue a web-search query restricted to the source site, collect
// >=MIN_SNIPPETS snippets").
func (c *Client) SiteSnippets(ctx context.Context, cand models.CaseCandidate, min int) ([]string, error) {
	query := fmt.Sprintf("site:%s %q", c.cfg.SiteDomain, cand.Title)
	debug := retrieval.Debug{SourceTag: c.Name()}
	cands, err := c.runQuery(ctx, query, &debug)
	if err != nil {
		return nil, err
	}
	snippets := make([]string, 0, len(cands))
	for _, cd := range cands {
		if cd.Snippet != "" {
			snippets = append(snippets, cd.Snippet)
		}
	}
	if len(snippets) < min {
		return snippets, fmt.Errorf("websearch: only %d snippets, need %d", len(snippets), min)
	}
	return snippets, nil
}

func (c *Client) runQuery(ctx context.Context, query string, debug *retrieval.Debug) ([]models.CaseCandidate, error) {
	cacheKey := "websearch:v1:" + query
	if cached, ok := cache.GetValue[[]organicResult](ctx, c.cache, cacheKey); ok {
		return toCandidates(cached), nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.HTTPTimeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s?q=%s", c.cfg.Endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			debug.TimedOut = true
		}
		return nil, err
	}
	defer resp.Body.Close()
	debug.HTTPStatus = resp.StatusCode

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 20 * time.Second
		c.cooldown.Set(scope, retryAfter, retrieval.BlockedRateLimit)
		debug.RateLimited = true
		debug.RetryAfter = retryAfter
		debug.BlockedType = retrieval.BlockedRateLimit
		return nil, fmt.Errorf("websearch: rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("websearch: unexpected status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	debug.RawCount += len(parsed.Organic)

	if len(parsed.Organic) > 0 {
		_ = cache.SetValue(ctx, c.cache, cacheKey, parsed.Organic, cacheTTLSec)
	}
	return toCandidates(parsed.Organic), nil
}

func toCandidates(results []organicResult) []models.CaseCandidate {
	out := make([]models.CaseCandidate, 0, len(results))
	for _, r := range results {
		if r.Link == "" {
			continue
		}
		out = append(out, models.CaseCandidate{
			Source:  models.SourceWebSearch,
			Title:   r.Title,
			URL:     r.Link,
			Snippet: r.Snippet,
			Retrieval: models.RetrievalMeta{
				SourceTags: []string{string(models.SourceWebSearch)},
			},
		})
	}
	return out
}

func canonicalDocURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

func dedupeByCanonicalURL(cands []models.CaseCandidate) []models.CaseCandidate {
	seen := make(map[string]bool, len(cands))
	out := make([]models.CaseCandidate, 0, len(cands))
	for _, c := range cands {
		key := canonicalDocURL(c.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

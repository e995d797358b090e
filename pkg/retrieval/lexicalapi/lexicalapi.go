// Package lexicalapi implements the structured-query JSON API provider
// (spec §4.6 "Lexical API provider").
package lexicalapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"caselaw-retrieval/internal/concurrency"
	"caselaw-retrieval/pkg/models"
	"caselaw-retrieval/pkg/retrieval"
)

const scope = "lexical_api"

// nonJudgmentTitleMarkers flags rows that are statutes/bare acts rather
// than judgments, filtered out per spec §4.6.
var nonJudgmentTitleMarkers = []string{"the indian", "act, 19", "act, 20", "bare act", "rules, 19", "rules, 20"}

// Config configures the client's endpoint and enrichment behaviour.
type Config struct {
	BaseURL           string
	HTTPTimeout       time.Duration
	DetailConcurrency int
	EnrichTopN        int
	HybridEnabled     bool
	HybridShadow      bool
}

// HybridSearchFunc delegates a compiled phrase to the hybrid search engine,
// injected by the pipeline to avoid an import cycle between lexicalapi and
// hybrid (spec §4.6: "when hybrid is enabled... delegates to hybrid
// search").
type HybridSearchFunc func(ctx context.Context, variant models.QueryVariant, maxResults int) (retrieval.Output, error)

// Client issues requests against the source index JSON API.
type Client struct {
	cfg      Config
	http     *http.Client
	cooldown *retrieval.CooldownTracker
	hybrid   HybridSearchFunc
}

// New builds a client. hybrid may be nil when hybrid search is disabled.
func New(cfg Config, cooldown *retrieval.CooldownTracker, hybrid HybridSearchFunc) *Client {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 8 * time.Second
	}
	if cfg.DetailConcurrency == 0 {
		cfg.DetailConcurrency = 4
	}
	if cfg.EnrichTopN == 0 {
		cfg.EnrichTopN = 10
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.HTTPTimeout}, cooldown: cooldown, hybrid: hybrid}
}

// Name identifies the provider for debug/source tagging.
func (c *Client) Name() string { return string(models.SourceLexicalAPI) }

type rawRow struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	Snippet      string `json:"snippet"`
	Court        string `json:"court"`
	Author       string `json:"author"`
	Bench        string `json:"bench"`
	DocFragment  string `json:"docfragment"`
	DocID        string `json:"docid"`
	CitesCount   int    `json:"numcites"`
	CitedByCount int    `json:"citedby"`
	Doctype      string `json:"doctype"`
}

type rawResponse struct {
	Docs []rawRow `json:"docs"`
}

// Search issues a structured query and normalises rows into candidates.
func (c *Client) Search(ctx context.Context, in retrieval.Input) (retrieval.Output, error) {
	debug := retrieval.Debug{SourceTag: c.Name()}
	if blocked, ok := c.cooldown.Blocked(scope); ok {
		debug.BlockedType = blocked
		return retrieval.Output{Debug: debug}, nil
	}

	if c.cfg.HybridEnabled && c.hybrid != nil {
		out, err := c.hybrid(ctx, in.Variant, in.MaxResults)
		if c.cfg.HybridShadow {
			// shadow-capture: lexical stays authoritative, hybrid counts merge into debug only.
			primary, perr := c.searchLexical(ctx, in, &debug)
			primary.Debug.ParsedCount += len(out.Cases)
			return primary, perr
		}
		return out, err
	}

	return c.searchLexical(ctx, in, &debug)
}

func (c *Client) searchLexical(ctx context.Context, in retrieval.Input, debug *retrieval.Debug) (retrieval.Output, error) {
	query := CompileQuery(in.Variant)
	debug.CompiledQuery = query

	reqCtx, cancel := context.WithTimeout(ctx, in.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/search?formInput=%s", c.cfg.BaseURL, escapeQuery(query))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return retrieval.Output{Debug: *debug}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			debug.TimedOut = true
			return retrieval.Output{Debug: *debug}, nil
		}
		return retrieval.Output{Debug: *debug}, err
	}
	defer resp.Body.Close()
	debug.HTTPStatus = resp.StatusCode

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		c.cooldown.Set(scope, retryAfter, retrieval.BlockedRateLimit)
		debug.RateLimited = true
		debug.RetryAfter = retryAfter
		debug.BlockedType = retrieval.BlockedRateLimit
		return retrieval.Output{Debug: *debug}, nil
	}

	var parsed rawResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return retrieval.Output{Debug: *debug}, nil
	}
	debug.RawCount = len(parsed.Docs)

	candidates := make([]models.CaseCandidate, 0, len(parsed.Docs))
	for _, row := range parsed.Docs {
		if isLikelyStatute(row.Title) {
			continue
		}
		cites, citedBy := row.CitesCount, row.CitedByCount
		candidates = append(candidates, models.CaseCandidate{
			Source:       models.SourceLexicalAPI,
			Title:        row.Title,
			URL:          row.URL,
			Snippet:      row.Snippet,
			Court:        resolveCourt(row.Court),
			CourtText:    row.Court,
			Author:       row.Author,
			Bench:        row.Bench,
			CitesCount:   &cites,
			CitedByCount: &citedBy,
			Retrieval: models.RetrievalMeta{
				SourceTags:    []string{string(models.SourceLexicalAPI)},
				SourceVersion: "v1",
			},
		})
	}
	debug.ParsedCount = len(candidates)

	enrichTopN := c.cfg.EnrichTopN
	if enrichTopN > len(candidates) {
		enrichTopN = len(candidates)
	}
	c.enrich(ctx, candidates[:enrichTopN])

	return retrieval.Output{Cases: candidates, Debug: *debug}, nil
}

// enrich hydrates the top-N candidates' bench and author via the docmeta
// endpoint, bounded by DetailConcurrency. The docfragment endpoint is not
// called.
func (c *Client) enrich(ctx context.Context, top []models.CaseCandidate) {
	if len(top) == 0 {
		return
	}
	pool := concurrency.NewWorkerPool(c.cfg.DetailConcurrency)
	_ = pool.Run(ctx, len(top), func(ctx context.Context, i int) error {
		meta, err := c.fetchDocMeta(ctx, top[i].URL)
		if err != nil {
			return err
		}
		if meta.Bench != "" {
			top[i].Bench = meta.Bench
		}
		if meta.Author != "" {
			top[i].Author = meta.Author
		}
		return nil
	})
}

type docMeta struct {
	Bench  string `json:"bench"`
	Author string `json:"author"`
}

func (c *Client) fetchDocMeta(ctx context.Context, docURL string) (docMeta, error) {
	reqURL := fmt.Sprintf("%s/docmeta?doc=%s", c.cfg.BaseURL, escapeQuery(docURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return docMeta{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return docMeta{}, err
	}
	defer resp.Body.Close()
	var meta docMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return docMeta{}, nil
	}
	return meta, nil
}

func resolveCourt(courtText string) models.Court {
	lower := strings.ToLower(courtText)
	switch {
	case strings.Contains(lower, "supreme"):
		return models.CourtResolvedSC
	case strings.Contains(lower, "high court"):
		return models.CourtResolvedHC
	default:
		return models.CourtResolvedUnknown
	}
}

func isLikelyStatute(title string) bool {
	lower := strings.ToLower(title)
	for _, m := range nonJudgmentTitleMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func escapeQuery(q string) string {
	return strings.ReplaceAll(strings.TrimSpace(q), " ", "+")
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 30 * time.Second
	}
	if secs, err := time.ParseDuration(header + "s"); err == nil {
		return secs
	}
	return 30 * time.Second
}

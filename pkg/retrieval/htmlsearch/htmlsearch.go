// Package htmlsearch implements the HTML-scraping provider (spec §4.6
// "HTML provider"): builds a search URL, walks result pages within a
// wall-clock budget, detects Cloudflare challenges and 429s, and parses
// result containers with four fallback parser modes.
package htmlsearch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"caselaw-retrieval/pkg/models"
	"caselaw-retrieval/pkg/retrieval"
)

const scope = "html"

// parserModes are tried in order until one yields at least one result
// container (spec §4.6: "parses result containers (four parser-mode
// fallbacks)").
var parserModes = []string{"result_table", "result_card", "result_list_item", "generic_anchor_block"}

var weakTitleMarkers = []string{"act, 19", "act, 20", "bare act", "the indian"}

// Config configures the page-walk budget and client.
type Config struct {
	BaseURL     string
	HTTPTimeout time.Duration
	MaxPages    int
	PageBudget  time.Duration
}

// Client walks the HTML search surface.
type Client struct {
	cfg      Config
	http     *http.Client
	cooldown *retrieval.CooldownTracker
}

// New builds a client.
func New(cfg Config, cooldown *retrieval.CooldownTracker) *Client {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 8 * time.Second
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = 3
	}
	if cfg.PageBudget == 0 {
		cfg.PageBudget = 6 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.HTTPTimeout}, cooldown: cooldown}
}

// Name identifies the provider.
func (c *Client) Name() string { return string(models.SourceHTML) }

// Search walks up to MaxPages pages within PageBudget, parsing each with the
// first parser mode that yields results.
func (c *Client) Search(ctx context.Context, in retrieval.Input) (retrieval.Output, error) {
	debug := retrieval.Debug{SourceTag: c.Name(), CompiledQuery: in.Variant.Phrase}
	if blocked, ok := c.cooldown.Blocked(scope); ok {
		debug.BlockedType = blocked
		return retrieval.Output{Debug: debug}, nil
	}

	deadline := time.Now().Add(c.cfg.PageBudget)
	var seen = make(map[string]bool)
	var candidates []models.CaseCandidate

	for page := 1; page <= c.cfg.MaxPages; page++ {
		if time.Now().After(deadline) {
			break
		}
		pageCtx, cancel := context.WithTimeout(ctx, c.cfg.HTTPTimeout)
		doc, status, err := c.fetchPage(pageCtx, in.Variant.Phrase, page)
		cancel()
		debug.PagesScanned = page

		if err != nil {
			if pageCtx.Err() != nil {
				debug.TimedOut = true
			}
			break
		}
		debug.HTTPStatus = status
		if status == http.StatusTooManyRequests {
			retryAfter := 30 * time.Second
			c.cooldown.Set(scope, retryAfter, retrieval.BlockedRateLimit)
			debug.RateLimited = true
			debug.RetryAfter = retryAfter
			debug.BlockedType = retrieval.BlockedRateLimit
			break
		}
		if doc == nil {
			continue
		}
		if isCloudflareChallenge(doc) {
			c.cooldown.Set(scope, 60*time.Second, retrieval.BlockedCloudflare)
			debug.Cloudflare = true
			debug.Challenge = true
			debug.BlockedType = retrieval.BlockedCloudflare
			break
		}
		if isNoMatchPage(doc) {
			debug.NoMatch = true
			break
		}

		pageCandidates, mode := parseWithFallbacks(doc)
		if mode != "" {
			debug.ParserMode = mode
		}
		debug.RawCount += len(pageCandidates)
		for _, cand := range pageCandidates {
			if cand.URL == "" || seen[cand.URL] || isWeakTitle(cand.Title) {
				continue
			}
			seen[cand.URL] = true
			candidates = append(candidates, cand)
		}
		if len(pageCandidates) == 0 {
			break
		}
	}
	debug.ParsedCount = len(candidates)
	return retrieval.Output{Cases: candidates, Debug: debug}, nil
}

func (c *Client) fetchPage(ctx context.Context, phrase string, page int) (*goquery.Document, int, error) {
	url := fmt.Sprintf("%s/search/?formInput=%s&pagenum=%d", c.cfg.BaseURL, escapeQuery(phrase), page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return doc, resp.StatusCode, nil
}

func isCloudflareChallenge(doc *goquery.Document) bool {
	title := strings.ToLower(doc.Find("title").First().Text())
	if strings.Contains(title, "just a moment") || strings.Contains(title, "attention required") {
		return true
	}
	body := strings.ToLower(doc.Text())
	if strings.Contains(body, "cf-chl") || strings.Contains(body, "cloudflare") {
		return true
	}
	return doc.Find("#cf-challenge-running, .cf-browser-verification").Length() > 0
}

// isNoMatchPage detects the "no matching results" page body (spec §8
// testable property 8).
func isNoMatchPage(doc *goquery.Document) bool {
	return strings.Contains(strings.ToLower(doc.Text()), "no matching results")
}

// parseWithFallbacks tries each parser mode in order, returning the first
// that yields at least one candidate.
func parseWithFallbacks(doc *goquery.Document) ([]models.CaseCandidate, string) {
	for _, mode := range parserModes {
		cands := parseMode(doc, mode)
		if len(cands) > 0 {
			return cands, mode
		}
	}
	return nil, ""
}

func parseMode(doc *goquery.Document, mode string) []models.CaseCandidate {
	var selector string
	switch mode {
	case "result_table":
		selector = "table.result_table tr td.result_title a"
	case "result_card":
		selector = "div.result_card a.title"
	case "result_list_item":
		selector = "ul.results li a"
	default: // generic_anchor_block
		selector = "div#results a"
	}

	var out []models.CaseCandidate
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		title := strings.TrimSpace(s.Text())
		if title == "" {
			return
		}
		snippet := strings.TrimSpace(s.Closest("div").Find(".snippet").Text())
		out = append(out, models.CaseCandidate{
			Source:  models.SourceHTML,
			Title:   title,
			URL:     href,
			Snippet: snippet,
			Retrieval: models.RetrievalMeta{
				SourceTags: []string{string(models.SourceHTML), mode},
			},
		})
	})
	return out
}

func isWeakTitle(title string) bool {
	lower := strings.ToLower(title)
	if len(strings.Fields(lower)) < 2 {
		return true
	}
	for _, m := range weakTitleMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func escapeQuery(q string) string {
	return strings.ReplaceAll(strings.TrimSpace(q), " ", "+")
}

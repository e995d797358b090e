// Package verifier hydrates top-N retrieval candidates with detail-page
// evidence (spec §4.8 "Verifier"): detail caching keyed by URL only (there
// is no separate per-docId cache entry),
// direct-then-alternate URL fetch with bounded retry, hybrid-hint and
// snippet-search fallbacks, and evidence-quality scoring from the
// hydrated text.
package verifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"caselaw-retrieval/pkg/errs"
)

// DetailResult is the outcome of successfully hydrating one URL.
type DetailResult struct {
	Title      string
	CourtText  string
	DetailText string
}

// Fetcher retrieves and parses one detail page. Implementations classify
// failures by errs.Kind so callers branch on kind, never on message text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (DetailResult, error)
}

// HTTPFetcher is the default Fetcher, grounded on the same goquery
// document-parsing idiom the HTML provider uses for result pages, applied
// here to an individual judgment's detail page.
type HTTPFetcher struct {
	HTTP *http.Client
}

// NewHTTPFetcher builds an HTTPFetcher with the given timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	return &HTTPFetcher{HTTP: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (DetailResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return DetailResult{}, errs.Wrap(errs.KindNetwork, "build detail request", err)
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return DetailResult{}, errs.Wrap(errs.KindTimeout, "detail fetch timed out", err)
		}
		return DetailResult{}, errs.Wrap(errs.KindNetwork, "detail fetch failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusForbidden:
		return DetailResult{}, errs.New(errs.KindHTTP403, "detail fetch forbidden")
	case http.StatusTooManyRequests:
		return DetailResult{}, errs.New(errs.KindHTTP429, "detail fetch rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		return DetailResult{}, errs.New(errs.KindNetwork, fmt.Sprintf("detail fetch status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return DetailResult{}, errs.Wrap(errs.KindParseEmpty, "detail parse failed", err)
	}

	title := strings.TrimSpace(doc.Find("h1, .doc_title, title").First().Text())
	courtText := strings.TrimSpace(doc.Find(".docsource_main, .court").First().Text())
	body := strings.TrimSpace(doc.Find("div.judgments, #doc-content, body").First().Text())

	if body == "" {
		return DetailResult{}, errs.New(errs.KindParseEmpty, "detail page had no usable evidence")
	}
	return DetailResult{Title: title, CourtText: courtText, DetailText: body}, nil
}

// isTransient reports whether a fetch error should be retried with bounded
// backoff rather than cached as a permanent failure (spec §4.8 step 2).
func isTransient(kind errs.Kind) bool {
	return kind == errs.KindTimeout || kind == errs.KindNetwork
}

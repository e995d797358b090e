package verifier

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"caselaw-retrieval/pkg/models"
)

// AlternateResolver produces candidate alternate detail URLs when the
// primary URL fails permanently, and (for the highest-ranked misses) tries
// a hint-based resolution against a secondary surface.
type AlternateResolver interface {
	Alternates(c models.CaseCandidate) []string
	ResolveByHint(ctx context.Context, c models.CaseCandidate) (string, bool)
}

// HybridAlternateResolver derives alternates from the candidate's own URL
// shape (doc-id substitution, fragment stripping) and falls back to a
// hybrid-search re-query keyed on title+court for hint resolution (spec
// §4.8: "hybrid-hint fallback").
type HybridAlternateResolver struct {
	// Hybrid, when non-nil, is consulted by ResolveByHint for the
	// highest-ranked misses (spec's hybrid-fallback cutoff).
	Hybrid func(ctx context.Context, titleAndCourt string) (string, bool)
}

// Alternates returns plausible alternate URLs for c: the canonical
// fragment-stripped form, and (if the URL encodes a doc id) the
// "/doc/<id>/" canonical judgment path.
func (r *HybridAlternateResolver) Alternates(c models.CaseCandidate) []string {
	var out []string
	if stripped := stripFragmentAndQuery(c.URL); stripped != "" && stripped != c.URL {
		out = append(out, stripped)
	}
	if id := extractDocID(c.URL); id != "" {
		if u, err := url.Parse(c.URL); err == nil {
			canon := fmt.Sprintf("%s://%s/doc/%s/", u.Scheme, u.Host, id)
			out = append(out, canon)
		}
	}
	if c.FullDocumentURL != "" && c.FullDocumentURL != c.URL {
		out = append(out, c.FullDocumentURL)
	}
	return out
}

// ResolveByHint asks the hybrid re-query (when wired) to locate the
// candidate by title+court instead of its broken URL.
func (r *HybridAlternateResolver) ResolveByHint(ctx context.Context, c models.CaseCandidate) (string, bool) {
	if r.Hybrid == nil {
		return "", false
	}
	hint := strings.TrimSpace(c.Title + " " + string(c.Court))
	if hint == "" {
		return "", false
	}
	return r.Hybrid(ctx, hint)
}

func stripFragmentAndQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.Fragment = ""
	u.RawQuery = ""
	return u.String()
}

// extractDocID pulls the numeric/opaque id out of a "/doc/<id>/" style
// path, the canonical judgment-permalink shape on the indexed surface.
func extractDocID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "doc" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

package models

// ProviderSource identifies which retrieval provider produced a candidate.
type ProviderSource string

const (
	SourceLexicalAPI ProviderSource = "lexical_api"
	SourceHTML       ProviderSource = "html"
	SourceWebSearch  ProviderSource = "web_search"
	SourceHybrid     ProviderSource = "hybrid"
)

// RetrievalMeta records provenance for a candidate.
type RetrievalMeta struct {
	SourceTags    []string
	SourceVersion string
	RerankScore   *float64
}

// DetailHydration records how (and whether) a candidate's detail page was
// hydrated.
type DetailHydration struct {
	Attempted     bool
	Succeeded     bool
	Method        string // direct | alternate_url | hint_resolution | snippet_fallback | cache
	FromCache     bool
	ErrorKind     string
}

// EvidenceQuality summarises what kinds of supporting sentences were found
// in a candidate's detail text.
type EvidenceQuality struct {
	HasRelationSentence      bool
	HasPolaritySentence      bool
	HasHookIntersection      bool
	HasRoleSentence          bool
	HasChainSentence         bool
}

// Classification is the classifier's label for a candidate.
type Classification string

const (
	ClassCase    Classification = "case"
	ClassStatute Classification = "statute"
	ClassOther   Classification = "other"
)

// CaseCandidate is a retrieval result, progressively enriched by
// classification, verification, scoring and gating. URL is the primary
// identity.
type CaseCandidate struct {
	Source          ProviderSource
	Title           string
	URL             string
	Snippet         string
	Court           Court
	CourtText       string
	CitesCount      *int
	CitedByCount    *int
	Author          string
	Bench           string
	DecisionDate    string // best-effort YYYY-MM-DD, extracted during verification
	FullDocumentURL string
	DetailText      string
	DetailArtifact  string
	EvidenceQuality *EvidenceQuality
	DetailHydration *DetailHydration
	Classification  Classification
	Retrieval       RetrievalMeta

	// FallbackReason is set when this candidate was recalled from the
	// stale-fallback cache rather than produced by this request's own
	// retrieval run (spec §7: "stale_cache").
	FallbackReason string
}

// Fingerprint returns a stable identity for diversification: court +
// normalised title + DecisionDate folded into one string. Diversify uses
// the string itself as the maxPerFingerprint map key.
func (c CaseCandidate) Fingerprint() string {
	return string(c.Court) + "|" + normalizeForFingerprint(c.Title) + "|" + c.DecisionDate
}

// CourtDay returns the court+date grouping key used by maxPerCourtDay
// diversification. Candidates with no known date fall back to their court
// alone, so they still participate in the cap rather than bypassing it.
func (c CaseCandidate) CourtDay() string {
	return string(c.Court) + "|" + c.DecisionDate
}

func normalizeForFingerprint(s string) string {
	out := make([]rune, 0, len(s))
	prevSpace := false
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+32)
			prevSpace = false
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			out = append(out, r)
			prevSpace = false
		default:
			if !prevSpace {
				out = append(out, ' ')
				prevSpace = true
			}
		}
	}
	return string(out)
}

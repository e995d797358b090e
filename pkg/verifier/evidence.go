package verifier

import (
	"regexp"
	"strings"

	"caselaw-retrieval/pkg/legaltext"
	"caselaw-retrieval/pkg/models"
)

// decisionDateRe matches the "Dated the 12th day of March, 2020" / "Date of
// decision: 12.03.2020" forms seen on judgment detail pages. It is a
// best-effort signal for diversification, not a parsed calendar date.
var decisionDateRe = regexp.MustCompile(`(?i)(?:date[d]? (?:of (?:decision|judgment|order))?:?\s*)(\d{1,2}[./-]\d{1,2}[./-]\d{2,4}|(?:the\s+)?\d{1,2}(?:st|nd|rd|th)?\s+(?:day\s+of\s+)?\w+,?\s+\d{4})`)

// ExtractDecisionDate finds a best-effort decision date in detail text, or
// "" if none is recognisable.
func ExtractDecisionDate(detailText string) string {
	m := decisionDateRe.FindStringSubmatch(detailText)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

var relationTerms = []string{"in relation to", "pursuant to", "applies to", "under section", "read with"}
var roleTerms = []string{"appellant", "respondent", "petitioner", "accused", "complainant", "applicant"}
var chainTerms = []string{"therefore", "consequently", "in view of the above", "accordingly", "it follows"}

// hookCueTerms groups cue words by hook family (section, article, bail,
// limitation, quashing), used to detect whether a single sentence mentions
// more than one distinct hook (spec's "hook intersection" evidence signal).
var hookCueTerms = [][]string{
	{"section", "sec.", "u/s"},
	{"article"},
	{"bail", "anticipatory bail"},
	{"limitation"},
	{"quash", "quashing"},
}

// EvaluateEvidence scores the hydrated detail text for the sentence-level
// signals the proposition gate and scorer consume (spec §4.8: relation,
// polarity, hook-intersection, role and chain sentences).
func EvaluateEvidence(detailText string) models.EvidenceQuality {
	if detailText == "" {
		return models.EvidenceQuality{}
	}
	sentences := splitSentences(detailText)

	var q models.EvidenceQuality
	for _, s := range sentences {
		low := strings.ToLower(s)
		if !q.HasRelationSentence && legaltext.ContainsAny(low, relationTerms) {
			q.HasRelationSentence = true
		}
		if !q.HasPolaritySentence && legaltext.HasExplicitDisposition(low) {
			q.HasPolaritySentence = true
		}
		if !q.HasRoleSentence && legaltext.ContainsAny(low, roleTerms) {
			q.HasRoleSentence = true
		}
		if !q.HasChainSentence && legaltext.ContainsAny(low, chainTerms) {
			q.HasChainSentence = true
		}
		if !q.HasHookIntersection && sentenceHasHookIntersection(low) {
			q.HasHookIntersection = true
		}
	}
	return q
}

// sentenceHasHookIntersection reports whether one sentence mentions cues
// from at least two distinct hook families.
func sentenceHasHookIntersection(lowerSentence string) bool {
	hits := 0
	for _, cues := range hookCueTerms {
		if legaltext.ContainsAny(lowerSentence, cues) {
			hits++
		}
	}
	return hits >= 2
}

// splitSentences splits on sentence-ending punctuation, a cheap but
// adequate boundary for detail-page prose (legal judgments are long-form
// text, not dialogue).
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '\n' {
			if s := strings.TrimSpace(text[start:i]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

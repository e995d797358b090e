// Package classifier labels retrieval candidates as case, statute or other
// using title/snippet heuristics (spec §4.8). Only candidates classified as
// "case" proceed to scoring.
package classifier

import (
	"regexp"
	"strings"

	"caselaw-retrieval/pkg/models"
)

// vPatternRe matches the "Party v. Party" / "Party vs Party" case-title
// shape.
var vPatternRe = regexp.MustCompile(`(?i)\b[a-z][a-z .&']{2,60}\bv[s.]{0,2}\.?\s+[a-z][a-z .&']{2,60}\b`)

var partyMarkers = []string{"appellant", "respondent", "petitioner", "accused", "complainant"}

// statutePhraseMarkers flags titles/snippets that read as a bare statute or
// notification rather than a judgment.
var statutePhraseMarkers = []string{
	"the indian", "act, 19", "act, 20", "bare act", "rules, 19", "rules, 20",
	"amendment act", "notification no", "gazette of india",
}

// Classify labels one candidate using title+snippet heuristics.
func Classify(c models.CaseCandidate) models.Classification {
	text := strings.ToLower(c.Title + " " + c.Snippet)

	if looksLikeStatute(text) {
		return models.ClassStatute
	}
	if looksLikeCase(c.Title, text) {
		return models.ClassCase
	}
	return models.ClassOther
}

func looksLikeCase(title, lowerText string) bool {
	if vPatternRe.MatchString(title) {
		return true
	}
	for _, m := range partyMarkers {
		if strings.Contains(lowerText, m) {
			return true
		}
	}
	return false
}

func looksLikeStatute(lowerText string) bool {
	for _, m := range statutePhraseMarkers {
		if strings.Contains(lowerText, m) {
			return true
		}
	}
	return false
}

// ClassifyAll labels every candidate in place, returning the same slice.
func ClassifyAll(cands []models.CaseCandidate) []models.CaseCandidate {
	for i := range cands {
		cands[i].Classification = Classify(cands[i])
	}
	return cands
}

// FilterCases returns only the candidates classified as "case" (spec §4.8:
// "Only case proceeds to scoring").
func FilterCases(cands []models.CaseCandidate) []models.CaseCandidate {
	out := make([]models.CaseCandidate, 0, len(cands))
	for _, c := range cands {
		if c.Classification == models.ClassCase {
			out = append(out, c)
		}
	}
	return out
}

// Package intent turns a raw query into a structured models.IntentProfile
// (spec §4.2): cleans the query, matches closed-set actor/procedure/issue
// dictionaries, extracts statutory references and transition aliases, infers
// a court hint, and builds bounded anchor terms.
package intent

import (
	"strings"

	"caselaw-retrieval/pkg/legaltext"
	"caselaw-retrieval/pkg/models"
)

const maxAnchors = 24

// actorDictionary, procedureDictionary and issueDictionary are closed sets of
// Indian-law phrases matched against the cleaned query. They are compiled
// once here rather than built per-request.
var actorDictionary = []string{
	"state", "accused", "appellant", "respondent", "complainant",
	"prosecution", "petitioner", "public servant", "investigating officer",
}

var procedureDictionary = []string{
	"criminal appeal", "discharge", "acquittal", "bail", "quashing",
	"revision", "anticipatory bail", "charge framing", "sanction",
	"condonation of delay", "limitation", "review petition",
}

var issueDictionary = []string{
	"corruption", "bribery", "disproportionate assets", "abetment",
	"criminal breach of trust", "cheating", "forgery", "sedition",
	"dowry death", "murder", "rape",
}

var courtMarkers = map[models.CourtHint][]string{
	models.CourtSC: {"supreme court", "apex court"},
	models.CourtHC: {"high court"},
}

// Extract builds an IntentProfile from a raw query string.
func Extract(raw string) models.IntentProfile {
	cleaned := legaltext.CleanQuery(raw)

	domains := matchDictionary(cleaned, issueDictionary)
	issues := domains
	procedures := matchDictionary(cleaned, procedureDictionary)
	actors := matchDictionary(cleaned, actorDictionary)

	refs := legaltext.ExtractLegalReferences(cleaned)
	statutes := make([]string, 0, len(refs))
	sections := make([]string, 0, len(refs))
	for _, r := range refs {
		statutes = append(statutes, r.Raw)
		if r.Kind == "section" {
			sections = append(sections, r.Number)
		}
	}
	statutes = applyTransitionAliases(statutes, cleaned)

	courtHint := models.CourtAny
	for hint, markers := range courtMarkers {
		if legaltext.ContainsAny(cleaned, markers) {
			courtHint = hint
			break
		}
	}

	anchors := legaltext.Dedup(append(append(append([]string{}, statutes...), procedures...), append(actors, issues...)...))
	anchors = legaltext.Truncate(anchors, maxAnchors)

	return models.IntentProfile{
		CleanedQuery: cleaned,
		Domains:      domains,
		Issues:       issues,
		Procedures:   procedures,
		Actors:       actors,
		Statutes:     statutes,
		Anchors:      anchors,
		Entities: models.EntitySet{
			Section: sections,
		},
		RetrievalIntent: models.RetrievalIntent{
			DoctypeProfile: string(models.DoctypeJudgmentsSCHCTribunal),
		},
		CourtHint: courtHint,
	}
}

func matchDictionary(text string, dict []string) []string {
	var out []string
	for _, term := range dict {
		if strings.Contains(text, term) {
			out = append(out, term)
		}
	}
	return out
}

func applyTransitionAliases(statutes []string, cleaned string) []string {
	out := append([]string{}, statutes...)
	aliases := legaltext.TransitionAliases()
	for _, s := range statutes {
		for key, aliasList := range aliases {
			if strings.Contains(strings.ToLower(s), key) {
				out = append(out, aliasList...)
			}
		}
	}
	queryWords := " " + strings.Join(legaltext.Tokenize(cleaned), " ") + " "
	for key, aliasList := range aliases {
		if strings.Contains(queryWords, " "+key+" ") {
			out = append(out, aliasList...)
		}
	}
	return legaltext.Dedup(out)
}

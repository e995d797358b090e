// Package legaltext holds the regex-driven text utilities shared by intent
// extraction, the planner, canonicalisation and the proposition gate:
// tokenisation, normalisation, legal-reference parsing, disjunction
// detection, HTML stripping and term overlap/proximity helpers. Patterns
// are compiled once at package init and reused across requests, never
// recompiled per call (spec §9).
package legaltext

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	htmlTagRe      = regexp.MustCompile(`<[^>]*>`)
	sectionRe      = regexp.MustCompile(`(?i)\bsection\s+(\d+[a-z]?)(?:\s*\(([^)]+)\))?\s*(?:of\s+)?([a-z][a-z .,&']{2,60}?(?:act|code)\b)?`)
	articleRe      = regexp.MustCompile(`(?i)\barticle\s+(\d+[a-z]?)`)
	citationRe     = regexp.MustCompile(`(?i)\b(\d{4})\s+(\d+\s+)?(scc|air|all\s?er|scr)\b[^.;,]{0,20}`)
	disjunctionRe  = regexp.MustCompile(`(?i)\b(or|either|alternatively)\b`)
	appellantRoleRe  = regexp.MustCompile(`(?i)\b(appellant|petitioner|revisionist|preferred\s+(?:an?\s+)?appeal)\b`)
	respondentRoleRe = regexp.MustCompile(`(?i)\b(respondent|accused|opposite\s+party)\b`)
	vsRe             = regexp.MustCompile(`(?i)\bv(?:s\.?|ersus)\b`)
	dispositionVerbsRe = regexp.MustCompile(`(?i)\b(condon(?:e|ed|ing)?|quash(?:ed|ing)?|dismiss(?:ed|ing)?|refus(?:e|ed|ing)?|allow(?:ed|ing)?|restor(?:e|ed|ing)?|upheld|uphold(?:ing)?)\b`)
	openEndedRe    = regexp.MustCompile(`(?i)\b(whether|can|could|if)\b`)
)

// leadingVerbs are stripped from the start of a raw query during cleaning.
var leadingVerbs = []string{
	"find", "show", "please", "get", "search for", "look for",
	"cases where", "precedents where", "precedents on", "precedent for",
}

// transitionAliases maps an old-regime reference to its modern counterpart
// and vice versa (CrPC↔BNSS, PC Act↔Prevention of Corruption Act).
var transitionAliases = map[string][]string{
	"crpc":                       {"bnss"},
	"bnss":                       {"crpc"},
	"ipc":                        {"bns"},
	"bns":                        {"ipc"},
	"pc act":                     {"prevention of corruption act"},
	"prevention of corruption act": {"pc act"},
}

// TransitionAliases exposes the alias table read-only.
func TransitionAliases() map[string][]string {
	return transitionAliases
}

// Normalize lowercases and collapses runs of whitespace.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespaceRe.ReplaceAllString(s, " ")
}

// StripHTML removes tags, leaving plain text with collapsed whitespace.
func StripHTML(s string) string {
	return Normalize(htmlTagRe.ReplaceAllString(s, " "))
}

// CleanQuery lowercases, collapses whitespace and strips leading
// user-mode verbs ("find", "show", "please", "cases where", …).
func CleanQuery(raw string) string {
	s := Normalize(raw)
	changed := true
	for changed {
		changed = false
		for _, v := range leadingVerbs {
			if strings.HasPrefix(s, v+" ") {
				s = strings.TrimSpace(strings.TrimPrefix(s, v+" "))
				changed = true
			}
		}
	}
	return s
}

// LegalReference is one parsed statutory hook.
type LegalReference struct {
	Kind    string // section | article | citation
	Number  string
	Sub     string
	ActName string
	Raw     string
}

// ExtractLegalReferences finds Section N(sub) of Act, Article N, and
// AIR/SCC-style citations in cleaned text.
func ExtractLegalReferences(text string) []LegalReference {
	var refs []LegalReference
	for _, m := range sectionRe.FindAllStringSubmatch(text, -1) {
		refs = append(refs, LegalReference{Kind: "section", Number: m[1], Sub: m[2], ActName: strings.TrimSpace(m[3]), Raw: strings.TrimSpace(m[0])})
	}
	for _, m := range articleRe.FindAllStringSubmatch(text, -1) {
		refs = append(refs, LegalReference{Kind: "article", Number: m[1], Raw: strings.TrimSpace(m[0])})
	}
	for _, m := range citationRe.FindAllString(text, -1) {
		refs = append(refs, LegalReference{Kind: "citation", Raw: strings.TrimSpace(m)})
	}
	return refs
}

// HasDisjunction reports whether the text contains an explicit disjunction
// marker ("or", "either", "alternatively").
func HasDisjunction(text string) bool {
	return disjunctionRe.MatchString(text)
}

// HasExplicitDisposition reports whether the text names a concrete
// disposition verb (condoned, quashed, dismissed, refused, allowed,
// restored, upheld).
func HasExplicitDisposition(text string) bool {
	return dispositionVerbsRe.MatchString(text)
}

// IsOpenEndedQuestion reports whether the text reads as an open-ended
// question about a disposition (contains whether|can|could|if plus a
// disposition verb) without naming the actual disposition reached.
func IsOpenEndedQuestion(text string) bool {
	return openEndedRe.MatchString(text) && dispositionVerbsRe.MatchString(text)
}

// prosecutionActors side with the State; respondentActors side with the
// accused. Used to correlate an actor phrase with the procedural role
// spec §4.9 names, once the proceeding text shows the pattern it names
// ("vs", "appellant:", "preferred appeal").
var (
	prosecutionActors = []string{"state", "prosecution", "complainant"}
	respondentActors  = []string{"accused", "respondent", "opposite party"}
)

// DetectActorRole infers the procedural role (appellant/respondent/
// prosecution) for an actor from the proceeding text. It reports ok=false
// when no pattern correlates the actor with any role.
func DetectActorRole(actor, proceedingsText string) (role string, ok bool) {
	actor = strings.ToLower(strings.TrimSpace(actor))
	if actor == "" {
		return "", false
	}
	switch {
	case containsWord(actor, prosecutionActors):
		if appellantRoleRe.MatchString(proceedingsText) {
			return "appellant", true
		}
		if vsRe.MatchString(proceedingsText) {
			return "prosecution", true
		}
		return "", false
	case containsWord(actor, respondentActors):
		if respondentRoleRe.MatchString(proceedingsText) || vsRe.MatchString(proceedingsText) {
			return "respondent", true
		}
		return "", false
	default:
		return "", false
	}
}

func containsWord(actor string, candidates []string) bool {
	for _, c := range candidates {
		if strings.Contains(actor, c) {
			return true
		}
	}
	return false
}

// Tokenize splits normalized text on non-alphanumeric boundaries.
func Tokenize(text string) []string {
	text = Normalize(text)
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}

// TokenSet builds a lookup set from a token slice.
func TokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// Overlap counts tokens shared between a and b.
func Overlap(a, b []string) int {
	setB := TokenSet(b)
	count := 0
	for _, t := range a {
		if setB[t] {
			count++
		}
	}
	return count
}

// ContainsAny reports whether text contains any of terms (case-insensitive
// substring match against already-normalized text).
func ContainsAny(text string, terms []string) bool {
	for _, t := range terms {
		if t == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// ContainsAll reports whether text contains every term in terms.
func ContainsAll(text string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(text, strings.ToLower(t)) {
			return false
		}
	}
	return len(terms) > 0
}

// WithinWindow reports whether any occurrence of a left term and any
// occurrence of a right term fall within windowChars characters of each
// other in text (used by chain constraints).
func WithinWindow(text string, left, right []string, windowChars int) bool {
	text = strings.ToLower(text)
	for _, l := range left {
		li := indicesOf(text, strings.ToLower(l))
		for _, lp := range li {
			for _, r := range right {
				ri := indicesOf(text, strings.ToLower(r))
				for _, rp := range ri {
					d := lp - rp
					if d < 0 {
						d = -d
					}
					if d <= windowChars {
						return true
					}
				}
			}
		}
	}
	return false
}

func indicesOf(text, sub string) []int {
	if sub == "" {
		return nil
	}
	var out []int
	start := 0
	for {
		i := strings.Index(text[start:], sub)
		if i < 0 {
			break
		}
		out = append(out, start+i)
		start += i + len(sub)
	}
	return out
}

// Dedup removes duplicate strings, preserving order of first appearance.
func Dedup(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// Truncate bounds a slice to at most n elements.
func Truncate(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

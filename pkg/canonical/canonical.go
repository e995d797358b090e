// Package canonical builds the CanonicalIntent by fusing an IntentProfile
// with an optional ReasonerPlan (spec §4.5), then synthesises 1-40
// QueryVariants across the precision/context/expansion lanes.
package canonical

import (
	"fmt"
	"strings"

	"caselaw-retrieval/pkg/legaltext"
	"caselaw-retrieval/pkg/models"
)

const maxVariants = 40

// delayCondonationMarkers are the context terms that must co-occur with a
// delay-condonation outcome term for it to survive the filter in
// BuildCanonicalIntent.
var delayCondonationMarkers = []string{"delay", "condon", "limitation"}

// allowListedOutcomeVerbs are the single tokens permitted as
// mustExcludeTokens (spec §4.5: "allow-listed outcome verb").
var allowListedOutcomeVerbs = map[string]bool{
	"refused": true, "condoned": true, "dismissed": true, "allowed": true,
	"quashed": true, "restored": true,
}

// genericNounBlockList excludes common nouns even when allow-listed verbs
// would otherwise match as a substring.
var genericNounBlockList = map[string]bool{"case": true, "matter": true, "order": true}

// BuildCanonicalIntent fuses intent and an optional plan, deterministically
// and idempotently (testable property 1).
func BuildCanonicalIntent(intent models.IntentProfile, plan *models.ReasonerPlan) models.CanonicalIntent {
	c := models.CanonicalIntent{
		Actors:      legaltext.Dedup(intent.Actors),
		Proceedings: legaltext.Dedup(intent.Procedures),
		LegalHooks:  legaltext.Dedup(intent.Statutes),
		CourtScope:  intent.CourtHint,
		DateWindow:  intent.DateWindow,
		DoctypeProfile: models.DoctypeJudgmentsSCHCTribunal,
		TransitionAliases: legaltext.TransitionAliases(),
		SoftHintTerms: legaltext.Truncate(intent.Issues, 12),
	}

	var reasonerOutcomes []string
	var hookGroups []models.CanonicalHookGroup
	if plan != nil {
		c.Actors = legaltext.Dedup(append(c.Actors, plan.Proposition.Actors...))
		c.Proceedings = legaltext.Dedup(append(c.Proceedings, plan.Proposition.Proceeding...))
		c.LegalHooks = legaltext.Dedup(append(c.LegalHooks, plan.Proposition.LegalHooks...))

		reasonerOutcomes = filterDelayCondonationOutcomes(plan.Proposition.OutcomeConstraint.Terms, intent.CleanedQuery)

		for _, g := range plan.Proposition.HookGroups {
			family, section := splitFamilySection(g)
			hookGroups = append(hookGroups, models.CanonicalHookGroup{
				GroupID: g.GroupID, Family: family, Section: section,
				Terms: g.Terms, MinMatch: g.MinMatch, Required: g.Required,
			})
		}
	}
	c.Outcomes = legaltext.Dedup(reasonerOutcomes)
	c.HookGroups = dedupeHookGroupsBySectionFamily(hookGroups)
	c.DisjunctiveQuery = legaltext.HasDisjunction(intent.CleanedQuery)
	if c.DisjunctiveQuery && len(c.HookGroups) > 2 {
		c.HookGroups = requireAtMostTwoGroups(c.HookGroups)
	} else if !c.DisjunctiveQuery {
		c.HookGroups = requireStatutoryGroups(c.HookGroups)
	}

	c.OutcomePolarity = computeOutcomePolarity(plan, intent)
	c.ContradictionTerms = buildContradictionTerms(plan, c.OutcomePolarity)

	c.MustIncludeTokens = hardIncludeTerms(intent)
	c.MustExcludeTokens = boundedExclusions(c.ContradictionTerms)
	c.CanonicalOrderTerms = legaltext.Dedup(append(append([]string{}, c.Actors...), c.Proceedings...))

	return c
}

func splitFamilySection(g models.HookGroup) (family, section string) {
	for _, t := range g.Terms {
		for _, ref := range legaltext.ExtractLegalReferences(t) {
			if ref.Kind == "section" {
				section = ref.Number
			}
		}
	}
	lower := strings.ToLower(strings.Join(g.Terms, " "))
	for _, f := range []string{"pc act", "crpc", "ipc", "cpc", "limitation act"} {
		if strings.Contains(lower, f) {
			family = f
			break
		}
	}
	return family, section
}

func dedupeHookGroupsBySectionFamily(groups []models.CanonicalHookGroup) []models.CanonicalHookGroup {
	seen := make(map[string]bool)
	var out []models.CanonicalHookGroup
	for _, g := range groups {
		key := g.Family + "|" + g.Section
		if key == "|" {
			key = g.GroupID
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, g)
	}
	return out
}

func requireAtMostTwoGroups(groups []models.CanonicalHookGroup) []models.CanonicalHookGroup {
	limit := 2
	out := make([]models.CanonicalHookGroup, len(groups))
	copy(out, groups)
	required := 0
	for i := range out {
		if !out[i].Required {
			continue
		}
		if required >= limit {
			out[i].Required = false
			continue
		}
		required++
	}
	return out
}

func requireStatutoryGroups(groups []models.CanonicalHookGroup) []models.CanonicalHookGroup {
	out := make([]models.CanonicalHookGroup, len(groups))
	copy(out, groups)
	for i := range out {
		if out[i].Family != "" {
			out[i].Required = true
		}
	}
	return out
}

func computeOutcomePolarity(plan *models.ReasonerPlan, intent models.IntentProfile) models.Polarity {
	if plan != nil && plan.Proposition.OutcomeConstraint.Polarity != "" && plan.Proposition.OutcomeConstraint.Polarity != models.PolarityUnknown {
		return plan.Proposition.OutcomeConstraint.Polarity
	}
	if legaltext.IsOpenEndedQuestion(intent.CleanedQuery) {
		return models.PolarityUnknown
	}
	switch {
	case legaltext.ContainsAny(intent.CleanedQuery, []string{"refused", "rejected"}):
		return models.PolarityRefused
	case legaltext.ContainsAny(intent.CleanedQuery, []string{"dismissed"}):
		return models.PolarityDismissed
	case legaltext.ContainsAny(intent.CleanedQuery, []string{"quashed"}):
		return models.PolarityQuashed
	case legaltext.ContainsAny(intent.CleanedQuery, []string{"allowed", "condoned", "restored"}):
		return models.PolarityAllowed
	default:
		return models.PolarityUnknown
	}
}

func filterDelayCondonationOutcomes(terms []string, cleanedQuery string) []string {
	hasContext := legaltext.ContainsAny(cleanedQuery, delayCondonationMarkers)
	var out []string
	for _, t := range terms {
		if legaltext.ContainsAny(t, []string{"condonation", "delay condoned"}) && !hasContext {
			continue
		}
		out = append(out, t)
	}
	return out
}

func buildContradictionTerms(plan *models.ReasonerPlan, polarity models.Polarity) []string {
	var terms []string
	if plan != nil {
		terms = append(terms, plan.Proposition.OutcomeConstraint.ContradictionTerms...)
	}
	switch polarity {
	case models.PolarityRefused, models.PolarityDismissed:
		terms = append(terms, "condoned", "allowed", "restored")
	case models.PolarityAllowed, models.PolarityQuashed:
		terms = append(terms, "refused", "dismissed")
	}
	return legaltext.Dedup(terms)
}

func hardIncludeTerms(intent models.IntentProfile) []string {
	var out []string
	for _, ref := range legaltext.ExtractLegalReferences(intent.CleanedQuery) {
		out = append(out, ref.Raw)
	}
	return legaltext.Dedup(out)
}

// boundedExclusions keeps phrase exclusions and single-token exclusions
// only when allow-listed and not blocked by the generic-noun list (spec
// §4.5).
func boundedExclusions(terms []string) []string {
	var out []string
	for _, t := range terms {
		if strings.Contains(t, " ") {
			out = append(out, t)
			continue
		}
		if allowListedOutcomeVerbs[t] && !genericNounBlockList[t] {
			out = append(out, t)
		}
	}
	return legaltext.Truncate(legaltext.Dedup(out), 12)
}

// ApplyContradictionExclusions implements invariant 3: true only when
// queryMode=precision AND polarity is confident AND, for
// dismissed|refused, a delay-condonation context is present.
func ApplyContradictionExclusions(mode models.QueryMode, polarity models.Polarity, cleanedQuery string) bool {
	if mode != models.QueryModePrecision {
		return false
	}
	if polarity == models.PolarityUnknown {
		return false
	}
	if polarity == models.PolarityRefused || polarity == models.PolarityDismissed {
		return legaltext.ContainsAny(cleanedQuery, delayCondonationMarkers)
	}
	return true
}

// SynthesizeRetrievalQueries builds the bounded QueryVariant set across the
// three lanes (spec §4.5).
func SynthesizeRetrievalQueries(c models.CanonicalIntent, keywordPack models.KeywordPack) []models.QueryVariant {
	requiredGroups := c.RequiredHookGroups()
	multiHookRequired := len(requiredGroups) >= 2 && !c.DisjunctiveQuery

	strictPhrases := seedStrictPhrases(c)
	if multiHookRequired {
		strictPhrases = filterMentionsEveryGroup(strictPhrases, requiredGroups)
	}
	if len(strictPhrases) == 0 {
		strictPhrases = legaltext.Truncate(keywordPack.SearchPhrases, 6)
	}

	broadPhrases := seedBroadPhrases(c)

	var variants []models.QueryVariant
	seen := make(map[string]bool)
	priority := 100

	add := func(phrase string, phase models.QueryPhase, mode models.QueryMode, strictness models.Strictness, mustInclude, mustExclude []string, doctype models.DoctypeProfile) {
		phrase = legaltext.Normalize(phrase)
		key := string(phase) + ":" + phrase
		if phrase == "" || seen[key] || len(variants) >= maxVariants {
			return
		}
		seen[key] = true
		variants = append(variants, models.QueryVariant{
			ID:                fmt.Sprintf("cq-%d", len(variants)+1),
			Phrase:            phrase,
			Phase:             phase,
			Purpose:           string(mode),
			CourtScope:        c.CourtScope,
			Strictness:        strictness,
			Tokens:            legaltext.Tokenize(phrase),
			CanonicalKey:      key,
			Priority:          priority,
			MustIncludeTokens: mustInclude,
			MustExcludeTokens: mustExclude,
			RetrievalDirectives: models.RetrievalDirectives{
				QueryMode:                    mode,
				DoctypeProfile:               doctype,
				ApplyContradictionExclusions: ApplyContradictionExclusions(mode, c.OutcomePolarity, phrase),
			},
		})
		priority--
	}

	// precision lane: strict phrases, mustIncludeTokens enforced.
	for _, p := range strictPhrases {
		add(p, models.PhasePrimary, models.QueryModePrecision, models.StrictnessStrict, c.MustIncludeTokens, c.MustExcludeTokens, c.DoctypeProfile)
	}

	// context lane: top broad phrases, first ~4 kept strict.
	for i, p := range broadPhrases {
		strictness := models.StrictnessRelaxed
		if i < 4 {
			strictness = models.StrictnessStrict
		}
		add(p, models.PhaseFallback, models.QueryModeContext, strictness, nil, nil, c.DoctypeProfile)
	}

	// expansion lane: remaining broad phrases, wider doctype profile.
	for i, p := range broadPhrases {
		if i < 4 {
			continue
		}
		add(p, models.PhaseRevolving, models.QueryModeExpansion, models.StrictnessRelaxed, nil, nil, models.DoctypeAny)
	}

	return truncateVariants(variants, maxVariants)
}

func truncateVariants(variants []models.QueryVariant, n int) []models.QueryVariant {
	if len(variants) <= n {
		return variants
	}
	return variants[:n]
}

func seedStrictPhrases(c models.CanonicalIntent) []string {
	var phrases []string
	requiredPhrase := ""
	if groups := c.RequiredHookGroups(); len(groups) > 0 && len(groups[0].Terms) > 0 {
		requiredPhrase = groups[0].Terms[0]
	}
	for _, actor := range c.Actors {
		for _, proc := range c.Proceedings {
			for _, outcome := range append(c.Outcomes, "") {
				phrase := strings.TrimSpace(strings.Join(filterEmpty([]string{actor, proc, requiredPhrase, outcome}), " "))
				phrases = append(phrases, phrase)
			}
		}
	}
	return legaltext.Dedup(phrases)
}

func seedBroadPhrases(c models.CanonicalIntent) []string {
	var phrases []string
	for _, actor := range c.Actors {
		for _, proc := range c.Proceedings {
			phrases = append(phrases, actor+" "+proc)
		}
	}
	for old, aliases := range c.TransitionAliases {
		for _, alias := range aliases {
			phrases = append(phrases, old+" "+alias)
		}
	}
	// Heuristic legal phrase families named in spec §4.5.
	if legaltext.ContainsAny(strings.Join(c.LegalHooks, " "), []string{"482"}) {
		phrases = append(phrases, "section 482 quashing fir")
	}
	if legaltext.ContainsAny(strings.Join(c.LegalHooks, " "), []string{"section 5"}) {
		phrases = append(phrases, "section 5 limitation act condonation")
	}
	if legaltext.ContainsAny(strings.Join(c.LegalHooks, " "), []string{"304"}) {
		phrases = append(phrases, "section 304 ipc culpable homicide")
	}
	return legaltext.Dedup(phrases)
}

func filterMentionsEveryGroup(phrases []string, groups []models.CanonicalHookGroup) []string {
	var out []string
	for _, p := range phrases {
		mentionsAll := true
		for _, g := range groups {
			if !legaltext.ContainsAny(p, g.Terms) {
				mentionsAll = false
				break
			}
		}
		if mentionsAll {
			out = append(out, p)
		}
	}
	return out
}

func filterEmpty(items []string) []string {
	var out []string
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			out = append(out, it)
		}
	}
	return out
}

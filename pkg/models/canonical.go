package models

// DoctypeProfile narrows the source index to a document type family.
type DoctypeProfile string

const (
	DoctypeJudgmentsSCHCTribunal DoctypeProfile = "judgments_sc_hc_tribunal"
	DoctypeSupremeCourt          DoctypeProfile = "supremecourt"
	DoctypeHighCourts            DoctypeProfile = "highcourts"
	DoctypeAny                   DoctypeProfile = "any"
)

// CanonicalHookGroup is the canonical-intent view of a hook group, after
// dedup by (family, section number).
type CanonicalHookGroup struct {
	GroupID  string
	Family   string
	Section  string
	Terms    []string
	MinMatch int
	Required bool
}

// CanonicalIntent fuses IntentProfile and an optional ReasonerPlan.
type CanonicalIntent struct {
	Actors             []string
	Proceedings        []string
	Outcomes           []string
	LegalHooks         []string
	HookGroups         []CanonicalHookGroup
	OutcomePolarity    Polarity
	ContradictionTerms []string
	DoctypeProfile     DoctypeProfile
	CourtScope         CourtHint
	DateWindow         DateWindow
	MustIncludeTokens  []string
	MustExcludeTokens  []string
	CanonicalOrderTerms []string
	DisjunctiveQuery   bool
	SoftHintTerms      []string
	NotificationTerms  []string
	TransitionAliases  map[string][]string
}

// RequiredHookGroups returns the subset of HookGroups with Required=true.
func (c CanonicalIntent) RequiredHookGroups() []CanonicalHookGroup {
	var out []CanonicalHookGroup
	for _, g := range c.HookGroups {
		if g.Required {
			out = append(out, g)
		}
	}
	return out
}

// QueryPhase orders retrieval into successive fallback waves.
type QueryPhase string

const (
	PhasePrimary   QueryPhase = "primary"
	PhaseFallback  QueryPhase = "fallback"
	PhaseRescue    QueryPhase = "rescue"
	PhaseMicro     QueryPhase = "micro"
	PhaseRevolving QueryPhase = "revolving"
	PhaseBrowse    QueryPhase = "browse"
)

// Strictness controls whether a variant enforces must-include/exclude
// tokens.
type Strictness string

const (
	StrictnessStrict  Strictness = "strict"
	StrictnessRelaxed Strictness = "relaxed"
)

// QueryMode controls provider-side compilation strictness and doctype bias.
type QueryMode string

const (
	QueryModePrecision QueryMode = "precision"
	QueryModeContext   QueryMode = "context"
	QueryModeExpansion QueryMode = "expansion"
)

// RetrievalDirectives steers provider query compilation for one variant.
type RetrievalDirectives struct {
	QueryMode                 QueryMode
	DoctypeProfile            DoctypeProfile
	TitleTerms                []string
	CiteTerms                 []string
	AuthorTerms               []string
	BenchTerms                []string
	CategoryExpansions        []string
	ApplyContradictionExclusions bool
}

// QueryVariant is one compiled retrieval query.
type QueryVariant struct {
	ID                string
	Phrase            string
	Phase             QueryPhase
	Purpose           string
	CourtScope        CourtHint
	Strictness        Strictness
	Tokens            []string
	CanonicalKey      string
	Priority          int
	MustIncludeTokens []string
	MustExcludeTokens []string
	ProviderHints     []string
	RetrievalDirectives RetrievalDirectives
}

// KeywordPack is the deterministic planner's term inventory, reused as a
// backfill source by query-rewrite when the strict phrase list is empty.
type KeywordPack struct {
	Primary       []string
	LegalSignals  []string
	SearchPhrases []string
}

// PlannerOutput is the deterministic planner's full result.
type PlannerOutput struct {
	Variants    []QueryVariant
	KeywordPack KeywordPack
}

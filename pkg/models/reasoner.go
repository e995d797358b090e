package models

// Polarity is the required disposition of the outcome sought by a query.
type Polarity string

const (
	PolarityRequired    Polarity = "required"
	PolarityNotRequired Polarity = "not_required"
	PolarityAllowed     Polarity = "allowed"
	PolarityRefused     Polarity = "refused"
	PolarityDismissed   Polarity = "dismissed"
	PolarityQuashed     Polarity = "quashed"
	PolarityUnknown     Polarity = "unknown"
)

// ReasonerSketch is the validated pass-1 output of the optional LLM reasoner.
type ReasonerSketch struct {
	Actors      []string
	Proceeding  []string
	Outcome     []string
	Hooks       []string
	Polarity    Polarity
	StrictTerms []string
	BroadTerms  []string
	CourtHint   CourtHint
}

// RelationType is a constraint between two hook groups.
type RelationType string

const (
	RelationRequires      RelationType = "requires"
	RelationAppliesTo     RelationType = "applies_to"
	RelationInteractsWith RelationType = "interacts_with"
	RelationExcludedBy    RelationType = "excluded_by"
)

// HookGroup clusters synonym legal-reference terms that collectively
// identify one statutory hook.
type HookGroup struct {
	GroupID  string
	Terms    []string
	MinMatch int
	Required bool
}

// Relation constrains two hook groups by id.
type Relation struct {
	Type         RelationType
	LeftGroupID  string
	RightGroupID string
	Required     bool
}

// OutcomeConstraint captures the plan's expectations on the outcome.
type OutcomeConstraint struct {
	Polarity          Polarity
	Modality          string
	Terms             []string
	ContradictionTerms []string
}

// Proposition is the reasoner plan's structured legal proposition.
type Proposition struct {
	Actors             []string
	Proceeding         []string
	LegalHooks         []string
	OutcomeRequired    bool
	OutcomeNegative    bool
	JurisdictionHint   CourtHint
	HookGroups         []HookGroup
	Relations          []Relation
	OutcomeConstraint  OutcomeConstraint
	InteractionRequired bool
}

// ReasonerPlan is the deterministically-expanded pass-2 output.
type ReasonerPlan struct {
	Proposition        Proposition
	MustHaveTerms      []string
	MustNotHaveTerms   []string
	QueryVariantsStrict []string
	QueryVariantsBroad []string
	CaseAnchors        []string
}

// ValidateGroupReferences drops relations whose group ids are dangling, per
// the ReasonerPlan invariant that every referenced group_id must exist.
func (p *ReasonerPlan) ValidateGroupReferences() {
	known := make(map[string]bool, len(p.Proposition.HookGroups))
	for _, g := range p.Proposition.HookGroups {
		known[g.GroupID] = true
	}
	kept := p.Proposition.Relations[:0]
	for _, r := range p.Proposition.Relations {
		if known[r.LeftGroupID] && known[r.RightGroupID] {
			kept = append(kept, r)
		}
	}
	p.Proposition.Relations = kept
}

// ClampMinMatch enforces min_match ∈ [1, min(|terms|, 4)] for every hook
// group.
func (p *ReasonerPlan) ClampMinMatch() {
	for i := range p.Proposition.HookGroups {
		g := &p.Proposition.HookGroups[i]
		maxAllowed := len(g.Terms)
		if maxAllowed > 4 {
			maxAllowed = 4
		}
		if maxAllowed < 1 {
			maxAllowed = 1
		}
		if g.MinMatch < 1 {
			g.MinMatch = 1
		}
		if g.MinMatch > maxAllowed {
			g.MinMatch = maxAllowed
		}
	}
}

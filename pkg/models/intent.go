// Package models holds the entities shared across the retrieval pipeline:
// IntentProfile, ReasonerSketch/Plan, CanonicalIntent, QueryVariant,
// CaseCandidate and the scored/gated result shapes.
package models

import "time"

// CourtHint narrows retrieval to a court tier.
type CourtHint string

const (
	CourtSC  CourtHint = "SC"
	CourtHC  CourtHint = "HC"
	CourtAny CourtHint = "ANY"
)

// Court is the resolved court of a candidate, once known.
type Court string

const (
	CourtResolvedSC      Court = "SC"
	CourtResolvedHC      Court = "HC"
	CourtResolvedUnknown Court = "UNKNOWN"
)

// EntitySet groups typed named entities extracted from a query.
type EntitySet struct {
	Person      []string
	Org         []string
	Statute     []string
	Section     []string
	CaseCitation []string
}

// RetrievalIntent carries directives derived from the query that steer the
// provider query compiler.
type RetrievalIntent struct {
	CitationHints  []string
	JudgeHints     []string
	DoctypeProfile string
}

// DateWindow bounds a judgment's decision date.
type DateWindow struct {
	FromDate *time.Time
	ToDate   *time.Time
}

// IntentProfile is the immutable output of intent extraction.
type IntentProfile struct {
	CleanedQuery    string
	Domains         []string
	Issues          []string
	Procedures      []string
	Actors          []string
	Statutes        []string
	Anchors         []string
	Entities        EntitySet
	RetrievalIntent RetrievalIntent
	DateWindow      DateWindow
	CourtHint       CourtHint
}

// Context returns the bounded view of the profile exposed in the external
// response (spec §6: "context: IntentProfile.context view").
func (p IntentProfile) Context() map[string]interface{} {
	return map[string]interface{}{
		"cleanedQuery": p.CleanedQuery,
		"domains":      p.Domains,
		"issues":       p.Issues,
		"procedures":   p.Procedures,
		"actors":       p.Actors,
		"statutes":     p.Statutes,
		"anchors":      p.Anchors,
		"courtHint":    p.CourtHint,
	}
}

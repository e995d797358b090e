package lexicalapi

import (
	"strings"

	"caselaw-retrieval/pkg/models"
)

// CompileQuery builds the source index's structured query syntax from a
// QueryVariant: base phrase, bounded ANDD must-haves, an optional ORR
// expansion block, and ANDD NOTT exclusions (only in precision mode with
// >=2 must-have tokens, per spec §4.6).
func CompileQuery(v models.QueryVariant) string {
	var parts []string
	parts = append(parts, v.Phrase)

	must := boundedMustHaves(v.MustIncludeTokens)
	for _, m := range must {
		parts = append(parts, "ANDD", m)
	}

	if v.RetrievalDirectives.QueryMode == models.QueryModeExpansion && len(v.RetrievalDirectives.CategoryExpansions) > 0 {
		parts = append(parts, "ORR", "("+strings.Join(v.RetrievalDirectives.CategoryExpansions, " OR ")+")")
	}

	if v.RetrievalDirectives.QueryMode == models.QueryModePrecision && len(must) >= 2 {
		for _, excl := range v.MustExcludeTokens {
			parts = append(parts, "ANDD", "NOTT", excl)
		}
	}

	return strings.Join(parts, " ")
}

// boundedMustHaves caps the must-include clause count at 4 to keep the
// compiled query from degenerating into an unsatisfiable conjunction.
func boundedMustHaves(tokens []string) []string {
	const limit = 4
	if len(tokens) <= limit {
		return tokens
	}
	return tokens[:limit]
}

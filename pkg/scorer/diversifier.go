package scorer

import "caselaw-retrieval/pkg/models"

// DiversifyConfig bounds repeated fingerprints/court-days in the final list
// (spec §4.9: "diversifier enforces maxPerFingerprint ... and
// maxPerCourtDay after scoring").
type DiversifyConfig struct {
	MaxPerFingerprint int // default 2
	MaxPerCourtDay    int // default 3
}

func (d DiversifyConfig) withDefaults() DiversifyConfig {
	if d.MaxPerFingerprint <= 0 {
		d.MaxPerFingerprint = 2
	}
	if d.MaxPerCourtDay <= 0 {
		d.MaxPerCourtDay = 3
	}
	return d
}

// Diversify drops score-ranked candidates once their fingerprint or
// court-day bucket has already appeared MaxPer* times. cands must already
// be sorted by descending score (ScoreAll's output) so the kept entries are
// always the highest-scoring representative of each bucket.
func Diversify(cfg DiversifyConfig, cands []models.ScoredCase) []models.ScoredCase {
	cfg = cfg.withDefaults()
	fpCount := make(map[string]int)
	courtDayCount := make(map[string]int)

	out := make([]models.ScoredCase, 0, len(cands))
	for _, c := range cands {
		fp := c.Fingerprint()
		cd := c.CourtDay()
		if fpCount[fp] >= cfg.MaxPerFingerprint {
			continue
		}
		if courtDayCount[cd] >= cfg.MaxPerCourtDay {
			continue
		}
		fpCount[fp]++
		courtDayCount[cd]++
		out = append(out, c)
	}
	return out
}

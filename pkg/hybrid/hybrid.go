// Package hybrid fuses a lexical leg (OpenSearch over pre-indexed chunks)
// and a semantic leg (Qdrant vector search) via reciprocal-rank fusion,
// then reranks the fused list (spec §4.7 "Hybrid search + reranker").
package hybrid

import (
	"context"
	"time"

	"caselaw-retrieval/pkg/modelgateway"
	"caselaw-retrieval/pkg/models"
	"caselaw-retrieval/pkg/retrieval"
)

// Config wires the two legs plus the reranker. RerankModelID/RerankRegion
// may be empty, in which case Rerank always falls back to the lexical
// Jaccard scorer.
type Config struct {
	Lexical       *LexicalStore
	Semantic      *SemanticStore
	Gateway       *modelgateway.Gateway
	RerankModelID string
	RerankRegion  string
	LegTimeout    time.Duration
}

// Hybrid runs both legs concurrently, fuses, and reranks.
type Hybrid struct {
	cfg Config
}

// New builds a Hybrid. Either leg may be nil (degrading to the other);
// both nil means Search always returns empty results.
func New(cfg Config) *Hybrid {
	if cfg.LegTimeout == 0 {
		cfg.LegTimeout = 6 * time.Second
	}
	return &Hybrid{cfg: cfg}
}

// legResult pairs the hits of the two legs. Search does not use it: each
// leg sends its hits over its own channel, so both legs run concurrently and
// fusion waits for both, each bounded by the leg timeout (spec §5: "hybrid
// lexical + semantic run concurrently; fusion waits for both or times
// out").
type legResult struct {
	lexical  []LexicalHit
	semantic []SemanticHit
}

// Search implements lexicalapi.HybridSearchFunc's shape so it can be
// injected directly via lexicalapi.New.
func (h *Hybrid) Search(ctx context.Context, variant models.QueryVariant, maxResults int) (retrieval.Output, error) {
	legCtx, cancel := context.WithTimeout(ctx, h.cfg.LegTimeout)
	defer cancel()

	lexCh := make(chan []LexicalHit, 1)
	semCh := make(chan []SemanticHit, 1)

	go func() {
		if h.cfg.Lexical == nil {
			lexCh <- nil
			return
		}
		hits, err := h.cfg.Lexical.Search(legCtx, variant.Phrase, variant.CourtScope, maxResults)
		if err != nil {
			lexCh <- nil
			return
		}
		lexCh <- hits
	}()
	go func() {
		if h.cfg.Semantic == nil {
			semCh <- nil
			return
		}
		hits, err := h.cfg.Semantic.Search(legCtx, variant.Phrase, maxResults)
		if err != nil {
			semCh <- nil
			return
		}
		semCh <- hits
	}()

	lexical := <-lexCh
	semantic := <-semCh

	fused := ReciprocalRankFusion(lexical, semantic)
	ranked := Rerank(ctx, h.cfg.Gateway, h.cfg.RerankModelID, h.cfg.RerankRegion, variant.Phrase, fused)
	if maxResults > 0 && len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	debug := retrieval.Debug{
		SourceTag:     string(models.SourceHybrid),
		CompiledQuery: variant.Phrase,
		RawCount:      len(lexical) + len(semantic),
		ParsedCount:   len(ranked),
	}
	return retrieval.Output{Cases: toCandidates(ranked), Debug: debug}, nil
}

func toCandidates(items []fusedItem) []models.CaseCandidate {
	out := make([]models.CaseCandidate, 0, len(items))
	for _, it := range items {
		score := it.score
		out = append(out, models.CaseCandidate{
			Source:  models.SourceHybrid,
			Title:   it.title,
			URL:     it.url,
			Snippet: it.snippet,
			Court:   resolveCourt(it.court),
			Retrieval: models.RetrievalMeta{
				SourceTags:  []string{string(models.SourceHybrid)},
				RerankScore: &score,
			},
		})
	}
	return out
}

func resolveCourt(court string) models.Court {
	switch court {
	case string(models.CourtResolvedSC):
		return models.CourtResolvedSC
	case string(models.CourtResolvedHC):
		return models.CourtResolvedHC
	default:
		return models.CourtResolvedUnknown
	}
}

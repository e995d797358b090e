package hybrid

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// SemanticConfig configures the Qdrant-backed vector leg.
type SemanticConfig struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	CollectionName string
}

// SemanticStore wraps a Qdrant collection of pre-chunked case-law text
// (spec §4.7: "vector store over pre-indexed chunks"). Grounded on the
// pack's `github.com/qdrant/go-client` dependency (manifest-level only —
// no source file in the pack exercises it, so the client construction and
// query shape below follow the library's documented gRPC client idiom
// rather than an in-pack reference).
type SemanticStore struct {
	client   *qdrant.Client
	embedder Embedder
	cfg      SemanticConfig
}

// NewSemanticStore dials the Qdrant gRPC endpoint.
func NewSemanticStore(cfg SemanticConfig, embedder Embedder) (*SemanticStore, error) {
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("hybrid: semantic store requires a collection name")
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("hybrid: connect qdrant: %w", err)
	}
	return &SemanticStore{client: client, embedder: embedder, cfg: cfg}, nil
}

// SemanticHit is one scored chunk returned from the vector search.
type SemanticHit struct {
	ChunkID    string
	DocID      string
	Title      string
	URL        string
	Snippet    string
	Score      float32
}

// Search embeds phrase and runs a top-K nearest-neighbour query against the
// configured collection.
func (s *SemanticStore) Search(ctx context.Context, phrase string, limit int) ([]SemanticHit, error) {
	vec, err := s.embedder.Embed(ctx, phrase)
	if err != nil {
		return nil, fmt.Errorf("hybrid: embed query: %w", err)
	}
	if limit <= 0 {
		limit = 20
	}
	limit64 := uint64(limit)

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.CollectionName,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit64,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("hybrid: qdrant query: %w", err)
	}

	out := make([]SemanticHit, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		out = append(out, SemanticHit{
			ChunkID: payload["chunk_id"].GetStringValue(),
			DocID:   payload["doc_id"].GetStringValue(),
			Title:   payload["title"].GetStringValue(),
			URL:     payload["url"].GetStringValue(),
			Snippet: payload["text"].GetStringValue(),
			Score:   p.GetScore(),
		})
	}
	return out, nil
}

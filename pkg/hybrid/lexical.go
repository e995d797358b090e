package hybrid

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"caselaw-retrieval/pkg/models"
)

// LexicalConfig configures the OpenSearch-backed chunk index, grounded on
// the teacher's search/client OpenSearchConfig shape.
type LexicalConfig struct {
	Host     string
	Port     int
	UseSSL   bool
	Username string
	Password string
	Index    string
}

// LexicalStore wraps an OpenSearch client over the pre-indexed chunk index
// (spec §4.7 "lexical leg"), grounded directly on the teacher's
// pkg/search/client/opensearch.go (client construction, ping-on-connect)
// and pkg/search/query/builder.go (multi_match + fuzziness, filter terms).
type LexicalStore struct {
	client *opensearch.Client
	index  string
}

// NewLexicalStore builds and pings an OpenSearch client.
func NewLexicalStore(cfg LexicalConfig) (*LexicalStore, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("hybrid: opensearch host is required")
	}
	protocol := "http"
	if cfg.UseSSL {
		protocol = "https"
	}
	url := fmt.Sprintf("%s://%s:%d", protocol, cfg.Host, cfg.Port)

	osCfg := opensearch.Config{
		Addresses: []string{url},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			TLSClientConfig:       &tls.Config{InsecureSkipVerify: true},
		},
	}
	if cfg.Username != "" {
		osCfg.Username = cfg.Username
		osCfg.Password = cfg.Password
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("hybrid: create opensearch client: %w", err)
	}

	store := &LexicalStore{client: client, index: cfg.Index}
	if err := store.ping(context.Background()); err != nil {
		return nil, fmt.Errorf("hybrid: connect opensearch: %w", err)
	}
	return store, nil
}

func (s *LexicalStore) ping(ctx context.Context) error {
	req := opensearchapi.InfoRequest{}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping failed: %s", res.Status())
	}
	return nil
}

// LexicalHit is one scored chunk row returned by the lexical leg.
type LexicalHit struct {
	ChunkID string
	DocID   string
	Title   string
	URL     string
	Snippet string
	Court   string
	Score   float64
}

// Search runs a multi_match query over title/text fields with AUTO
// fuzziness, optionally filtered by court, the same shape as
// query.Builder.AddTextQuery/AddMetadataFilters in the teacher.
func (s *LexicalStore) Search(ctx context.Context, phrase string, court models.CourtHint, limit int) ([]LexicalHit, error) {
	if limit <= 0 {
		limit = 20
	}
	must := []map[string]interface{}{
		{
			"multi_match": map[string]interface{}{
				"query":     phrase,
				"fields":    []string{"text^2", "title^1.5"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		},
	}
	var filter []map[string]interface{}
	if court != "" && court != models.CourtAny {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"court": string(court)},
		})
	}

	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(payload),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("hybrid: opensearch search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("hybrid: opensearch search status %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("hybrid: decode opensearch response: %w", err)
	}

	out := make([]LexicalHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, LexicalHit{
			ChunkID: h.ID,
			DocID:   h.Source.DocID,
			Title:   h.Source.Title,
			URL:     h.Source.URL,
			Snippet: h.Source.Text,
			Court:   h.Source.Court,
			Score:   h.Score,
		})
	}
	return out, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source struct {
				DocID string `json:"doc_id"`
				Title string `json:"title"`
				URL   string `json:"url"`
				Text  string `json:"text"`
				Court string `json:"court"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

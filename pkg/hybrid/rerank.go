package hybrid

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"caselaw-retrieval/pkg/legaltext"
	"caselaw-retrieval/pkg/modelgateway"
)

// rerankSchema asks the model for one relevance score per candidate index,
// the same strict-JSON structured-output idiom pkg/modelgateway uses
// elsewhere in the pipeline.
const rerankSchema = `{"scores": [{"index": 0, "relevance": 0.0}]}`

type rerankScore struct {
	Index     int     `json:"index"`
	Relevance float64 `json:"relevance"`
}

type rerankResponse struct {
	Scores []rerankScore `json:"scores"`
}

// Rerank orders fused candidates by a hosted relevance model when gateway
// is non-nil and the call succeeds; otherwise it falls back to a
// deterministic lexical Jaccard-overlap score against the query phrase
// (spec §4.7: "rerank model with a deterministic lexical fallback").
func Rerank(ctx context.Context, gateway *modelgateway.Gateway, modelID, region, phrase string, items []fusedItem) []fusedItem {
	if gateway != nil && modelID != "" && region != "" {
		if ranked, ok := hostedRerank(ctx, gateway, modelID, region, phrase, items); ok {
			return ranked
		}
	}
	return jaccardRerank(phrase, items)
}

func hostedRerank(ctx context.Context, gateway *modelgateway.Gateway, modelID, region, phrase string, items []fusedItem) ([]fusedItem, bool) {
	prompt := buildRerankPrompt(phrase, items)
	result, err := gateway.Invoke(ctx, modelgateway.Request{
		ModelID:          modelID,
		Region:           region,
		Prompt:           prompt,
		StructuredSchema: rerankSchema,
	})
	if err != nil {
		return nil, false
	}
	raw, ok := modelgateway.SalvageJSON(result.Text)
	if !ok {
		return nil, false
	}
	var parsed rerankResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || len(parsed.Scores) == 0 {
		return nil, false
	}

	byIndex := make(map[int]float64, len(parsed.Scores))
	for _, s := range parsed.Scores {
		byIndex[s.Index] = s.Relevance
	}
	out := make([]fusedItem, len(items))
	copy(out, items)
	for i := range out {
		if r, ok := byIndex[i]; ok {
			out[i].score = r
		}
	}
	sortByScoreDesc(out)
	return out, true
}

func buildRerankPrompt(phrase string, items []fusedItem) string {
	var b strings.Builder
	b.WriteString("Query: ")
	b.WriteString(phrase)
	b.WriteString("\nScore each candidate's relevance to the query from 0 to 1.\n")
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s — %s\n", i, it.title, it.snippet)
	}
	return b.String()
}

// jaccardRerank scores by token-set overlap between the query phrase and
// each candidate's title+snippet, a deterministic stand-in with no network
// dependency.
func jaccardRerank(phrase string, items []fusedItem) []fusedItem {
	queryTokens := legaltext.TokenSet(legaltext.Tokenize(phrase))
	out := make([]fusedItem, len(items))
	copy(out, items)
	for i := range out {
		tokens := legaltext.Tokenize(out[i].title + " " + out[i].snippet)
		out[i].score = jaccard(queryTokens, legaltext.TokenSet(tokens))
	}
	sortByScoreDesc(out)
	return out
}

func jaccard(a map[string]bool, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

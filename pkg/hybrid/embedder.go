package hybrid

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"caselaw-retrieval/pkg/legaltext"
)

const embeddingDims = 256

// Embedder turns text into a fixed-dimension vector for the semantic leg.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LocalHashEmbedder is the deterministic, dependency-free fallback used
// when no hosted embedding model is configured: a hashed bag-of-tokens
// projection into a fixed-dimension vector. It produces stable, comparable
// vectors without a network call, trading recall quality for availability.
type LocalHashEmbedder struct{}

func (LocalHashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)
	tokens := legaltext.Tokenize(text)
	if len(tokens) == 0 {
		return vec, nil
	}
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		idx := int(h.Sum32()) % embeddingDims
		if idx < 0 {
			idx += embeddingDims
		}
		vec[idx]++
	}
	normalize(vec)
	return vec, nil
}

func normalize(v []float32) {
	var sumSq float32
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return
	}
	norm := sqrt32(sumSq)
	for i := range v {
		v[i] /= norm
	}
}

func sqrt32(x float32) float32 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 20; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// TitanEmbedder calls a Bedrock embedding model (e.g. amazon.titan-embed-text-v2)
// lazily constructing one client per region, the same per-region client
// idiom pkg/modelgateway uses for its generative models.
type TitanEmbedder struct {
	ModelID string
	Region  string

	mu     sync.Mutex
	client *bedrockruntime.Client
}

func NewTitanEmbedder(modelID, region string) *TitanEmbedder {
	return &TitanEmbedder{ModelID: modelID, Region: region}
}

func (e *TitanEmbedder) clientFor(ctx context.Context) (*bedrockruntime.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(e.Region))
	if err != nil {
		return nil, err
	}
	e.client = bedrockruntime.NewFromConfig(cfg)
	return e.client, nil
}

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *TitanEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(e.ModelID) == "" || strings.TrimSpace(e.Region) == "" {
		return nil, fmt.Errorf("hybrid: titan embedder requires model id and region")
	}
	client, err := e.clientFor(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, err
	}
	out, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, err
	}
	var parsed titanEmbedResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return nil, err
	}
	return parsed.Embedding, nil
}

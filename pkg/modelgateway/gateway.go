// Package modelgateway is the Bedrock-style model gateway (spec §4, "Bedrock-style
// model gateway"): validates a model id and region, lazily constructs one
// client per region, and exposes a single request operation returning text
// plus usage telemetry. Prompt construction and response salvage follow the
// idiom of the teacher's Claude classifier
// (pkg/processing/classifier/claude.go: fixed text budget, bracket-salvage
// JSON recovery, confidence penalty for malformed output) rebuilt on
// github.com/aws/aws-sdk-go-v2/service/bedrockruntime.
package modelgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	smithy "github.com/aws/smithy-go"
)

// maxPromptChars bounds how much source text is embedded in a prompt,
// mirroring the teacher's 8000-char truncation in buildClassificationPrompt.
const maxPromptChars = 8000

// Usage records token telemetry for one invocation.
type Usage struct {
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
}

// Request is one gateway invocation.
type Request struct {
	ModelID          string
	Region           string
	Prompt           string
	StructuredSchema string // optional JSON-schema instruction appended to the prompt
	MaxTokens        int
	Timeout          time.Duration

	// Temperature is an optional sampling/performance knob. Some models
	// reject it with a ValidationException; Invoke retries once with it
	// cleared when that happens (spec §4.4's "unsupported output/
	// performance config" retry policy).
	Temperature *float64
}

// Result is the gateway's output.
type Result struct {
	Text       string
	Usage      Usage
	StopReason string
	// Truncated reports whether the model stopped because it hit
	// MaxTokens rather than finishing its turn (spec §4.4's "max-tokens
	// cutoff" retry policy).
	Truncated bool
}

// ErrConfigMissing is returned when the model id or region fails to
// resolve.
var ErrConfigMissing = fmt.Errorf("model gateway: model id and region must both be set")

// Gateway lazily constructs one bedrockruntime client per region.
type Gateway struct {
	mu      sync.Mutex
	clients map[string]*bedrockruntime.Client
	newClient func(ctx context.Context, region string) (*bedrockruntime.Client, error)
}

// New builds a Gateway.
func New() *Gateway {
	return &Gateway{
		clients: make(map[string]*bedrockruntime.Client),
		newClient: func(ctx context.Context, region string) (*bedrockruntime.Client, error) {
			cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
			if err != nil {
				return nil, err
			}
			return bedrockruntime.NewFromConfig(cfg), nil
		},
	}
}

func (g *Gateway) clientFor(ctx context.Context, region string) (*bedrockruntime.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[region]; ok {
		return c, nil
	}
	c, err := g.newClient(ctx, region)
	if err != nil {
		return nil, err
	}
	g.clients[region] = c
	return c, nil
}

// Validate resolves and sanity-checks a model id + region pair.
func Validate(modelID, region string) error {
	if strings.TrimSpace(modelID) == "" || strings.TrimSpace(region) == "" {
		return ErrConfigMissing
	}
	return nil
}

// anthropicMessage mirrors the Claude Messages API wire shape Bedrock's
// anthropic.* model families expect in their request body, the same shape
// the teacher's claudeRequest/claudeMessage used against the direct
// Anthropic API.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequestBody struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
	Temperature      *float64           `json:"temperature,omitempty"`
}

type anthropicResponseBody struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	StopReason string `json:"stop_reason"`
}

// Invoke issues one request. It truncates overlong prompts, applies the
// request timeout, and returns text plus usage telemetry.
//
// It also implements spec §4.4's "unsupported output/performance config"
// retry policy: if the model rejects the request's structured-schema
// instruction or temperature setting with a ValidationException, it retries
// once with those options removed.
func (g *Gateway) Invoke(ctx context.Context, req Request) (*Result, error) {
	if err := Validate(req.ModelID, req.Region); err != nil {
		return nil, err
	}

	result, err := g.invokeOnce(ctx, req)
	if err == nil {
		return result, nil
	}
	if !isUnsupportedConfigError(err) || (req.StructuredSchema == "" && req.Temperature == nil) {
		return nil, err
	}

	log.Printf("[MODELGATEWAY] retrying without schema/performance options after unsupported-config error: %v", err)
	stripped := req
	stripped.StructuredSchema = ""
	stripped.Temperature = nil
	return g.invokeOnce(ctx, stripped)
}

// isUnsupportedConfigError reports whether err looks like the model
// rejecting an output-format or performance-tuning option it doesn't
// support, rather than a transient or authorisation failure.
func isUnsupportedConfigError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.ErrorCode() != "ValidationException" {
		return false
	}
	msg := strings.ToLower(apiErr.ErrorMessage())
	return strings.Contains(msg, "temperature") || strings.Contains(msg, "schema") ||
		strings.Contains(msg, "not supported") || strings.Contains(msg, "unsupported")
}

func (g *Gateway) invokeOnce(ctx context.Context, req Request) (*Result, error) {
	client, err := g.clientFor(ctx, req.Region)
	if err != nil {
		return nil, fmt.Errorf("model gateway: resolve client: %w", err)
	}

	prompt := req.Prompt
	if len(prompt) > maxPromptChars {
		prompt = prompt[:maxPromptChars]
	}
	if req.StructuredSchema != "" {
		prompt = prompt + "\n\nRespond with JSON matching this schema only:\n" + req.StructuredSchema
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body := anthropicRequestBody{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		Messages:         []anthropicMessage{{Role: "user", Content: prompt}},
		Temperature:      req.Temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("model gateway: marshal request: %w", err)
	}

	start := time.Now()
	out, err := client.InvokeModel(callCtx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(req.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("model gateway: invoke: %w", err)
	}

	var parsed anthropicResponseBody
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		log.Printf("[MODELGATEWAY] unparseable response body: %v", err)
		return &Result{Text: string(out.Body), Usage: Usage{Latency: latency}}, nil
	}

	var text strings.Builder
	for _, c := range parsed.Content {
		text.WriteString(c.Text)
	}

	return &Result{
		Text: text.String(),
		Usage: Usage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
			Latency:      latency,
		},
		StopReason: parsed.StopReason,
		Truncated:  parsed.StopReason == "max_tokens",
	}, nil
}

// SalvageJSON extracts the span from the first '{' to the last '}' in text
// (or, when there is no such span, from the first '[' to the last ']'), the
// same bracket-salvage idiom the teacher's parseClassificationResponse uses
// to recover JSON from a response with leading/trailing prose.
func SalvageJSON(text string) (string, bool) {
	openers := []byte{'{', '['}
	closers := map[byte]byte{'{': '}', '[': ']'}
	for _, open := range openers {
		start := strings.IndexByte(text, open)
		if start < 0 {
			continue
		}
		end := strings.LastIndexByte(text, closers[open])
		if end <= start {
			continue
		}
		return text[start : end+1], true
	}
	return "", false
}

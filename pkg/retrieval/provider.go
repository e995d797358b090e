// Package retrieval defines the uniform provider contract shared by the
// lexical API, HTML and web-search providers (spec §4.6).
package retrieval

import (
	"context"
	"time"

	"caselaw-retrieval/pkg/models"
)

// BlockedType names why a provider short-circuited.
type BlockedType string

const (
	BlockedNone              BlockedType = ""
	BlockedLocalCooldown     BlockedType = "local_cooldown"
	BlockedCloudflare        BlockedType = "cloudflare_challenge"
	BlockedRateLimit         BlockedType = "rate_limit"
)

// Debug records the compiled query and the provider's execution trace, per
// candidate's request for transparency.
type Debug struct {
	SourceTag        string
	CompiledQuery    string
	HTTPStatus       int
	ParserMode       string
	PagesScanned     int
	RawCount         int
	ParsedCount      int
	Cloudflare       bool
	Challenge        bool
	NoMatch          bool
	RateLimited      bool
	RetryAfter       time.Duration
	TimedOut         bool
	FetchTimeoutUsed time.Duration
	BlockedType      BlockedType
}

// Input is one provider invocation for one compiled QueryVariant.
type Input struct {
	Variant    models.QueryVariant
	MaxResults int
	Timeout    time.Duration
	Scope      string // cooldown scope, e.g. provider name or provider+court
}

// Output is the provider's result for one Input.
type Output struct {
	Cases []models.CaseCandidate
	Debug Debug
}

// Provider is the uniform retrieval interface (spec §4.6: "search(input) ->
// {cases, debug}").
type Provider interface {
	Name() string
	Search(ctx context.Context, in Input) (Output, error)
}

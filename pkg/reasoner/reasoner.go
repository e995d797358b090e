// Package reasoner implements the optional LLM-backed reasoning stage
// (spec §4.4): pass-1 produces a validated ReasonerSketch, pass-2
// deterministically expands it into a ReasonerPlan. Every call passes
// through, in order: enabled check, per-request budget, model config
// resolution, cache lookup, circuit breaker, global rate bucket,
// distributed lock (with poll-for-other-worker fallback), and a local
// in-flight semaphore. The governance primitives (semaphore, circuit state
// via cache, lock) follow spec §5's concurrency model; the call itself goes
// through pkg/modelgateway.
package reasoner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"caselaw-retrieval/internal/concurrency"
	"caselaw-retrieval/pkg/cache"
	"caselaw-retrieval/pkg/errs"
	"caselaw-retrieval/pkg/legaltext"
	"caselaw-retrieval/pkg/modelgateway"
	"caselaw-retrieval/pkg/models"
)

// Config is the reasoner's governance envelope (spec §6: "Reasoner
// governance").
type Config struct {
	Enabled bool

	ModelID      string
	Region       string
	FallbackModelID string

	MaxCallsPerRequest int
	CacheTTLPass1Sec   int // ~6h
	CacheTTLPass2Sec   int // ~15m

	CircuitFailThreshold int
	CircuitCooldownSec   int

	RateLimit  int // calls allowed per RateWindowSec
	RateWindowSec int

	MaxInFlight int
	LockWaitMs  int
	LockTTLSec  int

	BaseTimeout     time.Duration
	ComplexityBump  time.Duration
	MaxTimeout      time.Duration
	MaxTokens       int
}

// DefaultConfig mirrors the spec's named defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		MaxCallsPerRequest:   2,
		CacheTTLPass1Sec:     6 * 60 * 60,
		CacheTTLPass2Sec:     15 * 60,
		CircuitFailThreshold: 5,
		CircuitCooldownSec:   120,
		RateLimit:            30,
		RateWindowSec:        60,
		MaxInFlight:          4,
		LockWaitMs:           300,
		LockTTLSec:           20,
		BaseTimeout:          4 * time.Second,
		ComplexityBump:       3 * time.Second,
		MaxTimeout:           15 * time.Second,
		MaxTokens:            1024,
	}
}

// Reasoner coordinates calls to the model gateway under the governance
// gates described above.
type Reasoner struct {
	cfg     Config
	cache   *cache.Cache
	gateway *modelgateway.Gateway
	sem     *concurrency.Semaphore
}

// New builds a Reasoner.
func New(cfg Config, c *cache.Cache, gw *modelgateway.Gateway) *Reasoner {
	return &Reasoner{cfg: cfg, cache: c, gateway: gw, sem: concurrency.NewSemaphore(cfg.MaxInFlight)}
}

// Fingerprint computes the stable cache-key hash of (cleaned query, selected
// IntentProfile fields), per the glossary definition.
func Fingerprint(p models.IntentProfile) string {
	h := sha256.New()
	h.Write([]byte(p.CleanedQuery))
	h.Write([]byte(strings.Join(p.Statutes, ",")))
	h.Write([]byte(strings.Join(p.Procedures, ",")))
	h.Write([]byte(strings.Join(p.Actors, ",")))
	h.Write([]byte(string(p.CourtHint)))
	return hex.EncodeToString(h.Sum(nil))[:24]
}

func seedHash(basePlan []string, snippets []string) string {
	h := sha256.New()
	for _, s := range basePlan {
		h.Write([]byte(s))
	}
	for _, s := range snippets {
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

const circuitKey = "reasoner:circuit:v1"

type circuitState struct {
	Failures  int   `json:"failures"`
	OpenUntil int64 `json:"openUntil"` // unix seconds; 0 means closed
}

func (r *Reasoner) circuitOpen(ctx context.Context, now time.Time) bool {
	st, ok := cache.GetValue[circuitState](ctx, r.cache, circuitKey)
	if !ok {
		return false
	}
	return st.OpenUntil > now.Unix()
}

func (r *Reasoner) recordFailure(ctx context.Context) {
	st, _ := cache.GetValue[circuitState](ctx, r.cache, circuitKey)
	st.Failures++
	openUntil := int64(0)
	if st.Failures >= r.cfg.CircuitFailThreshold {
		openUntil = time.Now().Add(time.Duration(r.cfg.CircuitCooldownSec) * time.Second).Unix()
	}
	st.OpenUntil = openUntil
	ttl := r.cfg.CircuitCooldownSec + 30
	_ = cache.SetValue(ctx, r.cache, circuitKey, st, ttl)
}

func (r *Reasoner) recordSuccess(ctx context.Context) {
	_ = cache.SetValue(ctx, r.cache, circuitKey, circuitState{}, r.cfg.CircuitCooldownSec+30)
}

// ResetCircuit force-closes the breaker; exposed for the administrative
// circuit-reset route.
func (r *Reasoner) ResetCircuit(ctx context.Context) {
	r.cache.Del(ctx, circuitKey)
}

func (r *Reasoner) rateBucketKey() string {
	window := time.Now().Unix() / int64(r.cfg.RateWindowSec)
	return fmt.Sprintf("reasoner:rate:%d", window)
}

func (r *Reasoner) rateBucketExceeded(ctx context.Context) bool {
	n, err := r.cache.Increment(ctx, r.rateBucketKey(), r.cfg.RateWindowSec)
	if err != nil {
		return false
	}
	return n > int64(r.cfg.RateLimit)
}

// gateDecision records why a call was (or wasn't) placed, for telemetry.
type gateDecision struct {
	proceed bool
	reason  string
}

// gate runs the first checks common to both passes: enabled, per-request
// budget and model config (spec §4.4 steps 1-3). Cache lookup, circuit
// breaker, rate bucket, lock and semaphore are run by the caller after it,
// since the cache and lock need the pass's concrete cache key.
func (r *Reasoner) gate(callsSoFar int, forced bool) gateDecision {
	if !r.cfg.Enabled {
		return gateDecision{false, "disabled"}
	}
	if callsSoFar >= r.cfg.MaxCallsPerRequest {
		return gateDecision{false, "budget_exhausted"}
	}
	if err := modelgateway.Validate(r.cfg.ModelID, r.cfg.Region); err != nil {
		return gateDecision{false, "config_missing"}
	}
	return gateDecision{true, ""}
}

// PassResult is the outcome of attempting a reasoner pass.
type PassResult struct {
	CacheHit bool
	Skipped  bool
	Reason   string
	Err      error
}

// RunPass1 attempts to produce a ReasonerSketch, honouring every governance
// gate. It returns the sketch (nil if skipped/failed) and the outcome.
func (r *Reasoner) RunPass1(ctx context.Context, p models.IntentProfile, callsSoFar int, forced bool) (*models.ReasonerSketch, PassResult) {
	fp := Fingerprint(p)
	key := "reasoner:v2:pass1:" + fp

	if d := r.gate(callsSoFar, forced); !d.proceed {
		return nil, PassResult{Skipped: true, Reason: d.reason}
	}

	if cached, ok := cache.GetValue[models.ReasonerSketch](ctx, r.cache, key); ok {
		return &cached, PassResult{CacheHit: true}
	}

	now := time.Now()
	if r.circuitOpen(ctx, now) && !forced {
		return nil, PassResult{Skipped: true, Reason: string(errs.KindReasonerCircuit)}
	}

	if r.rateBucketExceeded(ctx) {
		return nil, PassResult{Skipped: true, Reason: "rate_limited"}
	}

	owner := fmt.Sprintf("pass1-%d", time.Now().UnixNano())
	if !r.cache.AcquireLock(ctx, "lock:"+key, owner, r.cfg.LockTTLSec) {
		if cached, ok := r.pollForResult(ctx, key); ok {
			return &cached, PassResult{CacheHit: true}
		}
		return nil, PassResult{Skipped: true, Reason: "lock_unavailable"}
	}
	defer r.cache.ReleaseLock(ctx, "lock:"+key, owner)

	if !r.sem.TryAcquire() {
		return nil, PassResult{Skipped: true, Reason: "local_inflight_saturated"}
	}
	defer r.sem.Release()

	sketch, err := r.callPass1(ctx, p)
	if err != nil {
		r.recordFailure(ctx)
		return nil, PassResult{Err: err}
	}
	r.recordSuccess(ctx)
	_ = cache.SetValue(ctx, r.cache, key, *sketch, r.cfg.CacheTTLPass1Sec)
	return sketch, PassResult{}
}

func (r *Reasoner) pollForResult(ctx context.Context, key string) (models.ReasonerSketch, bool) {
	deadline := time.Now().Add(time.Duration(r.cfg.LockWaitMs) * time.Millisecond)
	for time.Now().Before(deadline) {
		if v, ok := cache.GetValue[models.ReasonerSketch](ctx, r.cache, key); ok {
			return v, true
		}
		time.Sleep(25 * time.Millisecond)
	}
	return models.ReasonerSketch{}, false
}

func (r *Reasoner) adaptiveTimeout(complex bool, pass2 bool) time.Duration {
	t := r.cfg.BaseTimeout
	if complex {
		t += r.cfg.ComplexityBump
	}
	if pass2 {
		t += r.cfg.ComplexityBump / 2
	}
	if t > r.cfg.MaxTimeout {
		t = r.cfg.MaxTimeout
	}
	return t
}

func (r *Reasoner) callPass1(ctx context.Context, p models.IntentProfile) (*models.ReasonerSketch, error) {
	prompt := buildPass1Prompt(p)
	complexity := len(p.Statutes) >= 2 || len(p.Procedures) >= 2 || len(p.CleanedQuery) > 200

	req := modelgateway.Request{
		ModelID:          r.cfg.ModelID,
		Region:           r.cfg.Region,
		Prompt:           prompt,
		StructuredSchema: pass1Schema,
		MaxTokens:        r.cfg.MaxTokens,
		Timeout:          r.adaptiveTimeout(complexity, false),
	}

	result, err := r.gateway.Invoke(ctx, req)
	if err != nil {
		return nil, errs.Wrap(errs.KindReasonerEmpty, "pass1 invoke failed", err)
	}

	sketch, sketchErr, kind := parseSketchWithSalvage(result.Text)
	if sketchErr != nil && result.Truncated {
		// spec §4.4: on a max-tokens cutoff with unparseable JSON, retry
		// once with a higher token cap and a more compact prompt.
		retryReq := req
		retryReq.Prompt = compactPass1Prompt(p)
		retryReq.MaxTokens = r.cfg.MaxTokens * 2

		retryResult, retryErr := r.gateway.Invoke(ctx, retryReq)
		if retryErr != nil {
			return nil, errs.Wrap(errs.KindReasonerMaxToks, "pass1 max-tokens retry invoke failed", retryErr)
		}
		sketch, sketchErr, _ = parseSketchWithSalvage(retryResult.Text)
		if sketchErr != nil {
			return nil, errs.Wrap(errs.KindReasonerMaxToks, "pass1 unparseable after max-tokens retry", sketchErr)
		}
	} else if sketchErr != nil {
		return nil, errs.Wrap(kind, "pass1 response unparseable", sketchErr)
	}

	validateSketch(sketch)
	if len(sketch.StrictTerms) == 0 {
		return nil, errs.New(errs.KindReasonerSketch, "sketch requires >=1 strict term")
	}
	return sketch, nil
}

const pass1Schema = `{"actors":["string"],"proceeding":["string"],"outcome":["string"],"hooks":["string"],"polarity":"required|not_required|allowed|refused|dismissed|quashed|unknown","strict_terms":["string"],"broad_terms":["string"],"court_hint":"SC|HC|ANY"}`

func buildPass1Prompt(p models.IntentProfile) string {
	var b strings.Builder
	b.WriteString("Extract a legal proposition sketch from this Indian case-law query.\n")
	b.WriteString("Query: " + p.CleanedQuery + "\n")
	b.WriteString("Known statutes: " + strings.Join(p.Statutes, ", ") + "\n")
	b.WriteString("Known actors: " + strings.Join(p.Actors, ", ") + "\n")
	b.WriteString("Respond with strict JSON only, no prose.\n")
	return b.String()
}

// compactPass1Prompt drops the per-field preamble of buildPass1Prompt down
// to the bare query, used on the max-tokens retry so the model spends its
// larger token budget on the JSON answer rather than restating the prompt.
func compactPass1Prompt(p models.IntentProfile) string {
	return "Query: " + p.CleanedQuery + "\nRespond with strict JSON only, matching the schema. No prose.\n"
}

// parseSketchWithSalvage attempts parseSketch, falling back to bracket
// salvage on failure. kind reports which failure mode to attribute the
// error to when parsing never succeeds.
func parseSketchWithSalvage(text string) (*models.ReasonerSketch, error, errs.Kind) {
	sketch, err := parseSketch(text)
	if err == nil {
		return sketch, nil, ""
	}
	salvaged, ok := modelgateway.SalvageJSON(text)
	if !ok {
		return nil, err, errs.KindReasonerUnparsed
	}
	sketch, err = parseSketch(salvaged)
	if err != nil {
		return nil, err, errs.KindReasonerSketch
	}
	return sketch, nil, ""
}

type sketchWire struct {
	Actors      []string `json:"actors"`
	Proceeding  []string `json:"proceeding"`
	Outcome     []string `json:"outcome"`
	Hooks       []string `json:"hooks"`
	Polarity    string   `json:"polarity"`
	StrictTerms []string `json:"strict_terms"`
	BroadTerms  []string `json:"broad_terms"`
	CourtHint   string   `json:"court_hint"`
}

func parseSketch(text string) (*models.ReasonerSketch, error) {
	var w sketchWire
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return nil, err
	}
	return &models.ReasonerSketch{
		Actors:      w.Actors,
		Proceeding:  w.Proceeding,
		Outcome:     w.Outcome,
		Hooks:       w.Hooks,
		Polarity:    models.Polarity(w.Polarity),
		StrictTerms: w.StrictTerms,
		BroadTerms:  w.BroadTerms,
		CourtHint:   models.CourtHint(w.CourtHint),
	}, nil
}

var validPolarities = map[models.Polarity]bool{
	models.PolarityRequired: true, models.PolarityNotRequired: true,
	models.PolarityAllowed: true, models.PolarityRefused: true,
	models.PolarityDismissed: true, models.PolarityQuashed: true,
	models.PolarityUnknown: true,
}

// validateSketch drops non-string/overlong tokens, dedupes, clamps sizes,
// and normalises polarity/court hint per spec §4.4 "Validation".
func validateSketch(s *models.ReasonerSketch) {
	s.Actors = legaltext.Truncate(legaltext.Dedup(s.Actors), 12)
	s.Proceeding = legaltext.Truncate(legaltext.Dedup(s.Proceeding), 12)
	s.Outcome = legaltext.Truncate(legaltext.Dedup(s.Outcome), 12)
	s.Hooks = legaltext.Truncate(legaltext.Dedup(s.Hooks), 12)
	s.StrictTerms = legaltext.Truncate(legaltext.Dedup(s.StrictTerms), 16)
	s.BroadTerms = legaltext.Truncate(legaltext.Dedup(s.BroadTerms), 24)
	if !validPolarities[s.Polarity] {
		s.Polarity = models.PolarityUnknown
	}
	if s.CourtHint != models.CourtSC && s.CourtHint != models.CourtHC {
		s.CourtHint = models.CourtAny
	}
}

// RunPass2 deterministically expands a sketch (already obtained) plus
// retrieved snippets into a ReasonerPlan, going through the same cache/
// circuit/rate/lock/semaphore gates keyed on pass-2's cache key.
func (r *Reasoner) RunPass2(ctx context.Context, p models.IntentProfile, sketch models.ReasonerSketch, basePlan []string, snippets []string, callsSoFar int, forced bool) (*models.ReasonerPlan, PassResult) {
	fp := Fingerprint(p)
	key := "reasoner:v2:pass2:" + fp + ":" + seedHash(basePlan, snippets)

	if d := r.gate(callsSoFar, forced); !d.proceed {
		return nil, PassResult{Skipped: true, Reason: d.reason}
	}
	if cached, ok := cache.GetValue[models.ReasonerPlan](ctx, r.cache, key); ok {
		return &cached, PassResult{CacheHit: true}
	}
	now := time.Now()
	if r.circuitOpen(ctx, now) && !forced {
		return nil, PassResult{Skipped: true, Reason: string(errs.KindReasonerCircuit)}
	}
	if r.rateBucketExceeded(ctx) {
		return nil, PassResult{Skipped: true, Reason: "rate_limited"}
	}
	owner := fmt.Sprintf("pass2-%d", time.Now().UnixNano())
	if !r.cache.AcquireLock(ctx, "lock:"+key, owner, r.cfg.LockTTLSec) {
		if cached, ok := cache.GetValue[models.ReasonerPlan](ctx, r.cache, key); ok {
			return &cached, PassResult{CacheHit: true}
		}
		return nil, PassResult{Skipped: true, Reason: "lock_unavailable"}
	}
	defer r.cache.ReleaseLock(ctx, "lock:"+key, owner)
	if !r.sem.TryAcquire() {
		return nil, PassResult{Skipped: true, Reason: "local_inflight_saturated"}
	}
	defer r.sem.Release()

	plan := ExpandSketch(sketch, p)
	Ground(plan, p)
	r.recordSuccess(ctx)
	_ = cache.SetValue(ctx, r.cache, key, *plan, r.cfg.CacheTTLPass2Sec)
	return plan, PassResult{}
}

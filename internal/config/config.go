// Package config loads the process-wide configuration envelope from the
// environment (spec §6 "Configuration"), grouped by effect: model
// selection, reasoner governance, retrieval tuning, and feature flags.
// Grounded on the teacher's internal/config/config.go (getEnv*/validate()
// idiom, Load() entry point).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full process-wide configuration envelope.
type Config struct {
	Environment string
	Server      ServerConfig
	Cache       CacheConfig
	Gateway     GatewayConfig
	Reasoner    ReasonerConfig
	Retrieval   RetrievalConfig
	LexicalAPI  LexicalAPIConfig
	HTMLSearch  HTMLSearchConfig
	WebSearch   WebSearchConfig
	Hybrid      HybridConfig
	ChunkStore  ChunkStoreConfig
	Verifier    VerifierConfig
	Diversify   DiversifyConfig
	Flags       FeatureFlags
	Logging     LoggingConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           string
	Production     bool
	AllowedOrigins string
	MaxRequestSize int64
	JWTSecret      string
}

// CacheConfig configures the optional Redis mirror behind pkg/cache.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// GatewayConfig configures the Bedrock-style model gateway's default
// model/region and fallback model (spec §6 "Model selection").
type GatewayConfig struct {
	ModelID         string
	Region          string
	FallbackModelID string
	MaxTokens       int
	PromptCompact   bool
}

// ReasonerConfig is the reasoner governance envelope (spec §6 "Reasoner
// governance"), mapped directly onto reasoner.Config.
type ReasonerConfig struct {
	Enabled              bool
	MaxCallsPerRequest   int
	CacheTTLPass1Sec     int
	CacheTTLPass2Sec     int
	CircuitFailThreshold int
	CircuitCooldownSec   int
	RateLimit            int
	RateWindowSec        int
	MaxInFlight          int
	LockWaitMs           int
	LockTTLSec           int
	BaseTimeout          time.Duration
	ComplexityBump       time.Duration
	MaxTimeout           time.Duration
}

// RetrievalConfig tunes per-provider timeouts, 429 policy and the
// intra-request concurrency cap (spec §6 "Retrieval", spec §5).
type RetrievalConfig struct {
	GlobalInFlightCap  int
	PerProviderTimeout time.Duration
	Max429Retries      int
	MaxRetryAfter      time.Duration
	CooldownSec        int
	CloudflareCooldownSec int
	MaxResultsDefault  int
}

// LexicalAPIConfig configures the structured-query JSON API provider.
type LexicalAPIConfig struct {
	BaseURL           string
	HTTPTimeout       time.Duration
	DetailConcurrency int
	EnrichTopN        int
}

// HTMLSearchConfig configures the HTML-scraping provider.
type HTMLSearchConfig struct {
	BaseURL     string
	HTTPTimeout time.Duration
	MaxPages    int
	PageBudget  time.Duration
}

// WebSearchConfig configures the web-search bypass/fallback provider.
type WebSearchConfig struct {
	Endpoint    string
	APIKey      string
	SiteDomain  string
	HTTPTimeout time.Duration
}

// HybridConfig configures the lexical+semantic fusion leg and reranker.
type HybridConfig struct {
	Enabled       bool
	Shadow        bool
	ShadowTimeout time.Duration
	RerankTopN    int
	RerankModelID string
	RerankRegion  string
	LegTimeout    time.Duration

	OpenSearchHost     string
	OpenSearchPort     int
	OpenSearchUseSSL   bool
	OpenSearchUsername string
	OpenSearchPassword string
	OpenSearchIndex    string

	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantUseTLS     bool
	QdrantCollection string

	EmbedModelID string
	EmbedRegion  string
}

// ChunkStoreConfig configures the object-storage bucket holding chunk
// manifests and artifacts (spec §1: "offline collaborator that populates
// the semantic index"). pipeline.New only builds a client for it; nothing
// is loaded from it.
type ChunkStoreConfig struct {
	AccessKey string
	SecretKey string
	Endpoint  string
	Region    string
	Bucket    string
	ManifestKey string
}

// VerifierConfig tunes detail-hydration scope and fallback cutoffs.
type VerifierConfig struct {
	Concurrency           int
	Limit                 int
	DetailCacheTTLSec     int
	FailureCacheTTLSec    int
	HybridFallbackCutoff  int
	SnippetFallbackCutoff int
	MinSnippets           int
}

// DiversifyConfig bounds per-fingerprint and per-court-day repetition.
type DiversifyConfig struct {
	MaxPerFingerprint int
	MaxPerCourtDay    int
}

// FeatureFlags consolidates the envelope of recognised toggles into one
// immutable struct loaded once per process (spec §9 "Feature flags").
type FeatureFlags struct {
	PropositionV3       bool
	PropositionV41      bool
	PropositionV5       bool
	IntentV2            bool
	StructuredQueryV2   bool
	CategoryExpansionV1 bool
	DocmetaEnrichV1     bool
	SerperQueryV2       bool
	AlwaysReturnV1      bool
	StaleFallback       bool
	ExploratoryConfidenceCap float64
}

// LoggingConfig configures log level/format and what detail to surface.
type LoggingConfig struct {
	Level              string
	Format             string
	EnableRequestLog   bool
	EnableErrorDetails bool
}

// Load builds Config from the environment, applying spec-named defaults
// and validating required fields.
func Load() (*Config, error) {
	environment := getEnv("ENVIRONMENT", "local")

	var defaultOrigins string
	if environment == "local" {
		defaultOrigins = "http://localhost:3000,http://localhost:5173"
	}

	maxRequestSize, err := parseEnvInt64("MAX_REQUEST_SIZE", 10*1024*1024)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: environment,
		Server: ServerConfig{
			Port:           os.Getenv("PORT"),
			Production:     environment == "production" || getEnvBool("PRODUCTION", false),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", defaultOrigins),
			MaxRequestSize: maxRequestSize,
			JWTSecret:      getEnv("JWT_SECRET", ""),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			ModelID:         getEnv("BEDROCK_MODEL_ID", ""),
			Region:          getEnv("BEDROCK_REGION", "us-east-1"),
			FallbackModelID: getEnv("BEDROCK_FALLBACK_MODEL_ID", ""),
			MaxTokens:       getEnvInt("BEDROCK_MAX_TOKENS", 1024),
			PromptCompact:   getEnvBool("BEDROCK_PROMPT_COMPACT", false),
		},
		Reasoner: ReasonerConfig{
			Enabled:              getEnvBool("LLM_REASONER_ENABLED", false),
			MaxCallsPerRequest:   getEnvInt("LLM_REASONER_MAX_CALLS", 2),
			CacheTTLPass1Sec:     getEnvInt("LLM_REASONER_CACHE_TTL_PASS1_SEC", 6*60*60),
			CacheTTLPass2Sec:     getEnvInt("LLM_REASONER_CACHE_TTL_PASS2_SEC", 15*60),
			CircuitFailThreshold: getEnvInt("LLM_REASONER_CIRCUIT_FAIL_THRESHOLD", 5),
			CircuitCooldownSec:   getEnvInt("LLM_REASONER_CIRCUIT_COOLDOWN_SEC", 120),
			RateLimit:            getEnvInt("LLM_REASONER_RATE_LIMIT", 30),
			RateWindowSec:        getEnvInt("LLM_REASONER_RATE_WINDOW_SEC", 60),
			MaxInFlight:          getEnvInt("LLM_REASONER_MAX_INFLIGHT", 4),
			LockWaitMs:           getEnvInt("LLM_REASONER_LOCK_WAIT_MS", 300),
			LockTTLSec:           getEnvInt("LLM_REASONER_LOCK_TTL_SEC", 20),
			BaseTimeout:          getEnvDuration("LLM_REASONER_BASE_TIMEOUT", 4*time.Second),
			ComplexityBump:       getEnvDuration("LLM_REASONER_COMPLEXITY_BUMP", 3*time.Second),
			MaxTimeout:           getEnvDuration("LLM_REASONER_MAX_TIMEOUT", 15*time.Second),
		},
		Retrieval: RetrievalConfig{
			GlobalInFlightCap:     getEnvInt("RETRIEVAL_GLOBAL_INFLIGHT_CAP", 8),
			PerProviderTimeout:    getEnvDuration("RETRIEVAL_PROVIDER_TIMEOUT", 8*time.Second),
			Max429Retries:         getEnvInt("RETRIEVAL_MAX_429_RETRIES", 2),
			MaxRetryAfter:         getEnvDuration("RETRIEVAL_MAX_RETRY_AFTER", 30*time.Second),
			CooldownSec:           getEnvInt("RETRIEVAL_COOLDOWN_SEC", 30),
			CloudflareCooldownSec: getEnvInt("RETRIEVAL_CLOUDFLARE_COOLDOWN_SEC", 90),
			MaxResultsDefault:     getEnvInt("RETRIEVAL_MAX_RESULTS_DEFAULT", 20),
		},
		LexicalAPI: LexicalAPIConfig{
			BaseURL:           getEnv("LEXICAL_API_BASE_URL", ""),
			HTTPTimeout:       getEnvDuration("LEXICAL_API_TIMEOUT", 8*time.Second),
			DetailConcurrency: getEnvInt("LEXICAL_API_DETAIL_CONCURRENCY", 4),
			EnrichTopN:        getEnvInt("LEXICAL_API_ENRICH_TOPN", 10),
		},
		HTMLSearch: HTMLSearchConfig{
			BaseURL:     getEnv("HTML_SEARCH_BASE_URL", ""),
			HTTPTimeout: getEnvDuration("HTML_SEARCH_TIMEOUT", 8*time.Second),
			MaxPages:    getEnvInt("HTML_SEARCH_MAX_PAGES", 3),
			PageBudget:  getEnvDuration("HTML_SEARCH_PAGE_BUDGET", 6*time.Second),
		},
		WebSearch: WebSearchConfig{
			Endpoint:    getEnv("WEB_SEARCH_ENDPOINT", ""),
			APIKey:      getEnv("WEB_SEARCH_API_KEY", ""),
			SiteDomain:  getEnv("WEB_SEARCH_SITE_DOMAIN", "indiankanoon.org"),
			HTTPTimeout: getEnvDuration("WEB_SEARCH_TIMEOUT", 6*time.Second),
		},
		Hybrid: HybridConfig{
			Enabled:       getEnvBool("HYBRID_ENABLED", false),
			Shadow:        getEnvBool("HYBRID_SHADOW_CAPTURE", false),
			ShadowTimeout: getEnvDuration("HYBRID_SHADOW_TIMEOUT", 2*time.Second),
			RerankTopN:    getEnvInt("HYBRID_RERANK_TOPN", 20),
			RerankModelID: getEnv("HYBRID_RERANK_MODEL_ID", ""),
			RerankRegion:  getEnv("HYBRID_RERANK_REGION", ""),
			LegTimeout:    getEnvDuration("HYBRID_LEG_TIMEOUT", 6*time.Second),

			OpenSearchHost:     getEnv("OPENSEARCH_HOST", ""),
			OpenSearchPort:     getEnvInt("OPENSEARCH_PORT", 9200),
			OpenSearchUseSSL:   getEnvBool("OPENSEARCH_USE_SSL", environment != "local"),
			OpenSearchUsername: getEnv("OPENSEARCH_USERNAME", ""),
			OpenSearchPassword: getEnv("OPENSEARCH_PASSWORD", ""),
			OpenSearchIndex:    getEnv("OPENSEARCH_INDEX", "legal_chunks"),

			QdrantHost:       getEnv("QDRANT_HOST", ""),
			QdrantPort:       getEnvInt("QDRANT_PORT", 6334),
			QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
			QdrantUseTLS:     getEnvBool("QDRANT_USE_TLS", environment != "local"),
			QdrantCollection: getEnv("QDRANT_COLLECTION", "legal_chunks"),

			EmbedModelID: getEnv("EMBED_MODEL_ID", ""),
			EmbedRegion:  getEnv("EMBED_REGION", getEnv("BEDROCK_REGION", "us-east-1")),
		},
		ChunkStore: ChunkStoreConfig{
			AccessKey:   getEnv("CHUNKSTORE_ACCESS_KEY", getEnv("DO_SPACES_KEY", "")),
			SecretKey:   getEnv("CHUNKSTORE_SECRET_KEY", getEnv("DO_SPACES_SECRET", "")),
			Endpoint:    getEnv("CHUNKSTORE_ENDPOINT", ""),
			Region:      getEnv("CHUNKSTORE_REGION", getEnv("DO_SPACES_REGION", "nyc3")),
			Bucket:      getEnv("CHUNKSTORE_BUCKET", ""),
			ManifestKey: getEnv("CHUNKSTORE_MANIFEST_KEY", "manifest/chunks.json"),
		},
		Verifier: VerifierConfig{
			Concurrency:           getEnvInt("VERIFY_CONCURRENCY", 4),
			Limit:                 getEnvInt("DEFAULT_VERIFY_LIMIT", 15),
			DetailCacheTTLSec:     getEnvInt("DETAIL_CACHE_TTL_SEC", 300),
			FailureCacheTTLSec:    getEnvInt("DETAIL_FAILURE_CACHE_TTL_SEC", 1800),
			HybridFallbackCutoff:  getEnvInt("HYBRID_FALLBACK_CUTOFF", 20),
			SnippetFallbackCutoff: getEnvInt("SNIPPET_FALLBACK_CUTOFF", 10),
			MinSnippets:           getEnvInt("MIN_SNIPPETS", 3),
		},
		Diversify: DiversifyConfig{
			MaxPerFingerprint: getEnvInt("DIVERSIFY_MAX_PER_FINGERPRINT", 2),
			MaxPerCourtDay:    getEnvInt("DIVERSIFY_MAX_PER_COURT_DAY", 3),
		},
		Flags: FeatureFlags{
			PropositionV3:            getEnvBool("FEATURE_PROPOSITION_V3", true),
			PropositionV41:           getEnvBool("FEATURE_PROPOSITION_V41", false),
			PropositionV5:            getEnvBool("FEATURE_PROPOSITION_V5", false),
			IntentV2:                 getEnvBool("FEATURE_IK_INTENT_V2", true),
			StructuredQueryV2:        getEnvBool("FEATURE_IK_STRUCTURED_QUERY_V2", true),
			CategoryExpansionV1:      getEnvBool("FEATURE_IK_CATEGORY_EXPANSION_V1", false),
			DocmetaEnrichV1:          getEnvBool("FEATURE_IK_DOCMETA_ENRICH_V1", true),
			SerperQueryV2:            getEnvBool("FEATURE_SERPER_QUERY_V2", false),
			AlwaysReturnV1:           getEnvBool("FEATURE_ALWAYS_RETURN_V1", true),
			StaleFallback:            getEnvBool("FEATURE_STALE_FALLBACK", true),
			ExploratoryConfidenceCap: getEnvFloat("EXPLORATORY_CONFIDENCE_CAP", 0.55),
		},
		Logging: LoggingConfig{
			Level:              getEnv("LOG_LEVEL", "info"),
			Format:             getEnv("LOG_FORMAT", "text"),
			EnableRequestLog:   getEnvBool("ENABLE_REQUEST_LOGGING", true),
			EnableErrorDetails: getEnvBool("ENABLE_ERROR_DETAILS", environment == "local"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid number between 1 and 65535")
	}
	if c.Reasoner.Enabled {
		if c.Gateway.ModelID == "" {
			return fmt.Errorf("BEDROCK_MODEL_ID is required when LLM_REASONER_ENABLED=true")
		}
	}
	if c.Hybrid.Enabled {
		if c.Hybrid.OpenSearchHost == "" {
			return fmt.Errorf("OPENSEARCH_HOST is required when HYBRID_ENABLED=true")
		}
	}
	return nil
}

// IsProduction reports whether the process is running in a production-like
// environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Server.Production
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseEnvInt64(key string, defaultValue int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number", key)
	}
	return i, nil
}

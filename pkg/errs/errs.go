// Package errs defines the machine-readable error taxonomy shared across the
// retrieval pipeline. Components never branch on Error() string content;
// they branch on Kind.
package errs

import "fmt"

// Kind is a stable, machine-readable error classification.
type Kind string

const (
	KindConfigMissing   Kind = "config_missing"
	KindRateLimited      Kind = "rate_limited"
	KindChallenged       Kind = "challenged"
	KindTimeout          Kind = "timeout"
	KindParseEmpty       Kind = "parse_empty"
	KindHTTP403          Kind = "http_403"
	KindHTTP429          Kind = "http_429"
	KindNetwork          Kind = "network"
	KindReasonerEmpty    Kind = "reasoner_empty_error"
	KindReasonerUnparsed Kind = "reasoner_unparseable_error"
	KindReasonerPlan     Kind = "reasoner_unusable_plan_error"
	KindReasonerMaxToks  Kind = "reasoner_max_tokens_error"
	KindReasonerSketch   Kind = "reasoner_sketch_unusable_error"
	KindReasonerCircuit  Kind = "reasoner_circuit_open"
	KindHybridFallback   Kind = "hybrid_fallback_miss"
	KindFatal            Kind = "fatal"
	KindUnknown          Kind = "unknown"
)

// Error is the single typed error shape used across the pipeline. It wraps
// an optional cause and carries a machine-readable Kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds a *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a *Error carrying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, otherwise
// returns KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if asError(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Cacheable reports whether a failure of this kind may be cached, per the
// detail-cache invariant: only http_403, http_429 and parse_empty failures
// are ever persisted as negative cache entries.
func Cacheable(kind Kind) bool {
	switch kind {
	case KindHTTP403, KindHTTP429, KindParseEmpty:
		return true
	default:
		return false
	}
}

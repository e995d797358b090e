package modelgateway

import (
	"errors"
	"testing"

	smithy "github.com/aws/smithy-go"
)

func TestValidate(t *testing.T) {
	if err := Validate("", "us-east-1"); err == nil {
		t.Fatalf("expected error for empty model id")
	}
	if err := Validate("anthropic.claude-3", ""); err == nil {
		t.Fatalf("expected error for empty region")
	}
	if err := Validate("anthropic.claude-3", "us-east-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSalvageJSON(t *testing.T) {
	text := "here is the result: {\"a\":1,\"b\":[1,2]} thanks"
	got, ok := SalvageJSON(text)
	if !ok {
		t.Fatalf("expected salvage to succeed")
	}
	if got != `{"a":1,"b":[1,2]}` {
		t.Fatalf("unexpected salvage result: %q", got)
	}
}

func TestSalvageJSONNoBrackets(t *testing.T) {
	if _, ok := SalvageJSON("no json here"); ok {
		t.Fatalf("expected salvage to fail")
	}
}

func TestIsUnsupportedConfigErrorDetectsValidationExceptionOnKnownOptions(t *testing.T) {
	err := &smithy.GenericAPIError{Code: "ValidationException", Message: "temperature is not supported for this model"}
	if !isUnsupportedConfigError(err) {
		t.Fatalf("expected a ValidationException naming temperature to be treated as an unsupported-config error")
	}
}

func TestIsUnsupportedConfigErrorIgnoresOtherFailures(t *testing.T) {
	if isUnsupportedConfigError(errors.New("connection reset")) {
		t.Fatalf("did not expect a plain network error to be treated as unsupported-config")
	}
	throttled := &smithy.GenericAPIError{Code: "ThrottlingException", Message: "rate exceeded"}
	if isUnsupportedConfigError(throttled) {
		t.Fatalf("did not expect a throttling error to be treated as unsupported-config")
	}
}

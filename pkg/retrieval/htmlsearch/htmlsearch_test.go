package htmlsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"caselaw-retrieval/pkg/models"
	"caselaw-retrieval/pkg/retrieval"
)

func TestSearchParsesGenericAnchorBlockAndDedupes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Results</title></head><body>
			<div id="results">
				<a href="/doc/1">State of Delhi v Rao</a>
				<a href="/doc/1">State of Delhi v Rao</a>
			</div>
		</body></html>`))
	}))
	defer srv.Close()

	cooldown := retrieval.NewCooldownTracker()
	c := New(Config{BaseURL: srv.URL, MaxPages: 1}, cooldown)
	out, err := c.Search(context.Background(), retrieval.Input{
		Variant: models.QueryVariant{Phrase: "state of delhi v rao"}, Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Cases) != 1 {
		t.Fatalf("expected dedup to 1 case, got %d", len(out.Cases))
	}
	if out.Debug.ParserMode != "generic_anchor_block" {
		t.Fatalf("expected generic_anchor_block parser mode, got %q", out.Debug.ParserMode)
	}
}

func TestSearchDetectsCloudflareChallengeAndSetsCooldown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Just a moment...</title></head><body></body></html>`))
	}))
	defer srv.Close()

	cooldown := retrieval.NewCooldownTracker()
	c := New(Config{BaseURL: srv.URL, MaxPages: 1}, cooldown)
	out, err := c.Search(context.Background(), retrieval.Input{
		Variant: models.QueryVariant{Phrase: "anything"}, Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Debug.Cloudflare || out.Debug.BlockedType != retrieval.BlockedCloudflare {
		t.Fatalf("expected cloudflare challenge recorded, got %+v", out.Debug)
	}
	if _, blocked := cooldown.Blocked(scope); !blocked {
		t.Fatalf("expected cooldown to be set after cloudflare challenge")
	}
}

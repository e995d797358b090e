package hybrid

import "testing"

func TestReciprocalRankFusionPrefersItemsRankedHighInBothLegs(t *testing.T) {
	lexical := []LexicalHit{
		{URL: "http://a", Title: "A"},
		{URL: "http://b", Title: "B"},
	}
	semantic := []SemanticHit{
		{URL: "http://b", Title: "B"},
		{URL: "http://a", Title: "A"},
	}
	fused := ReciprocalRankFusion(lexical, semantic)
	if len(fused) != 2 {
		t.Fatalf("expected 2 fused items, got %d", len(fused))
	}
	if fused[0].score != fused[1].score {
		t.Fatalf("expected both items (rank 0 and 1 across the two legs) to tie, got %+v", fused)
	}
}

func TestReciprocalRankFusionDedupesByURL(t *testing.T) {
	lexical := []LexicalHit{{URL: "http://a", Title: "A", Snippet: "lexical snippet"}}
	semantic := []SemanticHit{{URL: "http://a", Title: "A"}}
	fused := ReciprocalRankFusion(lexical, semantic)
	if len(fused) != 1 {
		t.Fatalf("expected one fused entry for the shared URL, got %d", len(fused))
	}
	if fused[0].snippet != "lexical snippet" {
		t.Fatalf("expected snippet preserved from the leg that had one, got %q", fused[0].snippet)
	}
}

func TestJaccardRerankOrdersByTokenOverlap(t *testing.T) {
	items := []fusedItem{
		{title: "unrelated budget circular", snippet: "office memo"},
		{title: "State v. Rao bail application", snippet: "anticipatory bail under section 438"},
	}
	ranked := jaccardRerank("anticipatory bail section 438", items)
	if ranked[0].title != items[1].title {
		t.Fatalf("expected the bail-related item ranked first, got %+v", ranked)
	}
}

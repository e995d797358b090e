package chunkstore

import "testing"

func TestChunkLegalDocumentPreservesStatuteTokensAndCitations(t *testing.T) {
	doc := Document{
		DocID: "doc-1",
		Text: "The appellant was convicted under Section 304 IPC. The trial court relied on " +
			"1973 AIR 456 while framing charges. " + longFiller() +
			" The High Court later discussed Section 197 CrPC sanction separately from the main narrative.",
		StatuteTokens: []string{"section 304 ipc", "section 197 crpc"},
		Citations:     []string{"1973 AIR 456"},
	}

	chunks := ChunkLegalDocument(doc)
	if len(chunks) == 0 {
		t.Fatalf("expected at least one chunk")
	}

	for _, token := range doc.StatuteTokens {
		if !anyChunkContains(chunks, token) {
			t.Fatalf("expected statute token %q to survive in at least one chunk", token)
		}
	}
	for _, cite := range doc.Citations {
		if !anyChunkContains(chunks, cite) {
			t.Fatalf("expected citation %q to survive in at least one chunk", cite)
		}
	}
}

func anyChunkContains(chunks []Chunk, term string) bool {
	for _, c := range chunks {
		for _, t := range append(append([]string{}, c.StatuteTokens...), c.Citations...) {
			if t == term {
				return true
			}
		}
	}
	return false
}

func longFiller() string {
	s := ""
	for i := 0; i < 40; i++ {
		s += "The facts recited at length concern procedural history of no statutory significance. "
	}
	return s
}

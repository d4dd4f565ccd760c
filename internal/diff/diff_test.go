package diff

import "testing"

func TestExtractFencesSimple(t *testing.T) {
	resp := "```diff\nfoo bar\n```"
	got, err := extractFences(resp)
	if err != nil {
		t.Fatalf("extractFences: %v", err)
	}
	if got != "foo bar\n" {
		t.Errorf("got %q", got)
	}
}

func TestExtractFencesNoBlocks(t *testing.T) {
	if _, err := extractFences("just text, no diff here"); err == nil {
		t.Fatalf("expected error for chat response with no diff blocks")
	}
}

func TestSplitChunksBasic(t *testing.T) {
	raw := "    A simple diff description.\n\n" +
		"--- foo.rs\n+++ foo.rs\n@@ -1,1 +1,1 @@\n context\n-foo\n+bar\n" +
		"--- bar.rs\n+++ bar.rs\n@@ -10,1 +10,2 @@\n-bar\n+quux\n+quux2\n"

	chunks := splitChunks(raw)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if *chunks[0].Src != "foo.rs" || *chunks[0].Dst != "foo.rs" {
		t.Errorf("unexpected first chunk paths: %+v", chunks[0])
	}
	if len(chunks[0].Hunks) != 1 || len(chunks[0].Hunks[0].Lines) != 3 {
		t.Fatalf("unexpected first chunk hunks: %+v", chunks[0].Hunks)
	}
	if *chunks[1].Src != "bar.rs" {
		t.Errorf("unexpected second chunk src: %v", chunks[1].Src)
	}
}

func TestSplitChunksDevNull(t *testing.T) {
	raw := "--- /dev/null\n+++ new.go\n@@ -0,0 +1,1 @@\n+package a\n"
	chunks := splitChunks(raw)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Src != nil {
		t.Errorf("expected nil src for /dev/null, got %v", *chunks[0].Src)
	}
}

func TestRelaxedParseDropsContextOnlyHunk(t *testing.T) {
	raw := "--- a.go\n+++ a.go\n@@ -1,2 +1,2 @@\n context one\n context two\n"
	chunks := RelaxedParse(raw)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if len(chunks[0].Hunks) != 0 {
		t.Errorf("expected the pure-context hunk to be dropped, got %+v", chunks[0].Hunks)
	}
}

func TestFixupRecomputesCounts(t *testing.T) {
	h := Hunk{
		SrcLine: 10, SrcCount: 5, DstLine: 10, DstCount: 5,
		Lines: []Line{
			{Kind: DelLine, Text: "fn main() {"},
			{Kind: AddLine, Text: "fn main() {"},
			{Kind: Context, Text: "    let a = 123;"},
			{Kind: DelLine, Text: "    println!(a);"},
			{Kind: AddLine, Text: "    dbg!(&a);"},
			{Kind: Context, Text: "}"},
		},
	}
	ok := h.fixup()
	if !ok {
		t.Fatalf("expected fixup to report a real change")
	}
	// "fn main() {" was deleted and re-added identically, so it collapses
	// into a single context line.
	if h.Lines[0].Kind != Context || h.Lines[0].Text != "fn main() {" {
		t.Errorf("expected the no-op del/add pair to collapse to context, got %+v", h.Lines[0])
	}
}

func TestExtractEndToEnd(t *testing.T) {
	resp := "```diff\n--- a.go\n+++ a.go\n@@ -1,1 +1,1 @@\n-old\n+new\n```"
	chunks, err := Extract(resp)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(chunks) != 1 || len(chunks[0].Hunks) != 1 {
		t.Fatalf("unexpected result: %+v", chunks)
	}
}

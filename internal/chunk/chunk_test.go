package chunk

import (
	"strings"
	"testing"
)

func TestChunkBelowMinYieldsNothing(t *testing.T) {
	c, err := New(50, 300, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	spans := c.Chunk("repo", "main.go", "x := 1\n", "go")
	if len(spans) != 0 {
		t.Fatalf("expected no spans below min_tokens, got %d", len(spans))
	}
}

func TestChunkSmallFileSingleSpan(t *testing.T) {
	c, err := New(5, 300, 50)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	content := strings.Repeat("func main() {\n\tprintln(\"hi\")\n}\n", 3)
	spans := c.Chunk("repo", "main.go", content, "go")
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Text != content {
		t.Errorf("single chunk should cover the whole file, got %q", spans[0].Text)
	}
}

// TestChunkTokenBounds is Testable Property #1: every emitted chunk's
// token count lies in [min, max_adjusted], except possibly the last.
func TestChunkTokenBounds(t *testing.T) {
	minTokens, maxTokens, overlap := 10, 40, 5
	c, err := New(minTokens, maxTokens, overlap)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var b strings.Builder
	for i := 0; i < 80; i++ {
		b.WriteString("func f")
		b.WriteString(strings.Repeat("x", i%3))
		b.WriteString("() {\n\treturn\n}\n\n")
	}
	content := b.String()
	spans := c.Chunk("repo", "main.go", content, "go")
	if len(spans) < 2 {
		t.Fatalf("expected multiple spans for large input, got %d", len(spans))
	}

	headerTokens := len(c.tokenizer.Encode("repo\tmain.go\n", nil, nil))
	adjustedMax := maxTokens - deductSpecialTokens - headerTokens

	for i, s := range spans {
		n := len(c.tokenizer.Encode(s.Text, nil, nil))
		if n > adjustedMax {
			t.Errorf("span %d has %d tokens, exceeds adjusted max %d", i, n, adjustedMax)
		}
		if i < len(spans)-1 && n < minTokens {
			t.Errorf("non-last span %d has %d tokens, below min %d", i, n, minTokens)
		}
	}
}

// TestChunkCoverage is Testable Property #2: chunk ranges, in file order,
// only ever step forward and each later chunk starts no earlier than the
// previous one, so content isn't indexed out of order.
func TestChunkCoverage(t *testing.T) {
	c, err := New(10, 40, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("line ")
		b.WriteString(strings.Repeat("y", i%4))
		b.WriteString("\n")
	}
	content := b.String()
	spans := c.Chunk("repo", "main.go", content, "go")
	if len(spans) < 2 {
		t.Fatalf("expected multiple spans, got %d", len(spans))
	}
	for i := 1; i < len(spans); i++ {
		if spans[i].Range.Start.Byte < spans[i-1].Range.Start.Byte {
			t.Errorf("span %d starts before span %d: %d < %d", i, i-1, spans[i].Range.Start.Byte, spans[i-1].Range.Start.Byte)
		}
		if spans[i].Range.End.Byte <= spans[i-1].Range.Start.Byte {
			t.Errorf("span %d (%d-%d) makes no forward progress past span %d's start", i, spans[i].Range.Start.Byte, spans[i].Range.End.Byte, i-1)
		}
	}
	if spans[len(spans)-1].Range.End.Byte != len(content) {
		t.Errorf("last span should reach end of content: got end byte %d, content length %d", spans[len(spans)-1].Range.End.Byte, len(content))
	}
}

func TestChunkFallsBackToLinesOnEncodeFailure(t *testing.T) {
	c, err := New(1, 300, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.maxLines = 2
	content := "a\nb\nc\nd\ne\n"
	spans := c.byLines(content)
	if len(spans) != 3 {
		t.Fatalf("expected 3 two-line chunks, got %d", len(spans))
	}
	if spans[0].Text != "a\nb" {
		t.Errorf("unexpected first chunk: %q", spans[0].Text)
	}
}

func TestSetLimitsValidation(t *testing.T) {
	c, _ := New(50, 300, 50)
	if err := c.SetLimits(10, 1, 0); err == nil {
		t.Errorf("expected error for maxTokens below special-token reserve")
	}
	if err := c.SetLimits(10, 100, 200); err == nil {
		t.Errorf("expected error when overlap >= maxTokens")
	}
	if err := c.SetLimits(400, 200, 50); err == nil {
		t.Errorf("expected error when minTokens > maxTokens")
	}
	if err := c.SetLimits(10, 200, 50); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

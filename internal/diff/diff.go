// Package diff extracts and repairs unified diffs embedded in an LLM's
// chat response, grounded on bloop's webserver/studio/diff.rs: find the
// fenced ```diff blocks, split them into per-file chunks and per-hunk
// ranges, then regenerate each hunk's line ranges from its own content so
// a model's sloppy line-count arithmetic never reaches the caller.
package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LineKind classifies one line of a hunk.
type LineKind int

const (
	Context LineKind = iota
	AddLine
	DelLine
)

// Line is one line of a hunk body.
type Line struct {
	Kind LineKind
	Text string
}

func (l Line) String() string {
	switch l.Kind {
	case AddLine:
		return "+" + l.Text
	case DelLine:
		return "-" + l.Text
	default:
		return " " + l.Text
	}
}

// Hunk is one `@@ -a,b +c,d @@` range plus its lines.
type Hunk struct {
	SrcLine, SrcCount int
	DstLine, DstCount int
	Lines             []Line
}

func (h Hunk) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.SrcLine, h.SrcCount, h.DstLine, h.DstCount)
	for _, l := range h.Lines {
		b.WriteString(l.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Chunk is one file's diff: its old/new path (nil for /dev/null, i.e. a
// created or deleted file) and its hunks.
type Chunk struct {
	Src, Dst *string
	Hunks    []Hunk
}

func (c Chunk) String() string {
	src, dst := "/dev/null", "/dev/null"
	if c.Src != nil {
		src = *c.Src
	}
	if c.Dst != nil {
		dst = *c.Dst
	}
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", src, dst)
	for _, h := range c.Hunks {
		b.WriteString(h.String())
	}
	return b.String()
}

var fencedDiffRe = regexp.MustCompile("(?s)```diff\\n(.*?)\\n```")

// Extract pulls every fenced diff block out of chatResponse, concatenates
// them and relaxed-parses the result into Chunks.
func Extract(chatResponse string) ([]Chunk, error) {
	raw, err := extractFences(chatResponse)
	if err != nil {
		return nil, err
	}
	return RelaxedParse(raw), nil
}

func extractFences(chatResponse string) (string, error) {
	matches := fencedDiffRe.FindAllStringSubmatch(chatResponse, -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("diff: chat response didn't contain any diff blocks")
	}
	var b strings.Builder
	for _, m := range matches {
		b.WriteString(m[1])
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// RelaxedParse splits raw into Chunks and repairs each hunk's line counts,
// tolerating a model's inaccurate @@ range arithmetic.
func RelaxedParse(raw string) []Chunk {
	chunks := splitChunks(raw)
	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		c.fixupHunks()
		out = append(out, c)
	}
	return out
}

var (
	dashMarkerRe = regexp.MustCompile(`(?m)^---`)
	chunkHeadRe  = regexp.MustCompile(`(?m)^ (.*)\n\+\+\+ (.*)\n`)
)

// splitChunks breaks raw on "---" file markers and pulls the matching
// "+++" destination line plus the hunk body that follows it, mirroring
// bloop's split on `^---` followed by a `(src)\n+++ (dst)\n` header match.
func splitChunks(raw string) []Chunk {
	fragments := dashMarkerRe.Split(raw, -1)
	var out []Chunk
	for _, frag := range fragments {
		loc := chunkHeadRe.FindStringSubmatchIndex(frag)
		if loc == nil || loc[0] != 0 {
			continue
		}
		src := frag[loc[2]:loc[3]]
		dst := frag[loc[4]:loc[5]]
		body := frag[loc[1]:]
		out = append(out, Chunk{
			Src:   devNullOrPath(src),
			Dst:   devNullOrPath(dst),
			Hunks: splitHunks(body),
		})
	}
	return out
}

func devNullOrPath(s string) *string {
	if s == "/dev/null" {
		return nil
	}
	v := s
	return &v
}

var hunkHeaderRe = regexp.MustCompile(`(?m)^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@.*$\n`)

// splitHunks finds every `@@ ... @@` range in body and collects the
// context/add/del lines that follow it, up to the next range header.
func splitHunks(body string) []Hunk {
	locs := hunkHeaderRe.FindAllStringSubmatchIndex(body, -1)
	var out []Hunk
	for i, loc := range locs {
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		h := Hunk{
			SrcLine:  atoiOr(body, loc[2], loc[3], 0),
			SrcCount: atoiOr(body, loc[4], loc[5], 1),
			DstLine:  atoiOr(body, loc[6], loc[7], 0),
			DstCount: atoiOr(body, loc[8], loc[9], 1),
		}
		hunkBody := body[loc[1]:end]
		for _, line := range strings.Split(strings.TrimSuffix(hunkBody, "\n"), "\n") {
			if line == "" {
				h.Lines = append(h.Lines, Line{Kind: Context, Text: ""})
				continue
			}
			switch line[0] {
			case '+':
				h.Lines = append(h.Lines, Line{Kind: AddLine, Text: line[1:]})
			case '-':
				h.Lines = append(h.Lines, Line{Kind: DelLine, Text: line[1:]})
			case ' ':
				h.Lines = append(h.Lines, Line{Kind: Context, Text: line[1:]})
			default:
				h.Lines = append(h.Lines, Line{Kind: Context, Text: line})
			}
		}
		out = append(out, h)
	}
	return out
}

func atoiOr(s string, start, end, def int) int {
	if start < 0 || end < 0 {
		return def
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return def
	}
	return n
}

// fixupHunks repairs every hunk's line ranges in place and drops hunks
// that turn out to be pure context (no real change) after repair.
func (c *Chunk) fixupHunks() {
	kept := c.Hunks[:0]
	for _, h := range c.Hunks {
		if !h.fixup() {
			continue
		}
		if hasChange(h.Lines) {
			kept = append(kept, h)
		}
	}
	c.Hunks = kept
}

func hasChange(lines []Line) bool {
	for _, l := range lines {
		if l.Kind != Context {
			return true
		}
	}
	return false
}

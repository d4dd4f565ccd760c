// Package textrange implements positions and ranges over UTF-8 source
// buffers, plus snippet expansion with highlight spans.
package textrange

import "strings"

// Point is a position in a source buffer.
type Point struct {
	Byte   int
	Line   int
	Column int
}

// Range is a half-open [Start, End) span over a buffer.
type Range struct {
	Start Point
	End   Point
}

// Contains reports whether r fully contains other.
func (r Range) Contains(other Range) bool {
	return r.Start.Byte <= other.Start.Byte && other.End.Byte <= r.End.Byte
}

// ContainsPoint reports whether r contains the byte offset b.
func (r Range) ContainsPoint(b int) bool {
	return r.Start.Byte <= b && b < r.End.Byte
}

// Overlaps reports whether r and other share any byte.
func (r Range) Overlaps(other Range) bool {
	return r.Start.Byte < other.End.Byte && other.Start.Byte < r.End.Byte
}

// Len returns the byte length of the range.
func (r Range) Len() int {
	return r.End.Byte - r.Start.Byte
}

// Cover returns the smallest range enclosing both r and other.
func Cover(r, other Range) Range {
	cov := r
	if other.Start.Byte < cov.Start.Byte {
		cov.Start = other.Start
	}
	if other.End.Byte > cov.End.Byte {
		cov.End = other.End
	}
	return cov
}

// LineEndIndices computes the byte offset of each newline in content, in
// order. This backs ContentDocument.line_end_indices.
func LineEndIndices(content string) []int {
	var ends []int
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			ends = append(ends, i)
		}
	}
	return ends
}

// PointAt converts a byte offset into a Point given pre-computed newline
// offsets (as returned by LineEndIndices). Lines and columns are 0-based.
func PointAt(byteOffset int, lineEnds []int) Point {
	line := 0
	lineStart := 0
	for _, end := range lineEnds {
		if end >= byteOffset {
			break
		}
		line++
		lineStart = end + 1
	}
	return Point{Byte: byteOffset, Line: line, Column: byteOffset - lineStart}
}

// Highlight marks a sub-span of a Snippet's text that should be emphasised.
type Highlight struct {
	Start int
	End   int
}

// Snippet is an expanded window of source around a range of interest, with
// highlight spans relative to Text.
type Snippet struct {
	Text       string
	StartLine  int
	EndLine    int
	Highlights []Highlight
}

// Expand builds a Snippet for `target` within `content`, growing `before`
// lines up and `after` lines down from the target's line span, and recording
// highlight offsets for the target range relative to the expanded text.
func Expand(content string, target Range, before, after int) Snippet {
	lines := strings.Split(content, "\n")
	startLine := target.Start.Line - before
	if startLine < 0 {
		startLine = 0
	}
	endLine := target.End.Line + after
	if endLine >= len(lines) {
		endLine = len(lines) - 1
	}
	if endLine < startLine {
		endLine = startLine
	}

	selected := lines[startLine : endLine+1]
	text := strings.Join(selected, "\n")

	// Compute the byte offset of startLine within the expanded text to
	// translate the target range into Snippet-relative highlight offsets.
	prefixLen := 0
	for i := 0; i < startLine; i++ {
		prefixLen += len(lines[i]) + 1
	}
	hlStart := target.Start.Byte - prefixLen
	hlEnd := target.End.Byte - prefixLen
	if hlStart < 0 {
		hlStart = 0
	}
	if hlEnd > len(text) {
		hlEnd = len(text)
	}
	if hlEnd < hlStart {
		hlEnd = hlStart
	}

	return Snippet{
		Text:       text,
		StartLine:  startLine,
		EndLine:    endLine,
		Highlights: []Highlight{{Start: hlStart, End: hlEnd}},
	}
}

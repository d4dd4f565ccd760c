package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// fixup regenerates h's lines from a fresh line-level diff of h's own
// src/dst reconstruction, the Go equivalent of bloop's diffy-based
// DiffHunk::fixup: it throws away whatever line counts and grouping the
// model produced and rebuilds them from the actual text, so a hunk that
// claims "-5,3 +5,9" but only touches one line collapses back down.
// Reports whether the hunk still represents a change after regeneration.
func (h *Hunk) fixup() bool {
	var src, dst strings.Builder
	for _, l := range h.Lines {
		switch l.Kind {
		case Context:
			src.WriteString(l.Text)
			src.WriteByte('\n')
			dst.WriteString(l.Text)
			dst.WriteByte('\n')
		case DelLine:
			src.WriteString(l.Text)
			src.WriteByte('\n')
		case AddLine:
			dst.WriteString(l.Text)
			dst.WriteByte('\n')
		}
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(src.String(), dst.String())
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var newLines []Line
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		if text == "" {
			continue
		}
		for _, line := range strings.Split(text, "\n") {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				newLines = append(newLines, Line{Kind: Context, Text: line})
			case diffmatchpatch.DiffInsert:
				newLines = append(newLines, Line{Kind: AddLine, Text: line})
			case diffmatchpatch.DiffDelete:
				newLines = append(newLines, Line{Kind: DelLine, Text: line})
			}
		}
	}
	if len(newLines) == 0 {
		return false
	}
	h.Lines = newLines

	srcCount, dstCount := 0, 0
	for _, l := range newLines {
		if l.Kind == Context || l.Kind == DelLine {
			srcCount++
		}
		if l.Kind == Context || l.Kind == AddLine {
			dstCount++
		}
	}
	h.SrcCount, h.DstCount = srcCount, dstCount
	return hasChange(newLines)
}

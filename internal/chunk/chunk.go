// Package chunk splits file content into token-bounded, boundary-aware
// spans suitable for embedding. It generalizes the teacher's
// indexer.TokenChunker into a reusable component that emits byte-range
// chunks rather than CodeChunk records, so it can feed both the lexical
// and vector indexes. The greedy walk is ported from bloop's
// semantic::chunk::by_tokens (server/bleep/src/semantic/chunk.rs).
package chunk

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jamaly87/codesearch/internal/textrange"
)

// deductSpecialTokens reserves room for the special tokens (e.g. BOS/EOS)
// the embedding model adds around a chunk, mirroring bloop's
// DEDUCT_SPECIAL_TOKENS.
const deductSpecialTokens = 2

// newlineBoundaryRatio and boundaryRatio are the ¾/⅞ thresholds of the
// adjusted max-token budget at which the walk starts preferring,
// respectively, the last newline and the last clean token boundary over a
// hard cutoff at the limit.
const (
	newlineBoundaryRatio = 3.0 / 4.0
	boundaryRatio        = 7.0 / 8.0
)

// Span is one chunk of a source file, as a byte/line range plus its text.
type Span struct {
	Range textrange.Range
	Text  string
}

// Chunker splits source text into token-bounded spans using the cl100k_base
// encoding.
type Chunker struct {
	tokenizer *tiktoken.Tiktoken

	mu        sync.RWMutex
	minTokens int
	maxTokens int
	overlap   int // ByLines(n): the next chunk backs up n tokens from the previous end
	maxLines  int // fallback chunk size when tokenization fails
}

// New builds a Chunker bounding chunks to [minTokens, maxTokens] tokens,
// backing up overlapTokens tokens at the start of each subsequent chunk.
func New(minTokens, maxTokens, overlapTokens int) (*Chunker, error) {
	tokenizer, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load cl100k_base encoding: %w", err)
	}
	return &Chunker{
		tokenizer: tokenizer,
		minTokens: minTokens,
		maxTokens: maxTokens,
		overlap:   overlapTokens,
		maxLines:  15,
	}, nil
}

// SetLimits updates the chunk size bounds and overlap, matching the
// teacher's per-size-tier adaptive tuning.
func (c *Chunker) SetLimits(minTokens, maxTokens, overlapTokens int) error {
	if maxTokens <= deductSpecialTokens {
		return fmt.Errorf("maxTokens must exceed special-token reserve (%d), got %d", deductSpecialTokens, maxTokens)
	}
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		return fmt.Errorf("overlap must be in [0, maxTokens), got %d", overlapTokens)
	}
	if minTokens < 0 || minTokens > maxTokens {
		return fmt.Errorf("minTokens must be in [0, maxTokens], got %d", minTokens)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.minTokens = minTokens
	c.maxTokens = maxTokens
	c.overlap = overlapTokens
	return nil
}

// Chunk splits content into token-bounded spans for repoName/relativePath,
// following the greedy-walk algorithm: content shorter than minTokens
// yields nothing; max is reduced by a per-chunk header reservation for
// "<repo>\t<path>\n" plus deductSpecialTokens; each chunk's end prefers the
// last newline in the top quarter of the budget, else the last clean token
// boundary in the top eighth, else the hard limit; the next chunk starts
// overlap tokens back from the previous end, snapped to the nearest
// newline (forward, else backward), else a clean token boundary.
func (c *Chunker) Chunk(repoName, relativePath, content, language string) []Span {
	c.mu.RLock()
	minTokens, maxTokens, overlap := c.minTokens, c.maxTokens, c.overlap
	c.mu.RUnlock()

	if len(content) < minTokens {
		return nil
	}

	ids, ok := c.tryEncode(content)
	if !ok {
		return c.byLines(content)
	}
	if len(ids) < minTokens {
		return nil
	}

	headerTokens := len(c.tokenizer.Encode(repoName+"\t"+relativePath+"\n", nil, nil))
	if maxTokens <= deductSpecialTokens+headerTokens {
		return nil
	}
	adjustedMax := maxTokens - deductSpecialTokens - headerTokens

	offsets := c.tokenOffsets(ids)
	_ = language // boundary preference is purely newline/token-driven per spec; language is unused here
	return c.walk(content, offsets, adjustedMax, minTokens, overlap)
}

// tryEncode encodes content, recovering from a tokenizer panic so callers
// can fall back to line-based chunking the same way the spec treats an
// encoding failure.
func (c *Chunker) tryEncode(content string) (ids []int, ok bool) {
	defer func() {
		if recover() != nil {
			ids, ok = nil, false
		}
	}()
	ids = c.tokenizer.Encode(content, nil, nil)
	return ids, true
}

// tokenOffsets computes each token's byte range by decoding tokens
// one-by-one and accumulating lengths. cl100k_base is a byte-level BPE, so
// concatenating each token's individually-decoded bytes reproduces the
// original content exactly; there is no separate offsets API in
// tiktoken-go.
func (c *Chunker) tokenOffsets(ids []int) [][2]int {
	offsets := make([][2]int, len(ids))
	pos := 0
	for i, id := range ids {
		piece := c.tokenizer.Decode([]int{id})
		offsets[i] = [2]int{pos, pos + len(piece)}
		pos += len(piece)
	}
	return offsets
}

// walk runs the greedy token-index walk described in Chunk's doc comment,
// translating token-index ranges into byte ranges via offsets.
func (c *Chunker) walk(content string, offsets [][2]int, adjustedMax, minTokens, overlap int) []Span {
	n := len(offsets)
	if adjustedMax <= 0 || n == 0 {
		return nil
	}
	newlineFloor := int(float64(adjustedMax) * newlineBoundaryRatio)
	boundaryFloor := int(float64(adjustedMax) * boundaryRatio)
	lineEnds := textrange.LineEndIndices(content)

	hasNewline := func(i int) bool {
		return strings.Contains(content[offsets[i][0]:offsets[i][1]], "\n")
	}
	cleanBoundaryAfter := func(i int) bool {
		if i+1 >= n {
			return true
		}
		b := offsets[i+1][0]
		if b >= len(content) {
			return true
		}
		return !isUTF8Continuation(content[b])
	}

	var spans []Span
	start := 0
	for start < n {
		nextLimit := start + adjustedMax
		var endLimit int
		switch {
		case nextLimit >= n:
			endLimit = n
		default:
			if idx, ok := rfindIndex(start+newlineFloor, nextLimit, n, hasNewline); ok {
				endLimit = idx
			} else if idx, ok := rfindIndex(start+boundaryFloor, nextLimit, n, cleanBoundaryAfter); ok {
				endLimit = idx
			} else {
				endLimit = nextLimit
			}
		}

		if endLimit-start >= minTokens {
			startByte := offsets[start][0]
			endByte := tokenStartByte(offsets, endLimit+1, len(content))
			startPt := textrange.PointAt(startByte, lineEnds)
			endPt := textrange.PointAt(endByte, lineEnds)
			spans = append(spans, Span{
				Range: textrange.Range{Start: startPt, End: endPt},
				Text:  content[startByte:endByte],
			})
		}
		if endLimit == n {
			break
		}

		diff := nextSubdivision(endLimit-start, overlap)
		mid := start + diff

		nextIdx, hasNext := findIndex(mid, endLimit, n, hasNewline)
		prevIdx, hasPrev := rfindIndex(start+diff/2, mid, n, hasNewline)
		if hasPrev {
			prevIdx++
		}

		switch {
		case hasNext && hasPrev:
			if nextIdx-mid < mid-prevIdx {
				start = nextIdx
			} else {
				start = prevIdx
			}
		case hasNext:
			start = nextIdx
		case hasPrev:
			start = prevIdx
		default:
			if idx, ok := findIndex(mid, endLimit, n, cleanBoundaryAfter); ok {
				start = idx
			} else {
				start = mid
			}
		}
		if start <= 0 {
			start = mid
		}
	}

	return spans
}

// nextSubdivision is OverlapStrategy::ByLines(n).next_subdivision: back up
// overlap tokens from the end of the chunk just emitted, clamped to make
// forward progress.
func nextSubdivision(tokensInChunk, overlap int) int {
	d := tokensInChunk - overlap
	if d < 1 {
		d = 1
	}
	return d
}

// rfindIndex searches [lo, hi) (clamped to [0, n)) from high to low for the
// last index satisfying pred.
func rfindIndex(lo, hi, n int, pred func(int) bool) (int, bool) {
	if hi > n {
		hi = n
	}
	if lo < 0 {
		lo = 0
	}
	for i := hi - 1; i >= lo; i-- {
		if pred(i) {
			return i, true
		}
	}
	return 0, false
}

// findIndex searches [lo, hi) (clamped to [0, n)) from low to high for the
// first index satisfying pred.
func findIndex(lo, hi, n int, pred func(int) bool) (int, bool) {
	if hi > n {
		hi = n
	}
	if lo < 0 {
		lo = 0
	}
	for i := lo; i < hi; i++ {
		if pred(i) {
			return i, true
		}
	}
	return 0, false
}

// tokenStartByte returns the byte offset at which token idx starts, or the
// content length once idx runs past the last token.
func tokenStartByte(offsets [][2]int, idx, contentLen int) int {
	if idx < len(offsets) {
		return offsets[idx][0]
	}
	return contentLen
}

// isUTF8Continuation reports whether b is a UTF-8 continuation byte
// (10xxxxxx), the Go analogue of the WordPiece "##" continuation marker
// the original tokenizer exposed: splitting there would fall inside a
// multi-byte rune.
func isUTF8Continuation(b byte) bool {
	return b&0xC0 == 0x80
}

// byLines groups every maxLines lines into one chunk, the spec's fallback
// when the tokenizer cannot encode content.
func (c *Chunker) byLines(content string) []Span {
	if content == "" {
		return nil
	}
	size := c.maxLines
	if size <= 0 {
		size = 15
	}
	lineEnds := textrange.LineEndIndices(content)
	starts := append([]int{0}, lineEnds...)

	var spans []Span
	for i := 0; i < len(starts); i += size {
		startByte := starts[i]
		var endByte int
		if j := i + size; j < len(starts) {
			endByte = starts[j]
		} else {
			endByte = len(content)
		}
		if startByte >= endByte {
			continue
		}
		startPt := textrange.PointAt(startByte, lineEnds)
		endPt := textrange.PointAt(endByte, lineEnds)
		spans = append(spans, Span{
			Range: textrange.Range{Start: startPt, End: endPt},
			Text:  content[startByte:endByte],
		})
	}
	return spans
}

// Package lexical is an in-memory trigram-postings index over indexed file
// paths and contents. It is hand-built: no library in the example corpus
// ships a ready-made full-text engine, so the postings structure below
// follows the teacher's trigram/case-permutation design in
// server/bleep/src/query/compiler.rs (trigram extraction plus a
// case-permutation expansion at query time, rather than folding case at
// index time) adapted to an in-memory posting list instead of tantivy.
package lexical

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/jamaly87/codesearch/internal/models"
	"github.com/jamaly87/codesearch/internal/query"
)

const ngramSize = 3

// docID is an index into Index.docs.
type docID int

// Posting is one occurrence of a trigram within a document.
type Posting struct {
	Doc    docID
	Offset int
}

// Index is a trigram-postings full-text index over a set of ContentDocuments,
// queried by exact path, fuzzy path, and repo-wide listing.
type Index struct {
	docs     []models.ContentDocument
	byPath   map[string]docID
	postings map[string][]Posting // content trigrams, case-preserved
	pathTris map[string][]docID   // path trigrams, case-folded for fuzzy match
}

// New builds an empty Index.
func New() *Index {
	return &Index{
		byPath:   make(map[string]docID),
		postings: make(map[string][]Posting),
		pathTris: make(map[string][]docID),
	}
}

// Add inserts doc into the index. Content is indexed under case-preserved
// trigrams; a case-insensitive query expands each of its own trigrams into
// every case permutation at lookup time instead, the same split the
// teacher's tokenizer keeps between storage and query.
func (ix *Index) Add(doc models.ContentDocument) {
	id := docID(len(ix.docs))
	ix.docs = append(ix.docs, doc)
	ix.byPath[doc.RelativePath] = id

	for _, tri := range trigrams(doc.Content) {
		ix.postings[tri.text] = append(ix.postings[tri.text], Posting{Doc: id, Offset: tri.offset})
	}
	seen := make(map[string]bool)
	for _, tri := range trigrams(strings.ToLower(doc.RelativePath)) {
		if seen[tri.text] {
			continue
		}
		seen[tri.text] = true
		ix.pathTris[tri.text] = append(ix.pathTris[tri.text], id)
	}
}

// Get fetches a document by its exact relative path.
func (ix *Index) Get(relativePath string) (models.ContentDocument, bool) {
	id, ok := ix.byPath[relativePath]
	if !ok {
		return models.ContentDocument{}, false
	}
	return ix.docs[id], true
}

// List returns every document whose RepoName is repoName (every document
// when repoName is empty), up to limit (0 means
// unlimited), sorted by path for stable output.
func (ix *Index) List(repoName string, limit int) []models.ContentDocument {
	var out []models.ContentDocument
	for _, d := range ix.docs {
		if repoName != "" && d.RepoName != repoName {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PathMatch is a fuzzy path-search hit, ranked by trigram overlap with the
// query.
type PathMatch struct {
	Doc   models.ContentDocument
	Score float64
}

// FuzzyPath ranks documents by trigram overlap between their relative path
// and query, approximating substring/fuzzy path matching without an edit
// distance pass over the whole corpus.
func (ix *Index) FuzzyPath(query string, limit int) []PathMatch {
	queryTris := trigrams(strings.ToLower(query))
	if len(queryTris) == 0 {
		return nil
	}
	counts := make(map[docID]int)
	for _, tri := range queryTris {
		for _, id := range ix.pathTris[tri.text] {
			counts[id]++
		}
	}
	matches := make([]PathMatch, 0, len(counts))
	for id, c := range counts {
		score := float64(c) / float64(len(queryTris))
		if strings.Contains(strings.ToLower(ix.docs[id].RelativePath), strings.ToLower(query)) {
			score += 1.0
		}
		matches = append(matches, PathMatch{Doc: ix.docs[id], Score: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Doc.RelativePath < matches[j].Doc.RelativePath
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// ContentMatch is one literal/regex content hit.
type ContentMatch struct {
	Doc    models.ContentDocument
	Offset int
}

// FindLiteral returns every occurrence of needle across indexed content,
// using the trigram postings to shortlist candidate documents before
// confirming with a direct substring scan (the standard trigram-index
// candidate-then-verify pattern).
func (ix *Index) FindLiteral(needle string, caseSensitive bool) []ContentMatch {
	candidates, ok := ix.literalCandidates(needle, caseSensitive)
	if !ok {
		return ix.scanAll(needle, caseSensitive)
	}
	var matches []ContentMatch
	for id := range candidates {
		matches = append(matches, verify(ix.docs[id], needle, caseSensitive)...)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Doc.RelativePath != matches[j].Doc.RelativePath {
			return matches[i].Doc.RelativePath < matches[j].Doc.RelativePath
		}
		return matches[i].Offset < matches[j].Offset
	})
	return matches
}

// SearchRegex finds every match of pattern across indexed content. It
// compiles pattern both into a Go regexp, for the authoritative match, and
// a query.Fragment trigram plan via query.PlanRegex, to narrow the
// candidate document set first — the same two-stage design the teacher's
// compiler.rs builds for tantivy (a trigram AND/OR prefilter ahead of the
// real pattern match), with Go's own regexp standing in for tantivy's
// query execution since there is no tantivy-equivalent engine in Go.
func (ix *Index) SearchRegex(pattern string, caseSensitive bool) ([]ContentMatch, error) {
	reSrc := pattern
	if !caseSensitive {
		reSrc = "(?i)" + pattern
	}
	re, err := regexp.Compile(reSrc)
	if err != nil {
		return nil, fmt.Errorf("lexical: compile regex %q: %w", pattern, err)
	}

	var candidates map[docID]bool
	haveCandidates := false
	if plan, planErr := query.PlanRegex(pattern); planErr == nil {
		candidates, haveCandidates = ix.candidatesFor(plan, caseSensitive)
	}

	var matches []ContentMatch
	if !haveCandidates {
		for id := range ix.docs {
			matches = append(matches, regexMatches(ix.docs[id], re)...)
		}
	} else {
		for id := range candidates {
			matches = append(matches, regexMatches(ix.docs[id], re)...)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Doc.RelativePath != matches[j].Doc.RelativePath {
			return matches[i].Doc.RelativePath < matches[j].Doc.RelativePath
		}
		return matches[i].Offset < matches[j].Offset
	})
	return matches, nil
}

// candidatesFor walks a query.Fragment plan and returns the set of
// document IDs whose postings satisfy it, mirroring compiler.rs's
// plan_to_query: a Literal leaf narrows by its own trigrams, an And
// intersects its children's sets, an Or unions them, and a Break (or any
// branch this function can't narrow) means "every document qualifies
// here", reported as ok=false so the caller doesn't wrongly exclude
// documents a widen-only fragment would have matched.
func (ix *Index) candidatesFor(f query.Fragment, caseSensitive bool) (map[docID]bool, bool) {
	switch {
	case f.Break:
		return nil, false
	case f.Literal != "":
		return ix.literalCandidates(f.Literal, caseSensitive)
	case f.Op == query.OpAnd:
		var result map[docID]bool
		have := false
		for _, child := range f.Children {
			set, ok := ix.candidatesFor(child, caseSensitive)
			if !ok {
				continue
			}
			if !have {
				result = set
				have = true
				continue
			}
			next := make(map[docID]bool)
			for id := range result {
				if set[id] {
					next[id] = true
				}
			}
			result = next
		}
		return result, have
	case f.Op == query.OpOr:
		result := make(map[docID]bool)
		for _, child := range f.Children {
			set, ok := ix.candidatesFor(child, caseSensitive)
			if !ok {
				return nil, false
			}
			for id := range set {
				result[id] = true
			}
		}
		return result, true
	default:
		return nil, false
	}
}

// literalCandidates narrows the candidate document set for needle by
// AND-ing the postings of its overlapping trigrams, expanding each
// trigram into every case permutation first when caseSensitive is false.
// The second return value is false when needle is too short to carry any
// trigram, signaling the caller to fall back to a full scan.
func (ix *Index) literalCandidates(needle string, caseSensitive bool) (map[docID]bool, bool) {
	if len([]rune(needle)) < ngramSize {
		return nil, false
	}
	tris := trigrams(needle)
	var candidates map[docID]bool
	for i, tri := range tris {
		texts := []string{tri.text}
		if !caseSensitive {
			texts = casePermutations(tri.text)
		}
		hits := make(map[docID]bool)
		for _, text := range texts {
			for _, p := range ix.postings[text] {
				hits[p.Doc] = true
			}
		}
		if i == 0 {
			candidates = hits
			continue
		}
		next := make(map[docID]bool)
		for id := range candidates {
			if hits[id] {
				next[id] = true
			}
		}
		candidates = next
	}
	return candidates, true
}

func (ix *Index) scanAll(needle string, caseSensitive bool) []ContentMatch {
	var matches []ContentMatch
	for _, d := range ix.docs {
		matches = append(matches, verify(d, needle, caseSensitive)...)
	}
	return matches
}

func regexMatches(doc models.ContentDocument, re *regexp.Regexp) []ContentMatch {
	var matches []ContentMatch
	for _, loc := range re.FindAllStringIndex(doc.Content, -1) {
		matches = append(matches, ContentMatch{Doc: doc, Offset: loc[0]})
	}
	return matches
}

func verify(doc models.ContentDocument, needle string, caseSensitive bool) []ContentMatch {
	haystack := doc.Content
	n := needle
	if !caseSensitive {
		haystack = strings.ToLower(haystack)
		n = strings.ToLower(n)
	}
	var matches []ContentMatch
	start := 0
	for {
		idx := strings.Index(haystack[start:], n)
		if idx < 0 {
			break
		}
		matches = append(matches, ContentMatch{Doc: doc, Offset: start + idx})
		start += idx + 1
		if start >= len(haystack) {
			break
		}
	}
	return matches
}

type trigram struct {
	text   string
	offset int
}

// trigrams splits s into overlapping 3-rune windows, case-preserved. A
// string shorter than three runes is returned whole as a single fragment
// rather than dropped, ported from the teacher's own trigrams() (which
// falls back to a bigram or unigram rather than yielding nothing) in
// server/bleep/src/query/compiler.rs.
func trigrams(s string) []trigram {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) < ngramSize {
		return []trigram{{text: string(runes), offset: 0}}
	}

	runeByteLen := make([]int, len(runes))
	for i, r := range runes {
		runeByteLen[i] = len(string(r))
	}
	offsets := make([]int, len(runes)+1)
	for i, l := range runeByteLen {
		offsets[i+1] = offsets[i] + l
	}

	out := make([]trigram, 0, len(runes)-ngramSize+1)
	for i := 0; i+ngramSize <= len(runes); i++ {
		out = append(out, trigram{
			text:   string(runes[i : i+ngramSize]),
			offset: offsets[i],
		})
	}
	return out
}

// casePermutations returns every ASCII-case permutation of s, letters
// without a case variant (digits, punctuation, non-Latin script) left
// unchanged. Ported from the teacher's bitmask-based case_permutations in
// server/bleep/src/query/compiler.rs: each bit of a counter selects
// whether one rune is upper- or lower-cased, skipping masks that would
// try to uppercase a rune with no uppercase form.
func casePermutations(s string) []string {
	chars := []rune(strings.ToLower(s))
	n := len(chars)
	if n == 0 {
		return []string{""}
	}

	var noVariantMask uint32
	for i, c := range chars {
		if unicode.ToUpper(c) == c {
			noVariantMask |= 1 << uint(i)
		}
	}

	endMask := uint32(1) << uint(n)
	out := make([]string, 0, endMask)
	for mask := uint32(0); mask < endMask; mask++ {
		if mask&noVariantMask != 0 {
			continue
		}
		b := make([]rune, n)
		for i, c := range chars {
			if mask&(1<<uint(i)) != 0 {
				b[i] = unicode.ToUpper(c)
			} else {
				b[i] = c
			}
		}
		out = append(out, string(b))
	}
	return out
}

// Package search implements hybrid search: a semantic pass over the vector
// store re-ranked with an additive exact-match boost and a file-path
// relevance multiplier. Grounded on the teacher's internal/search.Searcher,
// generalized to query internal/vector instead of internal/vectordb.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jamaly87/codesearch/internal/vector"
	"github.com/jamaly87/codesearch/pkg/config"
)

// Result is one scored search hit.
type Result struct {
	Point          vector.Point
	SemanticScore  float64
	ExactMatch     bool
	HybridScore    float64
	MatchPositions []int
}

// Searcher runs hybrid semantic/lexical search over a repository's index.
type Searcher struct {
	cfg      *config.SearchConfig
	embedder vector.Embedder
	vectors  *vector.Store
	log      zerolog.Logger
}

// New builds a Searcher.
func New(cfg *config.SearchConfig, embedder vector.Embedder, vectors *vector.Store, logger zerolog.Logger) *Searcher {
	return &Searcher{
		cfg:      cfg,
		embedder: embedder,
		vectors:  vectors,
		log:      logger.With().Str("component", "search").Logger(),
	}
}

// Search embeds query, fetches candidates from the vector store, and
// re-ranks them with hybrid scoring before truncating to MaxResults.
func (s *Searcher) Search(ctx context.Context, query, repoName string) ([]Result, error) {
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	searchLimit := s.cfg.MaxResults * 3
	hits, err := s.vectors.Search(ctx, vecs[0], repoName, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search vector store: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	results := s.applyHybridScoring(query, hits)

	sort.Slice(results, func(i, j int) bool {
		return results[i].HybridScore > results[j].HybridScore
	})

	if len(results) > s.cfg.MaxResults {
		results = results[:s.cfg.MaxResults]
	}
	return results, nil
}

// applyHybridScoring combines semantic score, an additive exact-match
// boost and a file-path relevance multiplier, mirroring the teacher's
// three-factor hybrid score.
func (s *Searcher) applyHybridScoring(query string, hits []vector.Hit) []Result {
	results := make([]Result, len(hits))
	queryLower := strings.ToLower(query)
	queryWords := strings.Fields(queryLower)

	for i, hit := range hits {
		result := Result{Point: hit.Point, SemanticScore: hit.Score}
		hybrid := hit.Score * s.cfg.SemanticWeight

		contentLower := strings.ToLower(hit.Point.Snippet)
		if strings.Contains(contentLower, queryLower) {
			result.ExactMatch = true
			result.MatchPositions = findMatchPositions(contentLower, queryLower)
			hybrid += s.cfg.ExactMatchBoost
		} else if len(queryWords) > 0 {
			matched := 0
			for _, w := range queryWords {
				if len(w) > 2 && strings.Contains(contentLower, w) {
					matched++
				}
			}
			if matched > 0 {
				hybrid += (float64(matched) / float64(len(queryWords))) * 0.3
			}
		}

		hybrid *= filePathScore(hit.Point.RelativePath)
		result.HybridScore = hybrid
		results[i] = result
	}
	return results
}

// filePathScore penalizes test/vendor/generated paths and boosts
// canonical source directories, the same heuristic the teacher applies.
func filePathScore(path string) float64 {
	pathLower := "/" + strings.ToLower(path)
	switch {
	case isTestFile(pathLower):
		return 0.05
	case isGeneratedOrVendor(pathLower):
		return 0.2
	case isMainSourceFile(pathLower):
		return 1.3
	default:
		return 1.0
	}
}

func isTestFile(pathLower string) bool {
	for _, dir := range []string{"/test/", "/tests/", "/__tests__/", "/spec/"} {
		if strings.Contains(pathLower, dir) {
			return true
		}
	}
	for _, suffix := range []string{
		"_test.go", "_test.js", "_test.ts",
		".test.js", ".test.ts", ".test.jsx", ".test.tsx",
		".spec.js", ".spec.ts", ".spec.jsx", ".spec.tsx",
		"test.java", "tests.java",
	} {
		if strings.HasSuffix(pathLower, suffix) {
			return true
		}
	}
	return false
}

func isMainSourceFile(pathLower string) bool {
	if strings.Contains(pathLower, "/cmd/") && !strings.Contains(pathLower, "/test") {
		return true
	}
	for _, dir := range []string{"/src/main/", "/src/core/", "/lib/", "/pkg/", "/internal/"} {
		if strings.Contains(pathLower, dir) {
			return true
		}
	}
	return false
}

func isGeneratedOrVendor(pathLower string) bool {
	for _, marker := range []string{"/vendor/", "/node_modules/", "/target/", "/build/", "/dist/", ".generated.", "_generated."} {
		if strings.Contains(pathLower, marker) {
			return true
		}
	}
	return false
}

func findMatchPositions(content, query string) []int {
	var positions []int
	pos := 0
	for {
		idx := strings.Index(content[pos:], query)
		if idx == -1 {
			break
		}
		positions = append(positions, pos+idx)
		pos += idx + len(query)
	}
	return positions
}

// FormatResults renders results as plain text, grouped with a content
// preview, for CLI and MCP tool output.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results:\n\n", len(results))

	for i, r := range results {
		location := fmt.Sprintf("%s:%d-%d", r.Point.RelativePath, r.Point.StartLine, r.Point.EndLine)
		scoreInfo := fmt.Sprintf("score: %.3f", r.HybridScore)
		if r.ExactMatch {
			scoreInfo += " [EXACT MATCH]"
		}

		fmt.Fprintf(&b, "%d. %s\n", i+1, location)
		fmt.Fprintf(&b, "   %s\n", scoreInfo)
		fmt.Fprintf(&b, "   Language: %s\n", r.Point.Lang)

		lines := strings.Split(r.Point.Snippet, "\n")
		previewLines := 3
		if len(lines) < previewLines {
			previewLines = len(lines)
		}
		b.WriteString("   Preview:\n")
		for j := 0; j < previewLines; j++ {
			line := strings.TrimSpace(lines[j])
			if len(line) > 80 {
				line = line[:80] + "..."
			}
			fmt.Fprintf(&b, "   │ %s\n", line)
		}
		if len(lines) > previewLines {
			fmt.Fprintf(&b, "   │ ... (%d more lines)\n", len(lines)-previewLines)
		}
		b.WriteString("\n")
	}
	return b.String()
}

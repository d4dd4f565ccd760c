package search

import (
	"strings"
	"testing"

	"github.com/jamaly87/codesearch/internal/vector"
	"github.com/jamaly87/codesearch/pkg/config"
)

func TestApplyHybridScoring(t *testing.T) {
	cfg := &config.SearchConfig{
		MaxResults:      5,
		SemanticWeight:  0.7,
		ExactMatchBoost: 1.5,
	}
	s := &Searcher{cfg: cfg}

	tests := []struct {
		name        string
		query       string
		hits        []vector.Hit
		expectExact []bool
	}{
		{
			name:  "exact match boosted to top",
			query: "logger",
			hits: []vector.Hit{
				{Point: vector.Point{RelativePath: "test1.java", Snippet: "This is a test"}, Score: 0.8},
				{Point: vector.Point{RelativePath: "test2.java", Snippet: "Code with logger.info() call"}, Score: 0.6},
			},
			expectExact: []bool{false, true},
		},
		{
			name:  "no exact matches - pure semantic ranking",
			query: "authentication",
			hits: []vector.Hit{
				{Point: vector.Point{RelativePath: "test1.java", Snippet: "User login service"}, Score: 0.9},
				{Point: vector.Point{RelativePath: "test2.java", Snippet: "Database connection"}, Score: 0.3},
			},
			expectExact: []bool{false, false},
		},
		{
			name:  "case insensitive exact match",
			query: "Logger",
			hits: []vector.Hit{
				{Point: vector.Point{RelativePath: "test1.java", Snippet: "private static final logger = new Logger();"}, Score: 0.5},
			},
			expectExact: []bool{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := s.applyHybridScoring(tt.query, tt.hits)
			if len(results) != len(tt.hits) {
				t.Fatalf("expected %d results, got %d", len(tt.hits), len(results))
			}
			for i, r := range results {
				if r.HybridScore == 0 {
					t.Errorf("result %d has zero hybrid score", i)
				}
				if r.ExactMatch != tt.expectExact[i] {
					t.Errorf("result %d: expected exact match=%v, got %v", i, tt.expectExact[i], r.ExactMatch)
				}

				expected := tt.hits[i].Score * cfg.SemanticWeight
				if r.ExactMatch {
					expected += cfg.ExactMatchBoost
				}
				expected *= filePathScore(r.Point.RelativePath)
				if abs(r.HybridScore-expected) > 0.001 {
					t.Errorf("result %d: expected hybrid score %.3f, got %.3f", i, expected, r.HybridScore)
				}
			}
		})
	}
}

func TestFilePathScore(t *testing.T) {
	cases := []struct {
		path     string
		expected float64
	}{
		{"src/main/Foo.java", 1.3},
		{"internal/search/searcher.go", 1.3},
		{"internal/search/searcher_test.go", 0.05},
		{"vendor/lib/foo.go", 0.2},
		{"node_modules/react/index.js", 0.2},
		{"README.md", 1.0},
	}
	for _, c := range cases {
		if got := filePathScore(c.path); got != c.expected {
			t.Errorf("filePathScore(%q) = %v, want %v", c.path, got, c.expected)
		}
	}
}

func TestFindMatchPositions(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		content       string
		expectedCount int
	}{
		{"single match", "logger", "this code uses logger.info()", 1},
		{"multiple matches", "user", "user.getname() and user.getemail()", 2},
		{"no match", "database", "this is about users", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			positions := findMatchPositions(strings.ToLower(tt.content), strings.ToLower(tt.query))
			if len(positions) != tt.expectedCount {
				t.Errorf("expected %d matches, got %d", tt.expectedCount, len(positions))
			}
		})
	}
}

func TestFormatResults(t *testing.T) {
	tests := []struct {
		name     string
		results  []Result
		expected []string
	}{
		{
			name:     "empty results",
			results:  []Result{},
			expected: []string{"No results found"},
		},
		{
			name: "single result",
			results: []Result{
				{
					Point: vector.Point{
						RelativePath: "test.java",
						StartLine:    10,
						EndLine:      20,
						Snippet:      "public void test() {\n  return true;\n}",
						Lang:         "java",
					},
					HybridScore:   0.85,
					SemanticScore: 0.75,
				},
			},
			expected: []string{"Found 1 results", "test.java:10-20", "score: 0.850", "Language: java"},
		},
		{
			name: "result with exact match",
			results: []Result{
				{
					Point: vector.Point{
						RelativePath: "auth.java",
						StartLine:    5,
						EndLine:      15,
						Snippet:      "public void authenticate() {}",
						Lang:         "java",
					},
					HybridScore:   0.92,
					SemanticScore: 0.82,
					ExactMatch:    true,
				},
			},
			expected: []string{"auth.java:5-15", "EXACT MATCH"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := FormatResults(tt.results)
			for _, expected := range tt.expected {
				if !strings.Contains(output, expected) {
					t.Errorf("output missing expected string %q\ngot:\n%s", expected, output)
				}
			}
		})
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

package agent

import (
	"context"
	"fmt"

	"github.com/jamaly87/codesearch/internal/lexical"
	"github.com/jamaly87/codesearch/internal/vector"
)

// SearchHit is one snippet a tool surfaced, the structured form the agent
// loop needs in order to assign a path alias and build a CodeChunk, rather
// than a pre-rendered string.
type SearchHit struct {
	Path      string
	StartLine int
	EndLine   int
	Snippet   string
	Lang      string
}

// SearchTools adapts the index packages (vector, lexical) into the search
// operations the agent loop calls, the way bloop's Agent methods
// (code_search, path_search, process_files) sit directly on top of its
// semantic and trigram indexes.
type SearchTools struct {
	Embedder vector.Embedder
	Vectors  *vector.Store
	Lexical  *lexical.Index
}

// CodeSearch embeds query and returns the top semantic matches.
func (t *SearchTools) CodeSearch(ctx context.Context, query, repoName string, limit int) ([]SearchHit, error) {
	vecs, err := t.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("code search embed: %w", err)
	}
	hits, err := t.Vectors.Search(ctx, vecs[0], repoName, limit)
	if err != nil {
		return nil, fmt.Errorf("code search: %w", err)
	}
	out := make([]SearchHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, SearchHit{
			Path:      h.Point.RelativePath,
			StartLine: h.Point.StartLine,
			EndLine:   h.Point.EndLine,
			Snippet:   h.Point.Snippet,
			Lang:      h.Point.Lang,
		})
	}
	return out, nil
}

// PathSearch fuzzy-matches query against known file paths.
func (t *SearchTools) PathSearch(ctx context.Context, query, repoName string, limit int) ([]string, error) {
	matches := t.Lexical.FuzzyPath(query, limit)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Doc.RelativePath)
	}
	return out, nil
}

// Proc answers query using the full content of the named paths, the
// lexical analogue of bloop's process_files tool which feeds whole files
// to the LLM rather than a search index. Each returned SearchHit spans the
// whole file; callers that need a narrower range run their own line-range
// extraction over the snippet.
func (t *SearchTools) Proc(ctx context.Context, query string, paths []string) ([]SearchHit, error) {
	var out []SearchHit
	for _, p := range paths {
		doc, ok := t.Lexical.Get(p)
		if !ok {
			continue
		}
		lines := 1
		for _, r := range doc.Content {
			if r == '\n' {
				lines++
			}
		}
		out = append(out, SearchHit{Path: p, StartLine: 1, EndLine: lines, Snippet: doc.Content})
	}
	return out, nil
}

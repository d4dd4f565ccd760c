package docscraper

import (
	"context"
	"fmt"

	"github.com/jamaly87/codesearch/internal/chunk"
	"github.com/jamaly87/codesearch/internal/vector"
	"github.com/jamaly87/codesearch/pkg/idgen"
)

// Ingester chunks and embeds scraped pages into the same vector store used
// for code, so the agent loop's code_search tool surfaces doc snippets
// alongside source snippets.
type Ingester struct {
	Scraper  *Scraper
	Chunker  *chunk.Chunker
	Embedder vector.Embedder
	Vectors  *vector.Store
	RepoName string // the synthetic "repo" documentation is filed under
}

// Ingest fetches url, splits its article text into chunks and upserts them.
func (ig *Ingester) Ingest(ctx context.Context, url string) (int, error) {
	page, err := ig.Scraper.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}
	if page.Text == "" {
		return 0, fmt.Errorf("docscraper: %s produced no extractable text", url)
	}

	spans := ig.Chunker.Chunk(ig.RepoName, url, page.Text, "text")
	if len(spans) == 0 {
		return 0, nil
	}

	texts := make([]string, len(spans))
	for i, sp := range spans {
		texts[i] = sp.Text
	}
	vecs, err := ig.Embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("docscraper: embed %s: %w", url, err)
	}

	points := make([]vector.Point, len(spans))
	for i, sp := range spans {
		points[i] = vector.Point{
			DocID:        idgen.PointID(ig.RepoName, url, sp.Range.Start.Byte, sp.Range.End.Byte),
			RepoName:     ig.RepoName,
			RelativePath: url,
			Lang:         "text",
			StartLine:    sp.Range.Start.Line,
			EndLine:      sp.Range.End.Line,
			StartByte:    sp.Range.Start.Byte,
			EndByte:      sp.Range.End.Byte,
			Snippet:      sp.Text,
			Vector:       vecs[i],
		}
	}

	if err := ig.Vectors.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("docscraper: upsert %s: %w", url, err)
	}
	return len(points), nil
}

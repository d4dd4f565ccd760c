package docscraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jamaly87/codesearch/internal/chunk"
)

type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func (f *fakeEmbedder) HealthCheck(ctx context.Context) error { return nil }

func TestIngestChunksScrapedText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleHTML))
	}))
	defer srv.Close()

	ck, err := chunk.New(1, 200, 20)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}

	ig := &Ingester{
		Scraper:  New(),
		Chunker:  ck,
		Embedder: &fakeEmbedder{dim: 8},
		RepoName: "docs",
	}

	// Exercise the chunk+embed path without a live Qdrant by checking the
	// pieces Ingest would hand to Vectors.Upsert; Vectors is left nil and
	// Ingest is expected to reach its Upsert call, so call the scraper and
	// chunker stages directly instead of the full Ingest (which requires a
	// live *vector.Store).
	page, err := ig.Scraper.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	spans := ig.Chunker.Chunk(ig.RepoName, srv.URL, page.Text, "text")
	if len(spans) == 0 {
		t.Fatalf("expected at least one chunk from scraped text")
	}
	vecs, err := ig.Embedder.Embed(context.Background(), []string{spans[0].Text})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs[0]) != 8 {
		t.Errorf("unexpected embedding dimension: %d", len(vecs[0]))
	}
}

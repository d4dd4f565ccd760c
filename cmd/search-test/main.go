package main

import (
	"context"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/jamaly87/codesearch/internal/search"
	"github.com/jamaly87/codesearch/internal/vector"
	"github.com/jamaly87/codesearch/pkg/config"
	"github.com/jamaly87/codesearch/pkg/logging"
)

func main() {
	fs := flag.NewFlagSet("codesearch-search-test", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	query := fs.String("query", "JWT token validation", "search query")
	repoName := fs.String("repo-name", "", "name of the indexed repository to search")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger := logging.New(logging.Options{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
	logger.Info().Str("repo_name", *repoName).Str("query", *query).Msg("starting semantic search test")

	ctx := context.Background()
	embedder := vector.NewOllamaEmbedder(cfg.Embeddings, logger)
	vectors, err := vector.NewStore(cfg.VectorDB, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create vector store")
	}
	if err := vectors.Initialize(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize vector store")
	}
	defer vectors.Close()

	searcher := search.New(&cfg.Search, embedder, vectors, logger)

	start := time.Now()
	results, err := searcher.Search(ctx, *query, *repoName)
	if err != nil {
		logger.Fatal().Err(err).Msg("search failed")
	}
	duration := time.Since(start)

	logger.Info().Dur("duration", duration).Int("results_found", len(results)).Msg("search completed")
	if len(results) == 0 {
		logger.Warn().Msg("no results found")
		return
	}

	for i, r := range results {
		logger.Info().
			Int("rank", i+1).
			Str("path", r.Point.RelativePath).
			Int("start_line", r.Point.StartLine).
			Int("end_line", r.Point.EndLine).
			Float64("hybrid_score", r.HybridScore).
			Float64("semantic_score", r.SemanticScore).
			Bool("exact_match", r.ExactMatch).
			Str("language", r.Point.Lang).
			Msg("search result")
	}

	resultsPerSec := 0.0
	if duration.Milliseconds() > 0 {
		resultsPerSec = float64(len(results)) / duration.Seconds()
	}
	logger.Info().Dur("search_time", duration).Int("results_count", len(results)).
		Float64("results_per_sec", resultsPerSec).Msg("search performance")
}

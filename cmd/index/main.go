package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/jamaly87/codesearch/internal/indexer"
	"github.com/jamaly87/codesearch/internal/lexical"
	"github.com/jamaly87/codesearch/internal/vector"
	"github.com/jamaly87/codesearch/pkg/config"
	"github.com/jamaly87/codesearch/pkg/logging"
)

func main() {
	fs := flag.NewFlagSet("codesearch-index", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	repoName := fs.String("repo-name", "", "name to file this repository's index under (defaults to the directory name)")
	_ = fs.Parse(os.Args[1:])

	repoPath, err := os.Getwd()
	if err != nil {
		panic("failed to get current directory: " + err.Error())
	}
	if fs.NArg() > 0 {
		repoPath = fs.Arg(0)
	}
	if *repoName == "" {
		*repoName = filepath.Base(repoPath)
	}

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	cfg.Indexing.Background = false

	logger := logging.New(logging.Options{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
	logger.Info().Str("repository", repoPath).Str("repo_name", *repoName).Msg("starting repository indexing")

	ctx := context.Background()

	lexicalIdx := lexical.New()
	embedder := vector.NewOllamaEmbedder(cfg.Embeddings, logger)
	vectors, err := vector.NewStore(cfg.VectorDB, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create vector store")
	}
	if err := vectors.Initialize(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize vector store")
	}
	defer vectors.Close()

	idx, err := indexer.New(cfg, lexicalIdx, embedder, vectors, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create indexer")
	}

	start := time.Now()
	job, err := idx.Index(ctx, *repoName, repoPath, true)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start indexing")
	}

	for job.Status != "completed" && job.Status != "failed" {
		time.Sleep(200 * time.Millisecond)
		job, err = idx.GetJob(job.ID)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to poll job status")
		}
	}
	duration := time.Since(start)

	if job.Status == "failed" {
		logger.Error().
			Str("error", job.Error).
			Str("job_id", job.ID).
			Int("files_total", job.FilesTotal).
			Int("files_indexed", job.FilesIndexed).
			Int("chunks_total", job.ChunksTotal).
			Dur("duration", duration).
			Msg("indexing failed")
		os.Exit(1)
	}

	logger.Info().
		Str("job_id", job.ID).
		Str("status", job.Status).
		Int("files_total", job.FilesTotal).
		Int("files_indexed", job.FilesIndexed).
		Int("chunks_total", job.ChunksTotal).
		Dur("duration", duration).
		Msg("indexing completed successfully")
}

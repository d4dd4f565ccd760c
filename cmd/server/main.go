package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/jamaly87/codesearch/internal/mcp"
	"github.com/jamaly87/codesearch/pkg/config"
	"github.com/jamaly87/codesearch/pkg/logging"
)

func main() {
	fs := flag.NewFlagSet("codesearch-server", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	fs.String("ollama-url", "", "override the embeddings Ollama URL")
	fs.String("qdrant-addr", "", "override the Qdrant address")
	fs.String("log-level", "", "override the log level")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger := logging.New(logging.Options{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
	logger.Info().Str("embedding_model", cfg.Embeddings.Model).Str("ollama_url", cfg.Embeddings.OllamaURL).Msg("configuration loaded")

	srv, err := mcp.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create mcp server")
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("received shutdown signal")
		cancel()
	}()

	logger.Info().Msg("starting mcp server")
	if err := srv.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

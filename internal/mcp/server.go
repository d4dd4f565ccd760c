// Package mcp exposes the index, search, navigation and agent-ask
// operations as MCP tools over stdio, the same external surface the
// teacher's internal/mcp package serves, generalized from its four
// indexing/search tools to also cover code navigation and the agent loop.
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/jamaly87/codesearch/internal/agent"
	"github.com/jamaly87/codesearch/internal/indexer"
	"github.com/jamaly87/codesearch/internal/lexical"
	"github.com/jamaly87/codesearch/internal/llm"
	"github.com/jamaly87/codesearch/internal/scopegraph"
	"github.com/jamaly87/codesearch/internal/search"
	"github.com/jamaly87/codesearch/internal/vector"
	"github.com/jamaly87/codesearch/pkg/config"
)

// Server is the MCP server wrapping the index, search and agent stack.
type Server struct {
	cfg       *config.Config
	mcpServer *server.MCPServer
	log       zerolog.Logger

	indexer      *indexer.Indexer
	searcher     *search.Searcher
	lexical      *lexical.Index
	vectors      *vector.Store
	embedder     vector.Embedder
	scopeBuilder *scopegraph.Builder
	gateway      llm.Gateway
}

// NewServer builds the MCP server and its backing index/search/agent
// stack from cfg.
func NewServer(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	lexicalIdx := lexical.New()

	embedder := vector.NewOllamaEmbedder(cfg.Embeddings, logger)

	vectors, err := vector.NewStore(cfg.VectorDB, logger)
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	if err := vectors.Initialize(context.Background()); err != nil {
		return nil, fmt.Errorf("initialize vector store: %w", err)
	}

	idx, err := indexer.New(cfg, lexicalIdx, embedder, vectors, logger)
	if err != nil {
		return nil, fmt.Errorf("create indexer: %w", err)
	}

	searcher := search.New(&cfg.Search, embedder, vectors, logger)
	gateway := llm.NewOpenAIGateway(cfg.LLM)

	s := &Server{
		cfg:          cfg,
		log:          logger.With().Str("component", "mcp").Logger(),
		indexer:      idx,
		searcher:     searcher,
		lexical:      lexicalIdx,
		vectors:      vectors,
		embedder:     embedder,
		scopeBuilder: scopegraph.NewBuilder(),
		gateway:      gateway,
	}

	mcpServer := server.NewMCPServer(cfg.Server.Name, cfg.Server.Version)
	for _, tool := range s.getTools() {
		mcpServer.AddTool(tool, s.createToolHandler(tool.Name))
	}
	s.mcpServer = mcpServer

	s.log.Info().Str("name", cfg.Server.Name).Str("version", cfg.Server.Version).
		Int("tools", len(s.getTools())).Msg("mcp server initialized")

	return s, nil
}

func (s *Server) createToolHandler(toolName string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.log.Debug().Str("tool", toolName).Msg("handling tool call")

		var args map[string]interface{}
		if request.Params.Arguments != nil {
			var ok bool
			args, ok = request.Params.Arguments.(map[string]interface{})
			if !ok {
				return errorResult("invalid arguments format"), nil
			}
		} else {
			args = make(map[string]interface{})
		}

		switch toolName {
		case "semantic_search":
			return s.handleSemanticSearch(ctx, args)
		case "index_codebase":
			return s.handleIndexCodebase(ctx, args)
		case "clear_cache":
			return s.handleClearCache(ctx, args)
		case "get_index_status":
			return s.handleGetIndexStatus(ctx, args)
		case "navigate":
			return s.handleNavigate(ctx, args)
		case "ask":
			return s.handleAsk(ctx, args)
		default:
			return errorResult(fmt.Sprintf("unknown tool: %s", toolName)), nil
		}
	}
}

// Start serves the MCP server over stdio until the process is killed.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info().Msg("starting mcp server on stdio transport")
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Close releases the vector store connection.
func (s *Server) Close() error {
	s.log.Info().Msg("shutting down mcp server")
	return s.vectors.Close()
}

// agentTools wires SearchTools for a specific repo's ask requests.
func (s *Server) agentTools() agent.Tools {
	return &agent.SearchTools{Embedder: s.embedder, Vectors: s.vectors, Lexical: s.lexical}
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jamaly87/codesearch/internal/agent"
	"github.com/jamaly87/codesearch/internal/models"
	"github.com/jamaly87/codesearch/internal/navigate"
	"github.com/jamaly87/codesearch/internal/query"
	"github.com/jamaly87/codesearch/internal/search"
)

func (s *Server) getTools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "semantic_search",
			Description: "Search for code in a repository using natural language queries. Use this for 'where is...', 'find...', 'how do we...' questions about locating specific code. Returns ranked matches with file locations, line numbers and relevance scores.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"query":     map[string]interface{}{"type": "string", "description": "Natural language search query"},
					"repo_name": map[string]interface{}{"type": "string", "description": "Name of the indexed repository to search"},
				},
				Required: []string{"query", "repo_name"},
			},
		},
		{
			Name:        "index_codebase",
			Description: "Index a code repository to enable semantic search, navigation and ask. Scans source files, builds scope graphs, chunks and embeds them, and stores the result in the lexical and vector indexes. Supports incremental reindexing.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"repo_name":     map[string]interface{}{"type": "string", "description": "Name to file this repository's index under"},
					"repo_path":     map[string]interface{}{"type": "string", "description": "Absolute path to the repository to index"},
					"force_reindex": map[string]interface{}{"type": "boolean", "description": "Force full reindex even if already indexed", "default": false},
				},
				Required: []string{"repo_name", "repo_path"},
			},
		},
		{
			Name:        "clear_cache",
			Description: "Clear the file-hash cache for a repository so the next index_codebase call reprocesses every file.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{"repo_path": map[string]interface{}{"type": "string", "description": "Absolute path to the repository"}},
				Required:   []string{"repo_path"},
			},
		},
		{
			Name:        "get_index_status",
			Description: "Get indexing status and statistics for a repository: total files, chunks, last indexed time.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"repo_name": map[string]interface{}{"type": "string", "description": "Name of the indexed repository"},
					"repo_path": map[string]interface{}{"type": "string", "description": "Absolute path to the repository"},
				},
				Required: []string{"repo_name", "repo_path"},
			},
		},
		{
			Name:        "navigate",
			Description: "Jump to a definition or find every reference of a symbol. Pass either a path+byte_offset pair to resolve what's under the cursor, or a symbol name to list its definitions/references directly.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"repo_name":   map[string]interface{}{"type": "string", "description": "Name of the indexed repository"},
					"path":        map[string]interface{}{"type": "string", "description": "Relative file path to resolve a byte offset in"},
					"byte_offset": map[string]interface{}{"type": "number", "description": "Byte offset within path"},
					"symbol":      map[string]interface{}{"type": "string", "description": "Symbol name to look up directly"},
					"mode":        map[string]interface{}{"type": "string", "enum": []string{"definitions", "references"}, "default": "definitions"},
				},
				Required: []string{"repo_name"},
			},
		},
		{
			Name:        "ask",
			Description: "Ask a question about a codebase in natural language. Runs the agent loop (search, read files, then answer) and returns a cited Markdown answer.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"query":     map[string]interface{}{"type": "string", "description": "Question about the codebase"},
					"repo_name": map[string]interface{}{"type": "string", "description": "Name of the indexed repository"},
				},
				Required: []string{"query", "repo_name"},
			},
		},
	}
}

// handleSemanticSearch compiles the query through the query grammar
// (field filters, "or", regex:/symbol: targets) before dispatching each
// resulting branch to the engine it names: a symbol: filter goes to
// navigation, a regex: filter goes to the lexical trigram index, and a
// plain free-text term goes to the vector-backed Searcher, mirroring the
// teacher's Target::Symbol/Content split once it reaches its own engines.
func (s *Server) handleSemanticSearch(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	rawQuery, ok := args["query"].(string)
	if !ok || rawQuery == "" {
		return errorResult("query is required and must be a string"), nil
	}
	repoName, ok := args["repo_name"].(string)
	if !ok || repoName == "" {
		return errorResult("repo_name is required and must be a string"), nil
	}

	branches, err := query.CompileAll(rawQuery)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid query: %v", err)), nil
	}

	var sections []string
	for _, c := range branches {
		repo := repoName
		if len(c.Repos) > 0 {
			repo = c.Repos[0]
		}

		switch {
		case c.Target.IsSymbol():
			ix := s.buildNavigateIndex(repo)
			sections = append(sections, successJSON(ix.Definitions(c.Target.Symbol)))

		case !c.IsSemantic && c.Target.Content != "":
			matches, err := s.lexical.SearchRegex(c.Target.Content, c.CaseSensitive)
			if err != nil {
				return errorResult(fmt.Sprintf("search failed: %v", err)), nil
			}
			sections = append(sections, successJSON(matches))

		case c.Target.Content != "":
			results, err := s.searcher.Search(ctx, c.Target.Content, repo)
			if err != nil {
				return errorResult(fmt.Sprintf("search failed: %v", err)), nil
			}
			sections = append(sections, search.FormatResults(results))
		}
	}
	if len(sections) == 0 {
		return textResult("No results found."), nil
	}
	return textResult(strings.Join(sections, "\n\n")), nil
}

func successJSON(data interface{}) string {
	b, _ := json.MarshalIndent(data, "", "  ")
	return string(b)
}

func (s *Server) handleIndexCodebase(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	repoName, ok := args["repo_name"].(string)
	if !ok || repoName == "" {
		return errorResult("repo_name is required and must be a string"), nil
	}
	repoPath, ok := args["repo_path"].(string)
	if !ok || repoPath == "" {
		return errorResult("repo_path is required and must be a string"), nil
	}
	forceReindex, _ := args["force_reindex"].(bool)

	job, err := s.indexer.Index(ctx, repoName, repoPath, forceReindex)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to start indexing: %v", err)), nil
	}

	if !s.cfg.Indexing.Background {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return errorResult("indexing cancelled"), nil
			case <-ticker.C:
				current, err := s.indexer.GetJob(job.ID)
				if err != nil {
					return errorResult(fmt.Sprintf("failed to get job status: %v", err)), nil
				}
				if current.Status == "completed" || current.Status == "failed" {
					return textResult(formatIndexOutcome(current)), nil
				}
			}
		}
	}

	return successResult(map[string]interface{}{
		"message":       "indexing started in background",
		"job_id":        job.ID,
		"repo":          repoName,
		"force_reindex": forceReindex,
		"status":        job.Status,
	}), nil
}

func formatIndexOutcome(job *models.IndexJob) string {
	duration := job.EndTime.Sub(job.StartTime)
	if job.Status == "failed" {
		return fmt.Sprintf("Indexing failed: %s\nFiles scanned: %d/%d\nChunks created: %d\nDuration: %.1fs",
			job.Error, job.FilesIndexed, job.FilesTotal, job.ChunksTotal, duration.Seconds())
	}
	return fmt.Sprintf("Indexing complete.\nFiles indexed: %d\nChunks: %d\nDuration: %.1fs",
		job.FilesIndexed, job.ChunksTotal, duration.Seconds())
}

func (s *Server) handleClearCache(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	repoPath, ok := args["repo_path"].(string)
	if !ok || repoPath == "" {
		return errorResult("repo_path is required and must be a string"), nil
	}
	if err := s.indexer.ClearCache(repoPath); err != nil {
		return errorResult(fmt.Sprintf("failed to clear cache: %v", err)), nil
	}
	return successResult(map[string]interface{}{"message": "cache cleared", "repo": repoPath}), nil
}

func (s *Server) handleGetIndexStatus(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	repoName, ok := args["repo_name"].(string)
	if !ok || repoName == "" {
		return errorResult("repo_name is required and must be a string"), nil
	}
	repoPath, _ := args["repo_path"].(string)

	repoIndex, err := s.indexer.GetRepoIndex(ctx, repoName, repoPath)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to get index status: %v", err)), nil
	}
	return successResult(repoIndex), nil
}

func (s *Server) handleNavigate(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	repoName, ok := args["repo_name"].(string)
	if !ok || repoName == "" {
		return errorResult("repo_name is required and must be a string"), nil
	}

	ix := s.buildNavigateIndex(repoName)

	if path, ok := args["path"].(string); ok && path != "" {
		byteOffset := 0
		if bo, ok := args["byte_offset"].(float64); ok {
			byteOffset = int(bo)
		}
		occs := ix.GoToDefinition(path, byteOffset)
		return successResult(occs), nil
	}

	symbol, ok := args["symbol"].(string)
	if !ok || symbol == "" {
		return errorResult("either path+byte_offset or symbol is required"), nil
	}
	mode, _ := args["mode"].(string)
	if mode == "references" {
		return successResult(ix.References(symbol)), nil
	}
	return successResult(ix.Definitions(symbol)), nil
}

// buildNavigateIndex rebuilds scope graphs for every file the lexical
// index holds for repoName. Graphs are not persisted at index time, so
// navigate queries rebuild them on demand from stored source text.
func (s *Server) buildNavigateIndex(repoName string) *navigate.Index {
	docs := s.lexical.List(repoName, 1<<20)
	files := make([]navigate.FileGraph, 0, len(docs))
	for _, doc := range docs {
		if !s.scopeBuilder.Supports(doc.Lang) {
			continue
		}
		g, err := s.scopeBuilder.Build(doc.Lang, doc.Content)
		if err != nil {
			continue
		}
		files = append(files, navigate.FileGraph{Path: doc.RelativePath, Graph: g})
	}
	return navigate.NewIndex(files)
}

func (s *Server) handleAsk(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return errorResult("query is required and must be a string"), nil
	}
	repoName, ok := args["repo_name"].(string)
	if !ok || repoName == "" {
		return errorResult("repo_name is required and must be a string"), nil
	}

	loop := agent.New(s.gateway, s.agentTools(), repoName, s.cfg.Agent)
	ex, err := loop.Run(ctx, query, nil)
	if err != nil {
		return errorResult(fmt.Sprintf("ask failed: %v", err)), nil
	}
	return textResult(ex.Answer), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}}}
}

func successResult(data interface{}) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(data, "", "  ")
	return textResult(string(jsonData))
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: fmt.Sprintf("Error: %s", message)}},
		IsError: true,
	}
}
